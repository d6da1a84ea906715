/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/numaproj/sessionwindow/pkg/shared/logging"
)

// DefaultAddr is the default address of the metrics server.
const DefaultAddr = ":2469"

// metricsServer runs an HTTP server to:
// 1. Expose metrics;
// 2. Serve an endpoint to execute health checks
type metricsServer struct {
	addr           string
	healthCheckers []HealthChecker
	readTimeout    time.Duration
}

type Option func(*metricsServer)

// WithAddr sets the listening address
func WithAddr(addr string) Option {
	return func(m *metricsServer) {
		m.addr = addr
	}
}

// WithHealthChecker appends a health checker executed by the readiness probe
func WithHealthChecker(hc HealthChecker) Option {
	return func(m *metricsServer) {
		m.healthCheckers = append(m.healthCheckers, hc)
	}
}

// NewMetricsServer returns a metrics server
func NewMetricsServer(opts ...Option) *metricsServer {
	m := &metricsServer{
		addr:        DefaultAddr,
		readTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (ms *metricsServer) handler(ctx context.Context) http.Handler {
	log := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, hc := range ms.healthCheckers {
			if err := hc.IsHealthy(r.Context()); err != nil {
				log.Errorw("Failed to execute health check", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if os.Getenv(logging.EnvDebug) == "true" {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// Start starts the HTTP server to expose metrics, it returns a shutdown function
func (ms *metricsServer) Start(ctx context.Context) func(ctx context.Context) error {
	log := logging.FromContext(ctx)
	httpServer := &http.Server{
		Addr:              ms.addr,
		Handler:           ms.handler(ctx),
		ReadHeaderTimeout: ms.readTimeout,
	}

	go func() {
		log.Infow("Starting metrics HTTP server", zap.String("addr", ms.addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Failed to listen-and-serve on HTTP", zap.Error(err))
		}
		log.Info("Metrics server shutdown")
	}()
	return httpServer.Shutdown
}
