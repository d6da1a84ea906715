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
	"fmt"
	"net/http"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/numaproj/sessionwindow/pkg/shared/logging"
)

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) IsHealthy(context.Context) error {
	return m.err
}

func testContext() context.Context {
	return logging.WithLogger(context.Background(), zap.NewNop().Sugar())
}

func httpExpect(t *testing.T, handler http.Handler) *httpexpect.Expect {
	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  "http://localhost",
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Transport: httpexpect.NewBinder(handler),
			Jar:       httpexpect.NewCookieJar(),
		},
	})
}

func Test_MetricsServer_Options(t *testing.T) {
	ms := NewMetricsServer(WithAddr(":9999"), WithHealthChecker(&mockHealthChecker{}), nil)
	assert.Equal(t, ":9999", ms.addr)
	assert.Len(t, ms.healthCheckers, 1)

	assert.Equal(t, DefaultAddr, NewMetricsServer().addr)
}

func Test_MetricsServer_Handler(t *testing.T) {
	BuildInfo.WithLabelValues("test", "linux/amd64").Set(1)

	tests := []struct {
		name   string
		hc     *mockHealthChecker
		path   string
		status int
	}{
		{name: "metrics", hc: &mockHealthChecker{}, path: "/metrics", status: http.StatusOK},
		{name: "livez", hc: &mockHealthChecker{err: fmt.Errorf("down")}, path: "/livez", status: http.StatusNoContent},
		{name: "ready", hc: &mockHealthChecker{}, path: "/readyz", status: http.StatusNoContent},
		{name: "not_ready", hc: &mockHealthChecker{err: fmt.Errorf("down")}, path: "/readyz", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := NewMetricsServer(WithHealthChecker(tt.hc))
			resp := httpExpect(t, ms.handler(testContext())).GET(tt.path).Expect().Status(tt.status)
			if tt.path == "/metrics" {
				resp.Body().Contains("build_info")
			}
		})
	}
}
