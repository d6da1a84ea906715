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

package commands

import (
	"context"
	"sync"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/numaproj/sessionwindow/pkg/reduce/readloop"
	"github.com/numaproj/sessionwindow/pkg/window"
)

// summary records the length of the closed sessions before passing the deltas on.
type summary[A any] struct {
	sync.Mutex
	next      readloop.Forwarder[A]
	durations stats.Float64Data
}

func newSummary[A any](next readloop.Forwarder[A]) *summary[A] {
	return &summary[A]{next: next}
}

func (s *summary[A]) Forward(ctx context.Context, shard int, deltas []*window.Delta[A]) error {
	s.Lock()
	for _, d := range deltas {
		if d.Operation == window.Close {
			s.durations = append(s.durations, float64(d.Window.End.Sub(d.Window.Start).Milliseconds()))
		}
	}
	s.Unlock()
	return s.next.Forward(ctx, shard, deltas)
}

func (s *summary[A]) closed() int {
	s.Lock()
	defer s.Unlock()
	return len(s.durations)
}

func (s *summary[A]) log(log *zap.SugaredLogger) {
	s.Lock()
	defer s.Unlock()
	if len(s.durations) == 0 {
		log.Info("No session was closed")
		return
	}
	mean, _ := stats.Mean(s.durations)
	median, _ := stats.Median(s.durations)
	p99, _ := stats.Percentile(s.durations, 99)
	longest, _ := stats.Max(s.durations)
	log.Infow("Closed sessions",
		zap.Int("count", len(s.durations)),
		zap.Float64("meanDurationMs", mean),
		zap.Float64("medianDurationMs", median),
		zap.Float64("p99DurationMs", p99),
		zap.Float64("maxDurationMs", longest))
}
