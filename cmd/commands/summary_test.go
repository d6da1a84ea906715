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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/numaproj/sessionwindow/pkg/reduce/readloop"
	"github.com/numaproj/sessionwindow/pkg/window"
)

func TestSummary_Forward(t *testing.T) {
	var forwarded int
	next := readloop.ForwarderFunc[int64](func(_ context.Context, _ int, deltas []*window.Delta[int64]) error {
		forwarded += len(deltas)
		return nil
	})
	s := newSummary[int64](next)
	deltas := []*window.Delta[int64]{
		{Operation: window.Open, Window: window.SessionWindow{Start: time.UnixMilli(0), End: time.UnixMilli(0)}},
		{Operation: window.Close, Window: window.SessionWindow{Start: time.UnixMilli(0), End: time.UnixMilli(20)}},
		{Operation: window.Close, Window: window.SessionWindow{Start: time.UnixMilli(50), End: time.UnixMilli(60)}},
	}
	require.NoError(t, s.Forward(context.Background(), 0, deltas))
	assert.Equal(t, 3, forwarded)
	assert.Equal(t, 2, s.closed())
	assert.Equal(t, []float64{20, 10}, []float64(s.durations))
	assert.NotPanics(t, func() { s.log(zap.NewNop().Sugar()) })
	assert.NotPanics(t, func() { newSummary[int64](next).log(zap.NewNop().Sugar()) })
}
