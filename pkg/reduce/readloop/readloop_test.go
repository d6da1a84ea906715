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

package readloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/sessionwindow/pkg/reduce/applier"
	"github.com/numaproj/sessionwindow/pkg/window"
	"github.com/numaproj/sessionwindow/pkg/window/strategy/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type forwardedDelta struct {
	shard int
	delta *window.Delta[int64]
}

// collector records the forwarded deltas
type collector struct {
	sync.Mutex
	deltas []forwardedDelta
	err    error
}

func (c *collector) Forward(_ context.Context, shard int, deltas []*window.Delta[int64]) error {
	c.Lock()
	defer c.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, d := range deltas {
		c.deltas = append(c.deltas, forwardedDelta{shard: shard, delta: d})
	}
	return nil
}

func (c *collector) closed() map[string]int64 {
	c.Lock()
	defer c.Unlock()
	result := make(map[string]int64)
	for _, fd := range c.deltas {
		if fd.delta.Operation == window.Close {
			result[fd.delta.Window.String()] = fd.delta.Accumulator
		}
	}
	return result
}

func countWindowerFactory(t *testing.T, gap, grace time.Duration) WindowerFactory[string, int64] {
	t.Helper()
	spec, err := session.OfInactivityGapAndGrace(gap, grace)
	require.NoError(t, err)
	return func(int) window.TimedWindower[string, int64] {
		return session.NewWindower[string, int64](spec, applier.Count[string]())
	}
}

func messageForTest(key string, eventTimeMs int64) *window.Message[string] {
	return &window.Message[string]{
		Keys:      []string{key},
		EventTime: time.UnixMilli(eventTimeMs),
		Value:     fmt.Sprintf("%s-%d", key, eventTimeMs),
	}
}

func TestReadLoop_SessionLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := &collector{}
	rl, err := NewReadLoop[string, int64](ctx, countWindowerFactory(t, 10*time.Millisecond, 0), c)
	require.NoError(t, err)
	rl.Start(ctx)
	assert.NoError(t, rl.IsHealthy(ctx))

	require.NoError(t, rl.Process(ctx, []*window.Message[string]{
		messageForTest("a", 0),
		messageForTest("a", 5),
		messageForTest("b", 100),
		messageForTest("a", 15),
	}))
	require.NoError(t, rl.AdvanceWatermark(ctx, time.UnixMilli(50)))
	require.NoError(t, rl.AdvanceWatermark(ctx, time.UnixMilli(200)))
	require.NoError(t, rl.Shutdown())

	assert.Equal(t, map[string]int64{
		"a[0,15]":    3,
		"b[100,100]": 1,
	}, c.closed())

	c.Lock()
	defer c.Unlock()
	var ops []window.Operation
	for _, fd := range c.deltas {
		ops = append(ops, fd.delta.Operation)
	}
	assert.Equal(t, []window.Operation{window.Open, window.Expand, window.Open, window.Expand, window.Close, window.Close}, ops)
}

func TestReadLoop_LateMessageDropped(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dropped := droppedMessagesCount.With(map[string]string{labelShard: "0", labelReason: reasonLate})
	before := testutil.ToFloat64(dropped)

	c := &collector{}
	rl, err := NewReadLoop[string, int64](ctx, countWindowerFactory(t, 10*time.Millisecond, 5*time.Millisecond), c)
	require.NoError(t, err)
	rl.Start(ctx)

	require.NoError(t, rl.AdvanceWatermark(ctx, time.UnixMilli(100)))
	require.NoError(t, rl.Process(ctx, []*window.Message[string]{
		messageForTest("a", 94),
		messageForTest("a", 95),
	}))
	require.NoError(t, rl.Shutdown())

	assert.Equal(t, before+1, testutil.ToFloat64(dropped))
	c.Lock()
	defer c.Unlock()
	require.Len(t, c.deltas, 1)
	assert.Equal(t, window.Open, c.deltas[0].delta.Operation)
	assert.Equal(t, "a[95,95]", c.deltas[0].delta.Window.String())
}

func TestReadLoop_KeysStayOnTheirShard(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := &collector{}
	rl, err := NewReadLoop[string, int64](ctx, countWindowerFactory(t, 10*time.Millisecond, 0), c, WithShards(4), WithBufferSize(2))
	require.NoError(t, err)
	rl.Start(ctx)

	for ts := int64(0); ts < 50; ts += 5 {
		var batch []*window.Message[string]
		for k := 0; k < 20; k++ {
			batch = append(batch, messageForTest(fmt.Sprintf("key-%d", k), ts))
		}
		require.NoError(t, rl.Process(ctx, batch))
	}
	require.NoError(t, rl.AdvanceWatermark(ctx, time.UnixMilli(1000)))
	require.NoError(t, rl.Shutdown())

	closed := c.closed()
	assert.Len(t, closed, 20)
	for k := 0; k < 20; k++ {
		assert.Equal(t, int64(10), closed[fmt.Sprintf("key-%d[0,45]", k)])
	}

	c.Lock()
	defer c.Unlock()
	shardOfKey := make(map[string]int)
	for _, fd := range c.deltas {
		key := fd.delta.Window.Keys[0]
		if s, ok := shardOfKey[key]; ok {
			assert.Equal(t, s, fd.shard, key)
		} else {
			shardOfKey[key] = fd.shard
		}
	}
}

func TestReadLoop_ForwardErrorStopsTheLoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	forwardErr := errors.New("sink unavailable")
	rl, err := NewReadLoop[string, int64](ctx, countWindowerFactory(t, 10*time.Millisecond, 0), &collector{err: forwardErr}, WithShards(2))
	require.NoError(t, err)
	rl.Start(ctx)

	_ = rl.Process(ctx, []*window.Message[string]{messageForTest("a", 0)})
	err = rl.Shutdown()
	assert.ErrorIs(t, err, forwardErr)
}

func TestReadLoop_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rl, err := NewReadLoop[string, int64](ctx, countWindowerFactory(t, 10*time.Millisecond, 0), &collector{}, WithShards(3))
	require.NoError(t, err)
	rl.Start(ctx)
	cancel()

	assert.ErrorIs(t, rl.Shutdown(), context.Canceled)
	assert.ErrorIs(t, rl.IsHealthy(ctx), ErrNotRunning)
}

func TestReadLoop_NotRunning(t *testing.T) {
	ctx := context.Background()
	rl, err := NewReadLoop[string, int64](ctx, countWindowerFactory(t, 10*time.Millisecond, 0), &collector{})
	require.NoError(t, err)

	assert.ErrorIs(t, rl.Process(ctx, []*window.Message[string]{messageForTest("a", 0)}), ErrNotRunning)
	assert.ErrorIs(t, rl.AdvanceWatermark(ctx, time.UnixMilli(0)), ErrNotRunning)
	assert.ErrorIs(t, rl.IsHealthy(ctx), ErrNotRunning)
	assert.ErrorIs(t, rl.Shutdown(), ErrNotRunning)
}

func TestNewReadLoop_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "zero shards", opt: WithShards(0)},
		{name: "negative buffer", opt: WithBufferSize(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReadLoop[string, int64](context.Background(), countWindowerFactory(t, time.Millisecond, 0), &collector{}, tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestForwarderFunc(t *testing.T) {
	var got int
	f := ForwarderFunc[int64](func(_ context.Context, shard int, deltas []*window.Delta[int64]) error {
		got = shard + len(deltas)
		return nil
	})
	require.NoError(t, f.Forward(context.Background(), 2, []*window.Delta[int64]{{}}))
	assert.Equal(t, 3, got)
}
