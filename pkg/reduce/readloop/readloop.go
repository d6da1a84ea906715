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

// Package readloop reads the messages and the watermark, routes the messages to the shards and forwards the window
// deltas of every shard. A shard owns a windower and is the only writer of it, so the windowers need no locking.
//
// The caller of Process and AdvanceWatermark is expected to be a single goroutine, the ordering of the messages of a
// key is preserved because all the messages of a key are routed to the same shard.
package readloop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/numaproj/sessionwindow/pkg/shared/logging"
	"github.com/numaproj/sessionwindow/pkg/shuffle"
	"github.com/numaproj/sessionwindow/pkg/window"
)

// ErrNotRunning is returned when the read loop is used before it is started or after it is shut down.
var ErrNotRunning = errors.New("read loop is not running")

// Forwarder forwards the window deltas produced by a shard.
type Forwarder[A any] interface {
	Forward(ctx context.Context, shard int, deltas []*window.Delta[A]) error
}

// ForwarderFunc is an adapter to use a function as a Forwarder.
type ForwarderFunc[A any] func(ctx context.Context, shard int, deltas []*window.Delta[A]) error

// Forward calls f(ctx, shard, deltas).
func (f ForwarderFunc[A]) Forward(ctx context.Context, shard int, deltas []*window.Delta[A]) error {
	return f(ctx, shard, deltas)
}

// WindowerFactory creates the windower owned by a shard.
type WindowerFactory[V, A any] func(shard int) window.TimedWindower[V, A]

// command is either a batch of messages or a watermark.
type command[V any] struct {
	messages  []*window.Message[V]
	watermark time.Time
	hasWM     bool
}

type shard[V, A any] struct {
	id       int
	label    string
	windower window.TimedWindower[V, A]
	input    chan command[V]
}

// ReadLoop routes the messages to the shards and closes the windows as the watermark progresses.
type ReadLoop[V, A any] struct {
	shards    []*shard[V, A]
	shuffle   *shuffle.Shuffle
	forwarder Forwarder[A]
	running   *atomic.Bool
	errs      *errgroup.Group
	groupCtx  context.Context
	log       *zap.SugaredLogger
}

// NewReadLoop creates a read loop with one windower per shard.
func NewReadLoop[V, A any](ctx context.Context, newWindower WindowerFactory[V, A], forwarder Forwarder[A], opts ...Option) (*ReadLoop[V, A], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	shards := make([]*shard[V, A], o.shards)
	for i := range shards {
		shards[i] = &shard[V, A]{
			id:       i,
			label:    strconv.Itoa(i),
			windower: newWindower(i),
			input:    make(chan command[V], o.bufferSize),
		}
	}

	return &ReadLoop[V, A]{
		shards:    shards,
		shuffle:   shuffle.NewShuffle(o.shards),
		forwarder: forwarder,
		running:   atomic.NewBool(false),
		log:       logging.FromContext(ctx),
	}, nil
}

// Start starts a goroutine per shard. The shards stop when the context is cancelled, when Shutdown is called or
// when any of the shards fails.
func (rl *ReadLoop[V, A]) Start(ctx context.Context) {
	rl.errs, rl.groupCtx = errgroup.WithContext(ctx)
	for _, s := range rl.shards {
		s := s
		rl.errs.Go(func() error {
			return rl.run(rl.groupCtx, s)
		})
	}
	rl.running.Store(true)
	rl.log.Infow("Read loop started", zap.Int("shards", len(rl.shards)))
}

// Process routes the messages to the shards. It blocks while the input of a shard is full.
func (rl *ReadLoop[V, A]) Process(ctx context.Context, messages []*window.Message[V]) error {
	if !rl.running.Load() {
		return ErrNotRunning
	}
	batches := make([][]*window.Message[V], len(rl.shards))
	for _, m := range messages {
		idx := rl.shuffle.Shard(m.Keys)
		batches[idx] = append(batches[idx], m)
	}
	for idx, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		if err := rl.send(ctx, rl.shards[idx], command[V]{messages: batch}); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceWatermark sends the watermark to all the shards, each shard closes its expired windows.
func (rl *ReadLoop[V, A]) AdvanceWatermark(ctx context.Context, watermark time.Time) error {
	if !rl.running.Load() {
		return ErrNotRunning
	}
	for _, s := range rl.shards {
		if err := rl.send(ctx, s, command[V]{watermark: watermark, hasWM: true}); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops accepting input, waits for the shards to drain their input and returns the first shard error.
// Windows which are not closed by then are abandoned.
func (rl *ReadLoop[V, A]) Shutdown() error {
	if !rl.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	for _, s := range rl.shards {
		close(s.input)
	}
	err := rl.errs.Wait()
	rl.log.Infow("Read loop stopped", zap.Error(err))
	return err
}

// IsHealthy returns an error if the read loop is not running or one of the shards has failed.
func (rl *ReadLoop[V, A]) IsHealthy(context.Context) error {
	if !rl.running.Load() {
		return ErrNotRunning
	}
	if err := rl.groupCtx.Err(); err != nil {
		return fmt.Errorf("read loop is stopping: %w", err)
	}
	return nil
}

func (rl *ReadLoop[V, A]) send(ctx context.Context, s *shard[V, A], cmd command[V]) error {
	select {
	case s.input <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-rl.groupCtx.Done():
		return fmt.Errorf("shard %d is not accepting input: %w", s.id, rl.groupCtx.Err())
	}
}

func (rl *ReadLoop[V, A]) run(ctx context.Context, s *shard[V, A]) error {
	log := rl.log.With(zap.Int("shard", s.id))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-s.input:
			if !ok {
				if n := s.windower.Len(); n > 0 {
					next, _ := s.windower.NextWindowToBeClosed()
					log.Infow("Abandoning the windows which are not closed", zap.Int("count", n), zap.String("next", next.String()))
				}
				return ctx.Err()
			}
			if err := rl.handle(ctx, log, s, cmd); err != nil {
				log.Errorw("Failed to process", zap.Error(err))
				return err
			}
		}
	}
}

func (rl *ReadLoop[V, A]) handle(ctx context.Context, log *zap.SugaredLogger, s *shard[V, A], cmd command[V]) error {
	if cmd.hasWM {
		return rl.closeWindows(ctx, s, cmd.watermark)
	}

	var deltas []*window.Delta[A]
	for _, m := range cmd.messages {
		d, err := s.windower.AssignWindows(m)
		if err != nil {
			if errors.Is(err, window.ErrLateEventDropped) {
				log.Warnw("Dropping the late message", zap.Strings("keys", m.Keys), zap.Time("eventTime", m.EventTime), zap.Error(err))
				droppedMessagesCount.With(map[string]string{labelShard: s.label, labelReason: reasonLate}).Inc()
				continue
			}
			return err
		}
		for _, delta := range d {
			assignedMessagesCount.With(map[string]string{labelShard: s.label, labelOperation: delta.Operation.String()}).Inc()
		}
		deltas = append(deltas, d...)
	}
	activeWindows.With(map[string]string{labelShard: s.label}).Set(float64(s.windower.Len()))
	return rl.forward(ctx, s, deltas)
}

func (rl *ReadLoop[V, A]) closeWindows(ctx context.Context, s *shard[V, A], watermark time.Time) error {
	closed := s.windower.CloseWindows(watermark)
	shardWatermark.With(map[string]string{labelShard: s.label}).Set(float64(watermark.UnixMilli()))
	activeWindows.With(map[string]string{labelShard: s.label}).Set(float64(s.windower.Len()))
	closedWindowsCount.With(map[string]string{labelShard: s.label}).Add(float64(len(closed)))
	return rl.forward(ctx, s, closed)
}

func (rl *ReadLoop[V, A]) forward(ctx context.Context, s *shard[V, A], deltas []*window.Delta[A]) error {
	if len(deltas) == 0 {
		return nil
	}
	if err := rl.forwarder.Forward(ctx, s.id, deltas); err != nil {
		forwardErrorCount.With(map[string]string{labelShard: s.label}).Inc()
		return fmt.Errorf("failed to forward %d deltas of shard %d: %w", len(deltas), s.id, err)
	}
	return nil
}
