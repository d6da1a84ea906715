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

// Package jsonlines writes the window deltas as JSON lines.
package jsonlines

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/sessionwindow/pkg/metrics"
	"github.com/numaproj/sessionwindow/pkg/window"
)

// writeCount is used to indicate the number of deltas written
var writeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "jsonlines_sink",
	Name:      "write_total",
	Help:      "Total number of window deltas written",
}, []string{metrics.LabelOperation})

// Bounds of a window in epoch millis.
type Bounds struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Record is the JSON representation of a window delta.
type Record[A any] struct {
	Shard       int      `json:"shard"`
	Operation   string   `json:"operation"`
	Keys        []string `json:"keys"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Previous    []Bounds `json:"previous,omitempty"`
	Accumulator A        `json:"accumulator"`
}

// NewRecord converts a delta to a record.
func NewRecord[A any](shard int, delta *window.Delta[A]) Record[A] {
	r := Record[A]{
		Shard:       shard,
		Operation:   delta.Operation.String(),
		Keys:        delta.Window.Keys,
		Start:       delta.Window.Start.UnixMilli(),
		End:         delta.Window.End.UnixMilli(),
		Accumulator: delta.Accumulator,
	}
	for _, p := range delta.Previous {
		r.Previous = append(r.Previous, Bounds{Start: p.Start.UnixMilli(), End: p.End.UnixMilli()})
	}
	return r
}

type Option func(*options)

type options struct {
	closedOnly bool
}

// WithClosedOnly writes only the Close deltas, the final result of every session.
func WithClosedOnly(closedOnly bool) Option {
	return func(o *options) {
		o.closedOnly = closedOnly
	}
}

// Writer writes the deltas forwarded by the shards, it is safe for concurrent use.
type Writer[A any] struct {
	sync.Mutex
	w    *bufio.Writer
	enc  *json.Encoder
	opts options
}

// NewWriter returns a writer to w, Flush must be called once the writing is done.
func NewWriter[A any](w io.Writer, opts ...Option) *Writer[A] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	bw := bufio.NewWriter(w)
	return &Writer[A]{
		w:    bw,
		enc:  json.NewEncoder(bw),
		opts: o,
	}
}

// Forward writes one line per delta.
func (wr *Writer[A]) Forward(_ context.Context, shard int, deltas []*window.Delta[A]) error {
	wr.Lock()
	defer wr.Unlock()
	for _, d := range deltas {
		if wr.opts.closedOnly && d.Operation != window.Close {
			continue
		}
		if err := wr.enc.Encode(NewRecord(shard, d)); err != nil {
			return err
		}
		writeCount.With(map[string]string{metrics.LabelOperation: d.Operation.String()}).Inc()
	}
	return nil
}

// Flush writes the buffered lines to the underlying writer.
func (wr *Writer[A]) Flush() error {
	wr.Lock()
	defer wr.Unlock()
	return wr.w.Flush()
}
