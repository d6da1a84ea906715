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

// Package bounded estimates the watermark of a stream whose events are out of order by at most a bounded delay.
package bounded

import (
	"time"
)

// Watermark is the monotonically increasing watermark.
type Watermark time.Time

var InitialWatermark = Watermark(time.UnixMilli(-1))

func (w Watermark) String() string {
	var location, _ = time.LoadLocation("UTC")
	var t = time.Time(w).In(location)
	return t.Format(time.RFC3339Nano)
}

func (w Watermark) UnixMilli() int64 {
	return time.Time(w).UnixMilli()
}

func (w Watermark) After(t time.Time) bool {
	return time.Time(w).After(t)
}

func (w Watermark) Before(t time.Time) bool {
	return time.Time(w).Before(t)
}

// Generator derives the watermark from the event times seen so far. The watermark trails the largest event time by
// maxDelay and never moves backwards. It is not thread safe.
type Generator struct {
	maxDelay     time.Duration
	maxEventTime time.Time
	current      Watermark
}

// NewGenerator returns a watermark generator allowing events to be out of order by up to maxDelay.
func NewGenerator(maxDelay time.Duration) *Generator {
	if maxDelay < 0 {
		maxDelay = 0
	}
	return &Generator{
		maxDelay:     maxDelay,
		maxEventTime: time.Time(InitialWatermark),
		current:      InitialWatermark,
	}
}

// Observe records an event time and returns the updated watermark.
func (g *Generator) Observe(eventTime time.Time) Watermark {
	if eventTime.After(g.maxEventTime) {
		g.maxEventTime = eventTime
		if candidate := eventTime.Add(-g.maxDelay); candidate.After(time.Time(g.current)) {
			g.current = Watermark(candidate)
		}
	}
	return g.current
}

// Watermark returns the current watermark.
func (g *Generator) Watermark() Watermark {
	return g.current
}

// Flush moves the watermark past every event seen so far, it is used once the stream has ended.
func (g *Generator) Flush() Watermark {
	if end := g.maxEventTime.Add(time.Millisecond); end.After(time.Time(g.current)) {
		g.current = Watermark(end)
	}
	return g.current
}
