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

// Package session implements Session windows. A session window groups the events of a key which are within the
// inactivity gap of each other, transitively. Sessions are unaligned, every key has its own set of windows, and their
// boundaries grow as events arrive. An event that bridges two sessions merges them into one.
//
// The Windower is a single writer state machine, it does not lock. Keys are expected to be partitioned so that a key
// is always owned by the same Windower.
package session

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"

	"github.com/numaproj/sessionwindow/pkg/reduce/applier"
	"github.com/numaproj/sessionwindow/pkg/window"
)

// sessionState is an active session of a key along with its accumulated value.
type sessionState[A any] struct {
	key   string
	keys  []string
	start time.Time
	end   time.Time
	acc   A
}

func (s *sessionState[A]) StartTime() time.Time {
	return s.start
}

func (s *sessionState[A]) EndTime() time.Time {
	return s.end
}

func (s *sessionState[A]) window() window.SessionWindow {
	return window.SessionWindow{
		Keys:  s.keys,
		Start: s.start,
		End:   s.end,
	}
}

// Windower is an implementation of window.TimedWindower for session windows. It assigns messages to the sessions of
// their key and closes the sessions once the watermark is past their end time plus the grace period.
type Windower[V, A any] struct {
	spec       WindowSpec
	aggregator applier.Aggregator[V, A]
	watermark  time.Time
	// activeWindows holds the sessions of every key, sorted by start time. Two sessions of a key are always more
	// than the gap apart.
	activeWindows map[string]*window.SortedWindowListByStartTime[*sessionState[A]]
	// closingOrder holds all the active sessions sorted by end time, so that closing is proportional to the number
	// of closed sessions.
	closingOrder *window.SortedWindowListByEndTime[*sessionState[A]]
	// closedSessions remembers the last closed session of a key.
	closedSessions *lru.Cache[string, window.SessionWindow]
	droppedCount   *atomic.Int64
}

var _ window.TimedWindower[int, int] = (*Windower[int, int])(nil)

// NewWindower returns a session Windower for the given spec, the aggregator is applied on the values of every session.
func NewWindower[V, A any](spec WindowSpec, aggregator applier.Aggregator[V, A], opts ...Option) *Windower[V, A] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	w := &Windower[V, A]{
		spec:          spec,
		aggregator:    aggregator,
		watermark:     time.UnixMilli(-1),
		activeWindows: make(map[string]*window.SortedWindowListByStartTime[*sessionState[A]]),
		closingOrder:  window.NewSortedWindowListByEndTime[*sessionState[A]](),
		droppedCount:  atomic.NewInt64(0),
	}
	if o.closedSessionCacheSize > 0 {
		w.closedSessions, _ = lru.New[string, window.SessionWindow](o.closedSessionCacheSize)
	}
	return w
}

func (w *Windower[V, A]) Strategy() window.Strategy {
	return window.Session
}

// Spec returns the window spec of the windower.
func (w *Windower[V, A]) Spec() WindowSpec {
	return w.spec
}

// Watermark returns the latest watermark seen by CloseWindows.
func (w *Windower[V, A]) Watermark() time.Time {
	return w.watermark
}

// DroppedCount returns the number of late events dropped so far. It is safe to call from any goroutine.
func (w *Windower[V, A]) DroppedCount() int64 {
	return w.droppedCount.Load()
}

// AssignWindows assigns the message to the sessions of its key and returns the resulting operation.
//   - Open, if no session of the key is within the gap of the event time
//   - Append, if the event time lies within a session, the session boundaries do not change
//   - Expand, if a single session is within the gap, the session grows to include the event time
//   - Merge, if the event bridges two or more sessions, they are replaced by a single session
//
// Messages which would only produce a session ending before the watermark minus the grace period, or which would
// re-open a closed session, are dropped with an error wrapping window.ErrLateEventDropped.
func (w *Windower[V, A]) AssignWindows(message *window.Message[V]) ([]*window.Delta[A], error) {
	eventTime := message.EventTime
	key := message.CombinedKey()

	if w.closedSessions != nil {
		if closed, ok := w.closedSessions.Get(key); ok && w.withinGap(closed, eventTime) {
			w.droppedCount.Inc()
			return nil, fmt.Errorf("%w: event time %d of key %q belongs to closed session %s",
				window.ErrLateEventDropped, eventTime.UnixMilli(), key, closed)
		}
	}

	var (
		candidates []*sessionState[A]
		from, to   int
	)
	list, ok := w.activeWindows[key]
	if ok {
		// the sessions of a key are more than gap apart, so the sessions within the gap of the event are contiguous
		from, to = list.FindOverlapping(eventTime.Add(-w.spec.Gap()), eventTime.Add(w.spec.Gap()))
		candidates = list.Slice(from, to)
	}

	// an event joining an open session is never late, the resulting session ends no earlier than the open one
	end := eventTime
	if len(candidates) > 0 && candidates[len(candidates)-1].end.After(end) {
		end = candidates[len(candidates)-1].end
	}
	if w.watermark.After(end.Add(w.spec.Grace())) {
		w.droppedCount.Inc()
		return nil, fmt.Errorf("%w: session of key %q ending at %d is older than watermark %d minus grace %dms",
			window.ErrLateEventDropped, key, end.UnixMilli(), w.watermark.UnixMilli(), w.spec.GracePeriodMs())
	}

	switch len(candidates) {
	case 0:
		if !ok {
			list = window.NewSortedWindowListByStartTime[*sessionState[A]]()
			w.activeWindows[key] = list
		}
		return []*window.Delta[A]{w.open(list, message)}, nil
	case 1:
		return []*window.Delta[A]{w.expand(candidates[0], message)}, nil
	default:
		return []*window.Delta[A]{w.merge(list, from, to, candidates, message)}, nil
	}
}

func (w *Windower[V, A]) open(list *window.SortedWindowListByStartTime[*sessionState[A]], message *window.Message[V]) *window.Delta[A] {
	ss := &sessionState[A]{
		key:   message.CombinedKey(),
		keys:  message.Keys,
		start: message.EventTime,
		end:   message.EventTime,
		acc:   w.aggregator.Add(w.aggregator.Init(), message.Value),
	}
	list.Insert(ss)
	w.closingOrder.Insert(ss)

	return &window.Delta[A]{
		Operation:   window.Open,
		Window:      ss.window(),
		Accumulator: ss.acc,
	}
}

func (w *Windower[V, A]) expand(ss *sessionState[A], message *window.Message[V]) *window.Delta[A] {
	ss.acc = w.aggregator.Add(ss.acc, message.Value)
	previous := ss.window()
	if previous.Contains(message.EventTime) {
		return &window.Delta[A]{
			Operation:   window.Append,
			Window:      previous,
			Accumulator: ss.acc,
		}
	}

	// the position in the closing order depends on the end time, reinsert after the update
	w.closingOrder.Delete(ss)
	if message.EventTime.Before(ss.start) {
		ss.start = message.EventTime
	}
	if message.EventTime.After(ss.end) {
		ss.end = message.EventTime
	}
	w.closingOrder.Insert(ss)

	return &window.Delta[A]{
		Operation:   window.Expand,
		Window:      ss.window(),
		Previous:    []window.SessionWindow{previous},
		Accumulator: ss.acc,
	}
}

func (w *Windower[V, A]) merge(list *window.SortedWindowListByStartTime[*sessionState[A]], from, to int, candidates []*sessionState[A], message *window.Message[V]) *window.Delta[A] {
	first, last := candidates[0], candidates[len(candidates)-1]
	merged := &sessionState[A]{
		key:   message.CombinedKey(),
		keys:  message.Keys,
		start: first.start,
		end:   last.end,
		acc:   first.acc,
	}
	if message.EventTime.Before(merged.start) {
		merged.start = message.EventTime
	}
	if message.EventTime.After(merged.end) {
		merged.end = message.EventTime
	}

	previous := make([]window.SessionWindow, 0, len(candidates))
	for i, c := range candidates {
		previous = append(previous, c.window())
		w.closingOrder.Delete(c)
		if i > 0 {
			merged.acc = w.aggregator.Merge(merged.acc, c.acc)
		}
	}
	merged.acc = w.aggregator.Add(merged.acc, message.Value)

	list.Replace(from, to, merged)
	w.closingOrder.Insert(merged)

	return &window.Delta[A]{
		Operation:   window.Merge,
		Window:      merged.window(),
		Previous:    previous,
		Accumulator: merged.acc,
	}
}

// CloseWindows moves the watermark forward and closes the sessions whose end time plus the grace period is before
// the watermark. The Close operations are returned in end time order and a session is closed only once. A watermark
// which does not move forward closes nothing.
func (w *Windower[V, A]) CloseWindows(watermark time.Time) []*window.Delta[A] {
	if !watermark.After(w.watermark) {
		return nil
	}
	w.watermark = watermark

	closed := w.closingOrder.RemoveWindows(watermark.Add(-w.spec.Grace()))
	if len(closed) == 0 {
		return nil
	}

	deltas := make([]*window.Delta[A], 0, len(closed))
	for _, ss := range closed {
		if list, ok := w.activeWindows[ss.key]; ok {
			list.Delete(ss)
			if list.Len() == 0 {
				delete(w.activeWindows, ss.key)
			}
		}
		if w.closedSessions != nil {
			w.closedSessions.Add(ss.key, ss.window())
		}
		deltas = append(deltas, &window.Delta[A]{
			Operation:   window.Close,
			Window:      ss.window(),
			Accumulator: ss.acc,
		})
	}
	return deltas
}

// NextWindowToBeClosed returns the active session with the smallest end time.
func (w *Windower[V, A]) NextWindowToBeClosed() (window.SessionWindow, bool) {
	if w.closingOrder.Len() == 0 {
		return window.SessionWindow{}, false
	}
	return w.closingOrder.Front().window(), true
}

// OldestWindowEndTime returns the end time of the active session which will be closed first, -1 if there is none.
func (w *Windower[V, A]) OldestWindowEndTime() time.Time {
	if w.closingOrder.Len() == 0 {
		return time.UnixMilli(-1)
	}
	return w.closingOrder.Front().EndTime()
}

// ActiveWindows returns the active sessions of the given keys sorted by start time.
func (w *Windower[V, A]) ActiveWindows(keys []string) []window.SessionWindow {
	list, ok := w.activeWindows[window.CombineKeys(keys)]
	if !ok {
		return nil
	}
	items := list.Items()
	windows := make([]window.SessionWindow, 0, len(items))
	for _, ss := range items {
		windows = append(windows, ss.window())
	}
	return windows
}

// Len returns the number of active sessions across all the keys.
func (w *Windower[V, A]) Len() int {
	return w.closingOrder.Len()
}

func (w *Windower[V, A]) withinGap(sw window.SessionWindow, t time.Time) bool {
	return !t.Before(sw.Start.Add(-w.spec.Gap())) && !t.After(sw.End.Add(w.spec.Gap()))
}
