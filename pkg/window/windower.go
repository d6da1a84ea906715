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

package window

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// KeysDelimiter joins the keys of a message into a single grouping key.
const KeysDelimiter = ":"

var keyEscaper = strings.NewReplacer(`\`, `\\`, KeysDelimiter, `\`+KeysDelimiter)

// CombineKeys joins the keys into a single grouping key. Delimiters and backslashes inside a key are escaped,
// so ["a:b"] and ["a", "b"] have different grouping keys.
func CombineKeys(keys []string) string {
	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = keyEscaper.Replace(k)
	}
	return strings.Join(escaped, KeysDelimiter)
}

// ErrLateEventDropped is returned when an event arrives after the window it belongs to can no longer be changed.
// It is not fatal, the event is discarded and processing continues.
var ErrLateEventDropped = errors.New("late event dropped")

// TimedWindower assigns messages to windows and closes them as the watermark progresses.
type TimedWindower[V, A any] interface {
	// Strategy returns the window strategy
	Strategy() Strategy
	// AssignWindows assigns the event to the window based on the window configuration.
	AssignWindows(message *Message[V]) ([]*Delta[A], error)
	// CloseWindows closes the windows that are past the watermark
	CloseWindows(watermark time.Time) []*Delta[A]
	// NextWindowToBeClosed returns the next window yet to be closed.
	NextWindowToBeClosed() (SessionWindow, bool)
	// OldestWindowEndTime returns the end time of the oldest active window.
	OldestWindowEndTime() time.Time
	// Len returns the number of active windows.
	Len() int
}

// TimedWindow is a window bounded by a start and an end time. Both ends are inclusive.
type TimedWindow interface {
	// StartTime returns the start time of the window
	StartTime() time.Time
	// EndTime returns the end time of the window
	EndTime() time.Time
}

// Message is a keyed and timestamped event.
type Message[V any] struct {
	Keys      []string
	EventTime time.Time
	Value     V
}

// CombinedKey returns the grouping key of the message, see CombineKeys.
func (m *Message[V]) CombinedKey() string {
	return CombineKeys(m.Keys)
}

// SessionWindow is a contiguous interval of a key. A window with a single event has equal start and end.
type SessionWindow struct {
	Keys  []string
	Start time.Time
	End   time.Time
}

func (w SessionWindow) StartTime() time.Time {
	return w.Start
}

func (w SessionWindow) EndTime() time.Time {
	return w.End
}

// Contains returns true if t lies within [Start, End].
func (w SessionWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w SessionWindow) String() string {
	return fmt.Sprintf("%s[%d,%d]", strings.Join(w.Keys, KeysDelimiter), w.Start.UnixMilli(), w.End.UnixMilli())
}

// Delta describes the effect of an event or a watermark progression on a window.
type Delta[A any] struct {
	// Operation performed on the window
	Operation Operation
	// Window is the resulting window, for Close it is the window which got closed
	Window SessionWindow
	// Previous holds the windows replaced by Window, the old window for Expand and every merged window for Merge.
	Previous []SessionWindow
	// Accumulator is the accumulated value of Window after the operation
	Accumulator A
}

// Operation represents the event type of the operation on the window
type Operation int

const (
	Open Operation = iota
	Append
	Expand
	Merge
	Close
)

func (e Operation) String() string {
	switch e {
	case Open:
		return "Open"
	case Append:
		return "Append"
	case Expand:
		return "Expand"
	case Merge:
		return "Merge"
	case Close:
		return "Close"
	default:
		return "Unknown"
	}
}

// Strategy represents the windowing strategy
type Strategy int

const (
	Session Strategy = iota
)

func (s Strategy) String() string {
	switch s {
	case Session:
		return "Session"
	default:
		return "Unknown"
	}
}
