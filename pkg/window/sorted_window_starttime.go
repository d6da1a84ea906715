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
	"sort"
	"time"
)

// ComparableWindow is a TimedWindow which can be identified with ==, typically a pointer.
type ComparableWindow interface {
	comparable
	TimedWindow
}

// SortedWindowListByStartTime is a list of non-overlapping windows sorted by start time from lowest to highest.
// Since the windows never overlap, the list is sorted by end time too. It is not thread safe, a list is owned by
// a single writer.
type SortedWindowListByStartTime[W ComparableWindow] struct {
	windows []W
}

// NewSortedWindowListByStartTime implements a window list ordered by the start time. The Front/Head of the list will
// always have the smallest element while the End/Tail will have the largest element (start time).
func NewSortedWindowListByStartTime[W ComparableWindow]() *SortedWindowListByStartTime[W] {
	return &SortedWindowListByStartTime[W]{
		windows: make([]W, 0),
	}
}

// Insert inserts a window to the list. The window must not overlap any window of the list.
func (s *SortedWindowListByStartTime[W]) Insert(window W) {
	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].StartTime().After(window.StartTime())
	})

	s.windows = append(s.windows, window)
	copy(s.windows[index+1:], s.windows[index:])
	s.windows[index] = window
}

// FindOverlapping returns the index range [from, to) of the windows which intersect the closed interval [lo, hi].
// It is a binary search, the range is empty when from == to.
func (s *SortedWindowListByStartTime[W]) FindOverlapping(lo, hi time.Time) (from, to int) {
	from = sort.Search(len(s.windows), func(i int) bool {
		return !s.windows[i].EndTime().Before(lo)
	})
	to = sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].StartTime().After(hi)
	})
	if to < from {
		to = from
	}
	return from, to
}

// Slice returns a copy of the windows in [from, to).
func (s *SortedWindowListByStartTime[W]) Slice(from, to int) []W {
	items := make([]W, to-from)
	copy(items, s.windows[from:to])
	return items
}

// Replace replaces the windows in [from, to) with the given window, which has to cover all of them.
func (s *SortedWindowListByStartTime[W]) Replace(from, to int, window W) {
	s.windows[from] = window
	s.windows = append(s.windows[:from+1], s.windows[to:]...)
}

// Delete deletes a window from the list.
func (s *SortedWindowListByStartTime[W]) Delete(window W) (deleted bool) {
	index := sort.Search(len(s.windows), func(i int) bool {
		return !s.windows[i].StartTime().Before(window.StartTime())
	})

	for i := index; i < len(s.windows); i++ {
		if s.windows[i] == window {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			return true
		}
		if s.windows[i].StartTime().After(window.StartTime()) {
			break
		}
	}
	return false
}

// Len returns the length of the window.
func (s *SortedWindowListByStartTime[W]) Len() int {
	return len(s.windows)
}

// Front returns the smallest element from the list.
func (s *SortedWindowListByStartTime[W]) Front() W {
	var front W
	if len(s.windows) == 0 {
		return front
	}
	return s.windows[0]
}

// Back returns the largest element from the list.
func (s *SortedWindowListByStartTime[W]) Back() W {
	var back W
	if len(s.windows) == 0 {
		return back
	}
	return s.windows[len(s.windows)-1]
}

// Items returns the entire window list.
func (s *SortedWindowListByStartTime[W]) Items() []W {
	return s.Slice(0, len(s.windows))
}
