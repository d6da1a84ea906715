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

// SortedWindowListByEndTime is a list implementation, which is sorted by window end time from lowest to highest.
// Windows with the same end time keep their insertion order. It is not thread safe.
type SortedWindowListByEndTime[W ComparableWindow] struct {
	windows []W
}

// NewSortedWindowListByEndTime implements a window list ordered by the end time. The Front/Head of the list will
// always have the smallest element while the End/Tail will have the largest element (end time).
func NewSortedWindowListByEndTime[W ComparableWindow]() *SortedWindowListByEndTime[W] {
	return &SortedWindowListByEndTime[W]{
		windows: make([]W, 0),
	}
}

// Insert inserts a window to the list, after the windows which end at the same time.
func (s *SortedWindowListByEndTime[W]) Insert(window W) {
	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].EndTime().After(window.EndTime())
	})

	// fast path, most of the windows end after the existing ones
	if index == len(s.windows) {
		s.windows = append(s.windows, window)
		return
	}

	s.windows = append(s.windows, window)
	copy(s.windows[index+1:], s.windows[index:])
	s.windows[index] = window
}

// Delete deletes a window from the list. The end time of the window must not have changed since it was inserted.
func (s *SortedWindowListByEndTime[W]) Delete(window W) (deleted bool) {
	index := sort.Search(len(s.windows), func(i int) bool {
		return !s.windows[i].EndTime().Before(window.EndTime())
	})

	for i := index; i < len(s.windows); i++ {
		if s.windows[i] == window {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			return true
		}
		if s.windows[i].EndTime().After(window.EndTime()) {
			break
		}
	}
	return false
}

// RemoveWindows removes the windows which end strictly before the given time and returns them in end time order.
func (s *SortedWindowListByEndTime[W]) RemoveWindows(t time.Time) []W {
	index := sort.Search(len(s.windows), func(i int) bool {
		return !s.windows[i].EndTime().Before(t)
	})

	removed := make([]W, index)
	copy(removed, s.windows[:index])

	s.windows = s.windows[index:]

	return removed
}

// Len returns the length of the window.
func (s *SortedWindowListByEndTime[W]) Len() int {
	return len(s.windows)
}

// Front returns the smallest element from the list.
func (s *SortedWindowListByEndTime[W]) Front() W {
	var front W
	if len(s.windows) == 0 {
		return front
	}
	return s.windows[0]
}

// Items returns the entire window list.
func (s *SortedWindowListByEndTime[W]) Items() []W {
	items := make([]W, len(s.windows))
	copy(items, s.windows)
	return items
}
