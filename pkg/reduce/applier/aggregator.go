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

// Package applier holds the aggregation functions applied on the values of a session window.
package applier

// Aggregator accumulates the values of a window. Add is invoked when a value is assigned to a window and Merge when
// two windows are merged into one.
type Aggregator[V, A any] interface {
	// Init returns the accumulator of an empty window.
	Init() A
	// Add folds the value into the accumulator.
	Add(acc A, value V) A
	// Merge combines the accumulators of two windows.
	Merge(a, b A) A
}

// AggregatorFuncs is a utility used to create an Aggregator implementation from functions.
type AggregatorFuncs[V, A any] struct {
	InitFunc  func() A
	AddFunc   func(acc A, value V) A
	MergeFunc func(a, b A) A
}

var _ Aggregator[int, int] = AggregatorFuncs[int, int]{}

func (a AggregatorFuncs[V, A]) Init() A {
	if a.InitFunc == nil {
		var zero A
		return zero
	}
	return a.InitFunc()
}

func (a AggregatorFuncs[V, A]) Add(acc A, value V) A {
	return a.AddFunc(acc, value)
}

func (a AggregatorFuncs[V, A]) Merge(x, y A) A {
	return a.MergeFunc(x, y)
}

// Count counts the values of a window.
func Count[V any]() Aggregator[V, int64] {
	return AggregatorFuncs[V, int64]{
		AddFunc: func(acc int64, _ V) int64 {
			return acc + 1
		},
		MergeFunc: func(a, b int64) int64 {
			return a + b
		},
	}
}

// Sum adds up the values of a window.
func Sum() Aggregator[float64, float64] {
	return AggregatorFuncs[float64, float64]{
		AddFunc: func(acc float64, value float64) float64 {
			return acc + value
		},
		MergeFunc: func(a, b float64) float64 {
			return a + b
		},
	}
}

// Collect keeps every value of a window, values of merged windows are concatenated in window order.
func Collect[V any]() Aggregator[V, []V] {
	return AggregatorFuncs[V, []V]{
		AddFunc: func(acc []V, value V) []V {
			return append(acc, value)
		},
		MergeFunc: func(a, b []V) []V {
			merged := make([]V, 0, len(a)+len(b))
			merged = append(merged, a...)
			return append(merged, b...)
		},
	}
}
