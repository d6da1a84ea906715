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

package jsonlines

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/numaproj/sessionwindow/pkg/metrics"
)

const (
	labelReason = metricspkg.LabelReason

	reasonFiltered = "filtered"
	reasonInvalid  = "invalid"
)

// readLinesCount is used to indicate the number of lines read by the source
var readLinesCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "jsonlines_source",
	Name:      "read_total",
	Help:      "Total number of lines Read",
})

// droppedLinesCount is used to indicate the number of lines which are not turned into a message
var droppedLinesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "jsonlines_source",
	Name:      "dropped_total",
	Help:      "Total number of lines Dropped",
}, []string{labelReason})
