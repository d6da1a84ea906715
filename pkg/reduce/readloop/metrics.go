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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/sessionwindow/pkg/metrics"
)

const (
	labelShard     = metrics.LabelShard
	labelOperation = metrics.LabelOperation
	labelReason    = metrics.LabelReason

	reasonLate = "late"
)

// assignedMessagesCount is used to indicate the number of messages assigned to a session window
var assignedMessagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "session",
	Name:      "assigned_total",
	Help:      "Total number of Messages assigned to a session window",
}, []string{labelShard, labelOperation})

// droppedMessagesCount is used to indicate the number of messages dropped
var droppedMessagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "session",
	Name:      "dropped_total",
	Help:      "Total number of Messages Dropped",
}, []string{labelShard, labelReason})

// closedWindowsCount is used to indicate the number of session windows closed
var closedWindowsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "session",
	Name:      "closed_total",
	Help:      "Total number of session windows closed",
}, []string{labelShard})

// activeWindows is used to indicate the number of session windows which are not closed yet
var activeWindows = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "session",
	Name:      "active_windows",
	Help:      "Number of active session windows",
}, []string{labelShard})

// shardWatermark is the latest watermark of a shard
var shardWatermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "session",
	Name:      "watermark",
	Help:      "Latest watermark of a shard (epoch millis)",
}, []string{labelShard})

// forwardErrorCount is used to indicate the number of errors while forwarding the window deltas
var forwardErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "session",
	Name:      "forward_error_total",
	Help:      "Total number of forward errors",
}, []string{labelShard})
