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

package session

// DefaultClosedSessionCacheSize is the default number of keys for which the last closed session is remembered.
const DefaultClosedSessionCacheSize = 10000

type options struct {
	// closedSessionCacheSize is the number of keys for which the last closed session is remembered, so that events
	// which would re-open it are dropped. 0 disables the cache.
	closedSessionCacheSize int
}

func defaultOptions() *options {
	return &options{
		closedSessionCacheSize: DefaultClosedSessionCacheSize,
	}
}

// Option configures the Windower.
type Option func(*options)

// WithClosedSessionCacheSize sets the number of keys for which the last closed session is remembered.
func WithClosedSessionCacheSize(size int) Option {
	return func(o *options) {
		if size < 0 {
			size = 0
		}
		o.closedSessionCacheSize = size
	}
}
