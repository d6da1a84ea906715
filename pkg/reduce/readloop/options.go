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

import "fmt"

// DefaultBufferSize is the default capacity of the input channel of a shard.
const DefaultBufferSize = 100

type options struct {
	// shards is the number of shards, each shard owns a windower
	shards int
	// bufferSize is the capacity of the input channel of a shard
	bufferSize int
}

func defaultOptions() *options {
	return &options{
		shards:     1,
		bufferSize: DefaultBufferSize,
	}
}

// Option to apply to the read loop
type Option func(*options) error

// WithShards sets the number of shards
func WithShards(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("shards must be positive, got %d", n)
		}
		o.shards = n
		return nil
	}
}

// WithBufferSize sets the capacity of the input channel of a shard
func WithBufferSize(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("buffer size must not be negative, got %d", n)
		}
		o.bufferSize = n
		return nil
	}
}
