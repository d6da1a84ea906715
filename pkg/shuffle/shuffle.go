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

// Package shuffle assigns keys to shards, a key is always assigned to the same shard so that the windows of a key
// are owned by a single writer.
package shuffle

import (
	"hash"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/numaproj/sessionwindow/pkg/window"
)

// Shuffle maps keys to shards
type Shuffle struct {
	shards uint64
	hash   hash.Hash64
}

// NewShuffle returns a shuffle over the given number of shards, at least one.
func NewShuffle(shards int) *Shuffle {
	if shards < 1 {
		shards = 1
	}
	return &Shuffle{
		shards: uint64(shards),
		hash:   murmur3.New64(),
	}
}

// Shard returns the shard index of the keys. It is not thread safe.
func (s *Shuffle) Shard(keys []string) int {
	return int(s.generateHash(keys) % s.shards)
}

func (s *Shuffle) generateHash(keys []string) uint64 {
	s.hash.Reset()
	_, _ = s.hash.Write([]byte(strings.Join(keys, window.KeysDelimiter)))
	return s.hash.Sum64()
}
