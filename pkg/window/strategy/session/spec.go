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

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/spaolacci/murmur3"
)

// ErrInvalidArgument is returned when a WindowSpec is constructed with an invalid gap or grace period.
var ErrInvalidArgument = errors.New("invalid argument")

// WindowSpec is the immutable configuration of session windows, the inactivity gap and the grace period, both
// with millisecond granularity. Two specs are equal iff both durations are equal, so the struct can be compared with
// == and used as a map key. The zero value is not a valid spec, use one of the constructors.
type WindowSpec struct {
	gapMs   int64
	graceMs int64
}

// OfInactivityGapWithNoGrace returns a spec with the given inactivity gap and no grace period. The gap is truncated
// to milliseconds and has to be positive.
func OfInactivityGapWithNoGrace(gap time.Duration) (WindowSpec, error) {
	return OfInactivityGapAndGrace(gap, 0)
}

// OfInactivityGapAndGrace returns a spec with the given inactivity gap and grace period. Both are truncated to
// milliseconds, the gap has to be positive and the grace period must not be negative.
func OfInactivityGapAndGrace(gap time.Duration, grace time.Duration) (WindowSpec, error) {
	gapMs := gap.Milliseconds()
	if gapMs <= 0 {
		return WindowSpec{}, fmt.Errorf("%w: inactivity gap must be at least 1ms, got %v", ErrInvalidArgument, gap)
	}
	graceMs := grace.Milliseconds()
	if grace < 0 {
		return WindowSpec{}, fmt.Errorf("%w: grace period must not be negative, got %v", ErrInvalidArgument, grace)
	}
	return WindowSpec{
		gapMs:   gapMs,
		graceMs: graceMs,
	}, nil
}

// InactivityGap returns the inactivity gap in milliseconds.
func (s WindowSpec) InactivityGap() int64 {
	return s.gapMs
}

// GracePeriodMs returns the grace period in milliseconds.
func (s WindowSpec) GracePeriodMs() int64 {
	return s.graceMs
}

// Gap returns the inactivity gap.
func (s WindowSpec) Gap() time.Duration {
	return time.Duration(s.gapMs) * time.Millisecond
}

// Grace returns the grace period.
func (s WindowSpec) Grace() time.Duration {
	return time.Duration(s.graceMs) * time.Millisecond
}

// Equal returns true if both specs have the same gap and grace period.
func (s WindowSpec) Equal(other WindowSpec) bool {
	return s == other
}

// Hash returns a hash of the spec, it only depends on the gap and the grace period.
func (s WindowSpec) Hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(s.gapMs))
	binary.LittleEndian.PutUint64(buf[8:], uint64(s.graceMs))
	return murmur3.Sum64(buf[:])
}

func (s WindowSpec) String() string {
	return fmt.Sprintf("SessionWindows{gap=%dms, grace=%dms}", s.gapMs, s.graceMs)
}
