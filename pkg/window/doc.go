// Package window implements windowing constructs. In the world of data processing on an unbounded stream, Windowing
// is a concept of grouping data using temporal boundaries. We use event-time to discover temporal boundaries on an
// unbounded, infinite stream and Watermark to ensure the datasets within the boundaries are complete.
//
// Sessions are unaligned windows, i.e. they are applied per key and their boundaries are discovered from the data
// itself. A session grows while events keep arriving within the inactivity gap of its boundaries, and two sessions of
// the same key are merged as soon as an event bridges the gap between them. Windowing is a two stage process,
//   - Assign windows - assign the event to a window, opening, expanding or merging sessions
//   - Close windows - hand over the sessions which can no longer change once the watermark has progressed
//
// A session can only be closed after the watermark has moved past its end time plus the grace period. Events older
// than that are dropped instead of re-opening a session which has already been emitted.
package window
