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

// Package jsonlines reads messages from a stream of JSON lines. The keys, the event time and the value of a message
// are extracted from a line with expressions, see pkg/shared/expr.
package jsonlines

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/numaproj/sessionwindow/pkg/shared/logging"
	"github.com/numaproj/sessionwindow/pkg/window"
)

const maxLineSize = 1024 * 1024

// Reader reads batches of messages from a stream of JSON lines.
type Reader[V any] struct {
	scanner   *bufio.Scanner
	extractor *Extractor
	value     ValueFunc[V]
	lineNo    int
	log       *zap.SugaredLogger
}

// NewReader returns a reader which uses the extractor for the keys and the event time and value for the value.
func NewReader[V any](ctx context.Context, r io.Reader, extractor *Extractor, value ValueFunc[V]) *Reader[V] {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader[V]{
		scanner:   scanner,
		extractor: extractor,
		value:     value,
		log:       logging.FromContext(ctx),
	}
}

// Read reads up to count messages. Blank lines, filtered lines and lines which cannot be turned into a message are
// skipped. io.EOF is returned with the last messages once the stream is exhausted.
func (r *Reader[V]) Read(ctx context.Context, count int) ([]*window.Message[V], error) {
	messages := make([]*window.Message[V], 0, count)
	for len(messages) < count {
		if err := ctx.Err(); err != nil {
			return messages, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return messages, fmt.Errorf("failed to read line %d: %w", r.lineNo+1, err)
			}
			return messages, io.EOF
		}
		r.lineNo++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		readLinesCount.Inc()
		msg, err := r.decode(line)
		if err != nil {
			if errors.Is(err, errFiltered) {
				droppedLinesCount.With(map[string]string{labelReason: reasonFiltered}).Inc()
				continue
			}
			droppedLinesCount.With(map[string]string{labelReason: reasonInvalid}).Inc()
			r.log.Warnw("Dropping the invalid line", zap.Int("line", r.lineNo), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *Reader[V]) decode(line []byte) (*window.Message[V], error) {
	ok, err := r.extractor.Filter(line)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errFiltered
	}
	keys, err := r.extractor.Keys(line)
	if err != nil {
		return nil, err
	}
	eventTime, err := r.extractor.EventTime(line)
	if err != nil {
		return nil, err
	}
	value, err := r.value(line)
	if err != nil {
		return nil, err
	}
	return &window.Message[V]{Keys: keys, EventTime: eventTime, Value: value}, nil
}
