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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/sessionwindow/pkg/config"
)

func newTestExtractor(t *testing.T, conf config.SourceConfig) *Extractor {
	t.Helper()
	e, err := NewExtractor(conf)
	require.NoError(t, err)
	return e
}

func TestNewExtractor_InvalidExpression(t *testing.T) {
	_, err := NewExtractor(config.SourceConfig{KeyExpr: `ab\na`, EventTimeExpr: `json(payload).ts`})
	assert.Error(t, err)
	_, err = NewExtractor(config.SourceConfig{KeyExpr: `json(payload).k`, EventTimeExpr: `json(payload).ts`, FilterExpr: `ab\na`})
	assert.Error(t, err)
}

func TestExtractor_Keys(t *testing.T) {
	tests := []struct {
		name     string
		keyExpr  string
		line     string
		expected []string
		wantErr  bool
	}{
		{name: "single key", keyExpr: `json(payload).user`, line: `{"user": "alice"}`, expected: []string{"alice"}},
		{name: "numeric key", keyExpr: `json(payload).id`, line: `{"id": 7}`, expected: []string{"7"}},
		{name: "list of keys", keyExpr: `json(payload).keys`, line: `{"keys": ["eu", "alice"]}`, expected: []string{"eu", "alice"}},
		{name: "missing key", keyExpr: `json(payload).user`, line: `{"id": 1}`, wantErr: true},
		{name: "empty list", keyExpr: `json(payload).keys`, line: `{"keys": []}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, config.SourceConfig{KeyExpr: tt.keyExpr, EventTimeExpr: `json(payload).ts`})
			keys, err := e.Keys([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, keys)
		})
	}
}

func TestExtractor_EventTime(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		line     string
		expected time.Time
		wantErr  bool
	}{
		{name: "epoch millis", line: `{"ts": 1613685282123}`, expected: time.UnixMilli(1613685282123)},
		{name: "detected format", line: `{"ts": "2021-02-18T21:54:42.123Z"}`, expected: time.UnixMilli(1613685282123)},
		{name: "explicit format", format: "2006-01-02 15:04:05", line: `{"ts": "2021-02-18 21:54:42"}`, expected: time.UnixMilli(1613685282000)},
		{name: "wrong format", format: time.RFC3339, line: `{"ts": "2021-02-18 21:54:42"}`, wantErr: true},
		{name: "not a time", line: `{"ts": "yesterday"}`, wantErr: true},
		{name: "not a scalar", line: `{"ts": {"a": 1}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, config.SourceConfig{KeyExpr: `json(payload).k`, EventTimeExpr: `json(payload).ts`, EventTimeFormat: tt.format})
			et, err := e.EventTime([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected.UnixMilli(), et.UnixMilli())
		})
	}
}

func TestExtractor_Values(t *testing.T) {
	e := newTestExtractor(t, config.SourceConfig{KeyExpr: `json(payload).k`, EventTimeExpr: `json(payload).ts`})
	s, err := e.StringValue()([]byte(`{"k": "a"}`))
	assert.NoError(t, err)
	assert.Equal(t, `{"k": "a"}`, s)
	_, err = e.FloatValue()([]byte(`{"k": "a"}`))
	assert.Error(t, err)

	e = newTestExtractor(t, config.SourceConfig{KeyExpr: `json(payload).k`, EventTimeExpr: `json(payload).ts`, ValueExpr: `json(payload).v`})
	s, err = e.StringValue()([]byte(`{"v": "x"}`))
	assert.NoError(t, err)
	assert.Equal(t, "x", s)
	f, err := e.FloatValue()([]byte(`{"v": 2.5}`))
	assert.NoError(t, err)
	assert.Equal(t, 2.5, f)
}

func TestExtractor_Filter(t *testing.T) {
	e := newTestExtractor(t, config.SourceConfig{KeyExpr: `json(payload).k`, EventTimeExpr: `json(payload).ts`})
	ok, err := e.Filter([]byte(`{}`))
	assert.NoError(t, err)
	assert.True(t, ok)

	e = newTestExtractor(t, config.SourceConfig{KeyExpr: `json(payload).k`, EventTimeExpr: `json(payload).ts`, FilterExpr: `json(payload).type == "click"`})
	ok, err = e.Filter([]byte(`{"type": "click"}`))
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.Filter([]byte(`{"type": "view"}`))
	assert.NoError(t, err)
	assert.False(t, ok)
}
