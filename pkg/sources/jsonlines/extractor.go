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
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/numaproj/sessionwindow/pkg/config"
	"github.com/numaproj/sessionwindow/pkg/shared/expr"
)

// errFiltered is returned for the lines which are dropped by the filter expression.
var errFiltered = errors.New("filtered out")

// ValueFunc extracts the value of a message from a line.
type ValueFunc[V any] func(line []byte) (V, error)

// Extractor extracts the keys and the event time of a message from a line.
type Extractor struct {
	keyExpr         *expr.Program
	eventTimeExpr   *expr.Program
	valueExpr       *expr.Program
	filterExpr      *expr.Program
	eventTimeFormat string
}

// NewExtractor compiles the expressions of the source.
func NewExtractor(conf config.SourceConfig) (*Extractor, error) {
	var err error
	e := &Extractor{eventTimeFormat: conf.EventTimeFormat}
	if e.keyExpr, err = expr.Compile(conf.KeyExpr); err != nil {
		return nil, err
	}
	if e.eventTimeExpr, err = expr.Compile(conf.EventTimeExpr); err != nil {
		return nil, err
	}
	if conf.ValueExpr != "" {
		if e.valueExpr, err = expr.Compile(conf.ValueExpr); err != nil {
			return nil, err
		}
	}
	if conf.FilterExpr != "" {
		if e.filterExpr, err = expr.Compile(conf.FilterExpr); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Keys evaluates the key expression, a list result is turned into multiple keys.
func (e *Extractor) Keys(line []byte) ([]string, error) {
	result, err := e.keyExpr.Run(line)
	if err != nil {
		return nil, err
	}
	switch v := result.(type) {
	case nil:
		return nil, fmt.Errorf("key expression '%s' evaluated to nil", e.keyExpr)
	case []interface{}:
		keys := make([]string, 0, len(v))
		for _, k := range v {
			keys = append(keys, fmt.Sprintf("%v", k))
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("key expression '%s' evaluated to an empty list", e.keyExpr)
		}
		return keys, nil
	default:
		return []string{fmt.Sprintf("%v", v)}, nil
	}
}

// EventTime evaluates the event time expression. A numeric result is taken as epoch millis, a string is parsed with
// the configured format or, without a format, by detecting it.
func (e *Extractor) EventTime(line []byte) (time.Time, error) {
	result, err := e.eventTimeExpr.Run(line)
	if err != nil {
		return time.Time{}, err
	}
	switch v := result.(type) {
	case float64:
		return time.UnixMilli(int64(v)), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case int64:
		return time.UnixMilli(v), nil
	case string:
		if e.eventTimeFormat != "" {
			return time.Parse(e.eventTimeFormat, v)
		}
		return dateparse.ParseIn(v, time.UTC)
	default:
		return time.Time{}, fmt.Errorf("unable to parse event time %v of expression '%s'", result, e.eventTimeExpr)
	}
}

// Filter returns false for the lines which are dropped.
func (e *Extractor) Filter(line []byte) (bool, error) {
	if e.filterExpr == nil {
		return true, nil
	}
	return e.filterExpr.EvalBool(line)
}

// StringValue returns the value expression result as a string, or the whole line without a value expression.
func (e *Extractor) StringValue() ValueFunc[string] {
	return func(line []byte) (string, error) {
		if e.valueExpr == nil {
			return string(line), nil
		}
		return e.valueExpr.EvalString(line)
	}
}

// FloatValue returns the value expression result as a number.
func (e *Extractor) FloatValue() ValueFunc[float64] {
	return func(line []byte) (float64, error) {
		if e.valueExpr == nil {
			return 0, fmt.Errorf("no value expression")
		}
		return e.valueExpr.EvalFloat(line)
	}
}
