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

// Package config loads the configuration of the session window engine from a YAML file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/numaproj/sessionwindow/pkg/shared/expr"
	"github.com/numaproj/sessionwindow/pkg/window/strategy/session"
)

// EnvPrefix is the prefix of the environment variables which override the file, e.g. SESSIONWINDOW_WINDOW_GAP.
const EnvPrefix = "SESSIONWINDOW"

// Aggregators which can be selected by name.
const (
	AggregatorCount   = "count"
	AggregatorSum     = "sum"
	AggregatorCollect = "collect"
)

type Config struct {
	Window                 WindowConfig    `mapstructure:"window"`
	Aggregator             string          `mapstructure:"aggregator"`
	Shards                 int             `mapstructure:"shards"`
	BufferSize             int             `mapstructure:"bufferSize"`
	ClosedSessionCacheSize int             `mapstructure:"closedSessionCacheSize"`
	Source                 SourceConfig    `mapstructure:"source"`
	Watermark              WatermarkConfig `mapstructure:"watermark"`
	Metrics                MetricsConfig   `mapstructure:"metrics"`
}

type WindowConfig struct {
	Gap   time.Duration `mapstructure:"gap"`
	Grace time.Duration `mapstructure:"grace"`
}

// SourceConfig holds the expressions to extract a message from a JSON line, see pkg/shared/expr.
type SourceConfig struct {
	// KeyExpr evaluates to the key of the message
	KeyExpr string `mapstructure:"keyExpr"`
	// EventTimeExpr evaluates to the event time, either epoch millis or a date string
	EventTimeExpr string `mapstructure:"eventTimeExpr"`
	// EventTimeFormat is the Go layout of the event time, empty to detect the format
	EventTimeFormat string `mapstructure:"eventTimeFormat"`
	// ValueExpr evaluates to the value, the raw line is used if empty
	ValueExpr string `mapstructure:"valueExpr"`
	// FilterExpr drops the lines for which it evaluates to false
	FilterExpr string `mapstructure:"filterExpr"`
}

type WatermarkConfig struct {
	// MaxDelay is the maximum out-of-orderness of the event times
	MaxDelay time.Duration `mapstructure:"maxDelay"`
}

type MetricsConfig struct {
	// Addr of the metrics server, the server is not started if empty
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window.gap", "30s")
	v.SetDefault("window.grace", "0s")
	v.SetDefault("aggregator", AggregatorCount)
	v.SetDefault("shards", 1)
	v.SetDefault("bufferSize", 100)
	v.SetDefault("closedSessionCacheSize", session.DefaultClosedSessionCacheSize)
	v.SetDefault("source.keyExpr", "")
	v.SetDefault("source.eventTimeExpr", "")
	v.SetDefault("source.eventTimeFormat", "")
	v.SetDefault("source.valueExpr", "")
	v.SetDefault("source.filterExpr", "")
	v.SetDefault("watermark.maxDelay", "0s")
	v.SetDefault("metrics.addr", "")
}

// LoadConfig reads the configuration file, the environment variables take precedence over the file. An empty path
// loads the defaults and the environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load configuration file. %w", err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate returns all the problems of the configuration.
func (c *Config) Validate() error {
	var err error
	if _, e := c.WindowSpec(); e != nil {
		err = multierr.Append(err, e)
	}
	switch c.Aggregator {
	case AggregatorCount, AggregatorCollect:
	case AggregatorSum:
		if c.Source.ValueExpr == "" {
			err = multierr.Append(err, fmt.Errorf("source.valueExpr is required by the %q aggregator", AggregatorSum))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown aggregator %q", c.Aggregator))
	}
	if c.Shards < 1 {
		err = multierr.Append(err, fmt.Errorf("shards must be positive, got %d", c.Shards))
	}
	if c.BufferSize < 0 {
		err = multierr.Append(err, fmt.Errorf("bufferSize must not be negative, got %d", c.BufferSize))
	}
	if c.ClosedSessionCacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("closedSessionCacheSize must not be negative, got %d", c.ClosedSessionCacheSize))
	}
	if c.Watermark.MaxDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("watermark.maxDelay must not be negative, got %s", c.Watermark.MaxDelay))
	}
	if c.Source.KeyExpr == "" {
		err = multierr.Append(err, fmt.Errorf("source.keyExpr is required"))
	}
	if c.Source.EventTimeExpr == "" {
		err = multierr.Append(err, fmt.Errorf("source.eventTimeExpr is required"))
	}
	for _, e := range []string{c.Source.KeyExpr, c.Source.EventTimeExpr, c.Source.ValueExpr, c.Source.FilterExpr} {
		if e == "" {
			continue
		}
		if _, cErr := expr.Compile(e); cErr != nil {
			err = multierr.Append(err, cErr)
		}
	}
	return err
}

// WindowSpec builds the session window spec from the configured gap and grace period.
func (c *Config) WindowSpec() (session.WindowSpec, error) {
	return session.OfInactivityGapAndGrace(c.Window.Gap, c.Window.Grace)
}
