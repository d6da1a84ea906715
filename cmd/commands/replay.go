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

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/numaproj/sessionwindow"
	"github.com/numaproj/sessionwindow/pkg/config"
	"github.com/numaproj/sessionwindow/pkg/metrics"
	"github.com/numaproj/sessionwindow/pkg/reduce/applier"
	"github.com/numaproj/sessionwindow/pkg/reduce/readloop"
	"github.com/numaproj/sessionwindow/pkg/shared/logging"
	sinkjsonlines "github.com/numaproj/sessionwindow/pkg/sinks/jsonlines"
	sourcejsonlines "github.com/numaproj/sessionwindow/pkg/sources/jsonlines"
	"github.com/numaproj/sessionwindow/pkg/watermark/bounded"
	"github.com/numaproj/sessionwindow/pkg/window"
	"github.com/numaproj/sessionwindow/pkg/window/strategy/session"
)

const stdio = "-"

type replayOptions struct {
	input      string
	output     string
	batchSize  int
	closedOnly bool
}

func NewReplayCommand() *cobra.Command {
	var (
		configFile string
		opts       replayOptions
	)

	command := &cobra.Command{
		Use:   "replay",
		Short: "Replay a stream of JSON lines through the session windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.batchSize < 1 {
				return fmt.Errorf("batch size must be positive, got %d", opts.batchSize)
			}
			conf, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			log := logging.NewLogger().Named("replay").With("runID", uuid.New().String())
			v := sessionwindow.GetVersion()
			log.Infow("Starting session window replay", "version", v.Version)
			metrics.BuildInfo.WithLabelValues(v.Version, v.Platform).Set(1)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, log)

			in, closeIn, err := openInput(opts.input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()
			out, closeOut, err := openOutput(opts.output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			err = runReplay(ctx, conf, in, out, opts)
			return multierr.Append(err, closeOut())
		},
	}
	command.Flags().StringVar(&configFile, "config", "", "path to the configuration file")
	command.Flags().StringVar(&opts.input, "input", stdio, "file of JSON lines to read, - for stdin")
	command.Flags().StringVar(&opts.output, "output", stdio, "file to write the window deltas to, - for stdout")
	command.Flags().IntVar(&opts.batchSize, "batch-size", 100, "number of lines to read per batch")
	command.Flags().BoolVar(&opts.closedOnly, "closed-only", false, "write only the closed windows, they are in end time order within a shard but shards interleave")
	return command
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == stdio || path == "" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input, %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == stdio || path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output, %w", err)
	}
	return f, f.Close, nil
}

func runReplay(ctx context.Context, conf *config.Config, in io.Reader, out io.Writer, opts replayOptions) error {
	extractor, err := sourcejsonlines.NewExtractor(conf.Source)
	if err != nil {
		return err
	}
	switch conf.Aggregator {
	case config.AggregatorSum:
		return replay[float64, float64](ctx, conf, in, out, opts, extractor, extractor.FloatValue(), applier.Sum())
	case config.AggregatorCollect:
		return replay[string, []string](ctx, conf, in, out, opts, extractor, extractor.StringValue(), applier.Collect[string]())
	default:
		return replay[string, int64](ctx, conf, in, out, opts, extractor, extractor.StringValue(), applier.Count[string]())
	}
}

// replay reads the messages in batches, the watermark is derived from the event times and advanced after every
// batch. At the end of the input the watermark is moved past every session so all of them get closed.
// The shards share the writer, so the output of different shards interleaves and the Close lines are ordered by the
// window end time only within a shard.
func replay[V, A any](ctx context.Context, conf *config.Config, in io.Reader, out io.Writer, opts replayOptions,
	extractor *sourcejsonlines.Extractor, value sourcejsonlines.ValueFunc[V], aggregator applier.Aggregator[V, A]) error {
	log := logging.FromContext(ctx)
	spec, err := conf.WindowSpec()
	if err != nil {
		return err
	}

	writer := sinkjsonlines.NewWriter[A](out, sinkjsonlines.WithClosedOnly(opts.closedOnly))
	closed := newSummary[A](writer)
	newWindower := func(int) window.TimedWindower[V, A] {
		return session.NewWindower[V, A](spec, aggregator, session.WithClosedSessionCacheSize(conf.ClosedSessionCacheSize))
	}
	rl, err := readloop.NewReadLoop[V, A](ctx, newWindower, closed,
		readloop.WithShards(conf.Shards), readloop.WithBufferSize(conf.BufferSize))
	if err != nil {
		return err
	}
	rl.Start(ctx)

	if conf.Metrics.Addr != "" {
		shutdown := metrics.NewMetricsServer(metrics.WithAddr(conf.Metrics.Addr), metrics.WithHealthChecker(rl)).Start(ctx)
		defer func() {
			sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sCtx)
		}()
	}

	err = readAll[V, A](ctx, rl, sourcejsonlines.NewReader[V](ctx, in, extractor, value), spec, conf.Watermark.MaxDelay, opts.batchSize)
	if sErr := rl.Shutdown(); sErr != nil && !errors.Is(sErr, context.Canceled) {
		err = multierr.Append(err, sErr)
	}
	if fErr := writer.Flush(); fErr != nil {
		err = multierr.Append(err, fErr)
	}
	if err != nil {
		return err
	}
	closed.log(log)
	log.Infow("Replay done", zap.String("spec", spec.String()))
	return nil
}

func readAll[V, A any](ctx context.Context, rl *readloop.ReadLoop[V, A], reader *sourcejsonlines.Reader[V], spec session.WindowSpec, maxDelay time.Duration, batchSize int) error {
	wm := bounded.NewGenerator(maxDelay)
	for {
		messages, readErr := reader.Read(ctx, batchSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if len(messages) > 0 {
			if err := rl.Process(ctx, messages); err != nil {
				return err
			}
			for _, m := range messages {
				wm.Observe(m.EventTime)
			}
			if err := rl.AdvanceWatermark(ctx, time.Time(wm.Watermark())); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
	}
	// end of input, close every session
	return rl.AdvanceWatermark(ctx, time.Time(wm.Flush()).Add(spec.Grace()))
}
