package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/chanloop"
	"github.com/baxromumarov/chanloop/chanx"
)

// DispatchReport summarizes one dispatch run.
type DispatchReport struct {
	Messages  int64 `json:"messages"`
	Sum       int64 `json:"sum"`
	Lines     int64 `json:"lines"`
	Bytes     int64 `json:"bytes"`
	Ticks     int64 `json:"ticks"`
	Passes    int64 `json:"passes"`
	Callbacks int64 `json:"callbacks"`
	Sleeps    int64 `json:"sleeps"`
	Errors    int64 `json:"errors"`
}

func (r *DispatchReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "messages:  %d\n", r.Messages)
	fmt.Fprintf(&b, "sum:       %d\n", r.Sum)
	fmt.Fprintf(&b, "lines:     %d (%d bytes)\n", r.Lines, r.Bytes)
	fmt.Fprintf(&b, "ticks:     %d\n", r.Ticks)
	fmt.Fprintf(&b, "passes:    %d\n", r.Passes)
	fmt.Fprintf(&b, "callbacks: %d\n", r.Callbacks)
	fmt.Fprintf(&b, "sleeps:    %d", r.Sleeps)
	return b.String()
}

type dispatchParams struct {
	messages  int
	producers int
	tick      time.Duration
	timeout   time.Duration
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	p := dispatchParams{}

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Pump messages through a Dispatch event loop",
		Long: `Producers feed numbers into a queue channel served by an async
callback. The callback forwards each number as a text line into a buffer
channel that a sync callback parses, while a timer channel ticks alongside.
The run ends once every message has been turned into a line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.ensure(cmd); err != nil {
				return err
			}
			return runDispatchCommand(cmd, rootOpts, p)
		},
	}

	cmd.Flags().IntVarP(&p.messages, "messages", "n", 1000, "number of messages to produce")
	cmd.Flags().IntVarP(&p.producers, "producers", "p", 4, "number of producer goroutines")
	cmd.Flags().DurationVar(&p.tick, "tick", 5*time.Millisecond, "timer channel interval")
	cmd.Flags().DurationVar(&p.timeout, "timeout", 30*time.Second, "give up after this long")

	return cmd
}

func runDispatchCommand(cmd *cobra.Command, opts *RootOptions, p dispatchParams) error {
	if p.messages < 0 || p.producers < 1 || p.tick <= 0 || p.timeout <= 0 {
		return WrapExitError(ExitCommandError, "invalid flags",
			fmt.Errorf("need messages >= 0, producers >= 1, tick > 0 and timeout > 0"))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), p.timeout)
	defer cancel()

	out := opts.formatter(cmd)
	report, err := runDispatch(ctx, opts, p)
	if err != nil {
		return err
	}
	out.VerboseLog("dispatch finished after %d passes", report.Passes)
	return out.Success(report)
}

func runDispatch(ctx context.Context, opts *RootOptions, p dispatchParams) (*DispatchReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := opts.Logger.With(slog.String("component", "dispatch"))
	d := chanloop.NewDispatch(opts.Config.Dispatch.Options(logger)...)

	queue := chanx.NewQueueChannel[int]()
	stream := chanx.NewBufferChannel()
	ticker := chanx.NewTimerChannel(p.tick)

	var report DispatchReport
	var received, sum atomic.Int64

	err := chanloop.AddMessage(d, queue, chanloop.Async, func(v int) error {
		received.Add(1)
		sum.Add(int64(v))
		stream.WriteString(strconv.Itoa(v) + "\n")
		return nil
	}, chanloop.WithName("numbers"))
	if err != nil {
		return nil, err
	}

	// Set once the queue has closed; from then on the stream closes as
	// soon as it is empty.
	draining := false
	err = d.AddStream(stream, chanloop.Sync, func(buf *bytes.Buffer) error {
		data := buf.Bytes()
		if end := bytes.LastIndexByte(data, '\n'); end >= 0 {
			report.Lines += int64(bytes.Count(data[:end+1], []byte{'\n'}))
			report.Bytes += int64(end + 1)
			buf.Next(end + 1)
		}
		if draining && stream.Len() == 0 {
			stream.Close()
		}
		return nil
	}, chanloop.WithName("lines"))
	if err != nil {
		return nil, err
	}

	err = d.AddEvent(ticker, chanloop.Sync, func() error {
		report.Ticks++
		return nil
	}, chanloop.WithName("ticker"))
	if err != nil {
		return nil, err
	}

	in := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(in)
		var producers errgroup.Group
		for w := range p.producers {
			producers.Go(func() error {
				for v := w + 1; v <= p.messages; v += p.producers {
					select {
					case in <- v:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			})
		}
		return producers.Wait()
	})
	fed := chanx.Feed(gctx, in, queue)

	loopErr := func() error {
		for {
			res := d.Run(ctx)
			logger.Debug("dispatch returned",
				slog.String("reason", res.Reason.String()),
				slog.String("task", res.Task.Name),
			)
			switch res.Reason {
			case chanloop.ReasonClosed:
				if res.Channel == chanx.Channel(queue) {
					draining = true
					if stream.Len() == 0 {
						stream.Close()
					}
				}
				if res.Channel == chanx.Channel(stream) {
					return nil
				}
			case chanloop.ReasonError:
				return WrapExitError(ExitFailure, "callback failed", res.Err)
			case chanloop.ReasonCanceled:
				return WrapExitError(ExitFailure, "dispatch interrupted", res.Err)
			case chanloop.ReasonEmpty:
				return nil
			}
		}
	}()

	// Release producers and the feeder before tearing the loop down.
	if loopErr != nil {
		cancel()
	}
	d.Stop()
	<-fed
	if gerr := g.Wait(); loopErr == nil && gerr != nil {
		loopErr = gerr
	}
	if loopErr != nil {
		return nil, loopErr
	}

	stats := d.Stats()
	report.Messages = received.Load()
	report.Sum = sum.Load()
	report.Passes = stats.Passes
	report.Callbacks = stats.Callbacks
	report.Sleeps = stats.Sleeps
	report.Errors = stats.Errors
	return &report, nil
}
