package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/chanloop"
)

// PoolReport summarizes one pool run.
type PoolReport struct {
	Workers   int     `json:"workers"`
	Tasks     int     `json:"tasks"`
	Completed int64   `json:"completed"`
	Errored   int64   `json:"errored"`
	Dropped   int     `json:"dropped_errors"`
	Stolen    int64   `json:"stolen"`
	Sum       int64   `json:"sum"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

func (r *PoolReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workers:   %d\n", r.Workers)
	fmt.Fprintf(&b, "tasks:     %d\n", r.Tasks)
	fmt.Fprintf(&b, "completed: %d\n", r.Completed)
	fmt.Fprintf(&b, "errored:   %d\n", r.Errored)
	fmt.Fprintf(&b, "stolen:    %d\n", r.Stolen)
	fmt.Fprintf(&b, "sum:       %d\n", r.Sum)
	fmt.Fprintf(&b, "elapsed:   %.2fms", r.ElapsedMS)
	return b.String()
}

type poolParams struct {
	tasks     int
	workers   int
	spin      int
	failEvery int
}

// NewPoolCommand creates the pool command.
func NewPoolCommand(rootOpts *RootOptions) *cobra.Command {
	p := poolParams{}

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Run CPU-bound tasks on the work-stealing pool",
		Long: `Insert a batch of small CPU-bound tasks into a ThreadPool, wait for
them, and report completion, failure and steal counts.

Use --fail-every to make every n-th task return an error; failures are
reported and the command exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.ensure(cmd); err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				p.workers = rootOpts.Config.Pool.Workers
			}
			return runPool(cmd, rootOpts, p)
		},
	}

	cmd.Flags().IntVarP(&p.tasks, "tasks", "n", 1000, "number of tasks to insert")
	cmd.Flags().IntVarP(&p.workers, "workers", "w", 0, "worker count (0 = GOMAXPROCS, default from config)")
	cmd.Flags().IntVar(&p.spin, "spin", 1000, "loop iterations per task")
	cmd.Flags().IntVar(&p.failEvery, "fail-every", 0, "make every n-th task fail (0 = never)")

	return cmd
}

func runPool(cmd *cobra.Command, opts *RootOptions, p poolParams) error {
	if p.tasks < 0 || p.workers < 0 || p.spin < 0 || p.failEvery < 0 {
		return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("counts must not be negative"))
	}

	out := opts.formatter(cmd)
	logger := opts.Logger.With(slog.String("component", "pool"))

	pool := chanloop.NewThreadPool(p.workers, opts.Config.Pool.Options(logger)...)
	defer pool.Close()
	logger.Debug("pool started", slog.Int("workers", pool.Size()), slog.Int("tasks", p.tasks))

	var sum atomic.Int64
	start := time.Now()
	for i := 1; i <= p.tasks; i++ {
		err := pool.Insert(func() error {
			var acc int64
			for j := range p.spin {
				acc += int64(j % 7)
			}
			sum.Add(acc + int64(i))
			if p.failEvery > 0 && i%p.failEvery == 0 {
				return fmt.Errorf("task %d: injected failure", i)
			}
			return nil
		})
		if err != nil {
			return WrapExitError(ExitFailure, "insert failed", err)
		}
	}

	pool.Wait()
	elapsed := time.Since(start)
	taskErr := pool.Close()

	stats := pool.Stats()
	report := &PoolReport{
		Workers:   stats.Workers,
		Tasks:     p.tasks,
		Completed: stats.Completed,
		Errored:   stats.Errored,
		Dropped:   pool.DroppedErrors(),
		Stolen:    stats.Stolen,
		Sum:       sum.Load(),
		ElapsedMS: float64(elapsed.Microseconds()) / 1000,
	}
	out.VerboseLog("pool finished in %s", elapsed)

	if err := out.Success(report); err != nil {
		return err
	}
	if taskErr != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d of %d tasks failed", report.Errored, p.tasks), taskErr)
	}
	return nil
}
