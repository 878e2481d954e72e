package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stockpipeline/internal/dag"
)

var (
	// ErrRunFailed is returned when at least one task did not succeed.
	ErrRunFailed = errors.New("pipeline run failed")
	// ErrRunInProgress is returned by RunOnce while another run is active.
	ErrRunInProgress = errors.New("pipeline run already in progress")
)

// BuildFunc returns a fresh graph for one run.
type BuildFunc func() (*dag.Graph, error)

// Coordinator runs the pipeline graph once or on a schedule, never more than
// one instance at a time.
type Coordinator struct {
	build  BuildFunc
	exec   *dag.Executor
	logger *slog.Logger

	running sync.Mutex
}

// New creates a new Coordinator
func New(build BuildFunc, exec *dag.Executor, logger *slog.Logger) *Coordinator {
	if exec == nil {
		exec = &dag.Executor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		build:  build,
		exec:   exec,
		logger: logger,
	}
}

// RunOnce builds a graph, executes it and logs a per-state summary.
// The result is returned even when the run failed.
func (c *Coordinator) RunOnce(ctx context.Context) (*dag.RunResult, error) {
	if c.build == nil {
		return nil, fmt.Errorf("no graph builder configured")
	}
	if !c.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.running.Unlock()

	g, err := c.build()
	if err != nil {
		return nil, fmt.Errorf("build pipeline graph: %w", err)
	}

	c.logger.Info("pipeline run started", "tasks", g.Len())

	res, err := c.exec.Run(ctx, g)
	if res != nil {
		c.logger.Info("pipeline run finished",
			"succeeded", res.Count(dag.StateSucceeded),
			"failed", res.Count(dag.StateFailed),
			"upstream_failed", res.Count(dag.StateUpstreamFailed),
			"not_started", res.Count(dag.StatePending),
			"duration", res.Duration())
	}
	if err != nil {
		return res, fmt.Errorf("pipeline run interrupted: %w", err)
	}

	if failed := res.Failed(); len(failed) > 0 {
		return res, fmt.Errorf("%w: %s", ErrRunFailed, strings.Join(failed, ", "))
	}
	return res, nil
}

// Start runs the pipeline on schedule (standard cron syntax or descriptors
// such as @hourly and "@every 30m") until ctx is cancelled. Missed ticks are
// not caught up and a tick that fires while a run is active is skipped.
// Start returns once the in-flight run has stopped.
func (c *Coordinator) Start(ctx context.Context, schedule string, runOnStart bool) error {
	parsed, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	cl := cronLogger{c.logger}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { c.runScheduled(ctx) }))

	sched := cron.New(cron.WithLogger(cl))
	sched.Schedule(parsed, job)
	sched.Start()

	c.logger.Info("scheduler started", "schedule", schedule, "next_run", parsed.Next(time.Now()))

	var initial sync.WaitGroup
	if runOnStart {
		initial.Add(1)
		go func() {
			defer initial.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	c.logger.Info("shutting down scheduler")

	<-sched.Stop().Done()
	initial.Wait()

	return nil
}

func (c *Coordinator) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := c.RunOnce(ctx); err != nil {
		c.logger.Error("scheduled run failed", "error", err)
	}
}
