package dag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"stockpipeline/internal/failure"
)

// RetryPolicy controls how often a failing task is re-run.
type RetryPolicy struct {
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Retryable decides whether an error may succeed on another attempt.
	// Defaults to failure.IsRetryable.
	Retryable func(error) bool
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return failure.IsRetryable(err)
}

// Executor runs graphs. The zero value runs tasks without a concurrency
// limit, without retries and logs to slog.Default().
type Executor struct {
	// Concurrency caps the number of tasks running at once; <= 0 means no cap.
	Concurrency int
	Retry       RetryPolicy
	Logger      *slog.Logger
}

// RunResult is the outcome of one graph run.
type RunResult struct {
	States   map[string]State
	Attempts map[string]int
	Errors   map[string]error
	// Order lists tasks in the order they reached a terminal state.
	Order    []string
	Started  time.Time
	Finished time.Time
}

// Failed returns the names of tasks that did not succeed, sorted.
func (r *RunResult) Failed() []string {
	var out []string
	for name, st := range r.States {
		if st != StateSucceeded {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// OK reports whether every task succeeded.
func (r *RunResult) OK() bool {
	return len(r.Failed()) == 0
}

// Count returns the number of tasks in state s.
func (r *RunResult) Count(s State) int {
	n := 0
	for _, st := range r.States {
		if st == s {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

type completion struct {
	index    int
	attempts int
	err      error
	took     time.Duration
}

// Run executes g and blocks until no further task can start. Task failures
// are reported in the result, not as an error; the error is non-nil only
// when ctx was cancelled before the run finished.
func (e *Executor) Run(ctx context.Context, g *Graph) (*RunResult, error) {
	if g == nil {
		return nil, errors.New("nil graph")
	}
	logger := e.logger()

	result := &RunResult{
		States:   make(map[string]State, g.Len()),
		Attempts: make(map[string]int, g.Len()),
		Errors:   make(map[string]error),
		Started:  time.Now(),
	}

	run := newRunState(g)
	done := make(chan completion, g.Len())

	// A failing task must not cancel its independent siblings, so the group
	// carries no shared context.
	var eg errgroup.Group
	if e.Concurrency > 0 {
		eg.SetLimit(e.Concurrency)
	}

	inflight := 0
	for {
		// Launch only while a slot is free; tasks that do not fit stay
		// pending until a completion arrives and ctx is checked again.
		for _, i := range run.ready() {
			if ctx.Err() != nil {
				break
			}
			if e.Concurrency > 0 && inflight >= e.Concurrency {
				break
			}
			run.states[i] = StateRunning
			inflight++
			task := g.tasks[i]
			logger.Info("task started", "task", task.Name)

			eg.Go(func() error {
				start := time.Now()
				attempts, err := e.runTask(ctx, task)
				done <- completion{index: i, attempts: attempts, err: err, took: time.Since(start)}
				return nil
			})
		}

		if inflight == 0 {
			break
		}

		c := <-done
		inflight--

		name := g.tasks[c.index].Name
		result.Attempts[name] = c.attempts
		result.Order = append(result.Order, name)

		if c.err == nil {
			run.states[c.index] = StateSucceeded
			logger.Info("task succeeded",
				"task", name,
				"attempts", c.attempts,
				"duration", c.took)
			continue
		}

		result.Errors[name] = c.err
		logger.Error("task failed",
			"task", name,
			"attempts", c.attempts,
			"kind", failure.KindOf(c.err),
			"error", c.err)

		for _, d := range run.failAndPropagate(c.index) {
			skipped := g.tasks[d].Name
			result.Order = append(result.Order, skipped)
			logger.Warn("task not run, upstream failed", "task", skipped, "upstream", name)
		}
	}

	_ = eg.Wait()

	for i, st := range run.states {
		result.States[g.tasks[i].Name] = st
	}
	result.Finished = time.Now()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// runTask runs t until it succeeds, fails permanently or exhausts the
// retry budget. It returns the number of attempts made.
func (e *Executor) runTask(ctx context.Context, t Task) (attempts int, err error) {
	op := func() error {
		attempts++
		runErr := safeRun(ctx, t)
		if runErr == nil {
			return nil
		}
		if !e.Retry.retryable(runErr) || ctx.Err() != nil {
			return backoff.Permanent(runErr)
		}
		return runErr
	}

	retries := e.Retry.Retries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.Retry.Delay), uint64(retries)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		e.logger().Warn("task attempt failed, retrying",
			"task", t.Name,
			"attempt", attempts,
			"retry_in", wait,
			"error", err)
	}

	err = backoff.RetryNotify(op, b, notify)
	return attempts, err
}

// safeRun turns a panicking task into an ordinary failure.
func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	return t.Run(ctx)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
