// Package runner provides bounded concurrent execution for probe rounds.
//
// Every round is a barrier: Run and RunAll return only after every submitted
// task has finished, and they always return one result per task.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waftester/vulnscan/pkg/defaults"
)

// Task is a unit of work that reports its own failure inside T.
type Task[T any] func(ctx context.Context) T

// RunAll executes tasks with at most maxConcurrency running at once and
// returns their values in submission order. A panicking task yields the
// zero value of T. maxConcurrency <= 0 falls back to defaults.Concurrency.
func RunAll[T any](ctx context.Context, tasks []Task[T], maxConcurrency int) []T {
	out := make([]T, len(tasks))
	forEach(len(tasks), maxConcurrency, func(i int) {
		defer func() { _ = recover() }()
		out[i] = tasks[i](ctx)
	})
	return out
}

// forEach calls fn(i) for i in [0, n) on at most limit goroutines at a time
// and waits for all of them.
func forEach(n, limit int, fn func(i int)) {
	if n == 0 {
		return
	}
	if limit <= 0 {
		limit = defaults.Concurrency
	}
	if limit > n {
		limit = n
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// Result represents the result of processing a single target
type Result[T any] struct {
	Target   string
	Data     T
	Error    error
	Duration time.Duration
}

// Stats tracks execution statistics
type Stats struct {
	Total      int64
	Completed  int64
	Successful int64
	Failed     int64
	Panicked   int64
	StartTime  time.Time
}

// RPS returns the current completions per second
func (s *Stats) RPS() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&s.Completed)) / elapsed
}

// Runner executes a task per target with a fixed worker count
type Runner[T any] struct {
	// Concurrency is the number of parallel workers (default defaults.Concurrency)
	Concurrency int

	// Timeout bounds each target; zero leaves the caller's context as is
	Timeout time.Duration

	// Stats tracks execution statistics
	Stats Stats

	// OnProgress is called after each target completes. It may be called
	// from several goroutines at once.
	OnProgress func(completed, total int64, result Result[T])
}

// NewRunner creates a new runner with default settings
func NewRunner[T any]() *Runner[T] {
	return &Runner[T]{
		Concurrency: defaults.Concurrency,
	}
}

// TaskFunc is the function type for processing a single target
type TaskFunc[T any] func(ctx context.Context, target string) (T, error)

// Run executes task for every target and returns one Result per target,
// in target order. A panic inside task is reported as ErrTaskPanic.
func (r *Runner[T]) Run(ctx context.Context, targets []string, task TaskFunc[T]) []Result[T] {
	r.Stats = Stats{
		Total:     int64(len(targets)),
		StartTime: time.Now(),
	}
	if len(targets) == 0 {
		return nil
	}

	results := make([]Result[T], len(targets))
	forEach(len(targets), r.Concurrency, func(i int) {
		result := r.runOne(ctx, targets[i], task)
		results[i] = result

		completed := atomic.AddInt64(&r.Stats.Completed, 1)
		if result.Error == nil {
			atomic.AddInt64(&r.Stats.Successful, 1)
		} else {
			atomic.AddInt64(&r.Stats.Failed, 1)
		}
		if r.OnProgress != nil {
			r.OnProgress(completed, r.Stats.Total, result)
		}
	})
	return results
}

func (r *Runner[T]) runOne(ctx context.Context, target string, task TaskFunc[T]) (result Result[T]) {
	start := time.Now()
	result.Target = target

	defer func() {
		if p := recover(); p != nil {
			atomic.AddInt64(&r.Stats.Panicked, 1)
			result.Error = fmt.Errorf("%w: %v", ErrTaskPanic, p)
		}
		result.Duration = time.Since(start)
	}()

	taskCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	result.Data, result.Error = task(taskCtx, target)
	return result
}
