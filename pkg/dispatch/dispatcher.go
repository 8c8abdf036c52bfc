// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the concurrency limit used when none is configured.
const DefaultLimit = 4

// =============================================================================
// JOBS AND OUTCOMES
// =============================================================================

// Job is one unit of dispatched work.
//
// Per-file execution uses one path per job; batch execution groups many
// paths into a single job.
type Job struct {
	Paths []string
}

// Outcome is what an action reports back to the coordinator.
type Outcome struct {
	// Job is the job that produced this outcome.
	Job Job

	// Output is the action's captured output. It is appended to the
	// category sink as one contiguous block.
	Output []byte

	// Err is set when the action could not run at all (e.g. the process
	// failed to start). Output may still be present.
	Err error
}

// Action processes one job. It must not share mutable state with other
// actions; everything it produces goes into the returned Outcome.
type Action func(ctx context.Context, job Job) Outcome

// Result aggregates every outcome of one Run.
type Result struct {
	// Outcomes of the jobs that ran, in job order regardless of which
	// finished first.
	Outcomes []Outcome

	// Jobs is the number of jobs that ran.
	Jobs int

	// Items is the number of paths covered by the jobs that ran.
	Items int

	// Failures counts outcomes with a non-nil Err.
	Failures int

	// Skipped counts jobs never started because ctx was cancelled.
	Skipped int
}

// Output concatenates every outcome's output, one block per outcome.
func (r Result) Output() []byte {
	size := 0
	for _, o := range r.Outcomes {
		size += len(o.Output)
	}
	buf := make([]byte, 0, size)
	for _, o := range r.Outcomes {
		buf = append(buf, o.Output...)
		if len(o.Output) > 0 && o.Output[len(o.Output)-1] != '\n' {
			buf = append(buf, '\n')
		}
	}
	return buf
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher runs actions with at most Limit in flight.
//
// Thread Safety: A Dispatcher holds no per-run state and may be reused,
// including concurrently.
type Dispatcher struct {
	limit   int
	observe func(inFlight int)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers a hook called each time an action starts, with
// the number of actions in flight including the new one. The hook runs on
// worker goroutines and must be safe for concurrent use.
func WithObserver(fn func(inFlight int)) Option {
	return func(d *Dispatcher) {
		d.observe = fn
	}
}

// New creates a Dispatcher. A limit below 1 selects DefaultLimit.
func New(limit int, opts ...Option) *Dispatcher {
	if limit < 1 {
		limit = DefaultLimit
	}
	d := &Dispatcher{limit: limit}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Limit returns the concurrency limit.
func (d *Dispatcher) Limit() int {
	return d.limit
}

// Run executes action for every job and waits for all of them.
//
// Description:
//
//	New actions are admitted only while fewer than Limit are in flight;
//	admission blocks on a counting semaphore rather than polling. Run
//	returns after every admitted action has returned, so the Result never
//	reflects a partially completed set of workers. Once ctx is cancelled,
//	remaining jobs are not started and are counted in Skipped.
//
// Inputs:
//
//	ctx - Passed to every action; cancellation stops new admissions
//	jobs - Work items; an empty slice runs nothing
//	action - Per-job work
//
// Outputs:
//
//	Result - Every outcome plus counts
func (d *Dispatcher) Run(ctx context.Context, jobs []Job, action Action) Result {
	var res Result
	if len(jobs) == 0 {
		return res
	}

	type indexed struct {
		i   int
		out Outcome
	}

	// Buffered to len(jobs) so a finishing worker never waits on the
	// coordinator.
	outcomes := make(chan indexed, len(jobs))
	var inFlight atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.limit)

	for i, job := range jobs {
		if ctx.Err() != nil {
			res.Skipped = len(jobs) - i
			break
		}
		g.Go(func() error {
			n := inFlight.Add(1)
			if d.observe != nil {
				d.observe(int(n))
			}
			out := action(ctx, job)
			inFlight.Add(-1)
			outcomes <- indexed{i: i, out: out}
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)

	slots := make([]*Outcome, len(jobs))
	for o := range outcomes {
		slots[o.i] = &o.out
	}
	for _, out := range slots {
		if out == nil {
			continue
		}
		res.Outcomes = append(res.Outcomes, *out)
		res.Jobs++
		res.Items += len(out.Job.Paths)
		if out.Err != nil {
			res.Failures++
		}
	}
	return res
}

// =============================================================================
// JOB BUILDERS
// =============================================================================

// PerFile returns one job per path.
func PerFile(paths []string) []Job {
	jobs := make([]Job, 0, len(paths))
	for _, p := range paths {
		jobs = append(jobs, Job{Paths: []string{p}})
	}
	return jobs
}

// Batch groups paths into jobs of at most size paths each. A size below 1
// puts every path into a single job.
func Batch(paths []string, size int) []Job {
	if len(paths) == 0 {
		return nil
	}
	if size < 1 {
		size = len(paths)
	}
	jobs := make([]Job, 0, (len(paths)+size-1)/size)
	for start := 0; start < len(paths); start += size {
		end := min(start+size, len(paths))
		batch := make([]string, end-start)
		copy(batch, paths[start:end])
		jobs = append(jobs, Job{Paths: batch})
	}
	return jobs
}
