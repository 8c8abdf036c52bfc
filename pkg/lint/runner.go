// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/AleutianAI/lintsweep/pkg/dispatch"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes external tools and captures their combined output.
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	timeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exec runs tool with args and returns stdout and stderr interleaved.
//
// Description:
//
//	A non-zero exit is not an error: linters commonly exit non-zero when
//	they find issues, and their output is what gets counted. An invocation
//	that exceeds the timeout is killed; whatever it printed is returned
//	and a warning is logged.
//
// Inputs:
//
//	ctx - Cancellation kills the process
//	tool - Command name or path
//	args - Arguments
//	dir - Working directory; empty inherits the current one
//
// Outputs:
//
//	[]byte - Combined output
//	error - *LaunchError if the process never started, ctx.Err() if the
//	run was cancelled, nil otherwise
func (r *Runner) Exec(ctx context.Context, tool string, args []string, dir string) ([]byte, error) {
	return r.run(ctx, tool, args, dir, true)
}

// Output is Exec for tools that write structured documents to stdout.
// Stderr is discarded so the returned bytes stay parseable.
func (r *Runner) Output(ctx context.Context, tool string, args []string, dir string) ([]byte, error) {
	return r.run(ctx, tool, args, dir, false)
}

func (r *Runner) run(ctx context.Context, tool string, args []string, dir string, combined bool) ([]byte, error) {
	cmdCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, tool, args...)
	cmd.Dir = dir

	var (
		out []byte
		err error
	)
	if combined {
		out, err = cmd.CombinedOutput()
	} else {
		out, err = cmd.Output()
	}
	if err == nil {
		return out, nil
	}

	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		slog.Warn("Tool invocation timed out",
			slog.String("tool", tool),
			slog.Duration("timeout", r.timeout),
		)
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, nil
	}

	return out, &LaunchError{Tool: tool, Err: err}
}

// =============================================================================
// SCANNER
// =============================================================================

// ArtifactSink stores raw category output.
type ArtifactSink interface {
	// WriteArtifact stores data under name and returns its location.
	WriteArtifact(name string, data []byte) (string, error)
}

// Scanner runs categories against a root directory.
//
// Thread Safety: Safe for concurrent use.
type Scanner struct {
	caps       Capabilities
	runner     *Runner
	dispatcher *dispatch.Dispatcher
	sink       ArtifactSink
}

// NewScanner creates a Scanner.
//
// Inputs:
//
//	caps - Tool availability decided once for the run
//	runner - Process executor
//	dispatcher - Concurrency bound for per-category fan-out
//	sink - Where raw output goes; nil discards it
func NewScanner(caps Capabilities, runner *Runner, dispatcher *dispatch.Dispatcher, sink ArtifactSink) *Scanner {
	if runner == nil {
		runner = NewRunner()
	}
	if dispatcher == nil {
		dispatcher = dispatch.New(dispatch.DefaultLimit)
	}
	return &Scanner{
		caps:       caps,
		runner:     runner,
		dispatcher: dispatcher,
		sink:       sink,
	}
}

// Scan runs one category over root.
//
// Description:
//
//	Skips the category if its linter is unavailable. Otherwise walks root,
//	fans invocations out through the dispatcher, and only after every
//	invocation has returned classifies the combined output. Nothing in
//	this method escalates a failure: a root that cannot be walked is
//	reported in CategoryResult.Err, launch failures are counted as errors.
//
// Inputs:
//
//	ctx - Cancellation stops new invocations
//	cat - Category to run
//	root - Directory to scan
//
// Outputs:
//
//	CategoryResult - The category's complete contribution
func (s *Scanner) Scan(ctx context.Context, cat Category, root string) CategoryResult {
	ctx, span := startCategorySpan(ctx, cat.Name, root)
	defer span.End()
	start := time.Now()

	result := CategoryResult{
		Category: cat.Name,
		Tool:     cat.Tool,
	}

	if !s.caps.Has(cat.Tool) {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("%s: %v", cat.Tool, ErrToolMissing)
		slog.Info("Linter not installed, skipping category",
			slog.String("category", cat.Name),
			slog.String("tool", cat.Tool),
		)
		setCategorySpanResult(span, result)
		recordCategoryMetrics(ctx, result)
		return result
	}

	targets, err := cat.Targets(root)
	if err != nil {
		result.Err = err
		result.Skipped = true
		result.SkipReason = err.Error()
		slog.Error("Cannot walk root",
			slog.String("category", cat.Name),
			slog.String("error", err.Error()),
		)
		setCategorySpanResult(span, result)
		return result
	}

	if len(targets) == 0 {
		slog.Debug("No matching files",
			slog.String("category", cat.Name),
			slog.String("pattern", cat.Pattern.String()),
		)
		result.Duration = time.Since(start)
		setCategorySpanResult(span, result)
		recordCategoryMetrics(ctx, result)
		return result
	}

	paths := TargetPaths(targets)
	var jobs []dispatch.Job
	if cat.BatchSize > 0 {
		jobs = dispatch.Batch(paths, cat.BatchSize)
	} else {
		jobs = dispatch.PerFile(paths)
	}

	slog.Info("Running linter",
		slog.String("category", cat.Name),
		slog.String("tool", cat.Tool),
		slog.Int("files", len(paths)),
		slog.Int("invocations", len(jobs)),
	)

	res := s.dispatcher.Run(ctx, jobs, s.action(cat))

	// Every worker has returned; the result is complete.
	output := res.Output()
	for _, o := range res.Outcomes {
		if o.Err != nil {
			output = append(output, []byte(fmt.Sprintf("lintsweep: %v\n", o.Err))...)
		}
	}

	result.ItemsSeen = res.Items
	result.MatchedLines, result.Warnings, result.Errors = cat.Classifier.Tally(res.Output())
	result.LaunchFailures = res.Failures
	result.Errors += res.Failures
	result.Duration = time.Since(start)

	if s.sink != nil {
		location, err := s.sink.WriteArtifact(cat.Name+".txt", output)
		if err != nil {
			slog.Warn("Cannot write category artifact",
				slog.String("category", cat.Name),
				slog.String("error", err.Error()),
			)
		} else {
			result.Artifact = location
		}
	}

	setCategorySpanResult(span, result)
	recordCategoryMetrics(ctx, result)

	slog.Debug("Category completed",
		slog.String("category", cat.Name),
		slog.Int("files", result.ItemsSeen),
		slog.Int("warnings", result.Warnings),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}

// action builds the per-job work for a category.
func (s *Scanner) action(cat Category) dispatch.Action {
	return func(ctx context.Context, job dispatch.Job) dispatch.Outcome {
		args := make([]string, 0, len(cat.Args)+len(job.Paths))
		args = append(args, cat.Args...)
		args = append(args, job.Paths...)

		out, err := s.runner.Exec(ctx, cat.Tool, args, "")

		var launchErr *LaunchError
		if errors.As(err, &launchErr) {
			launchErr.Category = cat.Name
			slog.Warn("Linter failed to start",
				slog.String("category", cat.Name),
				slog.String("tool", cat.Tool),
				slog.String("error", launchErr.Err.Error()),
			)
			return dispatch.Outcome{Job: job, Output: out, Err: launchErr}
		}
		return dispatch.Outcome{Job: job, Output: out}
	}
}
