// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/lintsweep/pkg/audit"
	"github.com/AleutianAI/lintsweep/pkg/dispatch"
	"github.com/AleutianAI/lintsweep/pkg/lint"
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

var tracer = otel.Tracer("lintsweep.sweep")

// =============================================================================
// TYPES
// =============================================================================

// Workspace is where a run stores its artifacts.
type Workspace interface {
	lint.ArtifactSink
	Dir() string
	Kept() bool
}

// Artifact is one file the run left in its workspace.
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Counted is false for outputs that do not feed the Tally, such as
	// dependency audit reports.
	Counted bool `json:"counted"`
}

// Summary is everything a run produced.
type Summary struct {
	RunID         string                `json:"run_id,omitempty"`
	Root          string                `json:"root"`
	Tally         Tally                 `json:"tally"`
	Categories    []lint.CategoryResult `json:"categories"`
	Audits        []audit.Finding       `json:"audits"`
	ArtifactsDir  string                `json:"artifacts_dir,omitempty"`
	ArtifactsKept bool                  `json:"artifacts_kept"`
	Artifacts     []Artifact            `json:"artifacts"`
	Duration      time.Duration         `json:"duration"`
	Interrupted   bool                  `json:"interrupted,omitempty"`
}

// Options configures a Sweeper.
type Options struct {
	// Categories run in order. Nil means lint.DefaultCategories.
	Categories []lint.Category

	// Ecosystems for the dependency audit. Nil means
	// audit.DefaultEcosystems; an empty non-nil slice disables the audit.
	Ecosystems []audit.Ecosystem

	// Jobs bounds concurrent linter processes per category.
	Jobs int

	// Timeout bounds each linter invocation. Zero means none.
	Timeout time.Duration

	// Capabilities overrides tool probing. Nil probes every tool named by
	// Categories and Ecosystems.
	Capabilities lint.Capabilities

	// Workspace receives artifacts. Nil disables artifact output.
	Workspace Workspace

	// RunID is recorded on the summary.
	RunID string
}

// =============================================================================
// SWEEPER
// =============================================================================

// Sweeper runs categories and the dependency audit over a root.
//
// Thread Safety: Run may be called repeatedly but not concurrently with
// itself when sharing a Workspace, because artifact names are fixed.
type Sweeper struct {
	categories []lint.Category
	caps       lint.Capabilities
	scanner    *lint.Scanner
	auditor    *audit.Scanner
	workspace  Workspace
	runID      string
	jobs       int
}

// New builds a Sweeper, probing tool availability once.
func New(opts Options) *Sweeper {
	categories := opts.Categories
	if categories == nil {
		categories = lint.DefaultCategories()
	}
	ecosystems := opts.Ecosystems
	if ecosystems == nil {
		ecosystems = audit.DefaultEcosystems()
	}

	caps := opts.Capabilities
	if caps == nil {
		tools := append(lint.Tools(categories), audit.Tools(ecosystems)...)
		caps = lint.Probe(tools...)
		if missing := caps.Missing(); len(missing) > 0 {
			slog.Debug("Some tools are not installed", slog.Any("tools", missing))
		}
	}

	var sink lint.ArtifactSink
	if opts.Workspace != nil {
		sink = opts.Workspace
	}

	runner := lint.NewRunner(lint.WithTimeout(opts.Timeout))
	d := dispatch.New(opts.Jobs)

	return &Sweeper{
		categories: categories,
		caps:       caps,
		scanner:    lint.NewScanner(caps, runner, d, sink),
		auditor:    audit.NewScanner(caps, runner, sink, ecosystems),
		workspace:  opts.Workspace,
		runID:      opts.RunID,
		jobs:       d.Limit(),
	}
}

// Capabilities returns the availability decided when the Sweeper was built.
func (s *Sweeper) Capabilities() lint.Capabilities {
	return s.caps
}

// Run performs one sweep of root.
//
// Description:
//
//	The root is validated before anything runs; an invalid root returns
//	a *walk.FilesystemError and an empty Summary. Categories then run
//	one at a time. Each category's result is folded into the Tally only
//	after Scan returns, which is after every worker of that category
//	has exited. Cancelling ctx stops launching new work; the partial
//	Summary is returned together with ctx.Err().
//
// Inputs:
//
//	ctx - Cancellation kills running linters
//	root - Directory to scan; made absolute
//
// Outputs:
//
//	Summary - Counters, per-category results, audit findings, artifacts
//	error - *walk.FilesystemError for an invalid root, ctx.Err() when
//	interrupted, nil otherwise
func (s *Sweeper) Run(ctx context.Context, root string) (Summary, error) {
	start := time.Now()

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	ctx, span := tracer.Start(ctx, "Sweeper.Run",
		trace.WithAttributes(
			attribute.String("sweep.root", root),
			attribute.String("sweep.run_id", s.runID),
			attribute.Int("sweep.jobs", s.jobs),
		),
	)
	defer span.End()

	if err := walk.ValidateRoot(root); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Summary{}, err
	}

	summary := Summary{
		RunID: s.runID,
		Root:  root,
	}
	if s.workspace != nil {
		summary.ArtifactsDir = s.workspace.Dir()
		summary.ArtifactsKept = s.workspace.Kept()
	}

	slog.Info("Starting sweep",
		slog.String("root", root),
		slog.Int("jobs", s.jobs),
		slog.Int("categories", len(s.categories)),
	)

	for _, cat := range s.categories {
		if ctx.Err() != nil {
			break
		}
		result := s.scanner.Scan(ctx, cat, root)
		if ctx.Err() != nil {
			// Partial output from a cancelled category is not folded.
			result.Skipped = true
			result.SkipReason = ctx.Err().Error()
		}
		summary.Tally.Fold(result)
		summary.Categories = append(summary.Categories, result)
		if result.Artifact != "" {
			summary.Artifacts = append(summary.Artifacts, Artifact{
				Name:    cat.Name + ".txt",
				Path:    result.Artifact,
				Counted: true,
			})
		}
	}

	if ctx.Err() == nil {
		summary.Audits = s.auditor.Scan(ctx, root)
		for _, f := range summary.Audits {
			if f.Artifact != "" {
				summary.Artifacts = append(summary.Artifacts, Artifact{
					Name: filepath.Base(f.Artifact),
					Path: f.Artifact,
				})
			}
		}
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("sweep.files", summary.Tally.FilesProcessed),
		attribute.Int("sweep.warnings", summary.Tally.WarningsFound),
		attribute.Int("sweep.errors", summary.Tally.ErrorsFound),
	)

	if err := ctx.Err(); err != nil {
		summary.Interrupted = true
		span.SetStatus(codes.Error, "interrupted")
		slog.Warn("Sweep interrupted", slog.String("error", err.Error()))
		return summary, err
	}

	slog.Info("Sweep completed",
		slog.String("tally", summary.Tally.String()),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// IsRootError reports whether err came from validating the root directory.
func IsRootError(err error) bool {
	var fsErr *walk.FilesystemError
	return errors.As(err, &fsErr)
}

// RootMessage formats an invalid-root error for the user.
func RootMessage(err error) string {
	return fmt.Sprintf("Error: %v", err)
}
