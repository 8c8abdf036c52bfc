// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit runs dependency vulnerability scanners when a manifest for
// their ecosystem is present under the scanned root.
//
// Each ecosystem is checked with a single first-match walk that honors the
// same exclusion rules as the lint categories, so a manifest that only
// exists inside node_modules, a virtualenv or a build directory is never
// found. At most one audit runs per ecosystem. Its output is stored as an
// artifact and is not folded into the run's warning or error counters.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/lintsweep/pkg/lint"
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

var tracer = otel.Tracer("lintsweep.audit")

// Rules prunes the same directories the lint categories skip.
var Rules = walk.Compose(
	walk.HiddenDirs,
	walk.DependencyCacheDirs,
	walk.PythonEnvDirs,
	walk.BuildOutputDirs,
)

// Ecosystem describes one dependency manager and its audit tool.
type Ecosystem struct {
	// Name is the ecosystem tag recorded on findings ("npm", "pip").
	Name string

	// Manifest is the exact file name that marks a project of this
	// ecosystem.
	Manifest string

	// Tool is the audit command.
	Tool string

	// Args builds the tool arguments for the discovered manifest path.
	Args func(manifest string) []string

	// InManifestDir runs the tool from the manifest's directory.
	InManifestDir bool

	// Artifact is the workspace file that receives the tool's stdout.
	Artifact string

	// Rules overrides the package Rules when non-nil.
	Rules walk.Rules
}

// ManifestPlaceholder in configured arguments is replaced by the manifest
// path.
const ManifestPlaceholder = "{manifest}"

// FixedArgs returns an Args function that substitutes ManifestPlaceholder.
func FixedArgs(args []string) func(string) []string {
	return func(manifest string) []string {
		out := make([]string, len(args))
		for i, a := range args {
			out[i] = strings.ReplaceAll(a, ManifestPlaceholder, manifest)
		}
		return out
	}
}

// NPM audits package.json projects with `npm audit --json`.
var NPM = Ecosystem{
	Name:          "npm",
	Manifest:      "package.json",
	Tool:          "npm",
	Args:          func(string) []string { return []string{"audit", "--json"} },
	InManifestDir: true,
	Artifact:      "npm-audit.json",
}

// Pip audits requirements.txt with `pip-audit -r <file> -f json`.
var Pip = Ecosystem{
	Name:     "pip",
	Manifest: "requirements.txt",
	Tool:     "pip-audit",
	Args: func(manifest string) []string {
		return []string{"-r", manifest, "-f", "json"}
	},
	Artifact: "pip-audit.json",
}

// DefaultEcosystems returns the ecosystems checked on every run.
func DefaultEcosystems() []Ecosystem {
	return []Ecosystem{NPM, Pip}
}

// Tools lists the audit commands of ecosystems, for capability probing.
func Tools(ecosystems []Ecosystem) []string {
	tools := make([]string, 0, len(ecosystems))
	for _, e := range ecosystems {
		tools = append(tools, e.Tool)
	}
	return tools
}

// Finding is the outcome of checking one ecosystem.
type Finding struct {
	Ecosystem string `json:"ecosystem"`
	Manifest  string `json:"manifest,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	Err       error  `json:"-"`
}

// Scanner checks ecosystems under a root.
type Scanner struct {
	caps       lint.Capabilities
	runner     *lint.Runner
	sink       lint.ArtifactSink
	ecosystems []Ecosystem
}

// NewScanner creates a Scanner over the given ecosystems. A nil list
// means DefaultEcosystems.
func NewScanner(caps lint.Capabilities, runner *lint.Runner, sink lint.ArtifactSink, ecosystems []Ecosystem) *Scanner {
	if runner == nil {
		runner = lint.NewRunner()
	}
	if ecosystems == nil {
		ecosystems = DefaultEcosystems()
	}
	return &Scanner{caps: caps, runner: runner, sink: sink, ecosystems: ecosystems}
}

// Scan checks every ecosystem sequentially and returns one Finding each.
func (s *Scanner) Scan(ctx context.Context, root string) []Finding {
	findings := make([]Finding, 0, len(s.ecosystems))
	for _, eco := range s.ecosystems {
		if ctx.Err() != nil {
			break
		}
		findings = append(findings, s.check(ctx, eco, root))
	}
	return findings
}

func (s *Scanner) check(ctx context.Context, eco Ecosystem, root string) Finding {
	ctx, span := tracer.Start(ctx, "audit.Check")
	defer span.End()
	span.SetAttributes(
		attribute.String("audit.ecosystem", eco.Name),
		attribute.String("audit.tool", eco.Tool),
	)

	f := Finding{Ecosystem: eco.Name}

	rules := eco.Rules
	if rules == nil {
		rules = Rules
	}
	target, ok, err := lint.FirstTarget(root, walk.Names(eco.Manifest), rules, lint.CategoryDependency)
	if err != nil {
		f.Skipped, f.Reason, f.Err = true, err.Error(), err
		span.SetStatus(codes.Error, err.Error())
		return f
	}
	if !ok {
		f.Skipped, f.Reason = true, fmt.Sprintf("no %s found", eco.Manifest)
		slog.Debug("No manifest found", slog.String("ecosystem", eco.Name))
		return f
	}
	manifest := target.Path
	f.Manifest = manifest
	span.SetAttributes(attribute.String("audit.manifest", manifest))

	if !s.caps.Has(eco.Tool) {
		f.Skipped, f.Reason = true, fmt.Sprintf("%s: %v", eco.Tool, lint.ErrToolMissing)
		slog.Info("Audit tool not installed, skipping",
			slog.String("ecosystem", eco.Name),
			slog.String("tool", eco.Tool),
		)
		return f
	}

	dir := ""
	if eco.InManifestDir {
		dir = filepath.Dir(manifest)
	}

	start := time.Now()
	out, err := s.runner.Output(ctx, eco.Tool, eco.Args(manifest), dir)
	if err != nil {
		f.Err = err
		var launchErr *lint.LaunchError
		if errors.As(err, &launchErr) {
			launchErr.Category = eco.Name
		}
		f.Skipped, f.Reason = true, err.Error()
		slog.Warn("Audit failed",
			slog.String("ecosystem", eco.Name),
			slog.String("tool", eco.Tool),
			slog.String("error", err.Error()),
		)
		span.SetStatus(codes.Error, err.Error())
		return f
	}

	if s.sink != nil {
		location, err := s.sink.WriteArtifact(eco.Artifact, out)
		if err != nil {
			f.Err = err
			slog.Warn("Cannot write audit artifact",
				slog.String("ecosystem", eco.Name),
				slog.String("error", err.Error()),
			)
		} else {
			f.Artifact = location
		}
	}

	slog.Info("Audit completed",
		slog.String("ecosystem", eco.Name),
		slog.String("manifest", manifest),
		slog.Duration("duration", time.Since(start)),
	)
	return f
}
