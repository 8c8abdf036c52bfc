// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace manages the per-run artifact directory.
//
// A Workspace is created once per run, receives every artifact the
// categories and the dependency scan produce, and is removed by Cleanup on
// every exit path unless the caller asked to keep it.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Prefix is prepended to the run ID to form the directory name.
const Prefix = "lintsweep-"

// ErrInvalidName is returned when an artifact name would escape the
// workspace directory.
var ErrInvalidName = errors.New("invalid artifact name")

// Workspace is a run-scoped directory of artifacts.
//
// Thread Safety: WriteArtifact, OpenArtifact and Artifacts are safe for
// concurrent use. Cleanup is idempotent.
type Workspace struct {
	dir   string
	runID string
	keep  bool

	mu        sync.Mutex
	artifacts []string

	cleanup    sync.Once
	cleanupErr error
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithKeep makes Cleanup leave the directory in place.
func WithKeep(keep bool) Option {
	return func(w *Workspace) {
		w.keep = keep
	}
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Create makes the directory lintsweep-<runID> under parent.
//
// Description:
//
//	An empty parent means os.TempDir, which honors TMPDIR. An empty
//	runID gets a fresh UUID. The directory is created with 0700 so
//	tool output is not world-readable.
//
// Outputs:
//
//	*Workspace - The created workspace. Callers must defer Cleanup.
//	error - Non-nil if the directory cannot be created.
func Create(parent, runID string, opts ...Option) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if runID == "" {
		runID = NewRunID()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace parent: %w", err)
	}

	dir := filepath.Join(parent, Prefix+runID)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	w := &Workspace{dir: dir, runID: runID}
	for _, opt := range opts {
		opt(w)
	}

	slog.Debug("Workspace created",
		slog.String("dir", dir),
		slog.String("run_id", runID),
	)
	return w, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// RunID returns the run identifier embedded in the directory name.
func (w *Workspace) RunID() string {
	return w.runID
}

// Kept reports whether Cleanup leaves the directory in place.
func (w *Workspace) Kept() bool {
	return w.keep
}

// Path returns the absolute path of the named artifact.
func (w *Workspace) Path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(w.dir, name), nil
}

// WriteArtifact writes data to the named artifact and returns its path.
func (w *Workspace) WriteArtifact(name string, data []byte) (string, error) {
	path, err := w.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	w.record(name)
	return path, nil
}

// OpenArtifact creates (or truncates) the named artifact for streaming
// writes. The caller closes the file.
func (w *Workspace) OpenArtifact(name string) (*os.File, error) {
	path, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	w.record(name)
	return f, nil
}

// Artifacts returns the names written so far, sorted.
func (w *Workspace) Artifacts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := slices.Clone(w.artifacts)
	slices.Sort(out)
	return out
}

func (w *Workspace) record(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.artifacts, name) {
		w.artifacts = append(w.artifacts, name)
	}
}

// Cleanup removes the workspace unless it is kept. Only the first call has
// any effect; later calls return the first result.
func (w *Workspace) Cleanup() error {
	w.cleanup.Do(func() {
		if w.keep {
			slog.Info("Keeping artifacts", slog.String("dir", w.dir))
			return
		}
		if err := os.RemoveAll(w.dir); err != nil {
			w.cleanupErr = fmt.Errorf("remove workspace: %w", err)
			return
		}
		slog.Debug("Workspace removed", slog.String("dir", w.dir))
	})
	return w.cleanupErr
}
