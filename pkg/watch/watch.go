// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs a sweep when files under the root change.
//
// Changes are collected from fsnotify, filtered through the same exclusion
// rules the walker uses, batched over a debounce window and handed to a
// Trigger. Triggers are throttled by a token bucket so a busy tree never
// starts more than one sweep per MinInterval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// Op is the kind of change observed.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file system event.
type Change struct {
	Path string
	Op   Op
}

// Trigger runs for every debounced batch. Returning a context error stops
// the watcher; other errors are logged.
type Trigger func(ctx context.Context, changes []Change) error

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period that closes a batch. Default: 500ms.
	Debounce time.Duration

	// MinInterval is the minimum time between two triggers. Zero disables
	// throttling.
	MinInterval time.Duration

	// Rules prunes directories from watching. Nil means hidden and
	// dependency cache directories.
	Rules walk.Rules

	// IgnoreFiles are base-name globs for editor and temp files.
	IgnoreFiles []string
}

// DefaultOptions returns the defaults described on Options.
func DefaultOptions() Options {
	return Options{
		Debounce:    500 * time.Millisecond,
		Rules:       walk.Compose(walk.HiddenDirs, walk.DependencyCacheDirs, walk.PythonEnvDirs),
		IgnoreFiles: []string{"*.swp", "*.tmp", "*~", ".#*"},
	}
}

// Watcher watches a directory tree.
//
// Thread Safety: Run must be called once. Close may be called from any
// goroutine.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	trigger  Trigger
	opts     Options
	limiter  *rate.Limiter
	watching int
}

// New creates a Watcher and registers every non-excluded directory under
// root, so changes made after New returns are observed.
func New(root string, trigger Trigger, opts Options) (*Watcher, error) {
	if err := walk.ValidateRoot(root); err != nil {
		return nil, err
	}
	if trigger == nil {
		return nil, errors.New("watch: nil trigger")
	}

	defaults := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = defaults.Debounce
	}
	if opts.Rules == nil {
		opts.Rules = defaults.Rules
	}
	if opts.IgnoreFiles == nil {
		opts.IgnoreFiles = defaults.IgnoreFiles
	}

	// WalkDir does not descend into a symlinked root.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		fsw:     fsw,
		trigger: trigger,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	slog.Debug("Watching directories",
		slog.String("root", root),
		slog.Int("directories", w.watching),
	)
	return w, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers debounced batches to the trigger until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		batch  []Change
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			change, keep := w.convert(event)
			if !keep {
				continue
			}
			if change.Op == OpCreate {
				if info, err := os.Stat(change.Path); err == nil && info.IsDir() {
					if err := w.addRecursive(change.Path); err != nil {
						slog.Warn("Cannot watch new directory",
							slog.String("path", change.Path),
							slog.String("error", err.Error()),
						)
					}
				}
			}
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watch error", slog.String("error", err.Error()))

		case <-timerC:
			timer, timerC = nil, nil
			changes := dedupe(batch)
			batch = nil
			if err := w.fire(ctx, changes); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// fire waits for the limiter and invokes the trigger.
func (w *Watcher) fire(ctx context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	slog.Info("Changes detected, re-running", slog.Int("changes", len(changes)))
	err := w.trigger(ctx, changes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		slog.Warn("Sweep failed", slog.String("error", err.Error()))
		return nil
	}
}

// addRecursive watches dir and every non-excluded directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.watching++
		return nil
	})
}

// excluded reports whether any directory from root down to path is pruned.
func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i := range parts {
		if w.opts.Rules.Excludes(strings.Join(parts[:i+1], "/"), parts[i]) {
			return true
		}
	}
	return false
}

func (w *Watcher) convert(event fsnotify.Event) (Change, bool) {
	if w.excluded(filepath.Dir(event.Name)) || w.ignoredFile(filepath.Base(event.Name)) {
		return Change{}, false
	}
	// A created directory that is itself excluded is not watched.
	if event.Has(fsnotify.Create) && w.excluded(event.Name) {
		return Change{}, false
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return Change{}, false
	}
	return Change{Path: event.Name, Op: op}, true
}

func (w *Watcher) ignoredFile(base string) bool {
	for _, glob := range w.opts.IgnoreFiles {
		if ok, _ := filepath.Match(glob, base); ok {
			return true
		}
	}
	return false
}

// dedupe keeps the latest change per path, in first-seen order.
func dedupe(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
