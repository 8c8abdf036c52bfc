// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects trigger batches.
type recorder struct {
	mu      sync.Mutex
	batches [][]Change
	fired   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) trigger(_ context.Context, changes []Change) error {
	r.mu.Lock()
	r.batches = append(r.batches, changes)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) snapshot() [][]Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Change(nil), r.batches...)
}

func startWatcher(t *testing.T, root string, trigger Trigger) (context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(root, trigger, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func paths(batches [][]Change) []string {
	var out []string
	for _, b := range batches {
		for _, c := range b {
			out = append(out, filepath.Base(c.Path))
		}
	}
	return out
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestDedupe(t *testing.T) {
	in := []Change{
		{Path: "a", Op: OpCreate},
		{Path: "b", Op: OpWrite},
		{Path: "a", Op: OpWrite},
	}
	got := dedupe(in)
	assert.Equal(t, []Change{{Path: "a", Op: OpWrite}, {Path: "b", Op: OpWrite}}, got)
	assert.Empty(t, dedupe(nil))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), func(context.Context, []Change) error { return nil }, Options{})
	assert.Error(t, err)

	_, err = New(t.TempDir(), nil, Options{})
	assert.Error(t, err)
}

func TestWatcher_Excluded(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, func(context.Context, []Change) error { return nil }, Options{})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.excluded(filepath.Join(root, "node_modules")))
	assert.True(t, w.excluded(filepath.Join(root, "src", ".git", "objects")))
	assert.False(t, w.excluded(filepath.Join(root, "src", "pkg")))
	assert.False(t, w.excluded(root))
	assert.True(t, w.ignoredFile("main.go.swp"))
	assert.False(t, w.ignoredFile("main.go"))
}

func TestWatcher_TriggersOnWrite(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	cancel, done := startWatcher(t, root, rec.trigger)

	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("x = 1\n"), 0o644))

	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire")
	}
	assert.Contains(t, paths(rec.snapshot()), "app.py")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_SymlinkedRoot(t *testing.T) {
	parent := t.TempDir()
	project := filepath.Join(parent, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(project, "pkg"), 0o755))
	link := filepath.Join(parent, "link")
	if err := os.Symlink(project, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	rec := newRecorder()
	startWatcher(t, link, rec.trigger)

	require.NoError(t, os.WriteFile(filepath.Join(project, "pkg", "nested.py"), []byte("x = 1\n"), 0o644))

	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change below a symlinked root was not observed")
	}
	assert.Contains(t, paths(rec.snapshot()), "nested.py")
}

func TestWatcher_IgnoresExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	modules := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(modules, 0o755))

	rec := newRecorder()
	startWatcher(t, root, rec.trigger)

	require.NoError(t, os.WriteFile(filepath.Join(modules, "index.js"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.swp"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.sh"), []byte("echo"), 0o644))

	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire")
	}
	got := paths(rec.snapshot())
	assert.Contains(t, got, "main.sh")
	assert.NotContains(t, got, "index.js")
	assert.NotContains(t, got, "notes.swp")
}

func TestWatcher_BatchesRapidWrites(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	startWatcher(t, root, rec.trigger)

	file := filepath.Join(root, "lib.py")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire")
	}
	batches := rec.snapshot()
	require.NotEmpty(t, batches)
	count := 0
	for _, c := range batches[0] {
		if c.Path == file {
			count++
		}
	}
	assert.Equal(t, 1, count, "a path appears once per batch")
}

func TestWatcher_TriggerErrorDoesNotStop(t *testing.T) {
	root := t.TempDir()
	calls := make(chan struct{}, 16)
	trigger := func(context.Context, []Change) error {
		calls <- struct{}{}
		return assert.AnError
	}
	cancel, done := startWatcher(t, root, trigger)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.sh"), []byte("1"), 0o644))
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire")
	}

	select {
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	default:
	}
	cancel()
	assert.NoError(t, <-done)
}
