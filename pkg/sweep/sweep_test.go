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
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lintsweep/pkg/audit"
	"github.com/AleutianAI/lintsweep/pkg/lint"
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// =============================================================================
// HELPERS
// =============================================================================

func fakeTool(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake linters are shell scripts")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func touch(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
}

type memWorkspace struct {
	mu    sync.Mutex
	dir   string
	files map[string][]byte
}

func (w *memWorkspace) WriteArtifact(name string, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files == nil {
		w.files = make(map[string][]byte)
	}
	w.files[name] = data
	return filepath.Join(w.dir, name), nil
}

func (w *memWorkspace) Dir() string { return w.dir }
func (w *memWorkspace) Kept() bool  { return false }

// pylint prints two warnings per file.
const pylintBody = `for f in "$@"; do
  case "$f" in -*) ;; *) echo "W0611:$f:1:0: unused import"; echo "W0612:$f:2:0: unused variable" ;; esac
done`

func pythonOnly(tool string) []lint.Category {
	c := lint.DefaultPythonCategory.Clone()
	c.Tool = tool
	return []lint.Category{c}
}

// =============================================================================
// TALLY
// =============================================================================

func TestTally_Fold(t *testing.T) {
	var tally Tally
	tally.Fold(lint.CategoryResult{ItemsSeen: 3, Warnings: 4, Errors: 1})
	tally.Fold(lint.CategoryResult{ItemsSeen: 9, Warnings: 9, Errors: 9, Skipped: true})
	tally.Fold(lint.CategoryResult{ItemsSeen: 2, Warnings: -1})

	assert.Equal(t, Tally{FilesProcessed: 5, WarningsFound: 4, ErrorsFound: 1}, tally)
	assert.True(t, tally.Failed())
	assert.Equal(t, "files=5 warnings=4 errors=1", tally.String())
	assert.False(t, Tally{WarningsFound: 10}.Failed(), "warnings alone never fail a run")
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestRun_EmptyRoot(t *testing.T) {
	s := New(Options{Capabilities: lint.Capabilities{}})

	summary, err := s.Run(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, Tally{}, summary.Tally)
	assert.Len(t, summary.Categories, 3)
	assert.False(t, summary.Tally.Failed())
}

func TestRun_MissingLinterSkipsCategory(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "main.py")

	s := New(Options{
		Categories:   lint.DefaultCategories(),
		Ecosystems:   []audit.Ecosystem{},
		Capabilities: lint.Capabilities{"pylint": lint.Unavailable},
	})
	summary, err := s.Run(context.Background(), root)

	require.NoError(t, err)
	require.NotEmpty(t, summary.Categories)
	assert.True(t, summary.Categories[0].Skipped)
	assert.Zero(t, summary.Tally.FilesProcessed)
	assert.False(t, summary.Tally.Failed())
}

func TestRun_InvalidRoot(t *testing.T) {
	tool := fakeTool(t, "pylint", `touch "$0.ran"`)
	s := New(Options{Categories: pythonOnly(tool), Ecosystems: []audit.Ecosystem{}})

	missing := filepath.Join(t.TempDir(), "nope")
	summary, err := s.Run(context.Background(), missing)

	require.Error(t, err)
	assert.True(t, IsRootError(err))
	assert.True(t, errors.Is(err, walk.ErrNotExist))
	assert.Contains(t, RootMessage(err), "does not exist")
	assert.Empty(t, summary.Categories)
	assert.NoFileExists(t, tool+".ran")
}

func TestRun_FilesProcessedIndependentOfJobs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.py", "b.py", "c.py", "d/e.py", "d/f.py", "venv/g.py")
	tool := fakeTool(t, "pylint", pylintBody)

	for _, jobs := range []int{1, 2, 4, 8} {
		s := New(Options{
			Categories: pythonOnly(tool),
			Ecosystems: []audit.Ecosystem{},
			Jobs:       jobs,
		})
		summary, err := s.Run(context.Background(), root)

		require.NoError(t, err)
		assert.Equal(t, 5, summary.Tally.FilesProcessed, "jobs=%d", jobs)
		assert.Equal(t, 10, summary.Tally.WarningsFound, "jobs=%d", jobs)
		assert.Zero(t, summary.Tally.ErrorsFound, "jobs=%d", jobs)
	}
}

func TestRun_SymlinkedRoot(t *testing.T) {
	parent := t.TempDir()
	project := filepath.Join(parent, "project")
	touch(t, project, "a.py", "pkg/b.py")
	link := filepath.Join(parent, "link")
	if err := os.Symlink(project, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	tool := fakeTool(t, "pylint", pylintBody)

	s := New(Options{Categories: pythonOnly(tool), Ecosystems: []audit.Ecosystem{}})
	summary, err := s.Run(context.Background(), link)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Tally.FilesProcessed)
	assert.Equal(t, 4, summary.Tally.WarningsFound)
}

func TestRun_LaunchFailureFailsRun(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.py", "b.py")

	ghost := filepath.Join(t.TempDir(), "pylint")
	s := New(Options{
		Categories:   pythonOnly(ghost),
		Ecosystems:   []audit.Ecosystem{},
		Capabilities: lint.Capabilities{ghost: lint.Available},
	})
	summary, err := s.Run(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Tally.FilesProcessed)
	assert.Equal(t, 2, summary.Tally.ErrorsFound)
	assert.True(t, summary.Tally.Failed())
}

func TestRun_ArtifactsAndAudit(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.py", "package.json", "node_modules/x/requirements.txt")
	pylint := fakeTool(t, "pylint", pylintBody)
	npm := fakeTool(t, "npm", `echo '{}'`)

	npmEco := audit.NPM
	npmEco.Tool = npm

	ws := &memWorkspace{dir: "/artifacts"}
	s := New(Options{
		Categories: pythonOnly(pylint),
		Ecosystems: []audit.Ecosystem{npmEco, audit.Pip},
		Workspace:  ws,
		RunID:      "run-7",
	})
	summary, err := s.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "run-7", summary.RunID)
	assert.Equal(t, "/artifacts", summary.ArtifactsDir)
	assert.Equal(t, []Artifact{
		{Name: "python.txt", Path: "/artifacts/python.txt", Counted: true},
		{Name: "npm-audit.json", Path: "/artifacts/npm-audit.json"},
	}, summary.Artifacts)

	require.Len(t, summary.Audits, 2)
	assert.False(t, summary.Audits[0].Skipped)
	assert.True(t, summary.Audits[1].Skipped, "requirements.txt only exists under node_modules")

	assert.Equal(t, 1, summary.Tally.FilesProcessed, "audit never feeds the tally")
	assert.Equal(t, 2, summary.Tally.WarningsFound)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.py")
	tool := fakeTool(t, "pylint", pylintBody)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{Categories: pythonOnly(tool), Ecosystems: []audit.Ecosystem{}})
	summary, err := s.Run(ctx, root)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Interrupted)
	assert.Zero(t, summary.Tally.FilesProcessed)
}

func TestNew_ProbesOnce(t *testing.T) {
	tool := fakeTool(t, "pylint", "exit 0")
	s := New(Options{Categories: pythonOnly(tool), Ecosystems: []audit.Ecosystem{}})

	assert.Equal(t, lint.Available, s.Capabilities().Of(tool))
}
