// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/AleutianAI/lintsweep/pkg/lint"
	"github.com/AleutianAI/lintsweep/pkg/sweep"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name  string
		tally sweep.Tally
		want  int
	}{
		{"empty run", sweep.Tally{}, ExitOK},
		{"warnings only", sweep.Tally{FilesProcessed: 3, WarningsFound: 40}, ExitOK},
		{"one error", sweep.Tally{FilesProcessed: 3, ErrorsFound: 1}, ExitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.tally); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRender_EmptyRun(t *testing.T) {
	got := Render(sweep.Summary{Root: "/src"}, Options{})
	want := strings.Join([]string{
		"==== lintsweep summary ====",
		"Root:              /src",
		"Files processed:   0",
		"Warnings found:    0",
		"Errors found:      0",
		"Artifacts:         none",
		"Status:            PASSED",
		"",
	}, "\n")

	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_Full(t *testing.T) {
	s := sweep.Summary{
		Root:          "/src",
		Tally:         sweep.Tally{FilesProcessed: 7, WarningsFound: 2, ErrorsFound: 1},
		ArtifactsDir:  "/tmp/lintsweep-1",
		ArtifactsKept: true,
		Categories: []lint.CategoryResult{
			{Category: "python", ItemsSeen: 7},
			{Category: "shell", Skipped: true, SkipReason: "shellcheck: linter not installed"},
			{Category: "web", Skipped: true},
		},
		Artifacts: []sweep.Artifact{
			{Name: "python.txt", Path: "/tmp/lintsweep-1/python.txt", Counted: true},
			{Name: "npm-audit.json", Path: "/tmp/lintsweep-1/npm-audit.json"},
		},
	}

	got := Render(s, Options{})
	want := strings.Join([]string{
		"==== lintsweep summary ====",
		"Root:              /src",
		"Files processed:   7",
		"Warnings found:    2",
		"Errors found:      1",
		"Skipped:           shell (shellcheck: linter not installed)",
		"                   web",
		"Artifacts:         /tmp/lintsweep-1",
		"  - python.txt",
		"  - npm-audit.json (not counted)",
		"Status:            FAILED",
		"",
	}, "\n")

	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_RemovedWorkspaceAndInterrupt(t *testing.T) {
	got := Render(sweep.Summary{Root: "/src", ArtifactsDir: "/tmp/x", Interrupted: true}, Options{})

	if !strings.Contains(got, "/tmp/x (removed on exit, use --keep-artifacts)") {
		t.Errorf("missing removal note:\n%s", got)
	}
	if !strings.Contains(got, "Status:            INTERRUPTED") {
		t.Errorf("missing interrupted status:\n%s", got)
	}
}

func TestRender_IsPure(t *testing.T) {
	s := sweep.Summary{Root: "/r", Tally: sweep.Tally{FilesProcessed: 1}}
	if Render(s, Options{Color: true}) != Render(s, Options{Color: true}) {
		t.Error("Render must be deterministic")
	}
}

func TestRender_ColorKeepsText(t *testing.T) {
	got := Render(sweep.Summary{Root: "/r", Tally: sweep.Tally{ErrorsFound: 2}}, Options{Color: true})
	for _, want := range []string{"lintsweep summary", "Errors found:", "2", "FAILED"} {
		if !strings.Contains(got, want) {
			t.Errorf("colored output missing %q:\n%s", want, got)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	s := sweep.Summary{
		Root:  "/src",
		Tally: sweep.Tally{FilesProcessed: 2, ErrorsFound: 1},
	}
	if err := WriteJSON(&buf, s); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc struct {
		Root     string      `json:"root"`
		Tally    sweep.Tally `json:"tally"`
		Status   string      `json:"status"`
		ExitCode int         `json:"exit_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Root != "/src" || doc.Tally.ErrorsFound != 1 || doc.Status != "FAILED" || doc.ExitCode != ExitFailed {
		t.Errorf("unexpected document: %+v", doc)
	}
}
