// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders a run Summary for people and machines.
//
// Render is a pure function of the Summary: the same Summary always
// produces the same text. ExitCode maps the Tally to the process status.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/lintsweep/pkg/sweep"
)

const (
	// ExitOK is returned when no errors were found.
	ExitOK = 0

	// ExitFailed is returned when errors were found or the root is invalid.
	ExitFailed = 1

	// ExitInterrupted is returned after SIGINT or SIGTERM.
	ExitInterrupted = 130
)

const (
	header     = "==== lintsweep summary ===="
	labelWidth = 19
)

// Options controls rendering.
type Options struct {
	// Color enables lipgloss styling. Callers set it when stdout is a
	// terminal.
	Color bool
}

// ExitCode returns ExitFailed when any error was found. Warnings never
// affect the exit code.
func ExitCode(t sweep.Tally) int {
	if t.ErrorsFound > 0 {
		return ExitFailed
	}
	return ExitOK
}

// Status returns "PASSED", "FAILED" or "INTERRUPTED".
func Status(s sweep.Summary) string {
	switch {
	case s.Interrupted:
		return "INTERRUPTED"
	case ExitCode(s.Tally) != ExitOK:
		return "FAILED"
	default:
		return "PASSED"
	}
}

// Render formats the summary block.
//
// Layout:
//
//	==== lintsweep summary ====
//	Root:              /path/to/project
//	Files processed:   12
//	Warnings found:    3
//	Errors found:      0
//	Skipped:           web (eslint: linter not installed)
//	Artifacts:         /tmp/lintsweep-<run id>
//	  - python.txt
//	  - npm-audit.json (not counted)
//	Status:            PASSED
//
// The Skipped line appears only when a category was skipped.
func Render(s sweep.Summary, opts Options) string {
	p := painter{color: opts.Color}
	var b strings.Builder

	b.WriteString(p.paint(styles.Title, header))
	b.WriteByte('\n')

	p.field(&b, "Root:", s.Root)
	p.field(&b, "Files processed:", strconv.Itoa(s.Tally.FilesProcessed))
	p.field(&b, "Warnings found:", p.count(styles.Warning, s.Tally.WarningsFound))
	p.field(&b, "Errors found:", p.count(styles.Error, s.Tally.ErrorsFound))

	first := true
	for _, c := range s.Categories {
		if !c.Skipped {
			continue
		}
		label := ""
		if first {
			label = "Skipped:"
			first = false
		}
		value := c.Category
		if c.SkipReason != "" {
			value += " (" + c.SkipReason + ")"
		}
		p.field(&b, label, p.paint(styles.Muted, value))
	}

	switch {
	case s.ArtifactsDir == "":
		p.field(&b, "Artifacts:", p.paint(styles.Muted, "none"))
	case s.ArtifactsKept:
		p.field(&b, "Artifacts:", s.ArtifactsDir)
	default:
		p.field(&b, "Artifacts:", s.ArtifactsDir+p.paint(styles.Muted, " (removed on exit, use --keep-artifacts)"))
	}
	for _, a := range s.Artifacts {
		line := "  - " + a.Name
		if !a.Counted {
			line += p.paint(styles.Muted, " (not counted)")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	status := Status(s)
	style := styles.Passed
	if status != "PASSED" {
		style = styles.Failed
	}
	p.field(&b, "Status:", p.paint(style, status))

	return b.String()
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s sweep.Summary) error {
	doc := struct {
		sweep.Summary
		Status   string `json:"status"`
		ExitCode int    `json:"exit_code"`
	}{
		Summary:  s,
		Status:   Status(s),
		ExitCode: ExitCode(s.Tally),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

type painter struct {
	color bool
}

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

// count styles n only when it is non-zero.
func (p painter) count(style lipgloss.Style, n int) string {
	s := strconv.Itoa(n)
	if n == 0 {
		return s
	}
	return p.paint(style, s)
}

func (p painter) field(b *strings.Builder, label, value string) {
	padded := fmt.Sprintf("%-*s", labelWidth, label)
	if label != "" {
		padded = p.paint(styles.Label, label) + strings.Repeat(" ", labelWidth-len(label))
	}
	b.WriteString(padded)
	b.WriteString(value)
	b.WriteByte('\n')
}
