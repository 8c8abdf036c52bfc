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
	"bufio"
	"bytes"
	"strings"
	"time"

	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity classifies a line of linter output.
type Severity int

const (
	// SeverityNone is a line that carries no marker.
	SeverityNone Severity = iota

	// SeverityWarning is counted as a warning.
	SeverityWarning

	// SeverityError is counted as an error.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Marker matches a line by prefix or by substring.
//
// Exactly one of Prefix or Contains should be set.
type Marker struct {
	Severity Severity
	Prefix   string
	Contains string

	// PrefixDigit additionally requires a digit right after Prefix.
	PrefixDigit bool
}

// matches reports whether line carries this marker.
func (m Marker) matches(line string) bool {
	if m.Prefix != "" {
		if !strings.HasPrefix(line, m.Prefix) {
			return false
		}
		if m.PrefixDigit {
			rest := line[len(m.Prefix):]
			return rest != "" && rest[0] >= '0' && rest[0] <= '9'
		}
		return true
	}
	if m.Contains != "" {
		return strings.Contains(line, m.Contains)
	}
	return false
}

// Classifier assigns a severity to output lines. The first matching
// marker wins, so error markers are usually listed first.
type Classifier []Marker

// Classify returns the severity of a single line.
func (c Classifier) Classify(line string) Severity {
	for _, m := range c {
		if m.matches(line) {
			return m.Severity
		}
	}
	return SeverityNone
}

// Tally counts marked lines in output.
//
// Outputs:
//
//	matched - Marked lines in output order
//	warnings - Number of warning lines
//	errors - Number of error lines
func (c Classifier) Tally(output []byte) (matched []string, warnings, errors int) {
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch c.Classify(line) {
		case SeverityWarning:
			warnings++
		case SeverityError:
			errors++
		default:
			continue
		}
		matched = append(matched, line)
	}
	return matched, warnings, errors
}

// =============================================================================
// CATEGORY
// =============================================================================

// Category describes one kind of file and the linter that checks it.
//
// Thread Safety: Treat as immutable after creation.
type Category struct {
	// Name identifies the category (e.g. "python"). Also the artifact name.
	Name string

	// Pattern selects files.
	Pattern walk.Pattern

	// Rules prune directories during the walk.
	Rules walk.Rules

	// Tool is the linter command.
	Tool string

	// Args precede the file paths on the command line.
	Args []string

	// BatchSize is the number of files per invocation. Zero runs the
	// linter once per file.
	BatchSize int

	// Classifier maps output lines to severities.
	Classifier Classifier
}

// Clone returns a deep copy of the category.
func (c Category) Clone() Category {
	clone := c
	clone.Pattern = walk.Pattern{
		Extensions: append([]string(nil), c.Pattern.Extensions...),
		Names:      append([]string(nil), c.Pattern.Names...),
	}
	clone.Rules = append(walk.Rules(nil), c.Rules...)
	clone.Args = append([]string(nil), c.Args...)
	clone.Classifier = append(Classifier(nil), c.Classifier...)
	return clone
}

// Target is one file selected for a category. Category is a category
// name, or CategoryDependency for dependency manifests.
type Target struct {
	Path     string
	Category string
}

// Targets walks root and tags every selected file with the category name.
//
// Outputs:
//
//	[]Target - Selected files in walk order
//	error - *walk.FilesystemError if root cannot be walked
func (c Category) Targets(root string) ([]Target, error) {
	var targets []Target
	for path, err := range walk.Walk(root, c.Pattern, c.Rules) {
		if err != nil {
			return targets, err
		}
		targets = append(targets, Target{Path: path, Category: c.Name})
	}
	return targets, nil
}

// FirstTarget returns the first file under root matching pattern, tagged
// with category.
func FirstTarget(root string, pattern walk.Pattern, rules walk.Rules, category string) (Target, bool, error) {
	path, ok, err := walk.First(root, pattern, rules)
	if err != nil || !ok {
		return Target{}, ok, err
	}
	return Target{Path: path, Category: category}, true, nil
}

// TargetPaths returns the paths of targets, in order.
func TargetPaths(targets []Target) []string {
	paths := make([]string, len(targets))
	for i, t := range targets {
		paths[i] = t.Path
	}
	return paths
}

// =============================================================================
// CATEGORY RESULT
// =============================================================================

// CategoryResult is what one category contributes to a run.
//
// Produced after the category's workers have all finished; never
// observed while workers are running.
type CategoryResult struct {
	// Category is the category name.
	Category string `json:"category"`

	// Tool is the linter that ran (or would have run).
	Tool string `json:"tool"`

	// ItemsSeen is the number of files handed to the linter.
	ItemsSeen int `json:"items_seen"`

	// MatchedLines are output lines carrying a warning or error marker,
	// in sink order.
	MatchedLines []string `json:"matched_lines,omitempty"`

	// Warnings is the number of warning lines.
	Warnings int `json:"warnings"`

	// Errors is the number of error lines plus launch failures.
	Errors int `json:"errors"`

	// LaunchFailures is the number of invocations that never started.
	LaunchFailures int `json:"launch_failures"`

	// Skipped is true when the category did not run.
	Skipped bool `json:"skipped"`

	// SkipReason explains a skip.
	SkipReason string `json:"skip_reason,omitempty"`

	// Artifact is the file holding the raw linter output, if any.
	Artifact string `json:"artifact,omitempty"`

	// Duration is wall time spent on the category.
	Duration time.Duration `json:"duration"`

	// Err is set when the category could not be walked at all.
	Err error `json:"-"`
}
