// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package walk

import (
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// =============================================================================
// FILE PATTERNS
// =============================================================================

// Pattern selects files by extension or by exact file name.
//
// A file matches when its extension equals one of Extensions, or its base
// name equals one of Names. The zero Pattern matches nothing.
type Pattern struct {
	// Extensions include the leading dot (e.g. ".py").
	Extensions []string

	// Names are exact base names (e.g. "package.json").
	Names []string
}

// Extensions returns a Pattern matching any of the given extensions.
func Extensions(exts ...string) Pattern {
	return Pattern{Extensions: exts}
}

// Names returns a Pattern matching any of the given file names.
func Names(names ...string) Pattern {
	return Pattern{Names: names}
}

// Match reports whether a file base name matches the pattern.
func (p Pattern) Match(name string) bool {
	if slices.Contains(p.Names, name) {
		return true
	}
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	return slices.Contains(p.Extensions, ext)
}

// String returns a glob-like rendering for logs.
func (p Pattern) String() string {
	parts := make([]string, 0, len(p.Extensions)+len(p.Names))
	for _, ext := range p.Extensions {
		parts = append(parts, "*"+ext)
	}
	parts = append(parts, p.Names...)
	return strings.Join(parts, ",")
}

// =============================================================================
// EXCLUSION RULES
// =============================================================================

// Rules is an ordered set of directory exclusion globs.
//
// A glob without a slash is matched against the directory's base name.
// A glob containing a slash is matched against the directory path relative
// to the walk root, using forward slashes. Globs use path.Match syntax.
type Rules []string

// Standard rule sets.
var (
	// HiddenDirs excludes dot-directories (.git, .venv, .cache, ...).
	HiddenDirs = Rules{".*"}

	// DependencyCacheDirs excludes vendored and installed dependencies.
	DependencyCacheDirs = Rules{"node_modules", "vendor", "bower_components"}

	// PythonEnvDirs excludes virtual environments and bytecode caches.
	PythonEnvDirs = Rules{"venv", "env", ".venv", "__pycache__"}

	// BuildOutputDirs excludes build and distribution output.
	BuildOutputDirs = Rules{"build", "dist", "target", ".next", "out"}
)

// Compose concatenates rule sets, dropping duplicates and keeping the
// first occurrence order.
func Compose(sets ...Rules) Rules {
	var out Rules
	for _, set := range sets {
		for _, glob := range set {
			if !slices.Contains(out, glob) {
				out = append(out, glob)
			}
		}
	}
	return out
}

// Excludes reports whether a directory must not be descended into.
//
// Inputs:
//
//	rel - Directory path relative to the walk root (any separator)
//	name - Directory base name
func (r Rules) Excludes(rel, name string) bool {
	rel = filepath.ToSlash(rel)
	for _, glob := range r {
		target := name
		if strings.Contains(glob, "/") {
			target = rel
		}
		if ok, err := path.Match(glob, target); err == nil && ok {
			return true
		}
	}
	return false
}

// Validate returns the first malformed glob, if any.
func (r Rules) Validate() error {
	for _, glob := range r {
		if _, err := path.Match(glob, ""); err != nil {
			return &RuleError{Glob: glob, Err: err}
		}
	}
	return nil
}

// RuleError reports a malformed exclusion glob.
type RuleError struct {
	Glob string
	Err  error
}

func (e *RuleError) Error() string {
	return "invalid exclusion rule " + e.Glob + ": " + e.Err.Error()
}

func (e *RuleError) Unwrap() error { return e.Err }
