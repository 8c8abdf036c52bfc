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
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
)

// Walk lazily enumerates files under root that match pattern.
//
// Description:
//
//	Every directory below root is checked against rules before it is
//	entered; a match prunes the whole subtree. The root itself is never
//	pruned. Files are yielded only if their name matches pattern.
//	Entries that cannot be read below the root are skipped. A root that
//	is a symlink to a directory is followed; yielded paths stay under
//	root as given. Symlinks below the root are not followed.
//
//	The returned sequence is finite and not restartable: each range
//	re-walks the tree from scratch. Breaking out of the range stops the
//	walk immediately.
//
// Inputs:
//
//	root - Directory to walk
//	pattern - File selection
//	rules - Directory exclusion rules
//
// Outputs:
//
//	iter.Seq2[string, error] - Matching paths. If root is missing or not a
//	directory, a single ("", *FilesystemError) pair is yielded.
func Walk(root string, pattern Pattern, rules Rules) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := ValidateRoot(root); err != nil {
			yield("", err)
			return
		}

		// WalkDir does not descend into a symlinked root.
		base := root
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			base = resolved
		}

		_ = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == base {
					yield("", &FilesystemError{Path: root, Err: err})
					return filepath.SkipAll
				}
				slog.Debug("Skipping unreadable path",
					slog.String("path", p),
					slog.String("error", err.Error()),
				)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if p == base {
					return nil
				}
				rel, relErr := filepath.Rel(base, p)
				if relErr != nil {
					rel = p
				}
				if rules.Excludes(rel, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !pattern.Match(d.Name()) {
				return nil
			}
			if base != root {
				if rel, relErr := filepath.Rel(base, p); relErr == nil {
					p = filepath.Join(root, rel)
				}
			}
			if !yield(p, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// First returns the first file under root matching pattern.
//
// Description:
//
//	Stops walking as soon as one match is found. Honors exactly the same
//	exclusion rules as Walk, so First finds a path if and only if Walk
//	would yield at least one.
//
// Outputs:
//
//	string - The matching path, if found
//	bool - True if a match was found
//	error - Non-nil *FilesystemError if root cannot be walked
func First(root string, pattern Pattern, rules Rules) (string, bool, error) {
	for p, err := range Walk(root, pattern, rules) {
		if err != nil {
			return "", false, err
		}
		return p, true, nil
	}
	return "", false, nil
}

// Collect drains a walk into a slice.
//
// Returns the first error yielded, along with the paths collected so far.
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	var paths []string
	for p, err := range seq {
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
