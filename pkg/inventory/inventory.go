// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inventory lists the dependencies declared by every manifest under
// a directory tree and writes them as CSV.
//
// Manifests are recognised by exact file name. Lock files are recognised
// and skipped because they repeat what the manifest declares. Directories
// in PruneDirs are never descended into.
package inventory

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// PruneDirs are skipped wherever they appear.
var PruneDirs = walk.Rules{
	".git", ".svn", ".hg",
	"node_modules", "vendor", "bower_components",
	"__pycache__", ".pytest_cache", ".tox",
	"venv", "env", ".env", ".venv",
	"target", "build", "dist", ".build",
	".idea", ".vscode", ".vs",
}

// DefaultOutput is the CSV file name used when none is given.
const DefaultOutput = "dependencies.csv"

// ErrNoDependencies is returned by WriteFile when there is nothing to write.
var ErrNoDependencies = errors.New("no dependencies found")

// Dependency is one declared package.
type Dependency struct {
	Ecosystem string
	Package   string
	Version   string

	// File is the manifest path relative to the scanned root, using
	// forward slashes.
	File string
}

// parser extracts (name, version) pairs from a manifest's contents.
type parser func(data []byte) ([]Dependency, error)

type manifest struct {
	ecosystem string
	parse     parser
}

// manifests maps file names to their ecosystem. A nil parser marks a lock
// file that is recognised but not read.
var manifests = map[string]manifest{
	"package.json":      {"npm", parsePackageJSON},
	"package-lock.json": {"npm", nil},
	"requirements.txt":  {"pip", parseRequirements},
	"Pipfile":           {"pip", parsePipfile},
	"Pipfile.lock":      {"pip", nil},
	"go.mod":            {"go", parseGoMod},
	"go.sum":            {"go", nil},
	"Gemfile":           {"gem", parseGemfile},
	"Gemfile.lock":      {"gem", nil},
	"Cargo.toml":        {"cargo", parseCargo},
	"Cargo.lock":        {"cargo", nil},
	"pom.xml":           {"maven", parsePom},
	"build.gradle":      {"gradle", parseGradle},
	"composer.json":     {"composer", parseComposer},
}

// ManifestNames returns every recognised file name, sorted.
func ManifestNames() []string {
	names := make([]string, 0, len(manifests))
	for name := range manifests {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Scan walks root and returns every declared dependency.
//
// Description:
//
//	Manifests that cannot be read or parsed are logged at warn level and
//	skipped. Results are sorted by file, then package, then version.
//
// Outputs:
//
//	[]Dependency - Declared dependencies, possibly empty.
//	error - *walk.FilesystemError for an invalid root, ctx.Err() when
//	cancelled.
func Scan(ctx context.Context, root string) ([]Dependency, error) {
	var deps []Dependency
	pattern := walk.Names(ManifestNames()...)

	for path, err := range walk.Walk(root, pattern, PruneDirs) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m := manifests[filepath.Base(path)]
		if m.parse == nil {
			continue
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		found, err := parseFile(path, m.parse)
		if err != nil {
			slog.Warn("Skipping manifest",
				slog.String("file", rel),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, d := range found {
			d.Ecosystem = m.ecosystem
			d.File = rel
			deps = append(deps, d)
		}
	}

	slices.SortStableFunc(deps, func(a, b Dependency) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Package, b.Package),
			cmp.Compare(a.Version, b.Version),
		)
	})
	return deps, nil
}

func parseFile(path string, parse parser) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read: %w", err)
	}
	deps, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	return deps, nil
}

// Header is the CSV header row.
var Header = []string{"ecosystem", "package", "version", "file"}

// WriteCSV writes deps with a header row.
func WriteCSV(w io.Writer, deps []Dependency) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, d := range deps {
		if err := cw.Write([]string{d.Ecosystem, d.Package, d.Version, d.File}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes deps to path. It returns ErrNoDependencies, and
// creates no file, when deps is empty.
func WriteFile(path string, deps []Dependency) error {
	if len(deps) == 0 {
		return ErrNoDependencies
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, deps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
