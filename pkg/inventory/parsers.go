// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inventory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

// anyVersion stands in for an unpinned dependency.
const anyVersion = "*"

var (
	requirementRe = regexp.MustCompile(`^([a-zA-Z0-9\-_]+)\s*([>=<~!]+.*)?$`)
	gemRe         = regexp.MustCompile(`gem\s+['"]([^'"]+)['"](?:,\s*['"]([^'"]+)['"])?`)
	gradleRe      = regexp.MustCompile(`implementation\s+['"]([^'"]+)['"]`)
)

// =============================================================================
// JSON manifests
// =============================================================================

func parsePackageJSON(data []byte) ([]Dependency, error) {
	var doc struct {
		Dependencies    map[string]any `json:"dependencies"`
		DevDependencies map[string]any `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	deps := fromMap(doc.Dependencies)
	return append(deps, fromMap(doc.DevDependencies)...), nil
}

func parseComposer(data []byte) ([]Dependency, error) {
	var doc struct {
		Require map[string]any `json:"require"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromMap(doc.Require), nil
}

// =============================================================================
// TOML manifests
// =============================================================================

func parsePipfile(data []byte) ([]Dependency, error) {
	var doc struct {
		Packages map[string]any `toml:"packages"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromMap(doc.Packages), nil
}

func parseCargo(data []byte) ([]Dependency, error) {
	var doc struct {
		Dependencies map[string]any `toml:"dependencies"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromMap(doc.Dependencies), nil
}

// fromMap turns name -> requirement tables into dependencies. A requirement is either a
// version string or a table with an optional "version" key.
func fromMap(m map[string]any) []Dependency {
	deps := make([]Dependency, 0, len(m))
	for name, req := range m {
		deps = append(deps, Dependency{Package: name, Version: versionOf(req)})
	}
	return deps
}

func versionOf(req any) string {
	switch v := req.(type) {
	case string:
		if v == "" {
			return anyVersion
		}
		return v
	case map[string]any:
		if s, ok := v["version"].(string); ok && s != "" {
			return s
		}
	}
	return anyVersion
}

// =============================================================================
// Line-oriented manifests
// =============================================================================

func parseRequirements(data []byte) ([]Dependency, error) {
	var deps []Dependency
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := requirementRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		version := m[2]
		if version == "" {
			version = anyVersion
		}
		deps = append(deps, Dependency{Package: m[1], Version: version})
	}
	return deps, sc.Err()
}

func parseGemfile(data []byte) ([]Dependency, error) {
	var deps []Dependency
	for _, m := range gemRe.FindAllStringSubmatch(string(data), -1) {
		version := m[2]
		if version == "" {
			version = anyVersion
		}
		deps = append(deps, Dependency{Package: m[1], Version: version})
	}
	return deps, nil
}

func parseGradle(data []byte) ([]Dependency, error) {
	var deps []Dependency
	for _, m := range gradleRe.FindAllStringSubmatch(string(data), -1) {
		parts := strings.Split(m[1], ":")
		if len(parts) < 3 {
			continue
		}
		deps = append(deps, Dependency{Package: parts[0] + ":" + parts[1], Version: parts[2]})
	}
	return deps, nil
}

// =============================================================================
// go.mod and pom.xml
// =============================================================================

func parseGoMod(data []byte) ([]Dependency, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, err
	}
	deps := make([]Dependency, 0, len(f.Require))
	for _, req := range f.Require {
		deps = append(deps, Dependency{
			Package: req.Mod.Path,
			Version: strings.TrimPrefix(req.Mod.Version, "v"),
		})
	}
	return deps, nil
}

func parsePom(data []byte) ([]Dependency, error) {
	var doc struct {
		Dependencies []struct {
			GroupID    string `xml:"groupId"`
			ArtifactID string `xml:"artifactId"`
			Version    string `xml:"version"`
		} `xml:"dependencies>dependency"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	deps := make([]Dependency, 0, len(doc.Dependencies))
	for _, d := range doc.Dependencies {
		if d.ArtifactID == "" {
			continue
		}
		group := strings.TrimSpace(d.GroupID)
		if group == "" {
			group = "unknown"
		}
		version := strings.TrimSpace(d.Version)
		if version == "" {
			version = anyVersion
		}
		deps = append(deps, Dependency{
			Package: fmt.Sprintf("%s:%s", group, strings.TrimSpace(d.ArtifactID)),
			Version: version,
		})
	}
	return deps, nil
}
