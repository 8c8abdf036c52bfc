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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lintsweep/pkg/walk"
)

func write(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func pairs(deps []Dependency) map[string]string {
	out := make(map[string]string, len(deps))
	for _, d := range deps {
		out[d.Package] = d.Version
	}
	return out
}

// =============================================================================
// PARSERS
// =============================================================================

func TestParsePackageJSON(t *testing.T) {
	deps, err := parsePackageJSON([]byte(`{
	  "name": "app",
	  "dependencies": {"express": "^4.17.1", "lodash": "^4.17.21"},
	  "devDependencies": {"jest": "29.0.0"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"express": "^4.17.1",
		"lodash":  "^4.17.21",
		"jest":    "29.0.0",
	}, pairs(deps))
}

func TestParseComposer(t *testing.T) {
	deps, err := parseComposer([]byte(`{"require": {"php": ">=8.1", "monolog/monolog": "^3.0"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"php": ">=8.1", "monolog/monolog": "^3.0"}, pairs(deps))
}

func TestParseRequirements(t *testing.T) {
	deps, err := parseRequirements([]byte(`
	requests>=2.25.1
	flask==1.1.2
	numpy
	# This is a comment
	django>=3.0
	-r other.txt
	`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"requests": ">=2.25.1",
		"flask":    "==1.1.2",
		"numpy":    "*",
		"django":   ">=3.0",
	}, pairs(deps))
}

func TestParseGoMod(t *testing.T) {
	deps, err := parseGoMod([]byte(`
module example.com/myapp

go 1.19

require (
	github.com/gin-gonic/gin v1.7.7
	github.com/stretchr/testify v1.7.0 // indirect
)
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"github.com/gin-gonic/gin":    "1.7.7",
		"github.com/stretchr/testify": "1.7.0",
	}, pairs(deps))
}

func TestParseGemfile(t *testing.T) {
	deps, err := parseGemfile([]byte(`
source 'https://rubygems.org'
gem 'rails', '6.1.0'
gem 'pg'
gem "redis", "4.2.5"
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"rails": "6.1.0", "pg": "*", "redis": "4.2.5"}, pairs(deps))
}

func TestParseCargo(t *testing.T) {
	deps, err := parseCargo([]byte(`
	[package]
	name = "myapp"
	version = "0.1.0"

	[dependencies]
	serde = "1.0"
	tokio = { version = "1.17", features = ["full"] }
	local = { path = "../local" }

	[dev-dependencies]
	criterion = "0.5"
	`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"serde": "1.0", "tokio": "1.17", "local": "*"}, pairs(deps))
}

func TestParsePipfile(t *testing.T) {
	deps, err := parsePipfile([]byte(`
[[source]]
url = "https://pypi.org/simple"

[packages]
requests = "*"
django = ">=4.0"
black = {version = "==23.1", extras = ["d"]}

[dev-packages]
pytest = "*"
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"requests": "*", "django": ">=4.0", "black": "==23.1"}, pairs(deps))
}

func TestParsePom(t *testing.T) {
	deps, err := parsePom([]byte(`<?xml version="1.0"?>
<project>
  <groupId>com.example</groupId>
  <artifactId>app</artifactId>
  <version>1.0.0</version>
  <dependencies>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13.2</version>
    </dependency>
    <dependency>
      <groupId>org.slf4j</groupId>
      <artifactId>slf4j-api</artifactId>
    </dependency>
  </dependencies>
</project>`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"junit:junit": "4.13.2", "org.slf4j:slf4j-api": "*"}, pairs(deps))
}

func TestParseGradle(t *testing.T) {
	deps, err := parseGradle([]byte(`
dependencies {
    implementation 'com.google.guava:guava:32.1.2-jre'
    implementation "org.jetbrains.kotlin:kotlin-stdlib"
}
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"com.google.guava:guava": "32.1.2-jre"}, pairs(deps))
}

// =============================================================================
// SCAN
// =============================================================================

func TestScan_PrunesAndSorts(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".git/package.json", `{"dependencies": {"test": "1.0.0"}}`)
	write(t, root, "node_modules/x/package.json", `{"dependencies": {"test": "1.0.0"}}`)
	write(t, root, "package.json", `{"dependencies": {"valid": "1.0.0", "alpha": "2.0.0"}}`)
	write(t, root, "package-lock.json", `{"lockfileVersion": 3}`)
	write(t, root, "svc/requirements.txt", "flask==1.1.2\n")
	write(t, root, "svc/.venv/requirements.txt", "hidden==0.1\n")

	deps, err := Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []Dependency{
		{Ecosystem: "npm", Package: "alpha", Version: "2.0.0", File: "package.json"},
		{Ecosystem: "npm", Package: "valid", Version: "1.0.0", File: "package.json"},
		{Ecosystem: "pip", Package: "flask", Version: "==1.1.2", File: "svc/requirements.txt"},
	}, deps)
}

func TestScan_InvalidManifestIsSkipped(t *testing.T) {
	root := t.TempDir()
	write(t, root, "package.json", "not json at all")
	write(t, root, "sub/Gemfile", "gem 'pg'\n")
	write(t, root, "invalid.json", "{")

	deps, err := Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{Ecosystem: "gem", Package: "pg", Version: "*", File: "sub/Gemfile"}}, deps)
}

func TestScan_SymlinkedRoot(t *testing.T) {
	parent := t.TempDir()
	project := filepath.Join(parent, "project")
	write(t, project, "svc/requirements.txt", "flask==1.1.2\n")
	link := filepath.Join(parent, "link")
	if err := os.Symlink(project, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	deps, err := Scan(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{Ecosystem: "pip", Package: "flask", Version: "==1.1.2", File: "svc/requirements.txt"}}, deps)
}

func TestScan_InvalidRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, walk.ErrNotExist))
}

// =============================================================================
// CSV
// =============================================================================

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Dependency{
		{Ecosystem: "maven", Package: "junit:junit", Version: "4.13.2", File: "pom.xml"},
		{Ecosystem: "npm", Package: "a,b", Version: "1", File: "web/package.json"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ecosystem,package,version,file\n"+
		"maven,junit:junit,4.13.2,pom.xml\n"+
		"npm,\"a,b\",1,web/package.json\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty writes nothing", func(t *testing.T) {
		path := filepath.Join(dir, "none.csv")
		assert.ErrorIs(t, WriteFile(path, nil), ErrNoDependencies)
		assert.NoFileExists(t, path)
	})

	t.Run("writes rows", func(t *testing.T) {
		path := filepath.Join(dir, DefaultOutput)
		require.NoError(t, WriteFile(path, []Dependency{{Ecosystem: "go", Package: "m", Version: "1.0.0", File: "go.mod"}}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ecosystem,package,version,file\ngo,m,1.0.0,go.mod\n", string(data))
	})
}
