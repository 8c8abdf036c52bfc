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
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// Category names.
const (
	CategoryPython = "python"
	CategoryShell  = "shell"
	CategoryWeb    = "web"

	// CategoryDependency tags dependency manifests checked by the audit.
	CategoryDependency = "dependency"
)

// =============================================================================
// DEFAULT CATEGORIES
// =============================================================================

// DefaultPythonCategory runs pylint once per file.
//
// Description:
//
//	--exit-zero keeps pylint from failing the process on findings. The
//	message template puts the message id first so warnings can be counted
//	by their "W" prefix.
var DefaultPythonCategory = Category{
	Name:    CategoryPython,
	Pattern: walk.Extensions(".py"),
	Rules:   walk.Compose(walk.HiddenDirs, walk.PythonEnvDirs),
	Tool:    "pylint",
	Args: []string{
		"--exit-zero",
		"--score=n",
		"--msg-template={msg_id}:{path}:{line}:{column}: {msg}",
	},
	Classifier: Classifier{
		{Severity: SeverityWarning, Prefix: "W", PrefixDigit: true},
	},
}

// DefaultShellCategory runs shellcheck over batches of scripts.
//
// Description:
//
//	gcc output gives one "file:line:col: level: message" line per issue.
var DefaultShellCategory = Category{
	Name:      CategoryShell,
	Pattern:   walk.Extensions(".sh", ".bash"),
	Rules:     walk.Compose(walk.HiddenDirs, walk.DependencyCacheDirs),
	Tool:      "shellcheck",
	Args:      []string{"-f", "gcc"},
	BatchSize: 50,
	Classifier: Classifier{
		{Severity: SeverityError, Contains: "error:"},
		{Severity: SeverityWarning, Contains: "warning:"},
	},
}

// DefaultWebCategory runs eslint over batches of JavaScript and
// TypeScript sources.
//
// Description:
//
//	The unix formatter prints one issue per line ending in
//	"[Error/rule]" or "[Warning/rule]".
var DefaultWebCategory = Category{
	Name:      CategoryWeb,
	Pattern:   walk.Extensions(".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".vue"),
	Rules:     walk.Compose(walk.HiddenDirs, walk.DependencyCacheDirs, walk.BuildOutputDirs),
	Tool:      "eslint",
	Args:      []string{"--format", "unix", "--no-error-on-unmatched-pattern"},
	BatchSize: 50,
	Classifier: Classifier{
		{Severity: SeverityError, Contains: "[Error"},
		{Severity: SeverityWarning, Contains: "[Warning"},
	},
}

// DefaultCategories returns copies of the built-in categories in run order.
func DefaultCategories() []Category {
	return []Category{
		DefaultPythonCategory.Clone(),
		DefaultShellCategory.Clone(),
		DefaultWebCategory.Clone(),
	}
}

// Tools returns the distinct tools used by the given categories.
func Tools(categories []Category) []string {
	seen := make(map[string]bool, len(categories))
	var tools []string
	for _, c := range categories {
		if c.Tool == "" || seen[c.Tool] {
			continue
		}
		seen[c.Tool] = true
		tools = append(tools, c.Tool)
	}
	return tools
}
