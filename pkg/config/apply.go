// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/AleutianAI/lintsweep/pkg/audit"
	"github.com/AleutianAI/lintsweep/pkg/lint"
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// Categories returns the lint categories with overrides applied, in the
// default order. Disabled categories are dropped.
func (c Config) Categories() []lint.Category {
	extra := walk.Rules(c.Exclude)
	defaults := lint.DefaultCategories()
	out := make([]lint.Category, 0, len(defaults))
	for _, cat := range defaults {
		if t, ok := c.Linters[cat.Name]; ok {
			if t.Disabled {
				continue
			}
			if t.Command != "" {
				cat.Tool = t.Command
			}
			if t.Args != nil {
				cat.Args = append([]string(nil), t.Args...)
			}
			cat.BatchSize = t.BatchSize
		}
		if len(extra) > 0 {
			cat.Rules = walk.Compose(cat.Rules, extra)
		}
		out = append(out, cat)
	}
	return out
}

// Ecosystems returns the audit ecosystems with overrides applied.
// Configured args may use audit.ManifestPlaceholder.
func (c Config) Ecosystems() []audit.Ecosystem {
	extra := walk.Rules(c.Exclude)
	defaults := audit.DefaultEcosystems()
	out := make([]audit.Ecosystem, 0, len(defaults))
	for _, eco := range defaults {
		if t, ok := c.Audit[eco.Name]; ok {
			if t.Disabled {
				continue
			}
			if t.Command != "" {
				eco.Tool = t.Command
			}
			if len(t.Args) > 0 {
				eco.Args = audit.FixedArgs(t.Args)
			}
		}
		if len(extra) > 0 {
			eco.Rules = walk.Compose(audit.Rules, extra)
		}
		out = append(out, eco)
	}
	return out
}

// ExcludeRules returns the extra exclusion globs as walk.Rules.
func (c Config) ExcludeRules() walk.Rules {
	return walk.Rules(c.Exclude)
}
