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
	"log/slog"
	"os/exec"
	"sort"
)

// =============================================================================
// AVAILABILITY
// =============================================================================

// Availability records whether an external tool can be invoked.
type Availability int

const (
	// Unavailable means the tool was not found.
	Unavailable Availability = iota

	// Available means the tool resolved to an executable.
	Available
)

// String returns the string representation of the availability.
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Capabilities maps tool commands to their availability.
//
// Built once per run by Probe and passed to everything that invokes
// external tools, so presence is never re-checked mid-run.
//
// Thread Safety: Treat as immutable after Probe returns.
type Capabilities map[string]Availability

// Probe checks which tools are installed.
//
// Description:
//
//	Resolves each command with exec.LookPath. Commands containing a path
//	separator are checked directly. Duplicate names are probed once.
//
// Inputs:
//
//	tools - Command names or paths
//
// Outputs:
//
//	Capabilities - Availability per command
func Probe(tools ...string) Capabilities {
	caps := make(Capabilities, len(tools))
	for _, tool := range tools {
		if tool == "" {
			continue
		}
		if _, seen := caps[tool]; seen {
			continue
		}
		path, err := exec.LookPath(tool)
		if err != nil {
			caps[tool] = Unavailable
			slog.Debug("Tool not found", slog.String("tool", tool))
			continue
		}
		caps[tool] = Available
		slog.Debug("Tool available",
			slog.String("tool", tool),
			slog.String("path", path),
		)
	}
	return caps
}

// Of returns the availability of a tool. Unknown tools are Unavailable.
func (c Capabilities) Of(tool string) Availability {
	return c[tool]
}

// Has reports whether a tool is Available.
func (c Capabilities) Has(tool string) bool {
	return c.Of(tool) == Available
}

// Missing returns the unavailable tools, sorted.
func (c Capabilities) Missing() []string {
	var missing []string
	for tool, a := range c {
		if a != Available {
			missing = append(missing, tool)
		}
	}
	sort.Strings(missing)
	return missing
}
