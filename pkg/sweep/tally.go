// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sweep drives one lintsweep run.
//
// A run validates the root, executes each lint category strictly one after
// another, folds every category's result into the run Tally only after the
// category's workers have all finished, then runs the dependency audit.
// The Tally is owned by the goroutine calling Run and needs no lock.
package sweep

import (
	"fmt"

	"github.com/AleutianAI/lintsweep/pkg/lint"
)

// Tally holds the run-wide counters. Counters never decrease.
type Tally struct {
	FilesProcessed int `json:"files_processed"`
	WarningsFound  int `json:"warnings_found"`
	ErrorsFound    int `json:"errors_found"`
}

// Fold adds a finished category's contribution. Skipped categories and
// negative counts contribute nothing.
func (t *Tally) Fold(r lint.CategoryResult) {
	if r.Skipped {
		return
	}
	t.FilesProcessed += max(r.ItemsSeen, 0)
	t.WarningsFound += max(r.Warnings, 0)
	t.ErrorsFound += max(r.Errors, 0)
}

// Failed reports whether any error was found.
func (t Tally) Failed() bool {
	return t.ErrorsFound > 0
}

func (t Tally) String() string {
	return fmt.Sprintf("files=%d warnings=%d errors=%d", t.FilesProcessed, t.WarningsFound, t.ErrorsFound)
}
