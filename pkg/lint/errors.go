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
	"errors"
	"fmt"
)

// Sentinel errors for the lint package.
var (
	// ErrToolMissing indicates the linter binary was not found in PATH.
	ErrToolMissing = errors.New("linter not installed")

	// ErrLaunchFailed indicates the linter process could not be started.
	ErrLaunchFailed = errors.New("linter failed to start")
)

// LaunchError reports a linter process that could not be started.
//
// A linter that starts and then exits non-zero is not a LaunchError; its
// output is still counted.
type LaunchError struct {
	// Tool is the command that failed to start (e.g. "pylint").
	Tool string

	// Category is the scan category the invocation belonged to.
	Category string

	// Err is the error returned by exec.
	Err error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s (%s): %v: %v", e.Tool, e.Category, ErrLaunchFailed, e.Err)
}

// Unwrap exposes both ErrLaunchFailed and the underlying exec error.
func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunchFailed, e.Err}
}
