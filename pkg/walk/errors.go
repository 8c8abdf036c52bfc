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
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for root validation.
var (
	// ErrNotExist indicates the root directory does not exist.
	ErrNotExist = errors.New("does not exist")

	// ErrNotDirectory indicates the root exists but is not a directory.
	ErrNotDirectory = errors.New("is not a directory")
)

// FilesystemError reports a root directory that cannot be walked.
//
// It is fatal for the walk that produced it. The run driver checks the
// root once with ValidateRoot before any category starts, so a
// FilesystemError seen inside a category only affects that category.
type FilesystemError struct {
	// Path is the root that was requested.
	Path string

	// Err is ErrNotExist, ErrNotDirectory, or the underlying os error.
	Err error
}

// Error implements the error interface.
func (e *FilesystemError) Error() string {
	if errors.Is(e.Err, ErrNotExist) || errors.Is(e.Err, ErrNotDirectory) {
		return fmt.Sprintf("directory %s %v", e.Path, e.Err)
	}
	return fmt.Sprintf("directory %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// ValidateRoot checks that root exists and is a directory.
//
// Outputs:
//
//	error - nil, or a *FilesystemError
func ValidateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FilesystemError{Path: root, Err: ErrNotExist}
		}
		return &FilesystemError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &FilesystemError{Path: root, Err: ErrNotDirectory}
	}
	return nil
}
