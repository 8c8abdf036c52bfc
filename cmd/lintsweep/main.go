// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lintsweep runs every installed linter over a source tree and
// prints one summary of the files processed, warnings and errors found.
//
// Usage:
//
//	lintsweep [root]                  sweep root (default ".")
//	lintsweep -j 8 --keep-artifacts   eight concurrent linters, keep outputs
//	lintsweep deps [root] [out.csv]   write a dependency inventory
//	lintsweep watch [root]            re-run on changes
//	lintsweep config                  print the effective configuration
//
// Exit codes: 0 when no errors were found, 1 on errors or an invalid root,
// 130 when interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Quiet: the default logger is not configured yet.
	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {})); err != nil {
		os.Stderr.WriteString("lintsweep: cannot set GOMAXPROCS: " + err.Error() + "\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
