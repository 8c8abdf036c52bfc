// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lintsweep/pkg/inventory"
	"github.com/AleutianAI/lintsweep/pkg/report"
)

func (c *cli) depsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps [root] [output.csv]",
		Short: "Write the declared dependencies of every manifest as CSV",
		Long: `deps walks root, reads package.json, requirements.txt, Pipfile,
go.mod, Cargo.toml, Gemfile, pom.xml, build.gradle and composer.json files
and writes ecosystem,package,version,file rows to output.csv (default
` + inventory.DefaultOutput + `).`,
		Args: cobra.MaximumNArgs(2),
		RunE: c.runDeps,
	}
}

func (c *cli) runDeps(cmd *cobra.Command, args []string) error {
	root, ok := c.rootArg(args)
	if !ok {
		return nil
	}
	out := inventory.DefaultOutput
	if len(args) > 1 {
		out = args[1]
	}

	cfg, _, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cfg, nil)
	if err != nil {
		return err
	}
	previous := slog.Default()
	slog.SetDefault(logger.Slog())
	defer func() {
		slog.SetDefault(previous)
		logger.Close()
	}()

	deps, err := inventory.Scan(cmd.Context(), root)
	if err != nil {
		if interrupted(err) {
			c.exitCode = report.ExitInterrupted
			return nil
		}
		c.fail(err)
		return nil
	}

	err = inventory.WriteFile(out, deps)
	switch {
	case errors.Is(err, inventory.ErrNoDependencies):
		fmt.Fprintln(c.stderr, "No dependencies found.")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(c.stdout, "Written %d dependencies to %s\n", len(deps), out)
	return nil
}
