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
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lintsweep/pkg/config"
	"github.com/AleutianAI/lintsweep/pkg/report"
	"github.com/AleutianAI/lintsweep/pkg/sweep"
)

func (c *cli) runSweep(cmd *cobra.Command, args []string) error {
	root, ok := c.rootArg(args)
	if !ok {
		return nil
	}
	cfg, _, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := c.openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			fmt.Fprintf(c.stderr, "Warning: cleanup: %v\n", err)
		}
	}()

	sw := newSweeper(cfg, s)
	c.exitCode = c.sweepOnce(ctx, s, sw, root)
	return nil
}

func newSweeper(cfg config.Config, s *session) *sweep.Sweeper {
	return sweep.New(sweep.Options{
		Categories: cfg.Categories(),
		Ecosystems: cfg.Ecosystems(),
		Jobs:       cfg.MaxJobs,
		Timeout:    cfg.Timeout,
		Workspace:  s.workspace,
		RunID:      s.workspace.RunID(),
	})
}

// sweepOnce runs one sweep, prints its summary and returns the exit code.
func (c *cli) sweepOnce(ctx context.Context, s *session, sw *sweep.Sweeper, root string) int {
	cfg := s.cfg
	summary, err := sw.Run(ctx, root)
	if err != nil && sweep.IsRootError(err) {
		fmt.Fprintln(c.stderr, sweep.RootMessage(err))
		return report.ExitFailed
	}
	summary.Artifacts = s.extraArtifacts(summary.Artifacts)

	if cfg.JSON {
		if werr := report.WriteJSON(c.stdout, summary); werr != nil {
			slog.Error("Cannot write summary", slog.String("error", werr.Error()))
		}
	} else {
		fmt.Fprint(c.stdout, report.Render(summary, report.Options{Color: color(c.stdout)}))
	}

	if summary.Interrupted || (err != nil && interrupted(err)) {
		return report.ExitInterrupted
	}
	return report.ExitCode(summary.Tally)
}
