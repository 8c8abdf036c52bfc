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

	"github.com/AleutianAI/lintsweep/pkg/report"
	"github.com/AleutianAI/lintsweep/pkg/walk"
	"github.com/AleutianAI/lintsweep/pkg/watch"
	"github.com/AleutianAI/lintsweep/pkg/workspace"
)

func (c *cli) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Sweep root, then sweep again whenever files change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runWatch,
	}
}

func (c *cli) runWatch(cmd *cobra.Command, args []string) error {
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

	// Tools are probed once for the whole session.
	sw := newSweeper(cfg, s)
	c.exitCode = c.sweepOnce(ctx, s, sw, root)
	if ctx.Err() != nil {
		return nil
	}

	opts := watch.DefaultOptions()
	opts.Debounce = cfg.Watch.Debounce
	opts.MinInterval = cfg.Watch.MinInterval
	opts.Rules = walk.Compose(opts.Rules, walk.BuildOutputDirs, cfg.ExcludeRules(),
		// A workspace under root must not retrigger the sweep that fills it.
		walk.Rules{workspace.Prefix + "*"})

	trigger := func(ctx context.Context, changes []watch.Change) error {
		slog.Debug("Change batch", slog.Int("changes", len(changes)), slog.String("first", changes[0].Path))
		c.exitCode = c.sweepOnce(ctx, s, sw, root)
		return ctx.Err()
	}

	w, err := watch.New(root, trigger, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	slog.Info("Watching for changes", slog.String("root", root))
	if err := w.Run(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		c.exitCode = report.ExitInterrupted
	}
	return nil
}
