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
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lintsweep/pkg/config"
	"github.com/AleutianAI/lintsweep/pkg/report"
	"github.com/AleutianAI/lintsweep/pkg/sweep"
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

// flagKeys maps persistent flag names to configuration keys.
var flagKeys = map[string]string{
	"jobs":            "max_jobs",
	"timeout":         "timeout",
	"keep-artifacts":  "keep_artifacts",
	"artifacts-dir":   "artifacts_dir",
	"json":            "json",
	"log-level":       "log.level",
	"log-json":        "log.json",
	"quiet":           "log.quiet",
	"trace-exporter":  "telemetry.traces",
	"metric-exporter": "telemetry.metrics",
}

// cli holds the output streams and the exit code chosen by a command.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	exitCode int

	configFile string
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if c.exitCode == report.ExitOK {
			return report.ExitFailed
		}
	}
	return c.exitCode
}

func (c *cli) rootCommand() *cobra.Command {
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "lintsweep [root]",
		Short: "Run every installed linter over a source tree",
		Long: `lintsweep finds Python, shell and web sources under root, runs the
matching linters with bounded concurrency, audits dependency manifests and
prints one summary. The exit code is 1 when any error was found.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          c.runSweep,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default "+config.DefaultFile+" in the working directory)")
	flags.IntP("jobs", "j", defaults.MaxJobs, "maximum concurrent linter processes per category")
	flags.Duration("timeout", defaults.Timeout, "timeout per linter invocation (0 disables)")
	flags.Bool("keep-artifacts", defaults.KeepArtifacts, "keep the run workspace after exit")
	flags.String("artifacts-dir", defaults.ArtifactsDir, "parent directory of the run workspace (default $TMPDIR)")
	flags.Bool("json", defaults.JSON, "print the summary as JSON")
	flags.String("log-level", defaults.Log.Level, "log level: debug, info, warn, error")
	flags.Bool("log-json", defaults.Log.JSON, "log as JSON")
	flags.BoolP("quiet", "q", defaults.Log.Quiet, "no log output on stderr")
	flags.String("trace-exporter", defaults.Telemetry.Traces, "trace exporter: none, stdout, otlp")
	flags.String("metric-exporter", defaults.Telemetry.Metrics, "metric exporter: none, stdout, prometheus")

	root.AddCommand(
		c.depsCommand(),
		c.watchCommand(),
		c.configCommand(),
		c.versionCommand(),
	)
	return root
}

func (c *cli) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, used, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if used != "" {
				fmt.Fprintf(c.stdout, "# %s\n", used)
			}
			return cfg.Dump(c.stdout)
		},
	}
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(c.stdout, "lintsweep %s\n", version)
		},
	}
}

func (c *cli) loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	return config.Load(config.Options{
		File:     c.configFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
}

// rootArg returns the root argument, "." by default, after checking that
// it is a directory. An invalid root is reported on stderr and sets the
// exit code; the caller must stop without printing a summary.
func (c *cli) rootArg(args []string) (string, bool) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if err := walk.ValidateRoot(root); err != nil {
		c.fail(err)
		return "", false
	}
	return root, true
}

// fail reports a root error the way the sweep does.
func (c *cli) fail(err error) {
	if sweep.IsRootError(err) {
		fmt.Fprintln(c.stderr, sweep.RootMessage(err))
	} else {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
	}
	c.exitCode = report.ExitFailed
}

// interrupted reports whether err is a cancellation.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
