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
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/lintsweep/pkg/config"
	"github.com/AleutianAI/lintsweep/pkg/logging"
	"github.com/AleutianAI/lintsweep/pkg/sweep"
	"github.com/AleutianAI/lintsweep/pkg/telemetry"
	"github.com/AleutianAI/lintsweep/pkg/workspace"
)

const (
	logArtifact        = "lintsweep.log"
	traceArtifact      = "trace.json"
	metricsArtifact    = "metrics.json"
	promArtifact       = "metrics.prom"
	telemetryFlushTime = 5 * time.Second
)

// session owns everything a sweep needs besides the sweeper itself: the
// run workspace, the process logger and the telemetry providers.
type session struct {
	cfg       config.Config
	workspace *workspace.Workspace
	logger    *logging.Logger
	previous  *slog.Logger
	shutdown  func(context.Context) error
	files     []*os.File
}

// openSession creates the workspace, installs the logger as the slog
// default and starts telemetry. Close undoes all of it.
func (c *cli) openSession(ctx context.Context, cfg config.Config) (*session, error) {
	ws, err := workspace.Create(cfg.ArtifactsDir, "", workspace.WithKeep(cfg.KeepArtifacts))
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, workspace: ws, previous: slog.Default()}

	logger, err := c.newLogger(cfg, ws)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.logger = logger
	slog.SetDefault(logger.Slog())

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.RunID = ws.RunID()
	tcfg.TraceExporter = cfg.Telemetry.Traces
	tcfg.MetricExporter = cfg.Telemetry.Metrics
	tcfg.OTLPEndpoint = cfg.Telemetry.Endpoint

	if cfg.Telemetry.Traces == telemetry.ExporterStdout {
		f, err := s.artifact(traceArtifact)
		if err != nil {
			s.Close()
			return nil, err
		}
		tcfg.TraceWriter = f
	}
	switch cfg.Telemetry.Metrics {
	case telemetry.ExporterStdout:
		f, err := s.artifact(metricsArtifact)
		if err != nil {
			s.Close()
			return nil, err
		}
		tcfg.MetricWriter = f
	case telemetry.ExporterPrometheus:
		path, err := ws.Path(promArtifact)
		if err != nil {
			s.Close()
			return nil, err
		}
		tcfg.TextfilePath = path
	}

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.shutdown = shutdown
	return s, nil
}

func (s *session) artifact(name string) (*os.File, error) {
	f, err := s.workspace.OpenArtifact(name)
	if err != nil {
		return nil, err
	}
	s.files = append(s.files, f)
	return f, nil
}

// extraArtifacts appends files the session wrote to the workspace, such as
// stdout telemetry, that the sweep did not report itself. They never feed
// the tally.
func (s *session) extraArtifacts(reported []sweep.Artifact) []sweep.Artifact {
	known := make(map[string]bool, len(reported))
	for _, a := range reported {
		known[a.Name] = true
	}
	for _, name := range s.workspace.Artifacts() {
		if known[name] {
			continue
		}
		path, err := s.workspace.Path(name)
		if err != nil {
			continue
		}
		reported = append(reported, sweep.Artifact{Name: name, Path: path})
	}
	return reported
}

// Close flushes telemetry, restores the previous logger and removes the
// workspace unless it is kept.
func (s *session) Close() error {
	var errs []error
	if s.shutdown != nil {
		// The run context may already be cancelled; flushing still needs time.
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTime)
		errs = append(errs, s.shutdown(ctx))
		cancel()
	}
	for _, f := range s.files {
		errs = append(errs, f.Close())
	}
	if s.logger != nil {
		slog.SetDefault(s.previous)
		errs = append(errs, s.logger.Close())
	}
	errs = append(errs, s.workspace.Cleanup())
	return errors.Join(errs...)
}

// newLogger builds the process logger. Kept workspaces also get a JSON
// log file.
func (c *cli) newLogger(cfg config.Config, ws *workspace.Workspace) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	lc := logging.Config{
		Level:   level,
		JSON:    cfg.Log.JSON,
		Quiet:   cfg.Log.Quiet,
		Service: "lintsweep",
		Console: c.stderr,
	}
	if ws != nil && ws.Kept() {
		path, err := ws.Path(logArtifact)
		if err != nil {
			return nil, err
		}
		lc.File = path
	}
	return logging.New(lc)
}

// color reports whether styled output should be written to w.
func color(w any) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
