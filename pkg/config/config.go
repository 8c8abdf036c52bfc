// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config resolves lintsweep's configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an
// optional YAML file (.lintsweep.yaml in the working directory or the path
// given with --config), LINTSWEEP_* environment variables, and explicitly
// set command-line flags. Nested keys map to environment variables with
// dots replaced by underscores, so linters.python.command is read from
// LINTSWEEP_LINTERS_PYTHON_COMMAND and max_jobs from LINTSWEEP_MAX_JOBS.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/lintsweep/pkg/audit"
	"github.com/AleutianAI/lintsweep/pkg/dispatch"
	"github.com/AleutianAI/lintsweep/pkg/lint"
	"github.com/AleutianAI/lintsweep/pkg/walk"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LINTSWEEP"

	// DefaultFile is looked up in the working directory when no file is
	// given explicitly.
	DefaultFile = ".lintsweep.yaml"
)

// =============================================================================
// TYPES
// =============================================================================

// Config is the fully resolved configuration.
type Config struct {
	// MaxJobs bounds concurrent linter processes per category.
	MaxJobs int `mapstructure:"max_jobs" yaml:"max_jobs" validate:"gte=1,lte=1024"`

	// Timeout bounds each linter invocation. Zero means none.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`

	KeepArtifacts bool   `mapstructure:"keep_artifacts" yaml:"keep_artifacts"`
	ArtifactsDir  string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`

	// JSON prints the summary as JSON instead of text.
	JSON bool `mapstructure:"json" yaml:"json"`

	// Exclude adds directory globs pruned by every category and the audit.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`

	// Linters overrides lint categories, keyed by category name.
	Linters map[string]Tool `mapstructure:"linters" yaml:"linters" validate:"dive"`

	// Audit overrides audit tools, keyed by ecosystem name.
	Audit map[string]Tool `mapstructure:"audit" yaml:"audit" validate:"dive"`

	Log       Log       `mapstructure:"log" yaml:"log"`
	Telemetry Telemetry `mapstructure:"telemetry" yaml:"telemetry"`
	Watch     Watch     `mapstructure:"watch" yaml:"watch"`
}

// Tool overrides one external command.
type Tool struct {
	Disabled  bool     `mapstructure:"disabled" yaml:"disabled"`
	Command   string   `mapstructure:"command" yaml:"command" validate:"required_unless=Disabled true"`
	Args      []string `mapstructure:"args" yaml:"args,omitempty"`
	BatchSize int      `mapstructure:"batch_size" yaml:"batch_size,omitempty" validate:"gte=0"`
}

// Log configures the process logger.
type Log struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `mapstructure:"json" yaml:"json"`

	// Quiet silences console logging. A kept workspace still gets
	// lintsweep.log.
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`
}

// Telemetry selects OpenTelemetry exporters.
type Telemetry struct {
	Traces   string `mapstructure:"traces" yaml:"traces" validate:"oneof=none stdout otlp"`
	Metrics  string `mapstructure:"metrics" yaml:"metrics" validate:"oneof=none stdout prometheus"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// Watch configures `lintsweep watch`.
type Watch struct {
	Debounce    time.Duration `mapstructure:"debounce" yaml:"debounce" validate:"gte=0"`
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval" validate:"gte=0"`
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		MaxJobs: dispatch.DefaultLimit,
		Linters: make(map[string]Tool),
		Audit:   make(map[string]Tool),
		Log:     Log{Level: "info"},
		Telemetry: Telemetry{
			Traces:  "none",
			Metrics: "none",
		},
		Watch: Watch{
			Debounce:    500 * time.Millisecond,
			MinInterval: 2 * time.Second,
		},
	}
	for _, c := range lint.DefaultCategories() {
		cfg.Linters[c.Name] = Tool{Command: c.Tool, Args: c.Args, BatchSize: c.BatchSize}
	}
	for _, e := range audit.DefaultEcosystems() {
		cfg.Audit[e.Name] = Tool{Command: e.Tool}
	}
	return cfg
}

// setDefaults registers every key with viper so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("max_jobs", d.MaxJobs)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("keep_artifacts", d.KeepArtifacts)
	v.SetDefault("artifacts_dir", d.ArtifactsDir)
	v.SetDefault("json", d.JSON)
	v.SetDefault("exclude", d.Exclude)
	for name, t := range d.Linters {
		setToolDefaults(v, "linters."+name, t)
	}
	for name, t := range d.Audit {
		setToolDefaults(v, "audit."+name, t)
	}
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.quiet", d.Log.Quiet)
	v.SetDefault("telemetry.traces", d.Telemetry.Traces)
	v.SetDefault("telemetry.metrics", d.Telemetry.Metrics)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.min_interval", d.Watch.MinInterval)
}

func setToolDefaults(v *viper.Viper, prefix string, t Tool) {
	v.SetDefault(prefix+".disabled", t.Disabled)
	v.SetDefault(prefix+".command", t.Command)
	v.SetDefault(prefix+".args", t.Args)
	v.SetDefault(prefix+".batch_size", t.BatchSize)
}

// =============================================================================
// LOADING
// =============================================================================

// Options tells Load where to look.
type Options struct {
	// File is an explicit config path. Missing explicit files are errors.
	File string

	// Flags are bound by name to keys in FlagKeys. Only flags the user
	// actually set override lower layers.
	Flags *pflag.FlagSet

	// FlagKeys maps flag names to config keys, e.g. "jobs" -> "max_jobs".
	FlagKeys map[string]string
}

// Load resolves the configuration.
//
// Description:
//
//	Builds a private viper instance, registers defaults, reads the YAML
//	file if one is found, enables LINTSWEEP_* environment overrides,
//	binds flags and decodes into Config. The result is validated.
//
// Outputs:
//
//	Config - Resolved configuration
//	string - The config file used, empty if none
//	error - File, decode or validation failure
func Load(opts Options) (Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	used := ""
	switch {
	case opts.File != "":
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("read config %s: %w", opts.File, err)
		}
		used = opts.File
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			v.SetConfigFile(DefaultFile)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, "", fmt.Errorf("read config %s: %w", DefaultFile, err)
			}
			used = DefaultFile
		}
	}

	if opts.Flags != nil {
		for name, key := range opts.FlagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, "", fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}

	if used != "" {
		slog.Debug("Loaded config file", slog.String("path", used))
	}
	return cfg, used, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := walk.Rules(c.Exclude).Validate(); err != nil {
		return fmt.Errorf("%w: exclude: %v", ErrInvalid, err)
	}
	return nil
}

// Dump writes the configuration as YAML.
func (c Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
