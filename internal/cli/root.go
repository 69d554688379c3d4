/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package cli defines the trafficeditor command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"trafficeditor/internal/config"
	applog "trafficeditor/internal/log"
	"trafficeditor/internal/telemetry"
	"trafficeditor/internal/version"
)

// Options stores global CLI options shared between commands. Empty values fall back
// to the user config file and its environment overrides.
type Options struct {
	LogLevel string
	Driver   string
	DBPath   string
	DataDir  string
}

// app carries what every command needs after the root pre-run.
type app struct {
	opts *Options
	cfg  config.AppConfig
	dsn  string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// Execute builds the root command, runs it with args and returns any error.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{opts: &Options{}, in: in, out: out, errOut: errOut}
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "trafficeditor",
		Short:         "trafficeditor builds traffic scenes from road, vehicle, sign and annotation assets",
		Long:          "trafficeditor edits a traffic scene with undo/redo, persists it automatically and imports/exports the scene JSON format. Use the ui command for the desktop editor, shell or run for scripted sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	cmd.PersistentFlags().StringVar(&a.opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.opts.Driver, "driver", "", "Storage driver (sqlite, postgres, memory)")
	cmd.PersistentFlags().StringVar(&a.opts.DBPath, "db", "", "SQLite database file")
	cmd.PersistentFlags().StringVar(&a.opts.DataDir, "data-dir", "", "Directory for crash reports and autosaves")

	cmd.AddCommand(
		newVersionCommand(a),
		newShellCommand(a),
		newRunCommand(a),
		newImportCommand(a),
		newExportCommand(a),
		newRenderCommand(a),
		newRevisionsCommand(a),
		newRecoverCommand(a),
		newAssetsCommand(a),
		newConfigCommand(a),
		newUICommand(a),
	)
	return cmd
}

// init loads the config and sets up logging and telemetry.
func (a *app) init() error {
	cfg, dsn, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg, a.dsn = cfg, dsn

	lo := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Output:    a.errOut,
	}
	if lvl := strings.TrimSpace(a.opts.LogLevel); lvl != "" {
		lo.Level = lvl
	}
	applog.Init(lo)
	telemetry.NewDefault(telemetry.FromEnv().WithConfigOptIn(cfg.General.TelemetryOptIn))
	applog.WithComponent("cli").Debug("config loaded", slog.String("driver", cfg.Storage.Driver), slog.String("snap", cfg.SnapMode()))
	return nil
}

func (a *app) printf(format string, args ...any) { _, _ = fmt.Fprintf(a.out, format, args...) }

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.printf("Traffic Scene Editor\n%s\n", version.String())
			return nil
		},
	}
}
