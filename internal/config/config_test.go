/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

// isolate points the config file at a temp dir and swaps the keyring for an in-memory mock.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvPostgresDSN, "")
	keyring.MockInit()
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if dsn != "" {
		t.Fatalf("dsn = %q, want empty", dsn)
	}
	if cfg.Canvas.GridSize != 20 || cfg.Export.SceneID != "dataset_yhq_001" || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
	if name, ok := EnvOverrideFor("general.telemetry_opt_in"); !ok || name != EnvTelemetryOptIn {
		t.Fatalf("EnvOverrideFor = %q,%v", name, ok)
	}
	if _, ok := EnvOverrideFor("storage.path"); ok {
		t.Fatalf("storage.path should not report an override")
	}
}

func TestEnvOverridesStorageAndCanvas(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStorageDriver, "Postgres")
	t.Setenv(EnvHistoryDepth, "50")
	t.Setenv(EnvGridSize, "10")
	t.Setenv(EnvExternalDir, "/srv/assets")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.History.MaxDepth != 50 || cfg.Canvas.GridSize != 10 || cfg.Catalog.ExternalDir != "/srv/assets" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
}

func TestSnapMode(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSnap, "Guides")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := cfg.SnapMode(); got != "guides" {
		t.Fatalf("SnapMode() = %q, want guides", got)
	}
	cfg.Canvas.DisableSnap = true
	if got := cfg.SnapMode(); got != "off" {
		t.Fatalf("DisableSnap should win, got %q", got)
	}
	cfg.Canvas.DisableSnap = false
	cfg.Canvas.Snap = "bogus"
	if got := cfg.SnapMode(); got != "grid" {
		t.Fatalf("unknown snap should fall back to grid, got %q", got)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/te.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/te.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	mergeInto(&dst, &src)
	if dst.Canvas.GridSize != 20 || dst.Canvas.PixelRatio != 2 || dst.Storage.KeepRevisions != 20 {
		t.Fatalf("zero-valued file config clobbered defaults: %#v", dst)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/log/te.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/log/te.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveLoadRoundTripAndKeyring(t *testing.T) {
	path := isolate(t)
	cfg := Defaults()
	cfg.Storage.Driver = "postgres"
	cfg.Export.Description = "Rush hour"
	cfg.Canvas.DisableSnap = true
	if err := Save(cfg, "postgres://u:p@localhost/te"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if got := string(data); len(got) == 0 || strings.Contains(got, "postgres://") {
		t.Fatalf("dsn must not be written to the config file: %q", got)
	}
	got, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Storage.Driver != "postgres" || got.Export.Description != "Rush hour" || !got.Canvas.DisableSnap {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if dsn != "postgres://u:p@localhost/te" {
		t.Fatalf("dsn from keyring = %q", dsn)
	}

	t.Setenv(EnvPostgresDSN, "postgres://env/te")
	if _, dsn, _ = Load(); dsn != "postgres://env/te" {
		t.Fatalf("env dsn should win, got %q", dsn)
	}
	if err := ForgetDSN(); err != nil {
		t.Fatalf("ForgetDSN: %v", err)
	}
}

func TestStoragePathDefaultsNextToConfig(t *testing.T) {
	path := isolate(t)
	cfg := Defaults()
	p, err := cfg.StoragePath()
	if err != nil {
		t.Fatalf("StoragePath: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "scene.db"); p != want {
		t.Fatalf("StoragePath = %q, want %q", p, want)
	}
	cfg.Storage.Path = "/data/te.db"
	if p, _ := cfg.StoragePath(); p != "/data/te.db" {
		t.Fatalf("explicit path ignored: %q", p)
	}
}
