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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// The Postgres DSN is never written to disk; it lives in the OS keychain.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres" | "memory"
	Path   string `yaml:"path"`   // sqlite file; empty means <config dir>/scene.db
	// KeepRevisions bounds the per-key revision history of the sqlite store.
	KeepRevisions int `yaml:"keep_revisions"`
}

type HistoryConfig struct {
	MaxDepth int `yaml:"max_depth"` // 0 = unlimited
}

type CanvasConfig struct {
	GridSize    float64 `yaml:"grid_size"`
	DisableSnap bool    `yaml:"disable_snap"`
	Snap        string  `yaml:"snap"` // "grid" | "guides" | "off"
	PixelRatio  float64 `yaml:"pixel_ratio"`
}

type ExportConfig struct {
	SceneID     string `yaml:"scene_id"`
	Description string `yaml:"description"`
	Background  string `yaml:"background"`
}

type CatalogConfig struct {
	ExternalDir string `yaml:"external_dir"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Logging       LoggingConfig `yaml:"logging"`
	Storage       StorageConfig `yaml:"storage"`
	History       HistoryConfig `yaml:"history"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Export        ExportConfig  `yaml:"export"`
	Catalog       CatalogConfig `yaml:"catalog"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Storage:       StorageConfig{Driver: "sqlite", KeepRevisions: 20},
		History:       HistoryConfig{MaxDepth: 0},
		Canvas:        CanvasConfig{GridSize: 20, Snap: "grid", PixelRatio: 2},
		Export: ExportConfig{
			SceneID:     "dataset_yhq_001",
			Description: "Traffic scenario exported manually",
			Background:  "grid_canvas",
		},
		Catalog: CatalogConfig{ExternalDir: filepath.Join("assets", "custom")},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "TE_CONFIG"
	EnvTelemetryOptIn = "TE_TELEMETRY_OPT_IN"
	EnvStorageDriver  = "TE_STORAGE_DRIVER"
	EnvStoragePath    = "TE_STORAGE_PATH"
	EnvPostgresDSN    = "TE_PG_DSN"
	EnvHistoryDepth   = "TE_HISTORY_MAX_DEPTH"
	EnvGridSize       = "TE_GRID_SIZE"
	EnvSnap           = "TE_SNAP"
	EnvExternalDir    = "TE_ASSETS_DIR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "TE_LOG_LEVEL"
	EnvLogFormat = "TE_LOG_FORMAT"
	EnvLogSource = "TE_LOG_SOURCE"
	EnvLogFile   = "TE_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "TrafficEditor"
	keyringDSN     = "postgres_dsn"
)

// secretStore abstracts keyring, so we can stub in tests.
var secretStore SecretStore = &osKeyring{}

type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (k *osKeyring) Set(service, key, value string) error {
	return keyringSet(service, key, value)
}
func (k *osKeyring) Delete(service, key string) error { return keyringDelete(service, key) }

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "TrafficEditor")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "TrafficEditor")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "trafficeditor")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path, honoring TE_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StoragePath resolves the sqlite database file, defaulting next to the config file.
func (c AppConfig) StoragePath() (string, error) {
	if p := strings.TrimSpace(c.Storage.Path); p != "" {
		return p, nil
	}
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "scene.db"), nil
}

// SnapMode resolves the effective snapping mode. DisableSnap wins over Snap.
func (c AppConfig) SnapMode() string {
	if c.Canvas.DisableSnap {
		return "off"
	}
	switch c.Canvas.Snap {
	case "guides", "off":
		return c.Canvas.Snap
	default:
		return "grid"
	}
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the Postgres DSN from the keyring (returned separately, never kept in the struct).
// TE_PG_DSN takes precedence over the keyring.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if dsn := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); dsn != "" {
		return cfg, dsn, nil
	}
	dsn, _ := secretStore.Get(keyringService, keyringDSN)
	return cfg, dsn, nil
}

// Save writes the user config YAML and persists the DSN into OS keyring (if non-empty).
func Save(cfg AppConfig, dsn string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if dsn != "" {
		if err := secretStore.Set(keyringService, keyringDSN, dsn); err != nil {
			return err
		}
	}
	return nil
}

// ForgetDSN removes the stored Postgres DSN from the keyring.
func ForgetDSN() error { return secretStore.Delete(keyringService, keyringDSN) }

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// storage
	if d := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); d != "" {
		dst.Storage.Driver = d
	}
	if strings.TrimSpace(src.Storage.Path) != "" {
		dst.Storage.Path = strings.TrimSpace(src.Storage.Path)
	}
	if src.Storage.KeepRevisions > 0 {
		dst.Storage.KeepRevisions = src.Storage.KeepRevisions
	}
	if src.History.MaxDepth > 0 {
		dst.History.MaxDepth = src.History.MaxDepth
	}
	// canvas
	if src.Canvas.GridSize > 0 {
		dst.Canvas.GridSize = src.Canvas.GridSize
	}
	if src.Canvas.PixelRatio > 0 {
		dst.Canvas.PixelRatio = src.Canvas.PixelRatio
	}
	dst.Canvas.DisableSnap = src.Canvas.DisableSnap
	if v := strings.ToLower(strings.TrimSpace(src.Canvas.Snap)); v != "" {
		dst.Canvas.Snap = v
	}
	// export metadata
	if src.Export.SceneID != "" {
		dst.Export.SceneID = src.Export.SceneID
	}
	if src.Export.Description != "" {
		dst.Export.Description = src.Export.Description
	}
	if src.Export.Background != "" {
		dst.Export.Background = src.Export.Background
	}
	if strings.TrimSpace(src.Catalog.ExternalDir) != "" {
		dst.Catalog.ExternalDir = strings.TrimSpace(src.Catalog.ExternalDir)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.History.MaxDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.GridSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnap)); v != "" {
		cfg.Canvas.Snap = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExternalDir)); v != "" {
		cfg.Catalog.ExternalDir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"storage.driver":           EnvStorageDriver,
	"storage.path":             EnvStoragePath,
	"history.max_depth":        EnvHistoryDepth,
	"canvas.grid_size":         EnvGridSize,
	"canvas.snap":              EnvSnap,
	"catalog.external_dir":     EnvExternalDir,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
