/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "drawtile/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// EditorConfig tunes the interaction engine.
type EditorConfig struct {
	SelectionPadding float64 `yaml:"selection_padding"`
	HitTolerance     float64 `yaml:"hit_tolerance"`
	DuplicateOffset  float64 `yaml:"duplicate_offset"`
	SnapThreshold    float64 `yaml:"snap_threshold"` // 0 disables smart guides
}

type ImagesConfig struct {
	PlaceholderWidth  int `yaml:"placeholder_width"`
	PlaceholderHeight int `yaml:"placeholder_height"`
	TimeoutMs         int `yaml:"timeout_ms"`
}

type JournalConfig struct {
	Path string `yaml:"path"` // empty disables the sqlite journal
}

type TelemetryConfig struct {
	OptIn bool   `yaml:"opt_in"`
	URL   string `yaml:"url"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Logging       LoggingConfig   `yaml:"logging"`
	Editor        EditorConfig    `yaml:"editor"`
	Images        ImagesConfig    `yaml:"images"`
	Journal       JournalConfig   `yaml:"journal"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Editor:        EditorConfig{SelectionPadding: 5, HitTolerance: 4, DuplicateOffset: 10},
		Images:        ImagesConfig{PlaceholderWidth: 128, PlaceholderHeight: 128, TimeoutMs: 15000},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "DRW_CONFIG"
	EnvJournalPath     = "DRW_JOURNAL"
	EnvTelemetryOptIn  = "DRW_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "DRW_TELEMETRY_URL"
	EnvImagesTimeoutMs = "DRW_IMAGES_TIMEOUT_MS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "DRW_LOG_LEVEL"
	EnvLogFormat = "DRW_LOG_FORMAT"
	EnvLogSource = "DRW_LOG_SOURCE"
	EnvLogFile   = "DRW_LOG_FILE"
)

// ConfigPath returns the per-user config file path. DRW_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "drawtile")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "drawtile")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "drawtile")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A malformed file is reported but defaults still apply.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
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
	return os.WriteFile(path, data, 0o600)
}

// LogOptions converts the logging section for log.Init.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

// ImageTimeout returns the image fetch timeout, falling back to the default.
func (c AppConfig) ImageTimeout() time.Duration {
	ms := c.Images.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Images.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
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
	// editor: zero means "not set"
	if src.Editor.SelectionPadding > 0 {
		dst.Editor.SelectionPadding = src.Editor.SelectionPadding
	}
	if src.Editor.HitTolerance > 0 {
		dst.Editor.HitTolerance = src.Editor.HitTolerance
	}
	if src.Editor.DuplicateOffset != 0 {
		dst.Editor.DuplicateOffset = src.Editor.DuplicateOffset
	}
	if src.Editor.SnapThreshold > 0 {
		dst.Editor.SnapThreshold = src.Editor.SnapThreshold
	}
	if src.Images.PlaceholderWidth > 0 {
		dst.Images.PlaceholderWidth = src.Images.PlaceholderWidth
	}
	if src.Images.PlaceholderHeight > 0 {
		dst.Images.PlaceholderHeight = src.Images.PlaceholderHeight
	}
	if src.Images.TimeoutMs > 0 {
		dst.Images.TimeoutMs = src.Images.TimeoutMs
	}
	if strings.TrimSpace(src.Journal.Path) != "" {
		dst.Journal.Path = strings.TrimSpace(src.Journal.Path)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if strings.TrimSpace(src.Telemetry.URL) != "" {
		dst.Telemetry.URL = strings.TrimSpace(src.Telemetry.URL)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvJournalPath)); v != "" {
		cfg.Journal.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvImagesTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Images.TimeoutMs = n
		}
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
	"journal.path":      EnvJournalPath,
	"telemetry.opt_in":  EnvTelemetryOptIn,
	"telemetry.url":     EnvTelemetryURL,
	"images.timeout_ms": EnvImagesTimeoutMs,
	"logging.level":     EnvLogLevel,
	"logging.format":    EnvLogFormat,
	"logging.source":    EnvLogSource,
	"logging.file":      EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	if env, ok := envKeys[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
