/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "none.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.DuplicateOffset != 10 || cfg.Editor.SelectionPadding != 5 {
		t.Fatalf("unexpected editor defaults: %#v", cfg.Editor)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "sub", "config.yaml"))
	cfg := Defaults()
	cfg.Editor.HitTolerance = 7
	cfg.Journal.Path = "/tmp/actions.db"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Editor.HitTolerance != 7 || got.Journal.Path != "/tmp/actions.db" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestLoadMalformedFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Images.PlaceholderWidth != 128 {
		t.Fatalf("defaults lost on parse error: %#v", cfg.Images)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv(EnvTelemetryOptIn, "true")
	t.Setenv(EnvTelemetryURL, "https://telemetry.example.test/ingest")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Telemetry.OptIn || cfg.Telemetry.URL != "https://telemetry.example.test/ingest" {
		t.Fatalf("telemetry env overrides not applied: %#v", cfg.Telemetry)
	}
	if env, ok := EnvOverrideFor("telemetry.opt_in"); !ok || env != EnvTelemetryOptIn {
		t.Fatalf("EnvOverrideFor mismatch: %q %v", env, ok)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/drw.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/drw.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	if o := dst.LogOptions(); o.Level != "debug" || !o.AddSource {
		t.Fatalf("LogOptions mismatch: %#v", o)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/drw.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/drw.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestImageTimeoutFallback(t *testing.T) {
	cfg := Defaults()
	cfg.Images.TimeoutMs = 0
	if cfg.ImageTimeout().Milliseconds() != 15000 {
		t.Fatalf("unexpected fallback timeout %v", cfg.ImageTimeout())
	}
}

func TestLoadEditorSnapThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("editor:\n  snap_threshold: 4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Editor.SnapThreshold != 4 || cfg.Editor.DuplicateOffset != 10 {
		t.Fatalf("editor = %#v", cfg.Editor)
	}
	if Defaults().Editor.SnapThreshold != 0 {
		t.Fatalf("snapping should be off by default")
	}
}
