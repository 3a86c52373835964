/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitWritesConsoleAndRotatingFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "drawtile.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", File: fpath, Writer: &console})
	t.Cleanup(func() { Init(Options{Writer: &bytes.Buffer{}}) })

	l := WithOperation(WithComponent("migrate"), "replay")
	l.Warn("duplicate create ignored", slog.String("id", "a"))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["app"] != "drawtile" || m["component"] != "migrate" || m["op"] != "replay" || m["id"] != "a" {
		t.Fatalf("file record = %v", m)
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	line := console.String()
	if !strings.Contains(line, "WRN [migrate] duplicate create ignored") || !strings.Contains(line, "op=replay id=a") {
		t.Fatalf("console line = %q", line)
	}
}

func TestJSONConsoleAndLevels(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Format: "JSON", Writer: &buf})
	t.Cleanup(func() { Init(Options{Writer: &bytes.Buffer{}}) })

	WithComponent("document").Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
	WithComponent("document").Error("shown", slog.Int("objects", 3))
	if m := lastJSONLine(t, buf.Bytes()); m["msg"] != "shown" || m["objects"] != float64(3) {
		t.Fatalf("json record = %v", m)
	}
}

func TestConsoleHandlerFormatting(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, true)
	if h.Enabled(nil, slog.LevelInfo) || !h.Enabled(nil, slog.LevelError) {
		t.Fatalf("level filtering wrong")
	}

	hh := h.WithAttrs([]slog.Attr{slog.String("component", "interact"), slog.String("tool", "select")}).WithGroup("drag")
	r := slog.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), slog.LevelError, "gesture failed", 0)
	r.AddAttrs(
		slog.Int("n", 42),
		slog.Float64("dx", 2.5),
		slog.String("id", "a b"),
		slog.Group("box", slog.Float64("w", 10), slog.Bool("ok", true)),
	)
	if err := hh.Handle(nil, r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := `03:04:05.000 ERR [interact] gesture failed tool=select drag.n=42 drag.dx=2.5 drag.id="a b" drag.box.w=10 drag.box.ok=true`
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Fatalf("line =\n%q\nwant\n%q", got, want)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DRW_LOG_LEVEL", "warn")
	t.Setenv("DRW_LOG_FORMAT", "json")
	t.Setenv("DRW_LOG_SOURCE", "true")
	t.Setenv("DRW_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if parseLevel("WARNING") != slog.LevelWarn || parseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("parseLevel mismatch")
	}
	if getenv("DRW_SURELY_UNSET_VAR", "fallback") != "fallback" {
		t.Fatalf("getenv fallback failed")
	}
}
