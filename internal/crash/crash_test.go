/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/storage"
)

type fakeUploader struct{ reports []string }

func (f *fakeUploader) UploadCrash(_ context.Context, b []byte) error {
	f.reports = append(f.reports, string(b))
	return nil
}

func fp(v float64) *float64 { return &v }

func sampleHandle(t *testing.T, root string) *storage.Handle {
	t.Helper()
	doc := document.New(document.WithID("crashy"))
	snaps := []drawing.Snapshot{
		{Type: drawing.TypeRectangle, ID: "r", Width: fp(10), Height: fp(10)},
		{Type: drawing.TypeGroup, ID: "g", Width: fp(20), Height: fp(20), Objects: []drawing.Snapshot{
			{Type: drawing.TypeEllipse, ID: "e", X: 5, Y: 5, Rx: fp(5), Ry: fp(5)},
			{Type: drawing.TypeRectangle, ID: "r2", X: 10, Y: 10, Width: fp(10), Height: fp(10)},
		}},
	}
	for _, s := range snaps {
		if _, err := doc.AddObject(s); err != nil {
			t.Fatalf("AddObject: %v", err)
		}
	}
	doc.SetSelection([]string{"r"})
	return &storage.Handle{Path: filepath.Join(root, "tile"+storage.FileExt), Doc: doc}
}

func TestReportSummarizesDrawing(t *testing.T) {
	h := sampleHandle(t, t.TempDir())
	r := newReport(h, "kaboom", []byte("stack"))

	full := string(r.render(true))
	for _, want := range []string{"drawtile crash report", "Document: crashy", "Selected: 1", "rectangle  2", "ellipse    1", "group      1", "Panic: kaboom", h.Path} {
		if !strings.Contains(full, want) {
			t.Errorf("report missing %q:\n%s", want, full)
		}
	}
	if strings.Contains(string(r.render(false)), h.Path) {
		t.Errorf("uploaded report must not contain the drawing path")
	}

	path, err := r.write()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != storage.BackupsDir(h.Path) {
		t.Fatalf("report at %s, want under backups", path)
	}
}

func TestReportWithoutDrawingGoesToTemp(t *testing.T) {
	r := newReport(nil, "boom", []byte("stacktrace"))
	path, err := r.write()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	defer os.Remove(path)
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("report at %s", path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Panic: boom") || strings.Contains(string(b), "Document:") {
		t.Fatalf("report = %s", b)
	}
}

func TestRecoverWritesReportAutosavesAndUploads(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()
	now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { now = time.Now }()
	up := &fakeUploader{}
	SetUploader(up)
	defer SetUploader(nil)

	root := t.TempDir()
	h := sampleHandle(t, root)
	func() {
		defer Recover(h)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	bdir := storage.BackupsDir(h.Path)
	if _, err := os.Stat(filepath.Join(bdir, "crash-20250301-120000.log")); err != nil {
		t.Fatalf("crash report missing: %v", err)
	}
	files, _ := os.ReadDir(bdir)
	autosaved := false
	for _, f := range files {
		if strings.Contains(f.Name(), ".crash-") && strings.HasSuffix(f.Name(), ".json") {
			autosaved = true
		}
	}
	if !autosaved {
		t.Fatalf("expected a crash autosave of the drawing, got %v", files)
	}
	if len(up.reports) != 1 || !strings.Contains(up.reports[0], "Panic: boom") || strings.Contains(up.reports[0], root) {
		t.Fatalf("uploads = %q", up.reports)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit called without a panic")
	}
}
