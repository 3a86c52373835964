/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an autosave of the
// open drawing.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"drawtile/internal/drawing"
	applog "drawtile/internal/log"
	"drawtile/internal/storage"
	"drawtile/internal/version"
)

// Uploader sends a finished crash report somewhere off the machine.
type Uploader interface {
	UploadCrash(ctx context.Context, report []byte) error
}

var (
	exitFn = os.Exit
	now    = time.Now

	mu       sync.Mutex
	uploader Uploader
)

const uploadTimeout = 3 * time.Second

// SetUploader installs the destination for crash reports. Nil disables uploads.
func SetUploader(u Uploader) {
	mu.Lock()
	uploader = u
	mu.Unlock()
}

// Recover captures a panic, writes a crash report next to the drawing (or to
// the temp dir), autosaves the drawing and exits with status 2.
//
// Usage: defer crash.Recover(h)
func Recover(h *storage.Handle) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	rep := newReport(h, r, debug.Stack())
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(rep.stack)))

	reportPath, err := rep.write()
	if err != nil {
		l.Error("crash report not written", slog.String("path", reportPath), slog.Any("err", err))
	}
	if h != nil && h.Doc != nil {
		if path, err := storage.AutosaveCrashSnapshot(h); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}
	upload(rep.render(false))

	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func upload(b []byte) {
	mu.Lock()
	u := uploader
	mu.Unlock()
	if u == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	if err := u.UploadCrash(ctx, b); err != nil {
		applog.WithComponent("crash").Debug("crash upload failed", slog.Any("err", err))
	}
}

type report struct {
	at    time.Time
	panic any
	stack []byte
	dir   string
	path  string // drawing file, kept out of uploads

	docID    string
	format   string
	warnings int
	selected int
	stamps   int
	objects  map[drawing.ObjectType]int
}

func newReport(h *storage.Handle, panicVal any, stack []byte) *report {
	r := &report{at: now(), panic: panicVal, stack: stack, dir: os.TempDir()}
	if h == nil {
		return r
	}
	if h.Path != "" {
		r.path = h.Path
		r.dir = storage.BackupsDir(h.Path)
	}
	r.format = h.Import.Format.String()
	r.warnings = len(h.Import.Warnings)
	if h.Doc != nil {
		r.docID = h.Doc.ID()
		r.selected = len(h.Doc.Selection())
		r.stamps = len(h.Doc.Stamps())
		r.objects = map[drawing.ObjectType]int{}
		for _, o := range h.Doc.Objects() {
			drawing.Walk(o, func(o drawing.Object) bool {
				r.objects[o.Type()]++
				return true
			})
		}
	}
	return r
}

// render formats the report. Uploaded copies leave out the file path.
func (r *report) render(withPath bool) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "drawtile crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", r.at.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if withPath && r.path != "" {
		fmt.Fprintf(&buf, "Drawing: %s\n", r.path)
	}
	if r.docID != "" {
		fmt.Fprintf(&buf, "Document: %s (imported as %s, %d warnings)\n", r.docID, r.format, r.warnings)
		fmt.Fprintf(&buf, "Selected: %d  Stamps: %d\n", r.selected, r.stamps)
		types := make([]string, 0, len(r.objects))
		for t := range r.objects {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&buf, "  %-10s %d\n", t, r.objects[drawing.ObjectType(t)])
		}
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", r.panic)
	fmt.Fprintf(&buf, "Stack:\n%s\n", r.stack)
	return buf.Bytes()
}

func (r *report) write() (string, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("crash-%s.log", r.at.Format("20060102-150405")))
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return path, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	if _, err := f.Write(r.render(true)); err != nil {
		_ = f.Close()
		return path, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return path, err
	}
	return path, f.Close()
}
