/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"drawtile/internal/document"
	applog "drawtile/internal/log"
	"drawtile/internal/migrate"
)

const (
	FileExt        = ".drawing.json"
	BackupsDirName = "backups"
)

// ErrNilHandle is returned for operations on a nil or unopened handle.
var ErrNilHandle = errors.New("nil drawing handle")

// Handle ties a document to the file it was loaded from.
type Handle struct {
	Path string
	Doc  *document.Content
	// Import describes how the file was normalized on open.
	Import migrate.Result
}

// BackupsDir returns the folder holding backups of the drawing at path.
func BackupsDir(path string) string {
	return filepath.Join(filepath.Dir(path), BackupsDirName)
}

// Create writes doc to a new file at path.
func Create(path string, doc *document.Content) (*Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create drawing dir: %w", err)
	}
	h := &Handle{Path: path, Doc: doc}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads the drawing at path. Unreadable or non-JSON files fall back to
// the newest backup; any JSON is accepted and normalized by the migrator.
func Open(path string, opts ...document.Option) (*Handle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	b, err := os.ReadFile(path)
	if err == nil && !json.Valid(b) {
		err = errors.New("not a JSON document")
	}
	if err != nil {
		bb, berr := latestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("open drawing: %w; backup attempt: %v", err, berr)
		}
		l.Warn("drawing unreadable, opened latest backup", slog.Any("err", err))
		b = bb
	}
	doc, res := migrate.Load(b, opts...)
	if len(res.Warnings) > 0 {
		l.Info("drawing normalized", slog.String("format", res.Format.String()), slog.Int("warnings", len(res.Warnings)))
	}
	return &Handle{Path: path, Doc: doc, Import: res}, nil
}

// Save writes the drawing with transactional semantics and a timestamped
// backup of the previous file, if any.
func Save(h *Handle) error {
	if h == nil || h.Doc == nil {
		return ErrNilHandle
	}
	if h.Path == "" {
		return errors.New("invalid handle: missing path")
	}
	data, err := json.MarshalIndent(h.Doc.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drawing: %w", err)
	}
	data = append(data, '\n')

	bdir := BackupsDir(h.Path)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(h.Path), stamp))
		if cerr := copyFile(h.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current drawing: %w", cerr)
		}
	}

	// write next to the target, then rename over it
	temp := filepath.Join(filepath.Dir(h.Path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(h.Path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp drawing: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(h.Path); err == nil {
		_ = os.Remove(h.Path)
	}
	if rerr := os.Rename(temp, h.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace drawing: %w", rerr)
	}
	return nil
}

// SaveAs writes the drawing to a new path and updates the handle.
func SaveAs(h *Handle, path string) error {
	if h == nil {
		return ErrNilHandle
	}
	if path == "" {
		return errors.New("new path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create drawing dir: %w", err)
	}
	h.Path = path
	return Save(h)
}

// AutosaveCrashSnapshot writes the in-memory drawing into the backups folder
// without touching the main file. It is used on the panic path.
func AutosaveCrashSnapshot(h *Handle) (string, error) {
	if h == nil || h.Doc == nil {
		return "", ErrNilHandle
	}
	data, err := json.MarshalIndent(h.Doc.Snapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal drawing: %w", err)
	}
	bdir := BackupsDir(h.Path)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", filepath.Base(h.Path), stamp))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// Backups lists the backup files of the drawing at path, oldest first.
func Backups(path string) ([]string, error) {
	ents, err := os.ReadDir(BackupsDir(path))
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(BackupsDir(path), name))
		}
	}
	// the timestamp in the name yields lexicographic order
	sort.Strings(out)
	return out, nil
}

func latestBackup(path string) ([]byte, error) {
	candidates, err := Backups(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	if !json.Valid(b) {
		return nil, errors.New("latest backup is not JSON")
	}
	return b, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
