/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package stamppack moves a drawing's stamp palette between documents as a zip
// archive: the stamp images plus a YAML manifest.
package stamppack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"drawtile/internal/document"
	"drawtile/internal/images"
	applog "drawtile/internal/log"
)

// ManifestName is the manifest entry at the root of a pack.
const ManifestName = "stamps.yaml"

const maxStampBytes = 32 << 20

// Manifest lists the stamps of a pack in palette order.
type Manifest struct {
	Created time.Time `yaml:"created"`
	Source  string    `yaml:"source,omitempty"`
	Stamps  []Entry   `yaml:"stamps"`
}

// Entry is one stamp; File is the slash-separated path inside the archive.
type Entry struct {
	File   string  `yaml:"file"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

var ErrNoManifest = errors.New("stamp pack has no manifest")

// Export writes the stamps of doc into a zip at destZip. Stamps whose image
// cannot be fetched are skipped with a warning. It returns the number packed.
func Export(ctx context.Context, doc *document.Content, destZip string, f images.Fetcher) (int, error) {
	l := applog.WithOperation(applog.WithComponent("stamppack"), "export").With(slog.String("doc", doc.ID()))
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destZip is required")
	}
	if f == nil {
		f = images.DefaultFetcher{}
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZip)

	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	m := Manifest{Created: time.Now().UTC(), Source: doc.ID()}
	for i, s := range doc.Stamps() {
		data, format, err := fetchStamp(ctx, f, s.URL)
		if err != nil {
			l.Warn("stamp skipped", slog.String("url", s.URL), slog.Any("err", err))
			continue
		}
		name := fmt.Sprintf("stamps/%03d.%s", i+1, extFor(format))
		w, err := zw.Create(name)
		if err != nil {
			return 0, fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return 0, fmt.Errorf("write %s: %w", name, err)
		}
		m.Stamps = append(m.Stamps, Entry{File: name, Width: s.Width, Height: s.Height})
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("marshal manifest: %w", err)
	}
	w, err := zw.Create(ManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zip: %w", err)
	}
	l.Info("stamp pack exported", slog.Int("stamps", len(m.Stamps)), slog.String("zip", destZip))
	return len(m.Stamps), nil
}

func fetchStamp(ctx context.Context, f images.Fetcher, url string) ([]byte, string, error) {
	rc, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, maxStampBytes))
	if err != nil {
		return nil, "", err
	}
	_, _, format, err := images.DecodeSize(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func extFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

// Install extracts the images of the pack at packZip into assetsDir and adds
// each one to the palette of doc as a single logged action per stamp. Files
// that already exist are reused, and stamps already in the palette are not
// added twice. It returns the number of stamps added.
func Install(doc *document.Content, packZip, assetsDir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("stamppack"), "install").With(slog.String("doc", doc.ID()))
	if strings.TrimSpace(packZip) == "" {
		return 0, errors.New("packZip is required")
	}
	if strings.TrimSpace(assetsDir) == "" {
		return 0, errors.New("assetsDir is required")
	}
	absAssets, err := filepath.Abs(assetsDir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(absAssets, 0o755); err != nil {
		return 0, fmt.Errorf("ensure assets dir: %w", err)
	}

	r, err := zip.OpenReader(packZip)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}
	mf, ok := files[ManifestName]
	if !ok {
		return 0, ErrNoManifest
	}
	var m Manifest
	if err := readYAML(mf, &m); err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}

	have := make([]string, 0)
	for _, s := range doc.Stamps() {
		have = append(have, images.NormalizeURL(s.URL))
	}
	added := 0
	for _, e := range m.Stamps {
		clean := path.Clean(e.File)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			l.Warn("skip unsafe entry", slog.String("file", e.File))
			continue
		}
		zf, ok := files[e.File]
		if !ok {
			l.Warn("manifest entry missing from archive", slog.String("file", e.File))
			continue
		}
		target := filepath.Join(absAssets, filepath.FromSlash(clean))
		if _, err := os.Stat(target); err != nil {
			if err := extract(zf, target); err != nil {
				return added, err
			}
		} else {
			l.Debug("reuse existing file", slog.String("path", target))
		}
		url := images.NormalizeURL(target)
		if slices.Contains(have, url) {
			continue
		}
		doc.AddStamp(document.Stamp{URL: url, Width: e.Width, Height: e.Height})
		have = append(have, url)
		added++
	}
	l.Info("stamp pack installed", slog.Int("stamps", added))
	return added, nil
}

func readYAML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	return yaml.NewDecoder(rc).Decode(v)
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(rc, maxStampBytes)); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
