/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package stamppack

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"drawtile/internal/document"
	"drawtile/internal/images"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestExportAndInstallPack(t *testing.T) {
	src := document.New(document.WithID("src"))
	src.AddStamp(document.Stamp{URL: pngDataURI(t, 3, 2), Width: 30, Height: 20})
	src.AddStamp(document.Stamp{URL: filepath.Join(t.TempDir(), "gone.png"), Width: 5, Height: 5})

	zipPath := filepath.Join(t.TempDir(), "out", "stamps.zip")
	n, err := Export(context.Background(), src, zipPath, images.DefaultFetcher{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 1 {
		t.Fatalf("packed %d stamps, want 1 (missing image skipped)", n)
	}

	var actions []string
	dst := document.New(document.WithActionLogger(document.ActionLoggerFunc(func(a document.Action) {
		actions = append(actions, a.Name)
	})))
	assets := t.TempDir()
	added, err := Install(dst, zipPath, assets)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if added != 1 || len(dst.Stamps()) != 1 {
		t.Fatalf("added=%d stamps=%v", added, dst.Stamps())
	}
	s := dst.Stamps()[0]
	if s.Width != 30 || s.Height != 20 {
		t.Errorf("stamp size = %vx%v", s.Width, s.Height)
	}
	if s.URL != filepath.Join(assets, "stamps", "001.png") {
		t.Errorf("stamp url = %s", s.URL)
	}
	if _, err := os.Stat(s.URL); err != nil {
		t.Errorf("image not extracted: %v", err)
	}
	if len(actions) != 1 || actions[0] != "addStamp" {
		t.Errorf("actions = %v", actions)
	}

	again, err := Install(dst, zipPath, assets)
	if err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	if again != 0 || len(dst.Stamps()) != 1 {
		t.Errorf("reinstall added %d, palette %d", again, len(dst.Stamps()))
	}
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pack.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		_, _ = w.Write([]byte(body))
	}
	_ = zw.Close()
	_ = f.Close()
	return p
}

func TestInstallRejectsUnsafeAndMissingManifest(t *testing.T) {
	doc := document.New()
	if _, err := Install(doc, writeZip(t, map[string]string{"a.png": "x"}), t.TempDir()); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("err = %v, want ErrNoManifest", err)
	}

	manifest := "stamps:\n  - file: ../evil.png\n    width: 1\n    height: 1\n  - file: stamps/absent.png\n"
	zp := writeZip(t, map[string]string{ManifestName: manifest, "../evil.png": "x"})
	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	added, err := Install(doc, zp, assets)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
	if _, err := os.Stat(filepath.Join(root, "evil.png")); !os.IsNotExist(err) {
		t.Errorf("zip slip wrote outside the assets dir")
	}
}

func TestArgumentErrors(t *testing.T) {
	doc := document.New()
	if _, err := Export(context.Background(), doc, " ", nil); err == nil {
		t.Errorf("empty destination should fail")
	}
	if _, err := Install(doc, "", t.TempDir()); err == nil {
		t.Errorf("empty pack path should fail")
	}
	if _, err := Install(doc, "x.zip", ""); err == nil {
		t.Errorf("empty assets dir should fail")
	}
}
