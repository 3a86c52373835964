/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package images

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func encoded(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := enc(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func pngEnc(b *bytes.Buffer, m image.Image) error  { return png.Encode(b, m) }
func bmpEnc(b *bytes.Buffer, m image.Image) error  { return bmp.Encode(b, m) }
func tiffEnc(b *bytes.Buffer, m image.Image) error { return tiff.Encode(b, m, nil) }

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"  HTTP://Example.COM:80/a.png#frag ": "http://example.com/a.png",
		"https://cdn.test:443/x.webp":         "https://cdn.test/x.webp",
		"relative/pic.png":                    "relative/pic.png",
		"data:image/png;base64,AAAA":          "data:image/png;base64,AAAA",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeSizeFormats(t *testing.T) {
	for name, enc := range map[string]func(*bytes.Buffer, image.Image) error{"png": pngEnc, "bmp": bmpEnc, "tiff": tiffEnc} {
		w, h, format, err := DecodeSize(bytes.NewReader(encoded(t, 7, 3, enc)))
		if err != nil || w != 7 || h != 3 || format != name {
			t.Fatalf("%s: got %dx%d %q err=%v", name, w, h, format, err)
		}
	}
}

func TestCacheResolvesThroughPost(t *testing.T) {
	body := encoded(t, 20, 10, pngEnc)
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	queue := make(chan func(), 4)
	c := NewCache(Options{Post: func(fn func()) { queue <- fn }, Timeout: 2 * time.Second})
	var got []Entry
	for i := 0; i < 2; i++ {
		c.Resolve(srv.URL+"/a.png", "a.png", func(e Entry) { got = append(got, e) })
	}
	for i := 0; i < 2; i++ {
		select {
		case fn := <-queue:
			fn()
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for completion")
		}
	}
	if len(got) != 2 || got[0].Width != 20 || got[0].Height != 10 || got[0].Placeholder {
		t.Fatalf("unexpected entries %+v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Fatalf("expected one shared fetch, got %d", hits)
	}
	if _, ok := c.Get(srv.URL + "/a.png"); !ok {
		t.Fatalf("entry not cached")
	}
}

func TestCacheFailureFallsBackToPlaceholder(t *testing.T) {
	done := make(chan Entry, 1)
	c := NewCache(Options{PlaceholderWidth: 64, PlaceholderHeight: 32})
	c.Resolve(filepath.Join(t.TempDir(), "missing.png"), "", func(e Entry) { done <- e })
	select {
	case e := <-done:
		if !e.Placeholder || e.DisplayURL != PlaceholderURL || e.Width != 64 || e.Height != 32 {
			t.Fatalf("expected placeholder, got %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
}

func TestDefaultFetcherFileAndDataURI(t *testing.T) {
	body := encoded(t, 5, 6, bmpEnc)
	path := filepath.Join(t.TempDir(), "pic.bmp")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	done := make(chan Entry, 2)
	c := NewCache(Options{})
	c.Resolve("file://"+path, "pic.bmp", func(e Entry) { done <- e })
	c.Resolve("data:image/bmp;base64,"+base64.StdEncoding.EncodeToString(body), "", func(e Entry) { done <- e })
	for i := 0; i < 2; i++ {
		e := <-done
		if e.Placeholder || e.Width != 5 || e.Height != 6 {
			t.Fatalf("unexpected entry %+v", e)
		}
	}
}
