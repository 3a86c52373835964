/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package images resolves image URLs to their decoded pixel dimensions. Results
// are cached per canonical URL; failures resolve to a placeholder entry so a
// broken image never blocks a document.
package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	applog "drawtile/internal/log"
)

// PlaceholderURL is displayed in place of images that could not be loaded.
const PlaceholderURL = "drawtile:placeholder"

var ErrUnsupportedScheme = errors.New("images: unsupported url scheme")

// Entry is a resolved image.
type Entry struct {
	URL         string
	DisplayURL  string
	Width       int
	Height      int
	Format      string
	Placeholder bool
}

// NormalizeURL returns the canonical form of an image URL: trimmed, with
// lower-case scheme and host, default ports and fragments removed. Data URIs
// and relative references are only trimmed.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "data:") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return s
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Fragment = ""
	return u.String()
}

// Fetcher opens the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// DefaultFetcher supports http(s), file URLs, plain paths and base64 data URIs.
type DefaultFetcher struct {
	Client *http.Client
}

func (f DefaultFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURI(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		cli := f.Client
		if cli == nil {
			cli = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := cli.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
		}
		return resp.Body, nil
	case "file":
		return os.Open(u.Path)
	case "":
		return os.Open(rawURL)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

func decodeDataURI(s string) (io.ReadCloser, error) {
	i := strings.IndexByte(s, ',')
	if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrUnsupportedScheme)
	}
	return io.NopCloser(base64.NewDecoder(base64.StdEncoding, strings.NewReader(s[i+1:]))), nil
}

// DecodeSize reads just enough of r to report the image dimensions. PNG, JPEG,
// GIF, BMP, TIFF and WebP are recognized.
func DecodeSize(r io.Reader) (w, h int, format string, err error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, format, nil
}

// Options configures a Cache.
type Options struct {
	Fetcher           Fetcher
	Timeout           time.Duration
	PlaceholderWidth  int
	PlaceholderHeight int
	// Post runs completion callbacks on the caller's thread (typically the UI
	// event loop). Nil runs them on the loading goroutine.
	Post func(func())
}

// Cache resolves and memoizes image entries.
type Cache struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
	pending map[string][]func(Entry)
}

func NewCache(opts Options) *Cache {
	if opts.Fetcher == nil {
		opts.Fetcher = DefaultFetcher{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PlaceholderWidth <= 0 {
		opts.PlaceholderWidth = 128
	}
	if opts.PlaceholderHeight <= 0 {
		opts.PlaceholderHeight = 128
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	return &Cache{
		opts:    opts,
		log:     applog.WithComponent("images"),
		entries: make(map[string]Entry),
		pending: make(map[string][]func(Entry)),
	}
}

// Get returns a previously resolved entry.
func (c *Cache) Get(rawURL string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[NormalizeURL(rawURL)]
	return e, ok
}

// Placeholder returns the entry used for unresolvable images.
func (c *Cache) Placeholder(rawURL string) Entry {
	return Entry{
		URL: NormalizeURL(rawURL), DisplayURL: PlaceholderURL,
		Width: c.opts.PlaceholderWidth, Height: c.opts.PlaceholderHeight, Placeholder: true,
	}
}

// Resolve loads rawURL in the background and hands the entry to done through
// Post. Concurrent requests for the same URL share one load. The filename is
// only used for diagnostics.
func (c *Cache) Resolve(rawURL, filename string, done func(Entry)) {
	key := NormalizeURL(rawURL)
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.opts.Post(func() { done(e) })
		return
	}
	waiting, inFlight := c.pending[key]
	c.pending[key] = append(waiting, done)
	c.mu.Unlock()
	if !inFlight {
		go c.load(key, filename)
	}
}

func (c *Cache) load(key, filename string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()
	e, err := c.fetch(ctx, key)
	c.mu.Lock()
	if err == nil {
		c.entries[key] = e
	}
	callbacks := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()
	if err != nil {
		c.log.Warn("image unavailable, using placeholder",
			slog.String("url", key), slog.String("filename", filename), slog.Any("err", err))
		e = c.Placeholder(key)
	}
	for _, cb := range callbacks {
		cb := cb
		c.opts.Post(func() { cb(e) })
	}
}

func (c *Cache) fetch(ctx context.Context, key string) (Entry, error) {
	if key == "" {
		return Entry{}, errors.New("images: empty url")
	}
	rc, err := c.opts.Fetcher.Fetch(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	defer rc.Close()
	w, h, format, err := DecodeSize(rc)
	if err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return Entry{URL: key, DisplayURL: key, Width: w, Height: h, Format: format}, nil
}
