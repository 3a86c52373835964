/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"sync"
	"time"

	"drawtile/internal/config"
	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/images"
)

// mainLoop queues callbacks from image loaders so they run on the goroutine
// that owns the document.
type mainLoop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func newMainLoop() *mainLoop { return &mainLoop{wake: make(chan struct{}, 1)} }

func (m *mainLoop) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mainLoop) drain() {
	m.mu.Lock()
	q := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, fn := range q {
		fn()
	}
}

// countingResolver reports every completed resolution.
type countingResolver struct {
	cache *images.Cache
	done  int
}

func (r *countingResolver) Resolve(url, filename string, done func(images.Entry)) {
	r.cache.Resolve(url, filename, func(e images.Entry) {
		r.done++
		done(e)
	})
}

// backfill resolves the images of doc that have no size yet and returns how
// many were filled in.
func backfill(cfg config.AppConfig, doc *document.Content) (int, error) {
	type size struct{ w, h float64 }
	before := map[string]size{}
	for _, top := range doc.Objects() {
		drawing.Walk(top, func(o drawing.Object) bool {
			if im, ok := o.(*drawing.Image); ok {
				if w, h := im.Size(); w <= 0 || h <= 0 {
					before[im.ID()] = size{w, h}
				}
			}
			return true
		})
	}
	if len(before) == 0 {
		return 0, nil
	}

	loop := newMainLoop()
	r := &countingResolver{cache: images.NewCache(images.Options{
		Timeout:           cfg.ImageTimeout(),
		PlaceholderWidth:  cfg.Images.PlaceholderWidth,
		PlaceholderHeight: cfg.Images.PlaceholderHeight,
		Post:              loop.Post,
	})}
	doc.BackfillImageSizes(r)

	deadline := time.After(cfg.ImageTimeout() + time.Second)
	for loop.drain(); r.done < len(before); loop.drain() {
		select {
		case <-loop.wake:
		case <-deadline:
			return 0, fmt.Errorf("backfill: %d of %d images still loading", len(before)-r.done, len(before))
		}
	}

	changed := 0
	for id, s := range before {
		if im, ok := doc.Find(id).(*drawing.Image); ok {
			if w, h := im.Size(); w != s.w || h != s.h {
				changed++
			}
		}
	}
	return changed, nil
}
