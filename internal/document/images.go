/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"log/slog"

	"drawtile/internal/drawing"
	"drawtile/internal/images"
)

// ImageResolver loads image dimensions asynchronously. done must be invoked on
// the UI thread; images.Cache does that through its Post option.
type ImageResolver interface {
	Resolve(url, filename string, done func(images.Entry))
}

// BackfillImageSizes asks r for the real size of every image that has no size
// yet and fills it in. Sizes already set, by a resize or a stamp, are kept.
// Objects deleted before the result arrives are left alone, as are failed loads.
func (c *Content) BackfillImageSizes(r ImageResolver) {
	for _, top := range c.objects {
		drawing.Walk(top, func(o drawing.Object) bool {
			if im, ok := o.(*drawing.Image); ok {
				c.backfill(r, im)
			}
			return true
		})
	}
}

func (c *Content) backfill(r ImageResolver, im *drawing.Image) {
	if !unsized(im) {
		return
	}
	r.Resolve(im.URL(), im.Filename(), func(e images.Entry) {
		if !c.IsAlive(im) {
			c.log.Debug("image resolved after delete", slog.String("id", im.ID()))
			return
		}
		if e.Placeholder || e.Width <= 0 || e.Height <= 0 {
			return
		}
		// re-checked: a resize may have landed while loading
		if !unsized(im) {
			return
		}
		im.SetSize(float64(e.Width), float64(e.Height))
	})
}

func unsized(im *drawing.Image) bool {
	w, h := im.Size()
	return w <= 0 || h <= 0
}
