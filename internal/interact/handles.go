/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interact

import (
	"drawtile/internal/document"
	"drawtile/internal/vector"
)

// Handle names a corner of the selection box.
type Handle int

const (
	HandleNW Handle = iota
	HandleNE
	HandleSE
	HandleSW
)

func (h Handle) String() string {
	return [...]string{"nw", "ne", "se", "sw"}[h]
}

// SelectionBounds is the union of the selected objects' world boxes, inflated
// by the selection padding.
func (e *Engine) SelectionBounds() (vector.BoundingBox, bool) {
	var (
		box   vector.BoundingBox
		found bool
	)
	for _, id := range e.doc.Selection() {
		o := e.doc.Get(id)
		if o == nil {
			continue
		}
		if !found {
			box, found = o.BoundingBox(), true
			continue
		}
		box = box.Union(o.BoundingBox())
	}
	if !found {
		return vector.BoundingBox{}, false
	}
	return box.Inflate(e.opts.SelectionPadding), true
}

// Handles returns the resize handle centers, indexed by Handle. Handles exist
// only for a non-empty selection in select mode; hovering never shows them.
func (e *Engine) Handles() ([4]vector.Point, bool) {
	if e.Tool() != document.ToolSelect || e.edit != nil {
		return [4]vector.Point{}, false
	}
	box, ok := e.SelectionBounds()
	if !ok {
		return [4]vector.Point{}, false
	}
	return box.Corners(), true
}

func (e *Engine) handleAt(p vector.Point) (Handle, bool) {
	corners, ok := e.Handles()
	if !ok {
		return 0, false
	}
	half := e.opts.HandleSize / 2
	for i, c := range corners {
		if vector.Box(c.X-half, c.Y-half, 2*half, 2*half).Contains(p) {
			return Handle(i), true
		}
	}
	return 0, false
}
