/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"drawtile/internal/drawing"
	"drawtile/internal/vector"
)

// AddObject instantiates a snapshot (drawing.Snapshot or *drawing.Snapshot) and
// appends it on top. Live objects are rejected so the logged action always
// carries plain data.
func (c *Content) AddObject(v any) (drawing.Object, error) {
	var s drawing.Snapshot
	switch x := v.(type) {
	case drawing.Object:
		return nil, ErrLiveObject
	case drawing.Snapshot:
		s = x
	case *drawing.Snapshot:
		if x == nil {
			return nil, fmt.Errorf("%w: nil snapshot", ErrUnsupported)
		}
		s = *x
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
	if s.ID == "" {
		s.ID = drawing.NewID()
	}
	if c.Find(s.ID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
	}
	o, err := drawing.FromSnapshot(s)
	if err != nil {
		return nil, err
	}
	fitGroups(o)
	c.action("addObject", []any{s}, func() { c.insert(len(c.objects), o) })
	return o, nil
}

// fitGroups gives boxless groups (migrated documents) their content box,
// innermost first.
func fitGroups(o drawing.Object) {
	g, ok := o.(*drawing.Group)
	if !ok {
		return
	}
	for _, child := range g.Objects() {
		fitGroups(child)
	}
	g.FitToContent()
}

// DeleteObjects removes the top-level objects and unselects the ids. Unknown ids
// are ignored.
func (c *Content) DeleteObjects(ids []string) {
	if len(c.lookup(ids)) == 0 && !c.anySelected(ids) {
		return
	}
	c.action("deleteObjects", []any{slices.Clone(ids)}, func() {
		for _, id := range ids {
			if i := c.indexOf(id); i >= 0 {
				c.removeAt(i)
			}
		}
	})
	c.Unselect(ids)
}

// Move is a destination for MoveObjects.
type Move struct {
	ID          string       `json:"id"`
	Destination vector.Point `json:"destination"`
}

// MoveObjects commits new anchor positions. Unknown ids are ignored, and a
// move naming no known object is not logged.
func (c *Content) MoveObjects(moves []Move) {
	ids := make([]string, len(moves))
	for i, m := range moves {
		ids[i] = m.ID
	}
	if len(c.lookup(ids)) == 0 {
		return
	}
	c.action("moveObjects", []any{slices.Clone(moves)}, func() {
		for _, m := range moves {
			if o := c.Get(m.ID); o != nil {
				o.SetPosition(m.Destination.X, m.Destination.Y)
			}
		}
	})
}

// ResizeObjects commits the in-flight resize state of the objects.
func (c *Content) ResizeObjects(ids []string) {
	objs := c.lookup(ids)
	if len(objs) == 0 {
		return
	}
	c.action("resizeObjects", []any{slices.Clone(ids)}, func() {
		for _, o := range objs {
			o.ResizeObject()
		}
	})
}

// eachStroked visits the stroked objects among ids, descending into groups.
func (c *Content) eachStroked(ids []string, fn func(drawing.Stroked)) {
	for _, o := range c.lookup(ids) {
		drawing.Walk(o, func(x drawing.Object) bool {
			if s, ok := x.(drawing.Stroked); ok {
				fn(s)
			}
			return true
		})
	}
}

// SetStroke sets the stroke color of the objects and the toolbar default.
func (c *Content) SetStroke(ids []string, color string) {
	c.action("setStroke", []any{slices.Clone(ids), color}, func() {
		c.settings.Stroke = color
		c.eachStroked(ids, func(s drawing.Stroked) { s.SetStroke(color) })
	})
}

func (c *Content) SetStrokeWidth(ids []string, w float64) {
	c.action("setStrokeWidth", []any{slices.Clone(ids), w}, func() {
		c.settings.StrokeWidth = w
		c.eachStroked(ids, func(s drawing.Stroked) { s.SetStrokeWidth(w) })
	})
}

func (c *Content) SetStrokeDashArray(ids []string, dash string) {
	c.action("setStrokeDashArray", []any{slices.Clone(ids), dash}, func() {
		c.settings.StrokeDashArray = dash
		c.eachStroked(ids, func(s drawing.Stroked) { s.SetStrokeDashArray(dash) })
	})
}

func (c *Content) SetFill(ids []string, color string) {
	c.action("setFill", []any{slices.Clone(ids), color}, func() {
		c.settings.Fill = color
		for _, o := range c.lookup(ids) {
			drawing.Walk(o, func(x drawing.Object) bool {
				if f, ok := x.(drawing.Filled); ok {
					f.SetFill(color)
				}
				return true
			})
		}
	})
}

func (c *Content) SetVectorType(ids []string, vt vector.VectorType) {
	c.action("setVectorType", []any{slices.Clone(ids), string(vt)}, func() {
		c.settings.VectorType = vt
		for _, o := range c.lookup(ids) {
			drawing.Walk(o, func(x drawing.Object) bool {
				if v, ok := x.(*drawing.Vector); ok {
					v.SetVectorType(vt)
				}
				return true
			})
		}
	})
}

// DuplicateObjects copies the objects with fresh ids, offset down and right,
// and selects the copies. It returns the new ids in z-order.
func (c *Content) DuplicateObjects(ids []string) []string {
	objs := c.lookup(ids)
	if len(objs) == 0 {
		return nil
	}
	var added []string
	c.action("duplicateObjects", []any{slices.Clone(ids)}, func() {
		for _, o := range objs {
			s := drawing.WithFreshIDs(o.Snapshot())
			s.X += c.duplicateOffset
			s.Y += c.duplicateOffset
			if n, err := c.AddObject(s); err == nil {
				added = append(added, n.ID())
			} else {
				c.log.Warn("duplicate failed", slog.String("id", o.ID()), slog.Any("err", err))
			}
		}
	})
	c.SetSelection(added)
	return added
}

// CreateGroup replaces the objects by a group holding them in z-order. The
// group takes the z-position of the topmost member and becomes the selection.
func (c *Content) CreateGroup(ids []string) (*drawing.Group, error) {
	var members []drawing.Object
	for _, o := range c.objects {
		if slices.Contains(ids, o.ID()) {
			members = append(members, o)
		}
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownObject, ids)
	}
	var g *drawing.Group
	c.action("createGroup", []any{slices.Clone(ids)}, func() {
		at := c.indexOf(members[len(members)-1].ID())
		for i := len(c.objects) - 1; i >= 0; i-- {
			if slices.Contains(members, c.objects[i]) {
				c.removeAt(i)
				if i < at {
					at--
				}
			}
		}
		g = drawing.NewGroup(members)
		c.insert(at, g)
	})
	c.SetSelection([]string{g.ID()})
	return g, nil
}

// Ungroup dissolves one top-level group, re-inserting its members at the
// group's z-position in their original order.
func (c *Content) Ungroup(id string) ([]string, error) {
	o := c.Get(id)
	if o == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	if _, ok := o.(*drawing.Group); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, id)
	}
	return c.UngroupGroups([]string{id}), nil
}

// UngroupGroups dissolves every group among ids; other ids are ignored. The
// released members become the selection.
func (c *Content) UngroupGroups(ids []string) []string {
	var groups []*drawing.Group
	for _, o := range c.lookup(ids) {
		if g, ok := o.(*drawing.Group); ok {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return nil
	}
	var released []string
	c.action("ungroupGroups", []any{slices.Clone(ids)}, func() {
		for _, g := range groups {
			at := c.indexOf(g.ID())
			children := g.ReleaseChildren()
			c.removeAt(at)
			for i, child := range children {
				c.insert(at+i, child)
				released = append(released, child.ID())
			}
		}
	})
	c.SetSelection(released)
	return released
}

// MoveObjectAfter moves id to sit directly above afterID in z-order. An empty
// afterID moves it to the bottom.
func (c *Content) MoveObjectAfter(id, afterID string) error {
	from := c.indexOf(id)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	if afterID != "" && c.indexOf(afterID) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownObject, afterID)
	}
	if id == afterID {
		return nil
	}
	c.action("moveObjectAfter", []any{id, afterID}, func() {
		o := c.objects[from]
		c.objects = append(c.objects[:from], c.objects[from+1:]...)
		at := 0
		if afterID != "" {
			at = c.indexOf(afterID) + 1
		}
		c.objects = slices.Insert(c.objects, at, o)
	})
	return nil
}

func (c *Content) partition(ids []string) (picked, rest []drawing.Object) {
	for _, o := range c.objects {
		if slices.Contains(ids, o.ID()) {
			picked = append(picked, o)
		} else {
			rest = append(rest, o)
		}
	}
	return picked, rest
}

// MoveObjectsToFront raises the objects to the top, keeping their relative order.
func (c *Content) MoveObjectsToFront(ids []string) {
	picked, rest := c.partition(ids)
	if len(picked) == 0 {
		return
	}
	c.action("moveObjectsToFront", []any{slices.Clone(ids)}, func() {
		c.objects = append(rest, picked...)
	})
}

// MoveObjectsToBack lowers the objects to the bottom, keeping their relative order.
func (c *Content) MoveObjectsToBack(ids []string) {
	picked, rest := c.partition(ids)
	if len(picked) == 0 {
		return
	}
	c.action("moveObjectsToBack", []any{slices.Clone(ids)}, func() {
		c.objects = append(picked, rest...)
	})
}

// RotateObjects rotates the objects by deg, snapped to a multiple of 90.
func (c *Content) RotateObjects(ids []string, deg float64) {
	deg = math.Round(deg/90) * 90
	objs := c.lookup(ids)
	if len(objs) == 0 || vector.NormalizeRotation(deg) == 0 {
		return
	}
	c.action("rotateObjects", []any{slices.Clone(ids), deg}, func() {
		for _, o := range objs {
			o.SetRotation(o.Rotation() + deg)
		}
	})
}

// AddStamp appends a stamp to the palette.
func (c *Content) AddStamp(s Stamp) {
	c.action("addStamp", []any{s}, func() { c.stamps = append(c.stamps, s) })
}

// SetSelectedStamp selects the stamp at index i; out of range is ignored.
func (c *Content) SetSelectedStamp(i int) {
	if i < 0 || i >= len(c.stamps) {
		return
	}
	c.action("setSelectedStamp", []any{i}, func() { c.currentStamp = i })
}

// SetSettings replaces the toolbar defaults.
func (c *Content) SetSettings(s vector.ToolbarSettings) {
	c.action("setToolbarSettings", []any{s}, func() { c.settings = s })
}
