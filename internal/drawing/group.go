/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drawing

import (
	"drawtile/internal/vector"
)

// Group owns an ordered list of children drawn in its own coordinate frame. The
// group box (x, y, width, height) is the content box of the children stretched to
// fit; resizing a group only changes the group box, never the children.
type Group struct {
	baseObject
	objects []Object

	width, height         float64
	dragWidth, dragHeight *float64
}

// NewGroup wraps children into a group whose box equals their content box, so
// the initial scale is 1 and nothing moves on screen.
func NewGroup(children []Object) *Group {
	g := &Group{}
	g.bind(g, "", 0, 0)
	g.setChildren(children)
	cb := g.ContentBox()
	g.x, g.y, g.width, g.height = cb.NW.X, cb.NW.Y, cb.Width(), cb.Height()
	return g
}

func (g *Group) setChildren(children []Object) {
	g.objects = children
	for _, c := range children {
		c.Attach(g.rec, g, g.Path())
	}
}

func (g *Group) Type() ObjectType { return TypeGroup }

// Objects returns the children in draw order.
func (g *Group) Objects() []Object { return append([]Object(nil), g.objects...) }

func (g *Group) Attach(rec Recorder, parent *Group, parentPath string) {
	g.baseObject.Attach(rec, parent, parentPath)
	for _, c := range g.objects {
		c.Attach(rec, g, g.Path())
	}
}

func (g *Group) Detach() {
	g.baseObject.Detach()
	for _, c := range g.objects {
		c.Attach(nil, g, g.Path())
	}
}

// ContentBox is the union of the children's rotated boxes in the group frame.
func (g *Group) ContentBox() vector.BoundingBox {
	if len(g.objects) == 0 {
		return vector.Box(g.x, g.y, 0, 0)
	}
	b := g.objects[0].BoundingBox()
	for _, c := range g.objects[1:] {
		b = b.Union(c.BoundingBox())
	}
	return b
}

// Size returns the group box size with any in-flight resize applied.
func (g *Group) Size() (w, h float64) {
	w, h = g.width, g.height
	if g.dragWidth != nil {
		w = *g.dragWidth
	}
	if g.dragHeight != nil {
		h = *g.dragHeight
	}
	return w, h
}

// Scale is the ratio between the group box and the content box on each axis.
// A degenerate content axis scales by 1.
func (g *Group) Scale() (sx, sy float64) {
	cb := g.ContentBox()
	w, h := g.Size()
	sx, sy = 1, 1
	if cb.Width() > 0 {
		sx = w / cb.Width()
	}
	if cb.Height() > 0 {
		sy = h / cb.Height()
	}
	return sx, sy
}

// contentTransform maps the children's frame onto the unrotated group box.
func (g *Group) contentTransform() vector.Affine2D {
	cb := g.ContentBox()
	p := g.Position()
	sx, sy := g.Scale()
	return vector.Translate(p.X, p.Y).Mul(vector.Scale(sx, sy)).Mul(vector.Translate(-cb.NW.X, -cb.NW.Y))
}

// ChildTransform maps child coordinates into the group's parent frame.
func (g *Group) ChildTransform() vector.Affine2D {
	return g.rotationTransform().Mul(g.contentTransform())
}

// FitToContent gives a group without a box (width and height both 0) the content
// box of its children. Documents written before group transforms existed load
// this way.
func (g *Group) FitToContent() {
	if g.width != 0 || g.height != 0 {
		return
	}
	cb := g.ContentBox()
	g.mutate("fitToContent", nil, func() {
		g.x, g.y, g.width, g.height = cb.NW.X, cb.NW.Y, cb.Width(), cb.Height()
	})
}

func (g *Group) UndraggedUnrotatedBoundingBox() vector.BoundingBox {
	return vector.Box(g.x, g.y, g.width, g.height)
}

func (g *Group) UnrotatedBoundingBox() vector.BoundingBox {
	p := g.Position()
	w, h := g.Size()
	return vector.Box(p.X, p.Y, w, h)
}

func (g *Group) SetUnrotatedDragBounds(d vector.BoundingBoxDelta) {
	b := d.Apply(g.UndraggedUnrotatedBoundingBox())
	x, y, w, h := b.NW.X, b.NW.Y, b.Width(), b.Height()
	g.dragX, g.dragY, g.dragWidth, g.dragHeight = &x, &y, &w, &h
}

func (g *Group) ResizeObject() {
	if !g.IsDragging() {
		return
	}
	box := g.UnrotatedBoundingBox()
	off := g.commitOffset(box)
	g.mutate("resizeObject", nil, func() {
		g.x, g.y = box.NW.X+off.X, box.NW.Y+off.Y
		g.width, g.height = box.Width(), box.Height()
	})
	g.ClearDrag()
}

func (g *Group) ClearDrag() {
	g.clearBaseDrag()
	g.dragWidth, g.dragHeight = nil, nil
}

func (g *Group) IsDragging() bool {
	return g.baseDragging() || g.dragWidth != nil || g.dragHeight != nil
}

// HitTest hits when any child is hit in the group frame.
func (g *Group) HitTest(p vector.Point, tolerance float64) bool {
	q := g.ChildTransform().Invert().Apply(p)
	sx, sy := g.Scale()
	if s := min(sx, sy); s > 0 {
		tolerance /= s
	}
	for _, c := range g.objects {
		if c.HitTest(q, tolerance) {
			return true
		}
	}
	return false
}

// ReleaseChildren dissolves the group: every child is re-expressed in the
// group's parent frame with the group's scale folded into its own fields, and
// the group keeps no children.
func (g *Group) ReleaseChildren() []Object {
	xf := g.contentTransform()
	rot := g.rotation
	pivot := g.pivot()
	children := g.objects
	for _, c := range children {
		from := c.UndraggedUnrotatedBoundingBox()
		to := xf.ApplyBox(from)
		if d := vector.DeltaBetween(from, to); !d.IsZero() {
			c.SetUnrotatedDragBounds(d)
			c.ResizeObject()
		}
		if vector.NormalizeRotation(rot) != 0 {
			center := c.UnrotatedBoundingBox().Center()
			off := vector.RotatePoint(center, pivot, rot).Sub(center)
			p := c.Position()
			c.SetPosition(p.X+off.X, p.Y+off.Y)
			c.SetRotation(c.Rotation() + rot)
		}
		c.Detach()
	}
	g.objects = nil
	return children
}

func (g *Group) Snapshot() Snapshot {
	s := g.baseSnapshot(TypeGroup)
	s.Width, s.Height = f64(g.width), f64(g.height)
	s.Objects = make([]Snapshot, len(g.objects))
	for i, c := range g.objects {
		s.Objects[i] = c.Snapshot()
	}
	return s
}
