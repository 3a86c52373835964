/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interact

import (
	"log/slog"
	"math"
	"slices"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/vector"
)

// boxGesture is a rubber-band selection started on empty canvas.
type boxGesture struct {
	start   vector.Point
	extend  bool
	initial []string
	moved   bool
}

func (g *boxGesture) move(e *Engine, ev PointerEvent) {
	b := vector.BoundsOf(g.start, ev.Point)
	e.selectionBox = &b
	g.moved = g.moved || ev.Point != g.start
	e.doc.SetSelection(g.selection(e, b))
}

func (g *boxGesture) selection(e *Engine, b vector.BoundingBox) []string {
	hits := e.doc.ObjectsInBox(b)
	if !g.extend {
		return hits
	}
	out := slices.Clone(g.initial)
	for _, id := range hits {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (g *boxGesture) end(e *Engine, ev PointerEvent) {
	if !g.moved && ev.Point == g.start {
		if !g.extend {
			e.doc.ClearSelection()
		}
		return
	}
	e.doc.SetSelection(g.selection(e, vector.BoundsOf(g.start, ev.Point)))
}

func (g *boxGesture) cancel(e *Engine) { e.doc.SetSelection(g.initial) }

// moveGesture drags every selected object by the pointer delta.
type moveGesture struct {
	target      string
	wasSelected bool
	extend      bool
	start       vector.Point
	objects     []drawing.Object
	origins     []vector.Point
	box         vector.BoundingBox
	moved       bool
}

func (e *Engine) beginMove(o drawing.Object, ev PointerEvent) {
	g := &moveGesture{target: o.ID(), wasSelected: e.doc.IsSelected(o.ID()), extend: ev.Mods.Extend(), start: ev.Point}
	if !g.wasSelected {
		if g.extend {
			e.doc.Select(o.ID())
		} else {
			e.doc.SetSelection([]string{o.ID()})
		}
	}
	for _, id := range e.doc.Selection() {
		if obj := e.doc.Get(id); obj != nil {
			g.objects = append(g.objects, obj)
			g.origins = append(g.origins, obj.Position())
			if len(g.objects) == 1 {
				g.box = obj.BoundingBox()
			} else {
				g.box = g.box.Union(obj.BoundingBox())
			}
		}
	}
	e.begin(g)
}

func (g *moveGesture) move(e *Engine, ev PointerEvent) {
	d := ev.Point.Sub(g.start)
	if d.X == 0 && d.Y == 0 && !g.moved {
		return
	}
	g.moved = true
	d = g.snap(e, d, ev.Mods)
	for i, o := range g.objects {
		p := g.origins[i].Add(d)
		o.SetDragPosition(p.X, p.Y)
	}
}

func (g *moveGesture) end(e *Engine, ev PointerEvent) {
	g.move(e, ev)
	if !g.moved {
		g.click(e)
		return
	}
	moves := make([]document.Move, 0, len(g.objects))
	for _, o := range g.objects {
		moves = append(moves, document.Move{ID: o.ID(), Destination: o.Position()})
		o.ClearDrag()
	}
	e.doc.MoveObjects(moves)
}

// snap adjusts the drag delta so the moved selection lines up with objects
// outside it.
func (g *moveGesture) snap(e *Engine, d vector.Point, mods Modifiers) vector.Point {
	e.guides = nil
	opts := e.opts.Snap
	if mods.Alt || (!opts.SnapToEdges && !opts.SnapToCenters) {
		return d
	}
	var anchors []vector.Anchor
	for _, o := range e.doc.Objects() {
		if !e.doc.IsSelected(o.ID()) {
			anchors = append(anchors, vector.Anchor{Box: o.BoundingBox(), Weight: 1})
		}
	}
	moving := vector.BoundingBox{NW: g.box.NW.Add(d), SE: g.box.SE.Add(d)}
	off, guides := vector.ComputeSmartGuides(moving, anchors, opts)
	e.guides = guides
	return d.Add(off)
}

// click applies the selection rules for a press without movement: a
// modifier-click on a selected object toggles it off, a plain click leaves it
// as the sole selection.
func (g *moveGesture) click(e *Engine) {
	for _, o := range g.objects {
		o.ClearDrag()
	}
	if !g.wasSelected {
		return
	}
	if g.extend {
		e.doc.ToggleSelected(g.target)
		return
	}
	e.doc.SetSelection([]string{g.target})
}

func (g *moveGesture) cancel(*Engine) {
	for _, o := range g.objects {
		o.ClearDrag()
	}
}

// resizeGesture scales the selection's combined box by one corner handle. Each
// object's world box is mapped proportionally into the new combined box.
type resizeGesture struct {
	handle  Handle
	press   vector.Point
	start   vector.BoundingBox
	objects []drawing.Object
	boxes   []vector.BoundingBox
	changed bool
}

func (e *Engine) beginResize(h Handle, ev PointerEvent) {
	g := &resizeGesture{handle: h, press: ev.Point}
	for _, id := range e.doc.Selection() {
		if o := e.doc.Get(id); o != nil {
			g.objects = append(g.objects, o)
			g.boxes = append(g.boxes, o.BoundingBox())
		}
	}
	if len(g.objects) == 0 {
		return
	}
	g.start = g.boxes[0]
	for _, b := range g.boxes[1:] {
		g.start = g.start.Union(b)
	}
	e.begin(g)
}

// target moves the corners under the handle by the pointer travel since press.
func (g *resizeGesture) target(p vector.Point) vector.BoundingBox {
	d := p.Sub(g.press)
	s := g.start.Sides()
	switch g.handle {
	case HandleNW:
		s.Left += d.X
		s.Top += d.Y
	case HandleNE:
		s.Right += d.X
		s.Top += d.Y
	case HandleSE:
		s.Right += d.X
		s.Bottom += d.Y
	case HandleSW:
		s.Left += d.X
		s.Bottom += d.Y
	}
	return s.Box()
}

func (g *resizeGesture) move(_ *Engine, ev PointerEvent) {
	to := g.target(ev.Point)
	if to == g.start && !g.changed {
		return
	}
	g.changed = true
	for i, o := range g.objects {
		o.SetDragBounds(vector.DeltaBetween(g.boxes[i], mapBox(g.boxes[i], g.start, to)))
	}
}

func (g *resizeGesture) end(e *Engine, ev PointerEvent) {
	g.move(e, ev)
	if !g.changed {
		g.cancel(e)
		return
	}
	ids := make([]string, len(g.objects))
	for i, o := range g.objects {
		ids[i] = o.ID()
	}
	e.doc.ResizeObjects(ids)
}

func (g *resizeGesture) cancel(*Engine) {
	for _, o := range g.objects {
		o.ClearDrag()
	}
}

// mapBox maps b from the frame of box from into the frame of box to. A
// degenerate source axis keeps b's extent and only translates.
func mapBox(b, from, to vector.BoundingBox) vector.BoundingBox {
	sx, sy := 1.0, 1.0
	if w := from.Width(); w != 0 {
		sx = to.Width() / w
	}
	if h := from.Height(); h != 0 {
		sy = to.Height() / h
	}
	m := vector.Translate(to.NW.X, to.NW.Y).Mul(vector.Scale(sx, sy)).Mul(vector.Translate(-from.NW.X, -from.NW.Y))
	return m.ApplyBox(b)
}

// drawGesture grows the transient object created on pointer down.
type drawGesture struct {
	tool  document.Tool
	start vector.Point
	last  vector.Point
}

func (e *Engine) newDrawing(tool document.Tool, p vector.Point) drawing.Object {
	st := e.doc.Settings()
	switch tool {
	case document.ToolRectangle:
		return drawing.NewRectangle(p.X, p.Y, 0, 0, st)
	case document.ToolEllipse:
		return drawing.NewEllipse(p.X, p.Y, 0, 0, st)
	case document.ToolLine:
		return drawing.NewLine(p.X, p.Y, nil, st)
	case document.ToolVector:
		return drawing.NewVector(p.X, p.Y, 0, 0, st)
	case document.ToolText:
		return drawing.NewText(p.X, p.Y, 0, 0, "", st)
	}
	return nil
}

func (g *drawGesture) move(e *Engine, ev PointerEvent) {
	p, constrain := ev.Point, ev.Mods.Constrain()
	if p == g.last {
		return
	}
	g.last = p
	switch o := e.current.(type) {
	case *drawing.Rectangle:
		b := squareFrom(g.start, p, constrain)
		o.SetPosition(b.NW.X, b.NW.Y)
		o.SetSize(b.Width(), b.Height())
	case *drawing.Text:
		b := vector.BoundsOf(g.start, p)
		o.SetPosition(b.NW.X, b.NW.Y)
		o.SetSize(b.Width(), b.Height())
	case *drawing.Ellipse:
		rx, ry := math.Abs(p.X-g.start.X), math.Abs(p.Y-g.start.Y)
		if constrain {
			rx = math.Max(rx, ry)
			ry = rx
		}
		o.SetRadii(rx, ry)
	case *drawing.Line:
		o.AddPoint(p)
	case *drawing.Vector:
		o.SetDelta(p.X-g.start.X, p.Y-g.start.Y)
	}
}

// squareFrom is the box spanned by a and b, optionally forced to a square
// that grows away from a.
func squareFrom(a, b vector.Point, square bool) vector.BoundingBox {
	if !square {
		return vector.BoundsOf(a, b)
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	side := math.Max(math.Abs(dx), math.Abs(dy))
	return vector.BoundsOf(a, vector.Point{X: a.X + math.Copysign(side, dx), Y: a.Y + math.Copysign(side, dy)})
}

func (g *drawGesture) end(e *Engine, ev PointerEvent) {
	g.move(e, ev)
	obj := e.current
	if t, ok := obj.(*drawing.Text); ok && degenerate(t) {
		sz := e.opts.DefaultTextSize
		t.SetPosition(g.start.X, g.start.Y)
		t.SetSize(sz.X, sz.Y)
	}
	if degenerate(obj) {
		return
	}
	added, err := e.doc.AddObject(obj.Snapshot())
	if err != nil {
		e.log.Warn("drawing not added", slog.String("tool", string(g.tool)), slog.Any("err", err))
		return
	}
	if t, ok := added.(*drawing.Text); ok {
		e.doc.SetSelection([]string{t.ID()})
		e.pendingEdit = t
	}
}

func (g *drawGesture) cancel(*Engine) {}

// degenerate reports whether a freshly drawn object has no extent.
func degenerate(o drawing.Object) bool {
	switch x := o.(type) {
	case *drawing.Line:
		for _, d := range x.DeltaPoints() {
			if d.X != 0 || d.Y != 0 {
				return false
			}
		}
		return true
	case *drawing.Vector:
		d := x.Delta()
		return d.X == 0 && d.Y == 0
	}
	b := o.UnrotatedBoundingBox()
	return b.Width() == 0 || b.Height() == 0
}
