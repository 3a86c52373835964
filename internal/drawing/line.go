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

// polyShape is an anchor plus a list of offsets relative to that anchor. Line and
// Vector share it; a vector is the single-offset case.
type polyShape struct {
	baseObject
	strokeProps
	deltas []vector.Point

	dragScaleX, dragScaleY *float64
}

func (p *polyShape) initPoly(self Object, s Snapshot, deltas []vector.Point) {
	p.bind(self, s.ID, s.X, s.Y)
	p.rotation = s.Rotation
	p.strokeProps = strokeProps{host: &p.baseObject}
	p.strokeProps.loadFrom(s)
	p.deltas = deltas
}

func (p *polyShape) dragScale() (sx, sy float64) {
	sx, sy = 1, 1
	if p.dragScaleX != nil {
		sx = *p.dragScaleX
	}
	if p.dragScaleY != nil {
		sy = *p.dragScaleY
	}
	return sx, sy
}

// Points returns the absolute, unrotated vertices with drag state applied. The
// anchor is always the first vertex.
func (p *polyShape) Points() []vector.Point {
	a := p.Position()
	sx, sy := p.dragScale()
	pts := make([]vector.Point, 0, len(p.deltas)+1)
	pts = append(pts, a)
	for _, d := range p.deltas {
		pts = append(pts, a.Add(d.Mul(sx, sy)))
	}
	return pts
}

func (p *polyShape) undraggedPoints() []vector.Point {
	a := vector.Point{X: p.x, Y: p.y}
	pts := make([]vector.Point, 0, len(p.deltas)+1)
	pts = append(pts, a)
	for _, d := range p.deltas {
		pts = append(pts, a.Add(d))
	}
	return pts
}

func (p *polyShape) UndraggedUnrotatedBoundingBox() vector.BoundingBox {
	return vector.BoundsOf(p.undraggedPoints()...)
}

func (p *polyShape) UnrotatedBoundingBox() vector.BoundingBox {
	return vector.BoundsOf(p.Points()...)
}

// SetUnrotatedDragBounds scales the vertices so that their bounds fill the new box.
// A degenerate axis (a horizontal or vertical line) keeps scale 1 on that axis.
func (p *polyShape) SetUnrotatedDragBounds(d vector.BoundingBoxDelta) {
	old := p.UndraggedUnrotatedBoundingBox()
	nb := d.Apply(old)
	sx, sy := 1.0, 1.0
	if old.Width() > 0 {
		sx = nb.Width() / old.Width()
	}
	if old.Height() > 0 {
		sy = nb.Height() / old.Height()
	}
	x := nb.NW.X + (p.x-old.NW.X)*sx
	y := nb.NW.Y + (p.y-old.NW.Y)*sy
	if old.Width() == 0 {
		x = p.x + d.Left
	}
	if old.Height() == 0 {
		y = p.y + d.Top
	}
	p.dragX, p.dragY, p.dragScaleX, p.dragScaleY = &x, &y, &sx, &sy
}

func (p *polyShape) ResizeObject() {
	if !p.IsDragging() {
		return
	}
	box := p.UnrotatedBoundingBox()
	pos := p.Position().Add(p.commitOffset(box))
	sx, sy := p.dragScale()
	scaled := make([]vector.Point, len(p.deltas))
	for i, d := range p.deltas {
		scaled[i] = vector.Point{X: vector.FloatRound(d.X*sx, 6), Y: vector.FloatRound(d.Y*sy, 6)}
	}
	p.mutate("resizeObject", nil, func() {
		p.x, p.y = pos.X, pos.Y
		p.deltas = scaled
	})
	p.ClearDrag()
}

func (p *polyShape) ClearDrag() {
	p.clearBaseDrag()
	p.dragScaleX, p.dragScaleY = nil, nil
}

func (p *polyShape) IsDragging() bool {
	return p.baseDragging() || p.dragScaleX != nil || p.dragScaleY != nil
}

// HitTest measures the distance to each segment, widened by half the stroke width.
func (p *polyShape) HitTest(pt vector.Point, tolerance float64) bool {
	q := p.rotationTransform().Invert().Apply(pt)
	limit := tolerance + p.strokeWidth/2
	pts := p.Points()
	if len(pts) == 1 {
		return vector.DistanceToSegment(q, pts[0], pts[0]) <= limit
	}
	for i := 1; i < len(pts); i++ {
		if vector.DistanceToSegment(q, pts[i-1], pts[i]) <= limit {
			return true
		}
	}
	return false
}

// IntersectsBox is true only when a segment crosses the box, so a diagonal line
// whose bounds merely overlap the box is not selected.
func (p *polyShape) IntersectsBox(box vector.BoundingBox) bool {
	xf := p.rotationTransform()
	pts := p.Points()
	for i := range pts {
		pts[i] = xf.Apply(pts[i])
	}
	if len(pts) == 1 {
		return box.Contains(pts[0])
	}
	for i := 1; i < len(pts); i++ {
		if vector.SegmentIntersectsBox(pts[i-1], pts[i], box) {
			return true
		}
	}
	return false
}

// Line is a freehand polyline.
type Line struct {
	polyShape
}

func NewLine(x, y float64, deltas []vector.Point, style vector.ToolbarSettings) *Line {
	return lineFromSnapshot(Snapshot{
		Type: TypeLine, X: x, Y: y, DeltaPoints: deltas,
		Stroke: str(style.Stroke), StrokeWidth: f64(style.StrokeWidth),
		StrokeDashArray: str(style.StrokeDashArray),
	})
}

func lineFromSnapshot(s Snapshot) *Line {
	l := &Line{}
	l.initPoly(l, s, append([]vector.Point(nil), s.DeltaPoints...))
	return l
}

func (l *Line) Type() ObjectType { return TypeLine }

// DeltaPoints returns a copy of the persisted offsets.
func (l *Line) DeltaPoints() []vector.Point {
	return append([]vector.Point(nil), l.deltas...)
}

// AddPoint appends an absolute point, stored relative to the anchor.
func (l *Line) AddPoint(pt vector.Point) {
	d := pt.Sub(vector.Point{X: l.x, Y: l.y})
	l.mutate("addPoint", []any{d}, func() { l.deltas = append(l.deltas, d) })
}

func (l *Line) Snapshot() Snapshot {
	s := l.baseSnapshot(TypeLine)
	l.strokeProps.snapshotInto(&s)
	s.DeltaPoints = l.DeltaPoints()
	if s.DeltaPoints == nil {
		s.DeltaPoints = []vector.Point{}
	}
	return s
}

// Vector is a straight segment with optional arrowheads at either end.
type Vector struct {
	polyShape
	headShape, tailShape vector.ArrowShape
}

func NewVector(x, y, dx, dy float64, style vector.ToolbarSettings) *Vector {
	head, tail := style.VectorType.Endpoints()
	return vectorFromSnapshot(Snapshot{
		Type: TypeVector, X: x, Y: y, Dx: f64(dx), Dy: f64(dy), HeadShape: head, TailShape: tail,
		Stroke: str(style.Stroke), StrokeWidth: f64(style.StrokeWidth),
		StrokeDashArray: str(style.StrokeDashArray),
	})
}

func vectorFromSnapshot(s Snapshot) *Vector {
	v := &Vector{headShape: s.HeadShape, tailShape: s.TailShape}
	v.initPoly(v, s, []vector.Point{{X: deref(s.Dx), Y: deref(s.Dy)}})
	return v
}

func (v *Vector) Type() ObjectType { return TypeVector }

func (v *Vector) Delta() vector.Point { return v.deltas[0] }

func (v *Vector) SetDelta(dx, dy float64) {
	v.mutate("setDeltas", []any{dx, dy}, func() { v.deltas[0] = vector.Point{X: dx, Y: dy} })
}

func (v *Vector) VectorType() vector.VectorType {
	return vector.VectorTypeFor(v.headShape, v.tailShape)
}

func (v *Vector) SetVectorType(vt vector.VectorType) {
	head, tail := vt.Endpoints()
	v.mutate("setVectorType", []any{string(vt)}, func() { v.headShape, v.tailShape = head, tail })
}

// Arrowheads returns the triangles to draw, in the unrotated frame.
func (v *Vector) Arrowheads() []vector.Arrowhead {
	pts := v.Points()
	from, to := pts[0], pts[1]
	var out []vector.Arrowhead
	if v.headShape != vector.ArrowNone {
		out = append(out, vector.ComputeArrowhead(from, to, v.strokeWidth, vector.ArrowOptions{}))
	}
	if v.tailShape != vector.ArrowNone {
		out = append(out, vector.ComputeArrowhead(to, from, v.strokeWidth, vector.ArrowOptions{}))
	}
	return out
}

func (v *Vector) Snapshot() Snapshot {
	s := v.baseSnapshot(TypeVector)
	v.strokeProps.snapshotInto(&s)
	d := v.deltas[0]
	s.Dx, s.Dy = f64(d.X), f64(d.Y)
	s.HeadShape, s.TailShape = v.headShape, v.tailShape
	return s
}
