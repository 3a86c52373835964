/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry and transforms for the drawing object model.
// Coordinates are float64 in a y-down screen space; angles are degrees,
// positive values rotate clockwise on screen.

import "math"

// Point is a 2D point or vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(o Point) Point        { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) Sub(o Point) Point        { return Point{p.X - o.X, p.Y - o.Y} }
func (p Point) Mul(sx, sy float64) Point { return Point{p.X * sx, p.Y * sy} }

// BoundingBox is an axis-aligned box given by its north-west and south-east corners.
type BoundingBox struct {
	NW Point `json:"nw"`
	SE Point `json:"se"`
}

// Box builds a bounding box from a top-left corner and a size.
func Box(x, y, w, h float64) BoundingBox {
	return BoundingBox{NW: Point{x, y}, SE: Point{x + w, y + h}}
}

func (b BoundingBox) Width() float64  { return b.SE.X - b.NW.X }
func (b BoundingBox) Height() float64 { return b.SE.Y - b.NW.Y }
func (b BoundingBox) Center() Point {
	return Point{(b.NW.X + b.SE.X) / 2, (b.NW.Y + b.SE.Y) / 2}
}

// Normalize swaps inverted edges so that NW is the minimum corner.
func (b BoundingBox) Normalize() BoundingBox {
	if b.NW.X > b.SE.X {
		b.NW.X, b.SE.X = b.SE.X, b.NW.X
	}
	if b.NW.Y > b.SE.Y {
		b.NW.Y, b.SE.Y = b.SE.Y, b.NW.Y
	}
	return b
}

func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.NW.X && p.Y >= b.NW.Y && p.X <= b.SE.X && p.Y <= b.SE.Y
}

// Overlaps reports whether the two boxes share any point, edges included.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.NW.X <= o.SE.X && o.NW.X <= b.SE.X && b.NW.Y <= o.SE.Y && o.NW.Y <= b.SE.Y
}

// Inflate returns a box grown by pad on all sides (negative shrinks).
func (b BoundingBox) Inflate(pad float64) BoundingBox {
	return BoundingBox{NW: Point{b.NW.X - pad, b.NW.Y - pad}, SE: Point{b.SE.X + pad, b.SE.Y + pad}}
}

// Union returns the minimal box containing both.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		NW: Point{math.Min(b.NW.X, o.NW.X), math.Min(b.NW.Y, o.NW.Y)},
		SE: Point{math.Max(b.SE.X, o.SE.X), math.Max(b.SE.Y, o.SE.Y)},
	}
}

func (b BoundingBox) Corners() [4]Point {
	return [4]Point{b.NW, {b.SE.X, b.NW.Y}, b.SE, {b.NW.X, b.SE.Y}}
}

// Sides returns the absolute edge positions of the box.
func (b BoundingBox) Sides() BoundingBoxSides {
	return BoundingBoxSides{Top: b.NW.Y, Right: b.SE.X, Bottom: b.SE.Y, Left: b.NW.X}
}

// BoundsOf returns the box enclosing all points. The zero box is returned for no points.
func BoundsOf(pts ...Point) BoundingBox {
	if len(pts) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{NW: pts[0], SE: pts[0]}
	for _, p := range pts[1:] {
		b.NW.X = math.Min(b.NW.X, p.X)
		b.NW.Y = math.Min(b.NW.Y, p.Y)
		b.SE.X = math.Max(b.SE.X, p.X)
		b.SE.Y = math.Max(b.SE.Y, p.Y)
	}
	return b
}

// BoundingBoxSides holds absolute edge positions.
type BoundingBoxSides struct {
	Top, Right, Bottom, Left float64
}

func (s BoundingBoxSides) Box() BoundingBox {
	return BoundingBox{NW: Point{s.Left, s.Top}, SE: Point{s.Right, s.Bottom}}.Normalize()
}

// BoundingBoxDelta holds per-edge coordinate deltas. Positive values move an
// edge right (left/right) or down (top/bottom).
type BoundingBoxDelta struct {
	Top, Right, Bottom, Left float64
}

func (d BoundingBoxDelta) IsZero() bool {
	return d.Top == 0 && d.Right == 0 && d.Bottom == 0 && d.Left == 0
}

// Apply moves the edges of b by d and normalizes the result.
func (d BoundingBoxDelta) Apply(b BoundingBox) BoundingBox {
	return BoundingBox{
		NW: Point{b.NW.X + d.Left, b.NW.Y + d.Top},
		SE: Point{b.SE.X + d.Right, b.SE.Y + d.Bottom},
	}.Normalize()
}

// DeltaBetween returns the edge deltas that turn from into to.
func DeltaBetween(from, to BoundingBox) BoundingBoxDelta {
	return BoundingBoxDelta{
		Top:    to.NW.Y - from.NW.Y,
		Right:  to.SE.X - from.SE.X,
		Bottom: to.SE.Y - from.SE.Y,
		Left:   to.NW.X - from.NW.X,
	}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyBox transforms the four corners of b and returns their bounds.
func (m Affine2D) ApplyBox(b BoundingBox) BoundingBox {
	c := b.Corners()
	return BoundsOf(m.Apply(c[0]), m.Apply(c[1]), m.Apply(c[2]), m.Apply(c[3]))
}

// ScaleFactors returns the x and y scale of an unrotated, unsheared transform.
func (m Affine2D) ScaleFactors() (sx, sy float64) {
	return math.Hypot(m.A, m.B), math.Hypot(m.C, m.D)
}

// Invert computes the inverse of m, or Identity if m is singular.
func (m Affine2D) Invert() Affine2D {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity
	}
	inv := 1 / det
	return Affine2D{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }

// Rotate returns a clockwise rotation by deg degrees about the origin.
func Rotate(deg float64) Affine2D {
	s, c := SinCos(deg)
	return Affine2D{A: c, B: s, C: -s, D: c}
}

// RotateAbout rotates by deg degrees about the pivot.
func RotateAbout(deg float64, pivot Point) Affine2D {
	return Translate(pivot.X, pivot.Y).Mul(Rotate(deg)).Mul(Translate(-pivot.X, -pivot.Y))
}

// NormalizeRotation maps any angle into [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r == 360 {
		return 0
	}
	return r
}

// SinCos returns sin and cos of deg degrees, exact for multiples of 90.
func SinCos(deg float64) (sin, cos float64) {
	r := NormalizeRotation(deg)
	switch r {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(r * math.Pi / 180)
}

// RotatePoint rotates p clockwise by deg degrees about the pivot.
func RotatePoint(p, pivot Point, deg float64) Point {
	return RotateAbout(deg, pivot).Apply(p)
}

// RotatedBounds returns the axis-aligned bounds of b rotated about pivot.
func RotatedBounds(b BoundingBox, deg float64, pivot Point) BoundingBox {
	if NormalizeRotation(deg) == 0 {
		return b
	}
	return RotateAbout(deg, pivot).ApplyBox(b)
}

// DistanceToSegment returns the distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// SegmentIntersectsBox reports whether any part of segment a-b lies inside box
// (Liang-Barsky clipping).
func SegmentIntersectsBox(a, b Point, box BoundingBox) bool {
	if box.Contains(a) || box.Contains(b) {
		return true
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}
	return clip(-dx, a.X-box.NW.X) &&
		clip(dx, box.SE.X-a.X) &&
		clip(-dy, a.Y-box.NW.Y) &&
		clip(dy, box.SE.Y-a.Y) &&
		t0 <= t1
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
