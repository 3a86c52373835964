/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// ArrowOptions controls generated arrowhead geometry.
type ArrowOptions struct {
	// Length is measured from the tip back along the segment.
	Length float64
	// Width is the size of the base opposite the tip.
	Width float64
}

// Arrowhead describes a triangular arrowhead at the end of a segment.
// Points are rounded to 3 decimals for deterministic output.
type Arrowhead struct {
	Tip       Point
	BaseLeft  Point
	BaseRight Point
	// Angle is the segment direction in degrees, from atan2.
	Angle float64
}

func (a Arrowhead) Polygon() []Point { return []Point{a.Tip, a.BaseLeft, a.BaseRight} }

// ComputeArrowhead builds the arrowhead sitting at tip for the segment from->tip.
// Zero options scale with the stroke width.
func ComputeArrowhead(from, tip Point, strokeWidth float64, opts ArrowOptions) Arrowhead {
	if strokeWidth <= 0 {
		strokeWidth = 1
	}
	if opts.Length <= 0 {
		opts.Length = math.Max(8, strokeWidth*4)
	}
	if opts.Width <= 0 {
		opts.Width = math.Max(8, strokeWidth*4)
	}
	vx, vy := tip.X-from.X, tip.Y-from.Y
	// Degenerate segment: point right deterministically.
	if vx == 0 && vy == 0 {
		vx = 1
	}
	angle := math.Atan2(vy, vx)
	rot := Rotate(angle * 180 / math.Pi)
	// Triangle in local space with the tip at the origin pointing along +x.
	half := opts.Width / 2
	local := [3]Point{{0, 0}, {-opts.Length, -half}, {-opts.Length, half}}
	xf := Translate(tip.X, tip.Y).Mul(rot)
	pts := [3]Point{}
	for i, p := range local {
		q := xf.Apply(p)
		pts[i] = Point{FloatRound(q.X, 3), FloatRound(q.Y, 3)}
	}
	return Arrowhead{
		Tip:       pts[0],
		BaseLeft:  pts[1],
		BaseRight: pts[2],
		Angle:     FloatRound(angle*180/math.Pi, 3),
	}
}
