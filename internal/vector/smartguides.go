/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance at which snapping occurs.
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Anchor is a static box the moving box may align with. Higher weights win
// ties.
type Anchor struct {
	Box    BoundingBox
	Weight float64
}

// GuideLine is the visual feedback for one alignment. Orientation is
// "vertical" or "horizontal" and Kind is "edge" or "center".
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Point
	To          Point
}

type axisSnap struct {
	delta, dist float64
	guide       GuideLine
}

func (s *axisSnap) consider(delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	if dist/math.Max(1, weight) < s.dist {
		s.dist, s.delta, s.guide = dist, delta, g
	}
}

// ComputeSmartGuides snaps a moving box to the anchors, independently in X and
// Y. It returns the offset to add to the moving box and the guides to show.
func ComputeSmartGuides(moving BoundingBox, anchors []Anchor, opts SnapOptions) (Point, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	x := axisSnap{dist: math.Inf(1)}
	y := axisSnap{dist: math.Inf(1)}
	mc := moving.Center()

	for _, a := range anchors {
		b, ac := a.Box, a.Box.Center()
		vertical := func(pos float64, kind string) GuideLine { return guideForVertical(pos, moving, b, kind) }
		horizontal := func(pos float64, kind string) GuideLine { return guideForHorizontal(pos, moving, b, kind) }
		if opts.SnapToEdges {
			// same edges, then abutting edges
			x.consider(moving.NW.X-b.NW.X, opts.Threshold, a.Weight, vertical(b.NW.X, "edge"))
			x.consider(moving.SE.X-b.SE.X, opts.Threshold, a.Weight, vertical(b.SE.X, "edge"))
			x.consider(moving.NW.X-b.SE.X, opts.Threshold, a.Weight, vertical(b.SE.X, "edge"))
			x.consider(moving.SE.X-b.NW.X, opts.Threshold, a.Weight, vertical(b.NW.X, "edge"))
			y.consider(moving.NW.Y-b.NW.Y, opts.Threshold, a.Weight, horizontal(b.NW.Y, "edge"))
			y.consider(moving.SE.Y-b.SE.Y, opts.Threshold, a.Weight, horizontal(b.SE.Y, "edge"))
			y.consider(moving.NW.Y-b.SE.Y, opts.Threshold, a.Weight, horizontal(b.SE.Y, "edge"))
			y.consider(moving.SE.Y-b.NW.Y, opts.Threshold, a.Weight, horizontal(b.NW.Y, "edge"))
		}
		if opts.SnapToCenters {
			x.consider(mc.X-ac.X, opts.Threshold, a.Weight, vertical(ac.X, "center"))
			y.consider(mc.Y-ac.Y, opts.Threshold, a.Weight, horizontal(ac.Y, "center"))
		}
	}

	var off Point
	var guides []GuideLine
	if x.dist <= opts.Threshold {
		off.X = FloatRound(-x.delta, 3)
		guides = append(guides, x.guide)
	}
	if y.dist <= opts.Threshold {
		off.Y = FloatRound(-y.delta, 3)
		guides = append(guides, y.guide)
	}
	return off, guides
}

func guideForVertical(x float64, a, b BoundingBox, kind string) GuideLine {
	x = FloatRound(x, 3)
	return GuideLine{
		Orientation: "vertical",
		Kind:        kind,
		Position:    x,
		From:        Point{x, math.Min(a.NW.Y, b.NW.Y)},
		To:          Point{x, math.Max(a.SE.Y, b.SE.Y)},
	}
}

func guideForHorizontal(y float64, a, b BoundingBox, kind string) GuideLine {
	y = FloatRound(y, 3)
	return GuideLine{
		Orientation: "horizontal",
		Kind:        kind,
		Position:    y,
		From:        Point{math.Min(a.NW.X, b.NW.X), y},
		To:          Point{math.Max(a.SE.X, b.SE.X), y},
	}
}
