/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestComputeSmartGuides_SnapToEdges(t *testing.T) {
	anchor := Box(0, 0, 200, 100)
	moving := Box(3, 4, 80, 40) // near top-left edges
	opts := SnapOptions{Threshold: 6, SnapToEdges: true}

	off, guides := ComputeSmartGuides(moving, []Anchor{{Box: anchor, Weight: 1}}, opts)
	if off != (Point{-3, -4}) {
		t.Fatalf("offset = %+v, want (-3,-4)", off)
	}
	var vOK, hOK bool
	for _, g := range guides {
		if g.Orientation == "vertical" && g.Position == 0 {
			vOK = true
		}
		if g.Orientation == "horizontal" && g.Position == 0 {
			hOK = true
		}
	}
	if !vOK || !hOK {
		t.Fatalf("expected guides at x=0 (%v) and y=0 (%v)", vOK, hOK)
	}
}

func TestComputeSmartGuides_SnapToCenters(t *testing.T) {
	anchor := Box(0, 0, 200, 100)
	moving := Box(48, 17, 100, 60) // center (98,47)
	off, guides := ComputeSmartGuides(moving, []Anchor{{Box: anchor, Weight: 1}}, SnapOptions{Threshold: 5, SnapToCenters: true})
	if off != (Point{2, 3}) {
		t.Fatalf("offset = %+v, want (2,3)", off)
	}
	if len(guides) != 2 || guides[0].Kind != "center" || guides[0].Position != 100 || guides[1].Position != 50 {
		t.Fatalf("guides = %+v", guides)
	}
	if guides[0].From.Y != 0 || guides[0].To.Y != 100 {
		t.Errorf("vertical guide should span both boxes: %+v", guides[0])
	}
}

func TestComputeSmartGuides_ThresholdPreventsSnap(t *testing.T) {
	off, guides := ComputeSmartGuides(Box(10, 10, 50, 20), []Anchor{{Box: Box(0, 0, 200, 100), Weight: 1}}, SnapOptions{Threshold: 5, SnapToEdges: true})
	if off != (Point{}) || len(guides) != 0 {
		t.Fatalf("expected no snapping; got %+v %v", off, guides)
	}
}

func TestComputeSmartGuides_PicksClosestAxisIndependently(t *testing.T) {
	anchors := []Anchor{
		{Box: Box(0, 0, 100, 100), Weight: 1},
		{Box: Box(300, 0, 100, 100), Weight: 1},
	}
	// left edge near x=0, top edge near the first anchor's bottom
	off, _ := ComputeSmartGuides(Box(2, 97, 80, 80), anchors, SnapOptions{Threshold: 5, SnapToEdges: true})
	if off != (Point{-2, 3}) {
		t.Fatalf("offset = %+v, want (-2,3)", off)
	}
}
