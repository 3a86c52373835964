/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drawing

import (
	"errors"
	"math"
	"testing"

	"drawtile/internal/vector"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func boxEq(a, b vector.BoundingBox) bool {
	return approx(a.NW.X, b.NW.X) && approx(a.NW.Y, b.NW.Y) && approx(a.SE.X, b.SE.X) && approx(a.SE.Y, b.SE.Y)
}

func rectAt(x, y, w, h, rot float64) *Rectangle {
	r := NewRectangle(x, y, w, h, vector.DefaultToolbarSettings)
	r.rotation = rot
	return r
}

func TestRotatedTopEdgeDrag(t *testing.T) {
	cases := []struct {
		rot              float64
		drag             vector.BoundingBox // unrotated box while dragging
		committedX, comY float64
	}{
		{0, vector.Box(100, 90, 50, 50), 100, 90},
		{90, vector.Box(90, 100, 60, 40), 95, 95},
		{180, vector.Box(100, 100, 50, 50), 100, 90},
		{270, vector.Box(100, 100, 60, 40), 95, 95},
	}
	for _, tc := range cases {
		for _, turns := range []float64{0, 360, -360} {
			r := rectAt(100, 100, 50, 40, tc.rot+turns)
			worldBefore := r.BoundingBox()
			r.SetDragBounds(vector.BoundingBoxDelta{Top: -10})
			if got := r.UnrotatedBoundingBox(); !boxEq(got, tc.drag) {
				t.Fatalf("rot=%v: drag box = %+v, want %+v", tc.rot+turns, got, tc.drag)
			}
			during := r.BoundingBox()
			if !approx(during.NW.Y, worldBefore.NW.Y-10) || !approx(during.SE.Y, worldBefore.SE.Y) {
				t.Fatalf("rot=%v: world box during drag %+v, before %+v", tc.rot+turns, during, worldBefore)
			}
			r.ResizeObject()
			if r.IsDragging() {
				t.Fatalf("rot=%v: drag state left after commit", tc.rot)
			}
			if !approx(r.x, tc.committedX) || !approx(r.y, tc.comY) {
				t.Fatalf("rot=%v: committed at (%v,%v), want (%v,%v)", tc.rot+turns, r.x, r.y, tc.committedX, tc.comY)
			}
			if after := r.BoundingBox(); !boxEq(after, during) {
				t.Fatalf("rot=%v: world box jumped on commit: %+v vs %+v", tc.rot, after, during)
			}
		}
	}
}

func TestSetUnrotatedDragBoundsIsNotCumulative(t *testing.T) {
	r := rectAt(10, 10, 20, 20, 0)
	d := vector.BoundingBoxDelta{Right: 5, Bottom: -3}
	r.SetUnrotatedDragBounds(d)
	first := r.UnrotatedBoundingBox()
	r.SetUnrotatedDragBounds(d)
	if !boxEq(first, r.UnrotatedBoundingBox()) {
		t.Fatalf("second call changed result: %+v vs %+v", first, r.UnrotatedBoundingBox())
	}
	r.ClearDrag()
	if r.IsDragging() || !boxEq(r.BoundingBox(), vector.Box(10, 10, 20, 20)) {
		t.Fatalf("ClearDrag left state: %+v", r.BoundingBox())
	}
}

func TestDragBoundsInvertedEdgesNormalize(t *testing.T) {
	r := rectAt(0, 0, 10, 10, 0)
	r.SetUnrotatedDragBounds(vector.BoundingBoxDelta{Right: -15})
	b := r.UnrotatedBoundingBox()
	if b.Width() < 0 || !approx(b.NW.X, -5) || !approx(b.SE.X, 0) {
		t.Fatalf("expected normalized box, got %+v", b)
	}
}

func TestDragPositionAndReposition(t *testing.T) {
	r := rectAt(0, 0, 10, 10, 0)
	r.SetDragPosition(5, 7)
	if r.x != 0 || r.y != 0 {
		t.Fatalf("drag must not touch persisted fields")
	}
	if p := r.Position(); p.X != 5 || p.Y != 7 {
		t.Fatalf("position = %+v", p)
	}
	r.RepositionObject()
	if r.x != 5 || r.y != 7 || r.IsDragging() {
		t.Fatalf("reposition did not commit: (%v,%v) dragging=%v", r.x, r.y, r.IsDragging())
	}
}

func TestEllipseRecentersOnResize(t *testing.T) {
	e := NewEllipse(50, 50, 10, 5, vector.DefaultToolbarSettings)
	if !boxEq(e.BoundingBox(), vector.Box(40, 45, 20, 10)) {
		t.Fatalf("bbox = %+v", e.BoundingBox())
	}
	e.SetUnrotatedDragBounds(vector.BoundingBoxDelta{Right: 10})
	e.ResizeObject()
	if !approx(e.x, 55) || !approx(e.y, 50) || !approx(e.rx, 15) || !approx(e.ry, 5) {
		t.Fatalf("ellipse = (%v,%v) r=(%v,%v)", e.x, e.y, e.rx, e.ry)
	}
	if !e.HitTest(vector.Pt(68, 50), 0) || e.HitTest(vector.Pt(68, 54), 0) {
		t.Fatalf("ellipse hit test wrong")
	}
}

func TestLineHitAndIntersect(t *testing.T) {
	style := vector.DefaultToolbarSettings
	l := NewLine(0, 0, []vector.Point{{X: 100, Y: 0}}, style)
	if !l.HitTest(vector.Pt(50, 3), 2) {
		t.Fatalf("expected hit within tolerance plus half stroke")
	}
	if l.HitTest(vector.Pt(50, 5), 2) {
		t.Fatalf("unexpected hit")
	}
	diag := NewLine(0, 0, []vector.Point{{X: 100, Y: 100}}, style)
	box := vector.BoundingBox{NW: vector.Pt(80, 0), SE: vector.Pt(100, 20)}
	if diag.IntersectsBox(box) {
		t.Fatalf("diagonal line must not intersect a box it does not cross")
	}
	if !diag.IntersectsBox(vector.Box(40, 40, 5, 5)) {
		t.Fatalf("expected intersection")
	}
}

func TestLineResizeScalesDeltas(t *testing.T) {
	l := NewLine(0, 0, []vector.Point{{X: 10, Y: 0}, {X: 10, Y: 10}}, vector.DefaultToolbarSettings)
	l.SetUnrotatedDragBounds(vector.BoundingBoxDelta{Right: 10})
	l.ResizeObject()
	got := l.DeltaPoints()
	if got[0] != vector.Pt(20, 0) || got[1] != vector.Pt(20, 10) {
		t.Fatalf("deltas = %+v", got)
	}
}

func TestVectorArrowheads(t *testing.T) {
	style := vector.DefaultToolbarSettings
	style.VectorType = vector.VectorDoubleArrow
	v := NewVector(0, 0, 50, 0, style)
	if n := len(v.Arrowheads()); n != 2 {
		t.Fatalf("expected 2 arrowheads, got %d", n)
	}
	v.SetVectorType(vector.VectorLine)
	if n := len(v.Arrowheads()); n != 0 || v.VectorType() != vector.VectorLine {
		t.Fatalf("expected plain line, got %d heads type %s", n, v.VectorType())
	}
}

func TestGroupResizeAndUngroup(t *testing.T) {
	a := rectAt(0, 0, 10, 10, 0)
	b := rectAt(20, 20, 10, 10, 0)
	g := NewGroup([]Object{a, b})
	if !boxEq(g.BoundingBox(), vector.Box(0, 0, 30, 30)) {
		t.Fatalf("group box = %+v", g.BoundingBox())
	}
	if sx, sy := g.Scale(); sx != 1 || sy != 1 {
		t.Fatalf("fresh group must have scale 1, got %v,%v", sx, sy)
	}
	g.SetUnrotatedDragBounds(vector.BoundingBoxDelta{Right: 30, Bottom: 30})
	g.ResizeObject()
	if a.x != 0 || a.width != 10 {
		t.Fatalf("group resize must not touch children")
	}
	children := g.ReleaseChildren()
	if len(children) != 2 || len(g.Objects()) != 0 {
		t.Fatalf("release returned %d children, group keeps %d", len(children), len(g.Objects()))
	}
	if !boxEq(a.BoundingBox(), vector.Box(0, 0, 20, 20)) || !boxEq(b.BoundingBox(), vector.Box(40, 40, 20, 20)) {
		t.Fatalf("ungrouped boxes = %+v %+v", a.BoundingBox(), b.BoundingBox())
	}
	if a.Parent() != nil {
		t.Fatalf("child still has a parent")
	}
}

func TestNestedGroupScale(t *testing.T) {
	snap := Snapshot{Type: TypeGroup, ID: "outer", Width: f64(5), Height: f64(5), Objects: []Snapshot{
		{Type: TypeGroup, ID: "inner", Width: f64(0.5), Height: f64(0.5), Objects: []Snapshot{
			{Type: TypeRectangle, ID: "leaf", Width: f64(2), Height: f64(2)},
		}},
	}}
	o, err := FromSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	var leaf Object
	Walk(o, func(x Object) bool {
		if x.ID() == "leaf" {
			leaf = x
		}
		return true
	})
	sx, sy := EffectiveScale(leaf)
	if !approx(sx, 2.5) || !approx(sy, 2.5) {
		t.Fatalf("effective scale = %v,%v", sx, sy)
	}
	if got := leaf.Path(); got != "/objects/outer/objects/inner/objects/leaf" {
		t.Fatalf("path = %s", got)
	}
}

func TestFitToContentForLegacyGroup(t *testing.T) {
	o, err := FromSnapshot(Snapshot{Type: TypeGroup, Objects: []Snapshot{
		{Type: TypeRectangle, X: 5, Y: 6, Width: f64(10), Height: f64(4)},
	}})
	if err != nil {
		t.Fatal(err)
	}
	g := o.(*Group)
	g.FitToContent()
	if !boxEq(g.BoundingBox(), vector.Box(5, 6, 10, 4)) {
		t.Fatalf("fitted box = %+v", g.BoundingBox())
	}
	if sx, _ := g.Scale(); sx != 1 {
		t.Fatalf("scale = %v", sx)
	}
}

type bogus struct{ baseObject }

func (b *bogus) ClearDrag()       {}
func (b *bogus) IsDragging() bool { return false }

func TestMissingContractPanics(t *testing.T) {
	b := &bogus{}
	b.bind(b, "", 0, 0)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("expected ErrNotImplemented panic, got %v", r)
		}
		var ce *ContractError
		if !errors.As(err, &ce) || ce.Method != "UnrotatedBoundingBox" {
			t.Fatalf("unexpected contract error %v", err)
		}
	}()
	b.BoundingBox()
}

type recorded struct {
	path, name string
	args       []any
}

type fakeRecorder struct{ log []recorded }

func (f *fakeRecorder) Record(path, name string, args []any, fn func()) {
	f.log = append(f.log, recorded{path, name, args})
	fn()
}

func TestMutationsGoThroughRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	r := rectAt(0, 0, 10, 10, 0)
	r.Attach(rec, nil, "")
	r.SetStroke("#ff0000")
	r.SetDragPosition(3, 3)
	r.RepositionObject()
	if len(rec.log) != 2 {
		t.Fatalf("expected 2 actions, got %+v", rec.log)
	}
	if rec.log[0].name != "setStroke" || rec.log[0].path != "/objects/"+r.ID() {
		t.Fatalf("unexpected action %+v", rec.log[0])
	}
	if r.Stroke() != "#ff0000" {
		t.Fatalf("stroke not applied")
	}
}

func TestFromSnapshotErrors(t *testing.T) {
	if _, err := FromSnapshot(Snapshot{Type: "hexagon"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	o, err := FromSnapshot(Snapshot{Type: TypeText, Text: str("hi")})
	if err != nil || o.ID() == "" {
		t.Fatalf("expected generated id, got %v %q", err, o.ID())
	}
}

func TestWithFreshIDs(t *testing.T) {
	s := Snapshot{Type: TypeGroup, ID: "g", Objects: []Snapshot{{Type: TypeRectangle, ID: "r"}}}
	c := WithFreshIDs(s)
	if c.ID == "g" || c.Objects[0].ID == "r" || s.Objects[0].ID != "r" {
		t.Fatalf("fresh ids not applied independently: %+v", c)
	}
}

func TestAbsentStyleFieldsUseToolbarDefaults(t *testing.T) {
	o, err := FromSnapshot(Snapshot{Type: TypeRectangle, ID: "r", Width: f64(5), Height: f64(5)})
	if err != nil {
		t.Fatal(err)
	}
	r := o.(*Rectangle)
	d := vector.DefaultToolbarSettings
	if r.Stroke() != d.Stroke || r.StrokeWidth() != d.StrokeWidth || r.Fill() != d.Fill {
		t.Fatalf("defaults = %q %v %q", r.Stroke(), r.StrokeWidth(), r.Fill())
	}

	o, err = FromSnapshot(Snapshot{Type: TypeRectangle, ID: "s", Width: f64(5), Height: f64(5),
		Stroke: str("none"), StrokeWidth: f64(0), Fill: str("#ff0000")})
	if err != nil {
		t.Fatal(err)
	}
	r = o.(*Rectangle)
	if r.Stroke() != "none" || r.StrokeWidth() != 0 || r.Fill() != "#ff0000" {
		t.Fatalf("explicit style overridden: %q %v %q", r.Stroke(), r.StrokeWidth(), r.Fill())
	}
}
