/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"testing"

	"drawtile/internal/drawing"
	"drawtile/internal/images"
	"drawtile/internal/vector"
)

func fp(v float64) *float64 { return &v }

func rect(id string, x, y, w, h float64) drawing.Snapshot {
	return drawing.Snapshot{Type: drawing.TypeRectangle, ID: id, X: x, Y: y, Width: fp(w), Height: fp(h)}
}

type actionLog struct{ actions []Action }

func (l *actionLog) LogAction(a Action) { l.actions = append(l.actions, a) }

func (l *actionLog) named(name string) []Action {
	var out []Action
	for _, a := range l.actions {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

func newDoc(t *testing.T, snaps ...drawing.Snapshot) (*Content, *actionLog) {
	t.Helper()
	log := &actionLog{}
	c := New(WithID("test"))
	for _, s := range snaps {
		if _, err := c.AddObject(s); err != nil {
			t.Fatalf("AddObject(%s): %v", s.ID, err)
		}
	}
	c.SetActionLogger(log)
	return c, log
}

func ids(c *Content) []string {
	var out []string
	for _, o := range c.Objects() {
		out = append(out, o.ID())
	}
	return out
}

func TestBulkStrokeIsOneActionPerProperty(t *testing.T) {
	c, log := newDoc(t, rect("a", 0, 0, 10, 10), rect("b", 20, 20, 10, 10))
	c.SetSelection([]string{"a", "b"})
	sel := c.Selection()
	c.SetStroke(sel, "#000000")
	c.SetStrokeWidth(sel, 2)

	for _, id := range []string{"a", "b"} {
		s := c.Get(id).(drawing.Stroked)
		if s.Stroke() != "#000000" || s.StrokeWidth() != 2 {
			t.Fatalf("%s: stroke=%q width=%v", id, s.Stroke(), s.StrokeWidth())
		}
	}
	if len(log.actions) != 2 {
		t.Fatalf("expected 2 actions, got %+v", log.actions)
	}
	for _, name := range []string{"setStroke", "setStrokeWidth"} {
		got := log.named(name)
		if len(got) != 1 || !reflect.DeepEqual(got[0].Args[0], []string{"a", "b"}) {
			t.Fatalf("%s: unexpected actions %+v", name, got)
		}
	}
	if c.Settings().StrokeWidth != 2 {
		t.Fatalf("toolbar default not updated")
	}
}

func TestAddObjectRejectsLiveObject(t *testing.T) {
	c, log := newDoc(t)
	live := drawing.NewRectangle(0, 0, 1, 1, vector.DefaultToolbarSettings)
	if _, err := c.AddObject(live); !errors.Is(err, ErrLiveObject) {
		t.Fatalf("expected ErrLiveObject, got %v", err)
	}
	if _, err := c.AddObject(42); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := c.AddObject(rect("x", 0, 0, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddObject(rect("x", 0, 0, 1, 1)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if len(log.actions) != 1 || log.actions[0].Name != "addObject" {
		t.Fatalf("unexpected actions %+v", log.actions)
	}
}

func TestMoveObjectAfterKeepsOtherOrder(t *testing.T) {
	c, _ := newDoc(t, rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1), rect("c", 0, 0, 1, 1), rect("d", 0, 0, 1, 1))
	if err := c.MoveObjectAfter("a", "c"); err != nil {
		t.Fatal(err)
	}
	if got := ids(c); !slices.Equal(got, []string{"b", "c", "a", "d"}) {
		t.Fatalf("order = %v", got)
	}
	if err := c.MoveObjectAfter("d", ""); err != nil {
		t.Fatal(err)
	}
	if got := ids(c); !slices.Equal(got, []string{"d", "b", "c", "a"}) {
		t.Fatalf("order = %v", got)
	}
	if err := c.MoveObjectAfter("zz", "a"); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected ErrUnknownObject, got %v", err)
	}
}

func TestFrontAndBack(t *testing.T) {
	c, _ := newDoc(t, rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1), rect("c", 0, 0, 1, 1), rect("d", 0, 0, 1, 1))
	c.MoveObjectsToFront([]string{"a", "c"})
	if got := ids(c); !slices.Equal(got, []string{"b", "d", "a", "c"}) {
		t.Fatalf("front order = %v", got)
	}
	c.MoveObjectsToBack([]string{"c"})
	if got := ids(c); !slices.Equal(got, []string{"c", "b", "d", "a"}) {
		t.Fatalf("back order = %v", got)
	}
}

func TestDuplicateOffsetsAndLogsOnce(t *testing.T) {
	c, log := newDoc(t, rect("a", 5, 7, 10, 10))
	added := c.DuplicateObjects([]string{"a"})
	if len(added) != 1 || added[0] == "a" {
		t.Fatalf("unexpected duplicate ids %v", added)
	}
	p := c.Get(added[0]).Position()
	if p.X != 15 || p.Y != 17 {
		t.Fatalf("duplicate at %+v", p)
	}
	if len(log.actions) != 1 || log.actions[0].Name != "duplicateObjects" {
		t.Fatalf("nested add must not be logged separately: %+v", log.actions)
	}
	if !slices.Equal(c.Selection(), added) {
		t.Fatalf("copies should be selected, got %v", c.Selection())
	}
}

func TestDeleteIsSelectionConsistent(t *testing.T) {
	c, log := newDoc(t, rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1), rect("c", 0, 0, 1, 1))
	c.SetSelection([]string{"a", "b"})
	c.DeleteObjects([]string{"a", "c"})
	if got := ids(c); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("objects = %v", got)
	}
	if got := c.Selection(); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("selection = %v", got)
	}
	before := len(log.actions)
	c.DeleteObjects([]string{"nope"})
	if len(log.actions) != before || len(c.Objects()) != 1 {
		t.Fatalf("deleting an unknown id must be a no-op")
	}
}

func TestGroupUngroupRoundTrip(t *testing.T) {
	c, log := newDoc(t,
		rect("a", 0, 0, 10, 10),
		drawing.Snapshot{Type: drawing.TypeEllipse, ID: "e", X: 50, Y: 40, Rx: fp(5), Ry: fp(8)},
		rect("top", 100, 100, 5, 5),
	)
	g, err := c.CreateGroup([]string{"a", "e"})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(c); !slices.Equal(got, []string{g.ID(), "top"}) {
		t.Fatalf("after group: %v", got)
	}
	if !slices.Equal(c.Selection(), []string{g.ID()}) {
		t.Fatalf("group should be selected")
	}
	released := c.UngroupGroups([]string{g.ID()})
	if !slices.Equal(released, []string{"a", "e"}) || !slices.Equal(ids(c), []string{"a", "e", "top"}) {
		t.Fatalf("after ungroup: released=%v objects=%v", released, ids(c))
	}
	s := c.Get("e").Snapshot()
	if s.X != 50 || s.Y != 40 || *s.Rx != 5 || *s.Ry != 8 {
		t.Fatalf("ellipse changed: %+v", s)
	}
	if got := c.Get("a").BoundingBox(); got != vector.Box(0, 0, 10, 10) {
		t.Fatalf("rect changed: %+v", got)
	}
	if len(log.named("createGroup")) != 1 || len(log.named("ungroupGroups")) != 1 || len(log.actions) != 2 {
		t.Fatalf("unexpected actions %+v", log.actions)
	}
	if _, err := c.Ungroup("a"); !errors.Is(err, ErrNotGroup) {
		t.Fatalf("expected ErrNotGroup, got %v", err)
	}
}

func TestGroupedObjectsLogWithNestedPath(t *testing.T) {
	c, log := newDoc(t, rect("a", 0, 0, 10, 10), rect("b", 20, 0, 10, 10))
	g, _ := c.CreateGroup([]string{"a", "b"})
	log.actions = nil
	c.Find("a").(drawing.Stroked).SetStroke("#ff0000")
	if len(log.actions) != 1 || log.actions[0].Path != "/objects/"+g.ID()+"/objects/a" {
		t.Fatalf("unexpected actions %+v", log.actions)
	}
}

func TestRotateSnapsToQuarterTurns(t *testing.T) {
	c, _ := newDoc(t, rect("a", 0, 0, 10, 20))
	c.RotateObjects([]string{"a"}, 100)
	if r := c.Get("a").Rotation(); r != 90 {
		t.Fatalf("rotation = %v", r)
	}
	c.RotateObjects([]string{"a"}, -180)
	if r := c.Get("a").Rotation(); r != 270 {
		t.Fatalf("rotation = %v", r)
	}
}

func TestSelectedButtonClearsSelection(t *testing.T) {
	c, _ := newDoc(t, rect("a", 0, 0, 1, 1))
	c.Select("a", "missing")
	if !slices.Equal(c.Selection(), []string{"a"}) {
		t.Fatalf("selection = %v", c.Selection())
	}
	c.SetSelectedButton(ToolRectangle)
	if len(c.Selection()) != 0 || c.SelectedButton() != ToolRectangle {
		t.Fatalf("switching tool must clear the selection")
	}
}

func TestStamps(t *testing.T) {
	c, log := newDoc(t)
	if _, ok := c.CurrentStamp(); ok {
		t.Fatalf("no stamp expected")
	}
	c.AddStamp(Stamp{URL: "a.png", Width: 10, Height: 10})
	c.AddStamp(Stamp{URL: "b.png", Width: 20, Height: 20})
	c.SetSelectedStamp(1)
	c.SetSelectedStamp(9)
	if s, ok := c.CurrentStamp(); !ok || s.URL != "b.png" {
		t.Fatalf("current stamp = %+v", s)
	}
	if len(log.actions) != 3 {
		t.Fatalf("unexpected actions %+v", log.actions)
	}
}

func TestSnapshotRoundTripIsStable(t *testing.T) {
	c, _ := newDoc(t, rect("a", 1, 2, 3, 4), drawing.Snapshot{Type: drawing.TypeLine, ID: "l", DeltaPoints: []vector.Point{{X: 1, Y: 1}}})
	c.AddStamp(Stamp{URL: "s.png", Width: 1, Height: 1})
	first, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var s Snapshot
	if err := json.Unmarshal(first, &s); err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(FromSnapshot(s))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("round trip differs:\n%s\n%s", first, second)
	}
}

func TestApplySnapshotPrunesSelection(t *testing.T) {
	c, log := newDoc(t, rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1))
	c.SetSelection([]string{"a", "b"})
	s := Empty()
	s.Objects = []drawing.Snapshot{rect("b", 5, 5, 1, 1)}
	c.ApplySnapshot(s)
	if !slices.Equal(ids(c), []string{"b"}) || !slices.Equal(c.Selection(), []string{"b"}) {
		t.Fatalf("objects=%v selection=%v", ids(c), c.Selection())
	}
	if len(log.actions) != 1 || log.actions[0].Name != "applySnapshot" {
		t.Fatalf("unexpected actions %+v", log.actions)
	}
}

func TestLegacyGroupIsFitted(t *testing.T) {
	s := Empty()
	s.Objects = []drawing.Snapshot{{Type: drawing.TypeGroup, ID: "g", Width: fp(0), Height: fp(0),
		Objects: []drawing.Snapshot{rect("a", 10, 10, 10, 10), rect("b", 30, 30, 10, 10)}}}
	c := FromSnapshot(s)
	if got := c.Get("g").BoundingBox(); got != vector.Box(10, 10, 30, 30) {
		t.Fatalf("group box = %+v", got)
	}
}

type fakeResolver struct {
	pending []func()
	entry   images.Entry
}

func (f *fakeResolver) Resolve(url, filename string, done func(images.Entry)) {
	f.pending = append(f.pending, func() { done(f.entry) })
}

func imageSnap(id string, w, h float64) drawing.Snapshot {
	return drawing.Snapshot{Type: drawing.TypeImage, ID: id, URL: "http://x.test/" + id, Width: fp(w), Height: fp(h)}
}

func TestBackfillSkipsDeletedImages(t *testing.T) {
	c, log := newDoc(t, imageSnap("keep", 0, 0), imageSnap("gone", 0, 0))
	r := &fakeResolver{entry: images.Entry{Width: 64, Height: 48}}
	c.BackfillImageSizes(r)
	c.DeleteObjects([]string{"gone"})
	for _, fn := range r.pending {
		fn()
	}
	w, h := c.Get("keep").(*drawing.Image).Size()
	if w != 64 || h != 48 {
		t.Fatalf("size not filled: %vx%v", w, h)
	}
	if n := len(log.named("setSize")); n != 1 {
		t.Fatalf("expected one setSize action, got %d", n)
	}
}

func TestBackfillKeepsSizesAlreadySet(t *testing.T) {
	c, log := newDoc(t, imageSnap("resized", 200, 100), imageSnap("stamp", 32, 32), imageSnap("late", 0, 0))
	im := c.Get("resized").(*drawing.Image)
	im.SetUnrotatedDragBounds(vector.BoundingBoxDelta{Right: -100, Bottom: -50})
	c.ResizeObjects([]string{"resized"})
	if w, h := im.Size(); w != 100 || h != 50 {
		t.Fatalf("resize = %vx%v", w, h)
	}

	r := &fakeResolver{entry: images.Entry{Width: 200, Height: 100}}
	c.BackfillImageSizes(r)
	if len(r.pending) != 1 {
		t.Fatalf("resolved %d images, want only the unsized one", len(r.pending))
	}
	// the unsized image gets a size before its load finishes
	c.Get("late").(*drawing.Image).SetSize(10, 20)
	for _, fn := range r.pending {
		fn()
	}

	for id, want := range map[string][2]float64{"resized": {100, 50}, "stamp": {32, 32}, "late": {10, 20}} {
		if w, h := c.Get(id).(*drawing.Image).Size(); w != want[0] || h != want[1] {
			t.Errorf("%s = %vx%v, want %vx%v", id, w, h, want[0], want[1])
		}
	}
	if n := len(log.named("setSize")); n != 1 {
		t.Fatalf("setSize logged %d times, want only the manual one", n)
	}
}

func TestFanOutSkipsNil(t *testing.T) {
	a, b := &actionLog{}, &actionLog{}
	c := New(WithActionLogger(FanOut(a, nil, b)))
	if _, err := c.AddObject(rect("r", 0, 0, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if len(a.actions) != 1 || len(b.actions) != 1 {
		t.Fatalf("fan out failed: %d %d", len(a.actions), len(b.actions))
	}
}

func TestUnknownIDsAreNotLogged(t *testing.T) {
	c, log := newDoc(t, rect("a", 0, 0, 10, 10))
	c.MoveObjects([]Move{{ID: "ghost", Destination: vector.Point{X: 5, Y: 5}}})
	c.DeleteObjects([]string{"ghost"})
	c.ResizeObjects([]string{"ghost"})
	if len(log.actions) != 0 {
		t.Fatalf("unknown ids logged %+v", log.actions)
	}

	c.MoveObjects([]Move{{ID: "ghost"}, {ID: "a", Destination: vector.Point{X: 5, Y: 6}}})
	if n := len(log.named("moveObjects")); n != 1 {
		t.Fatalf("moveObjects logged %d times", n)
	}
	if p := c.Get("a").Position(); p != (vector.Point{X: 5, Y: 6}) {
		t.Fatalf("a at %v", p)
	}
}
