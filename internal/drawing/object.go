/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drawing implements the drawing-tile object model: a small scene graph of
// polymorphic shapes with rotation-aware bounding boxes, interactive drag state and
// group transforms.
//
// Every object separates persisted fields (x, y, size, style) from volatile drag
// fields. Gestures only ever write the volatile fields; persisted fields change when a
// gesture commits through ResizeObject or SetPosition, so a cancelled gesture leaves
// the model untouched.
package drawing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"drawtile/internal/vector"
)

// ObjectType is the discriminant stored in every snapshot.
type ObjectType string

const (
	TypeLine      ObjectType = "line"
	TypeVector    ObjectType = "vector"
	TypeRectangle ObjectType = "rectangle"
	TypeEllipse   ObjectType = "ellipse"
	TypeText      ObjectType = "text"
	TypeImage     ObjectType = "image"
	TypeGroup     ObjectType = "group"
)

var (
	ErrNotImplemented = errors.New("drawing: method not implemented by object type")
	ErrUnknownType    = errors.New("drawing: unknown object type")
	ErrMissingID      = errors.New("drawing: object id is required")
)

// ContractError is raised (via panic) when an object type fails to provide part of
// the Object contract. Adding a shape without the full contract must fail loudly.
type ContractError struct {
	Object string
	Method string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("drawing: %s does not implement %s", e.Object, e.Method)
}

func (e *ContractError) Unwrap() error { return ErrNotImplemented }

// Recorder receives every mutating action performed on an attached object.
// Implementations run fn exactly once.
type Recorder interface {
	Record(path, name string, args []any, fn func())
}

// Object is the contract shared by all drawing objects.
type Object interface {
	ID() string
	Type() ObjectType

	// Position is the anchor with any in-flight drag applied.
	Position() vector.Point
	Rotation() float64

	// BoundingBox is the world-space box after drag state and rotation.
	BoundingBox() vector.BoundingBox
	// UnrotatedBoundingBox includes drag state but not rotation.
	UnrotatedBoundingBox() vector.BoundingBox
	// UndraggedUnrotatedBoundingBox reflects persisted fields only.
	UndraggedUnrotatedBoundingBox() vector.BoundingBox

	SetPosition(x, y float64)
	SetRotation(deg float64)

	SetDragPosition(x, y float64)
	// SetDragBounds moves world-space edges; the deltas are mapped into the
	// object's local frame according to its rotation.
	SetDragBounds(d vector.BoundingBoxDelta)
	// SetUnrotatedDragBounds moves local-frame edges. It is always computed from
	// the persisted fields, never accumulated from earlier drag state.
	SetUnrotatedDragBounds(d vector.BoundingBoxDelta)
	// ResizeObject commits volatile size state into persisted fields.
	ResizeObject()
	// RepositionObject commits a volatile drag position.
	RepositionObject()
	ClearDrag()
	IsDragging() bool

	HitTest(p vector.Point, tolerance float64) bool
	IntersectsBox(b vector.BoundingBox) bool

	Snapshot() Snapshot

	Attach(rec Recorder, parent *Group, parentPath string)
	Detach()
	Parent() *Group
	Path() string

	base() *baseObject
}

// Stroked is implemented by objects carrying stroke properties.
type Stroked interface {
	Stroke() string
	StrokeWidth() float64
	StrokeDashArray() string
	SetStroke(color string)
	SetStrokeWidth(w float64)
	SetStrokeDashArray(dash string)
}

// Filled is implemented by objects carrying a fill.
type Filled interface {
	Fill() string
	SetFill(color string)
}

// NewID returns a fresh, stable object identifier.
func NewID() string { return uuid.NewString() }

type baseObject struct {
	self Object

	id       string
	x, y     float64
	rotation float64

	dragX, dragY *float64
	// dragPivot pins the rotation center to the persisted box while a
	// world-space resize is in flight.
	dragPivot *vector.Point

	rec        Recorder
	parent     *Group
	parentPath string
}

func (b *baseObject) bind(self Object, id string, x, y float64) {
	if id == "" {
		id = NewID()
	}
	b.self, b.id, b.x, b.y = self, id, x, y
}

func (b *baseObject) base() *baseObject { return b }

func (b *baseObject) obj() Object {
	if b.self == nil {
		panic(&ContractError{Object: "unbound object", Method: "bind"})
	}
	return b.self
}

func (b *baseObject) unimplemented(method string) {
	panic(&ContractError{Object: fmt.Sprintf("%T", b.self), Method: method})
}

func (b *baseObject) ID() string        { return b.id }
func (b *baseObject) Rotation() float64 { return b.rotation }
func (b *baseObject) Parent() *Group    { return b.parent }

func (b *baseObject) Type() ObjectType {
	b.unimplemented("Type")
	return ""
}

func (b *baseObject) UndraggedUnrotatedBoundingBox() vector.BoundingBox {
	b.unimplemented("UndraggedUnrotatedBoundingBox")
	return vector.BoundingBox{}
}

func (b *baseObject) UnrotatedBoundingBox() vector.BoundingBox {
	b.unimplemented("UnrotatedBoundingBox")
	return vector.BoundingBox{}
}

func (b *baseObject) SetUnrotatedDragBounds(vector.BoundingBoxDelta) {
	b.unimplemented("SetUnrotatedDragBounds")
}

func (b *baseObject) ResizeObject() { b.unimplemented("ResizeObject") }

func (b *baseObject) Snapshot() Snapshot {
	b.unimplemented("Snapshot")
	return Snapshot{}
}

func (b *baseObject) Position() vector.Point {
	p := vector.Point{X: b.x, Y: b.y}
	if b.dragX != nil {
		p.X = *b.dragX
	}
	if b.dragY != nil {
		p.Y = *b.dragY
	}
	return p
}

// pivot is the rotation center in world space.
func (b *baseObject) pivot() vector.Point {
	if b.dragPivot != nil {
		return *b.dragPivot
	}
	return b.obj().UnrotatedBoundingBox().Center()
}

func (b *baseObject) BoundingBox() vector.BoundingBox {
	return vector.RotatedBounds(b.obj().UnrotatedBoundingBox(), b.rotation, b.pivot())
}

// rotationTransform maps the unrotated local frame into world space.
func (b *baseObject) rotationTransform() vector.Affine2D {
	if vector.NormalizeRotation(b.rotation) == 0 {
		return vector.Identity
	}
	return vector.RotateAbout(b.rotation, b.pivot())
}

func (b *baseObject) SetPosition(x, y float64) {
	b.mutate("setPosition", []any{x, y}, func() {
		b.x, b.y = x, y
		b.dragX, b.dragY = nil, nil
	})
}

func (b *baseObject) SetRotation(deg float64) {
	deg = vector.NormalizeRotation(deg)
	b.mutate("setRotation", []any{deg}, func() { b.rotation = deg })
}

func (b *baseObject) SetDragPosition(x, y float64) {
	b.dragX, b.dragY = &x, &y
}

func (b *baseObject) RepositionObject() {
	if b.dragX == nil && b.dragY == nil {
		return
	}
	p := b.Position()
	b.obj().SetPosition(p.X, p.Y)
}

// SetDragBounds maps world-space edge deltas into the local frame by rotating them
// by -rotation and applies the result with SetUnrotatedDragBounds. The pivot stays
// at the persisted center until the gesture commits, which keeps the opposite
// world edge fixed.
func (b *baseObject) SetDragBounds(d vector.BoundingBoxDelta) {
	if vector.NormalizeRotation(b.rotation) == 0 {
		b.obj().SetUnrotatedDragBounds(d)
		return
	}
	c := b.obj().UndraggedUnrotatedBoundingBox().Center()
	b.dragPivot = &c
	b.obj().SetUnrotatedDragBounds(LocalDelta(d, b.rotation))
}

// LocalDelta rotates world-space edge deltas into an object's local frame.
// Each world edge moves the local edge(s) whose outward normal faces the same way.
func LocalDelta(d vector.BoundingBoxDelta, rotation float64) vector.BoundingBoxDelta {
	const eps = 1e-9
	inv := vector.Rotate(-rotation)
	var out vector.BoundingBoxDelta
	apply := func(normal, move vector.Point) {
		if move.X == 0 && move.Y == 0 {
			return
		}
		n := inv.Apply(normal)
		m := inv.Apply(move)
		switch {
		case n.X > eps:
			out.Right += m.X
		case n.X < -eps:
			out.Left += m.X
		}
		switch {
		case n.Y > eps:
			out.Bottom += m.Y
		case n.Y < -eps:
			out.Top += m.Y
		}
	}
	apply(vector.Point{X: 0, Y: -1}, vector.Point{X: 0, Y: d.Top})
	apply(vector.Point{X: 1, Y: 0}, vector.Point{X: d.Right, Y: 0})
	apply(vector.Point{X: 0, Y: 1}, vector.Point{X: 0, Y: d.Bottom})
	apply(vector.Point{X: -1, Y: 0}, vector.Point{X: d.Left, Y: 0})
	return out
}

// commitOffset returns the translation that keeps a rotated object's world
// appearance unchanged once its pivot moves to the center of the committed box.
func (b *baseObject) commitOffset(committed vector.BoundingBox) vector.Point {
	if b.dragPivot == nil || vector.NormalizeRotation(b.rotation) == 0 {
		return vector.Point{}
	}
	c := committed.Center()
	world := vector.RotatePoint(c, *b.dragPivot, b.rotation)
	return world.Sub(c)
}

func (b *baseObject) clearBaseDrag() {
	b.dragX, b.dragY, b.dragPivot = nil, nil, nil
}

func (b *baseObject) baseDragging() bool {
	return b.dragX != nil || b.dragY != nil || b.dragPivot != nil
}

func (b *baseObject) IntersectsBox(box vector.BoundingBox) bool {
	return b.obj().BoundingBox().Overlaps(box)
}

// HitTest tests the point against the unrotated box in the local frame.
func (b *baseObject) HitTest(p vector.Point, tolerance float64) bool {
	q := b.rotationTransform().Invert().Apply(p)
	return b.obj().UnrotatedBoundingBox().Inflate(tolerance).Contains(q)
}

func (b *baseObject) Attach(rec Recorder, parent *Group, parentPath string) {
	b.rec, b.parent, b.parentPath = rec, parent, parentPath
}

func (b *baseObject) Detach() { b.rec, b.parent, b.parentPath = nil, nil, "" }

func (b *baseObject) Path() string { return b.parentPath + "/objects/" + b.id }

// mutate routes a persisted change through the recorder when attached.
func (b *baseObject) mutate(name string, args []any, fn func()) {
	if b.rec == nil {
		fn()
		return
	}
	b.rec.Record(b.Path(), name, args, fn)
}

func (b *baseObject) baseSnapshot(t ObjectType) Snapshot {
	return Snapshot{Type: t, ID: b.id, X: b.x, Y: b.y, Rotation: b.rotation}
}

// WorldTransform returns the composed group transform that maps o's coordinates
// into the document's top-level frame.
func WorldTransform(o Object) vector.Affine2D {
	m := vector.Identity
	for g := o.Parent(); g != nil; g = g.Parent() {
		m = g.ChildTransform().Mul(m)
	}
	return m
}

// RenderTransform maps o's unrotated local frame into the document frame,
// combining its own rotation with every enclosing group transform.
func RenderTransform(o Object) vector.Affine2D {
	return WorldTransform(o).Mul(o.base().rotationTransform())
}

// EffectiveScale is the accumulated group scale applied to o when rendered.
func EffectiveScale(o Object) (sx, sy float64) {
	return WorldTransform(o).ScaleFactors()
}
