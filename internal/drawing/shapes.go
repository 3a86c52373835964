/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drawing

import (
	"math"

	"drawtile/internal/images"
	"drawtile/internal/textlayout"
	"drawtile/internal/vector"
)

// sizedShape is the common body of shapes anchored at their top-left corner.
type sizedShape struct {
	baseObject
	width, height         float64
	dragWidth, dragHeight *float64
}

func (s *sizedShape) init(self Object, snap Snapshot) {
	s.bind(self, snap.ID, snap.X, snap.Y)
	s.rotation = snap.Rotation
	s.width, s.height = deref(snap.Width), deref(snap.Height)
}

// Size returns the width and height with any in-flight resize applied.
func (s *sizedShape) Size() (w, h float64) {
	w, h = s.width, s.height
	if s.dragWidth != nil {
		w = *s.dragWidth
	}
	if s.dragHeight != nil {
		h = *s.dragHeight
	}
	return w, h
}

func (s *sizedShape) UndraggedUnrotatedBoundingBox() vector.BoundingBox {
	return vector.Box(s.x, s.y, s.width, s.height)
}

func (s *sizedShape) UnrotatedBoundingBox() vector.BoundingBox {
	p := s.Position()
	w, h := s.Size()
	return vector.Box(p.X, p.Y, w, h)
}

func (s *sizedShape) SetUnrotatedDragBounds(d vector.BoundingBoxDelta) {
	b := d.Apply(s.UndraggedUnrotatedBoundingBox())
	x, y, w, h := b.NW.X, b.NW.Y, b.Width(), b.Height()
	s.dragX, s.dragY, s.dragWidth, s.dragHeight = &x, &y, &w, &h
}

func (s *sizedShape) ResizeObject() {
	if !s.IsDragging() {
		return
	}
	box := s.UnrotatedBoundingBox()
	off := s.commitOffset(box)
	s.mutate("resizeObject", nil, func() {
		s.x, s.y = box.NW.X+off.X, box.NW.Y+off.Y
		s.width, s.height = box.Width(), box.Height()
	})
	s.ClearDrag()
}

// SetSize replaces the persisted size.
func (s *sizedShape) SetSize(w, h float64) {
	s.mutate("setSize", []any{w, h}, func() { s.width, s.height = w, h })
}

func (s *sizedShape) ClearDrag() {
	s.clearBaseDrag()
	s.dragWidth, s.dragHeight = nil, nil
}

func (s *sizedShape) IsDragging() bool {
	return s.baseDragging() || s.dragWidth != nil || s.dragHeight != nil
}

func (s *sizedShape) snapshotSize(snap *Snapshot) {
	snap.Width, snap.Height = f64(s.width), f64(s.height)
}

// Rectangle is a stroked and filled box.
type Rectangle struct {
	sizedShape
	strokeProps
	fillProps
}

func NewRectangle(x, y, w, h float64, style vector.ToolbarSettings) *Rectangle {
	return rectangleFromSnapshot(Snapshot{
		Type: TypeRectangle, X: x, Y: y, Width: f64(w), Height: f64(h),
		Stroke: str(style.Stroke), StrokeWidth: f64(style.StrokeWidth),
		StrokeDashArray: str(style.StrokeDashArray), Fill: str(style.Fill),
	})
}

func rectangleFromSnapshot(s Snapshot) *Rectangle {
	r := &Rectangle{}
	r.init(r, s)
	r.strokeProps = strokeProps{host: &r.baseObject}
	r.fillProps = fillProps{host: &r.baseObject}
	r.strokeProps.loadFrom(s)
	r.fillProps.loadFrom(s)
	return r
}

func (r *Rectangle) Type() ObjectType { return TypeRectangle }

func (r *Rectangle) Snapshot() Snapshot {
	s := r.baseSnapshot(TypeRectangle)
	r.strokeProps.snapshotInto(&s)
	r.fillProps.snapshotInto(&s)
	r.snapshotSize(&s)
	return s
}

// Ellipse is anchored at its center, unlike the other sized shapes.
type Ellipse struct {
	baseObject
	strokeProps
	fillProps
	rx, ry         float64
	dragRx, dragRy *float64
}

func NewEllipse(cx, cy, rx, ry float64, style vector.ToolbarSettings) *Ellipse {
	return ellipseFromSnapshot(Snapshot{
		Type: TypeEllipse, X: cx, Y: cy, Rx: f64(rx), Ry: f64(ry),
		Stroke: str(style.Stroke), StrokeWidth: f64(style.StrokeWidth),
		StrokeDashArray: str(style.StrokeDashArray), Fill: str(style.Fill),
	})
}

func ellipseFromSnapshot(s Snapshot) *Ellipse {
	e := &Ellipse{rx: deref(s.Rx), ry: deref(s.Ry)}
	e.bind(e, s.ID, s.X, s.Y)
	e.rotation = s.Rotation
	e.strokeProps = strokeProps{host: &e.baseObject}
	e.fillProps = fillProps{host: &e.baseObject}
	e.strokeProps.loadFrom(s)
	e.fillProps.loadFrom(s)
	return e
}

func (e *Ellipse) Type() ObjectType { return TypeEllipse }

// Radii returns rx and ry with any in-flight resize applied.
func (e *Ellipse) Radii() (rx, ry float64) {
	rx, ry = e.rx, e.ry
	if e.dragRx != nil {
		rx = *e.dragRx
	}
	if e.dragRy != nil {
		ry = *e.dragRy
	}
	return rx, ry
}

func (e *Ellipse) UndraggedUnrotatedBoundingBox() vector.BoundingBox {
	return vector.Box(e.x-e.rx, e.y-e.ry, 2*e.rx, 2*e.ry)
}

func (e *Ellipse) UnrotatedBoundingBox() vector.BoundingBox {
	c := e.Position()
	rx, ry := e.Radii()
	return vector.Box(c.X-rx, c.Y-ry, 2*rx, 2*ry)
}

// SetUnrotatedDragBounds recenters the ellipse on the midpoint of the new box.
func (e *Ellipse) SetUnrotatedDragBounds(d vector.BoundingBoxDelta) {
	b := d.Apply(e.UndraggedUnrotatedBoundingBox())
	c := b.Center()
	rx, ry := b.Width()/2, b.Height()/2
	e.dragX, e.dragY, e.dragRx, e.dragRy = &c.X, &c.Y, &rx, &ry
}

func (e *Ellipse) ResizeObject() {
	if !e.IsDragging() {
		return
	}
	box := e.UnrotatedBoundingBox()
	c := box.Center().Add(e.commitOffset(box))
	rx, ry := box.Width()/2, box.Height()/2
	e.mutate("resizeObject", nil, func() {
		e.x, e.y, e.rx, e.ry = c.X, c.Y, rx, ry
	})
	e.ClearDrag()
}

func (e *Ellipse) SetRadii(rx, ry float64) {
	e.mutate("setRadii", []any{rx, ry}, func() { e.rx, e.ry = rx, ry })
}

func (e *Ellipse) ClearDrag() {
	e.clearBaseDrag()
	e.dragRx, e.dragRy = nil, nil
}

func (e *Ellipse) IsDragging() bool {
	return e.baseDragging() || e.dragRx != nil || e.dragRy != nil
}

func (e *Ellipse) HitTest(p vector.Point, tolerance float64) bool {
	q := e.rotationTransform().Invert().Apply(p)
	c := e.Position()
	rx, ry := e.Radii()
	rx, ry = rx+tolerance, ry+tolerance
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx, dy := (q.X-c.X)/rx, (q.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

func (e *Ellipse) Snapshot() Snapshot {
	s := e.baseSnapshot(TypeEllipse)
	e.strokeProps.snapshotInto(&s)
	e.fillProps.snapshotInto(&s)
	s.Rx, s.Ry = f64(e.rx), f64(e.ry)
	return s
}

// Text is a stroked text box whose content wraps to the box width.
type Text struct {
	sizedShape
	strokeProps
	text string

	editing bool
	layout  *textLayoutCache
}

type textLayoutCache struct {
	text      string
	wrapWidth float64
	block     textlayout.Block
}

// TextRender is what a renderer needs to draw a text object. Transform counters
// the accumulated group scale so glyphs are never distorted.
type TextRender struct {
	Block     textlayout.Block
	WrapWidth float64
	Transform vector.Affine2D
}

func NewText(x, y, w, h float64, content string, style vector.ToolbarSettings) *Text {
	return textFromSnapshot(Snapshot{
		Type: TypeText, X: x, Y: y, Width: f64(w), Height: f64(h), Text: str(content),
		Stroke: str(style.Stroke), StrokeWidth: f64(style.StrokeWidth),
		StrokeDashArray: str(style.StrokeDashArray),
	})
}

func textFromSnapshot(s Snapshot) *Text {
	t := &Text{}
	t.init(t, s)
	t.strokeProps = strokeProps{host: &t.baseObject}
	t.strokeProps.loadFrom(s)
	if s.Text != nil {
		t.text = *s.Text
	}
	return t
}

func (t *Text) Type() ObjectType { return TypeText }
func (t *Text) Text() string     { return t.text }
func (t *Text) IsEditing() bool  { return t.editing }

// SetEditing toggles the transient in-place editing flag. It is never persisted.
func (t *Text) SetEditing(editing bool) { t.editing = editing }

func (t *Text) SetText(content string) {
	t.mutate("setText", []any{content}, func() { t.text = content })
	t.layout = nil
}

// InvalidateLayout forces the next Layout call to remeasure, e.g. after the
// container finished its own layout.
func (t *Text) InvalidateLayout() { t.layout = nil }

// Layout wraps the text for the width it occupies on screen. Lines are measured at
// the unscaled font size and the returned transform undoes the group scale.
func (t *Text) Layout(m textlayout.Measurer) TextRender {
	sx, sy := EffectiveScale(t)
	if sx == 0 || math.IsNaN(sx) {
		sx = 1
	}
	if sy == 0 || math.IsNaN(sy) {
		sy = 1
	}
	w, _ := t.Size()
	wrap := w * sx
	if t.layout == nil || t.layout.text != t.text || t.layout.wrapWidth != wrap {
		t.layout = &textLayoutCache{text: t.text, wrapWidth: wrap, block: textlayout.Layout(t.text, wrap, m)}
	}
	p := t.Position()
	xf := vector.Translate(p.X, p.Y).Mul(vector.Scale(1/sx, 1/sy)).Mul(vector.Translate(-p.X, -p.Y))
	return TextRender{Block: t.layout.block, WrapWidth: wrap, Transform: xf}
}

func (t *Text) Snapshot() Snapshot {
	s := t.baseSnapshot(TypeText)
	t.strokeProps.snapshotInto(&s)
	t.snapshotSize(&s)
	s.Text = str(t.text)
	return s
}

// Image references an external picture by canonical URL.
type Image struct {
	sizedShape
	url      string
	filename string
}

func NewImage(x, y, w, h float64, url, filename string) *Image {
	return imageFromSnapshot(Snapshot{
		Type: TypeImage, X: x, Y: y, Width: f64(w), Height: f64(h), URL: url, Filename: filename,
	})
}

func imageFromSnapshot(s Snapshot) *Image {
	im := &Image{}
	im.init(im, s)
	im.url, im.filename = images.NormalizeURL(s.URL), s.Filename
	return im
}

func (im *Image) Type() ObjectType { return TypeImage }
func (im *Image) URL() string      { return im.url }
func (im *Image) Filename() string { return im.filename }

func (im *Image) SetURL(url, filename string) {
	url = images.NormalizeURL(url)
	im.mutate("setUrl", []any{url, filename}, func() { im.url, im.filename = url, filename })
}

func (im *Image) Snapshot() Snapshot {
	s := im.baseSnapshot(TypeImage)
	s.URL, s.Filename = im.url, im.filename
	im.snapshotSize(&s)
	return s
}
