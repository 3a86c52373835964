/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	xvector "golang.org/x/image/vector"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/textlayout"
	"drawtile/internal/vector"
)

var frameColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// PNG rasterizes doc at opts.DPI. Shapes are filled with the x/image vector
// rasterizer; text and images are resampled through their full transform.
func PNG(doc *document.Content, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	sc := newScene(doc, opts)
	scale := float64(opts.DPI) / 72.0
	pixW := int(math.Ceil(sc.width * scale))
	pixH := int(math.Ceil(sc.height * scale))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	if bg, ok := parseColor(opts.Background); ok {
		draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	}
	cv := &canvas{img: img, r: xvector.NewRasterizer(pixW, pixH)}

	meas := opts.Fonts.Measurer(opts.FontFamily, opts.FontSize)
	dpi := vector.Scale(scale, scale)
	for _, it := range sc.items {
		m := dpi.Mul(it.m)
		p := paintOf(it.obj)
		sw := p.strokeWidth * lineScale(m)
		dash := scaleDash(p.dash, lineScale(m))
		switch v := it.obj.(type) {
		case *drawing.Rectangle:
			c := v.UnrotatedBoundingBox().Corners()
			cv.shape(transformAll(m, c[:]), true, p, sw, dash)
		case *drawing.Ellipse:
			rx, ry := v.Radii()
			cv.shape(transformAll(m, ellipsePoints(v.UnrotatedBoundingBox().Center(), rx, ry)), true, p, sw, dash)
		case *drawing.Line:
			p.fill = "none"
			cv.shape(transformAll(m, v.Points()), false, p, sw, dash)
		case *drawing.Vector:
			p.fill = "none"
			cv.shape(transformAll(m, v.Points()), false, p, sw, dash)
			if c, ok := parseColor(p.stroke); ok {
				var heads [][]vector.Point
				for _, a := range v.Arrowheads() {
					heads = append(heads, transformAll(m, a.Polygon()))
				}
				cv.fill(c, heads...)
			}
		case *drawing.Text:
			cv.text(it, m, v, p, meas)
		case *drawing.Image:
			cv.image(m, v, opts)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type canvas struct {
	img *image.RGBA
	r   *xvector.Rasterizer
}

// fill paints the union of closed polygons.
func (c *canvas) fill(col color.RGBA, polys ...[]vector.Point) {
	b := c.img.Bounds()
	c.r.Reset(b.Dx(), b.Dy())
	n := 0
	for _, pts := range polys {
		if len(pts) < 3 {
			continue
		}
		c.r.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		for _, p := range pts[1:] {
			c.r.LineTo(float32(p.X), float32(p.Y))
		}
		c.r.ClosePath()
		n++
	}
	if n > 0 {
		c.r.Draw(c.img, b, image.NewUniform(col), image.Point{})
	}
}

func (c *canvas) shape(pts []vector.Point, closed bool, p paint, width float64, dash []float64) {
	if col, ok := parseColor(p.fill); ok && closed {
		c.fill(col, pts)
	}
	if col, ok := parseColor(p.stroke); ok && p.strokeWidth > 0 {
		c.stroke(col, pts, closed, width, dash)
	}
}

// stroke outlines a path as one square-capped quad per segment. Every quad
// has the same winding so overlaps at joints add up instead of cancelling.
func (c *canvas) stroke(col color.RGBA, pts []vector.Point, closed bool, width float64, dash []float64) {
	var segs [][2]vector.Point
	for i := 1; i < len(pts); i++ {
		segs = append(segs, [2]vector.Point{pts[i-1], pts[i]})
	}
	if closed && len(pts) > 2 {
		segs = append(segs, [2]vector.Point{pts[len(pts)-1], pts[0]})
	}
	half := math.Max(width/2, 0.5)
	var quads [][]vector.Point
	for _, s := range dashed(segs, dash) {
		a, b := s[0], s[1]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		if l == 0 {
			continue
		}
		d := vector.Point{X: (b.X - a.X) / l * half, Y: (b.Y - a.Y) / l * half}
		n := vector.Point{X: -d.Y, Y: d.X}
		a, b = a.Sub(d), b.Add(d)
		quads = append(quads, []vector.Point{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)})
	}
	c.fill(col, quads...)
}

func scaleDash(dash []float64, s float64) []float64 {
	if len(dash) == 0 {
		return nil
	}
	out := make([]float64, len(dash))
	for i, d := range dash {
		out[i] = d * s
	}
	return out
}

// dashed splits segments into the "on" intervals of a dash pattern that runs
// continuously along the path.
func dashed(segs [][2]vector.Point, dash []float64) [][2]vector.Point {
	total := 0.0
	for _, d := range dash {
		total += d
	}
	if total <= 0 {
		return segs
	}
	var out [][2]vector.Point
	i, left, on := 0, dash[0], true
	for _, s := range segs {
		a, b := s[0], s[1]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		for pos := 0.0; pos < l; {
			step := math.Min(left, l-pos)
			if on && step > 0 {
				out = append(out, [2]vector.Point{lerp(a, b, pos/l), lerp(a, b, (pos+step)/l)})
			}
			pos += step
			left -= step
			if left <= 1e-9 {
				i = (i + 1) % len(dash)
				left, on = dash[i], !on
			}
		}
	}
	return out
}

func lerp(a, b vector.Point, t float64) vector.Point {
	return vector.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func aff3(m vector.Affine2D) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}

// text draws the wrapped block unscaled into a scratch image, then maps it
// onto the page through the text transform.
func (c *canvas) text(it item, m vector.Affine2D, t *drawing.Text, p paint, meas textlayout.Measurer) {
	col, ok := parseColor(p.stroke)
	if !ok {
		return
	}
	r, _ := textLines(it, t, meas)
	if len(r.Block.Lines) == 0 {
		return
	}
	var face font.Face = basicfont.Face7x13
	if fm, ok := meas.(*textlayout.FaceMeasurer); ok {
		face = fm.Face()
	}
	w, h := 1, int(math.Ceil(r.Block.Height))+2
	for _, ln := range r.Block.Lines {
		w = max(w, int(math.Ceil(ln.Width))+2)
	}
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{Dst: tmp, Src: image.NewUniform(col), Face: face}
	asc := ascent(meas)
	for _, ln := range r.Block.Lines {
		d.Dot = fixed.Point26_6{X: 0, Y: fixed.Int26_6(math.Round((ln.Y + asc) * 64))}
		d.DrawString(ln.Text)
	}
	pos := t.Position()
	xf := m.Mul(r.Transform).Mul(vector.Translate(pos.X, pos.Y))
	xdraw.BiLinear.Transform(c.img, aff3(xf), tmp, tmp.Bounds(), xdraw.Over, nil)
}

func (c *canvas) image(m vector.Affine2D, im *drawing.Image, opts Options) {
	box := im.UnrotatedBoundingBox()
	corners := box.Corners()
	data, err := opts.fetch(opts.imageURL(im))
	if err != nil {
		c.stroke(frameColor, transformAll(m, corners[:]), true, 1, nil)
		return
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil || src.Bounds().Empty() {
		c.stroke(frameColor, transformAll(m, corners[:]), true, 1, nil)
		return
	}
	sb := src.Bounds()
	xf := m.Mul(vector.Translate(box.NW.X, box.NW.Y)).
		Mul(vector.Scale(box.Width()/float64(sb.Dx()), box.Height()/float64(sb.Dy()))).
		Mul(vector.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	xdraw.BiLinear.Transform(c.img, aff3(xf), src, sb, xdraw.Over, nil)
}
