/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders drawings to interchange formats: the persisted JSON
// snapshot, SVG, PDF and PNG.
package export

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/images"
	"drawtile/internal/textlayout"
	"drawtile/internal/vector"
)

// Format names an export target.
type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// ParseFormat accepts a format name or a file extension with its dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case FormatJSON, FormatSVG, FormatPDF, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// URLRewriter maps an image URL to the one written to the export. It must be
// pure: it is called once per image object, synchronously.
type URLRewriter func(url, filename string) string

// Options controls export behavior. The zero value is usable.
type Options struct {
	RewriteURL URLRewriter
	// Padding is the margin around the drawing's bounds in SVG, PDF and PNG.
	Padding float64
	// Fonts resolves FontFamily for text measurement. Nil uses the built-in sans.
	Fonts      *textlayout.FontLibrary
	FontFamily string
	FontSize   float64
	// Background fills the page before drawing. "none" leaves it transparent.
	Background string
	// DPI scales PNG output; 72 maps one drawing unit to one pixel.
	DPI int
	// Fetcher loads image bytes for PDF and PNG. Nil draws image frames only.
	Fetcher      images.Fetcher
	ImageTimeout time.Duration
}

const (
	defaultPadding    = 10
	defaultFontFamily = "sans"
	defaultFontSize   = 16
	defaultStroke     = "#000000"
	maxImageBytes     = 64 << 20
)

func (o Options) withDefaults() Options {
	if o.Padding < 0 {
		o.Padding = 0
	} else if o.Padding == 0 {
		o.Padding = defaultPadding
	}
	if o.Fonts == nil {
		o.Fonts = textlayout.NewFontLibrary()
	}
	if o.FontFamily == "" {
		o.FontFamily = defaultFontFamily
	}
	if o.FontSize <= 0 {
		o.FontSize = defaultFontSize
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	if o.DPI <= 0 {
		o.DPI = 72
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = 10 * time.Second
	}
	return o
}

func (o Options) imageURL(im *drawing.Image) string {
	if o.RewriteURL == nil {
		return im.URL()
	}
	return o.RewriteURL(im.URL(), im.Filename())
}

func (o Options) fetch(rawURL string) ([]byte, error) {
	if o.Fetcher == nil || rawURL == "" {
		return nil, fmt.Errorf("no image source for %q", rawURL)
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.ImageTimeout)
	defer cancel()
	rc, err := o.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, maxImageBytes))
}

// item is a leaf object with the transform from its unrotated local frame to
// the output page.
type item struct {
	obj drawing.Object
	m   vector.Affine2D
}

type scene struct {
	items         []item
	bounds        vector.BoundingBox
	width, height float64
}

// newScene flattens groups and places the drawing's bounds, inflated by the
// padding, at the page origin.
func newScene(doc *document.Content, opts Options) *scene {
	objs := doc.Objects()
	var b vector.BoundingBox
	for i, o := range objs {
		if i == 0 {
			b = o.BoundingBox()
			continue
		}
		b = b.Union(o.BoundingBox())
	}
	b = b.Inflate(opts.Padding)
	s := &scene{bounds: b, width: math.Max(b.Width(), 1), height: math.Max(b.Height(), 1)}
	page := vector.Translate(-b.NW.X, -b.NW.Y)
	for _, top := range objs {
		drawing.Walk(top, func(o drawing.Object) bool {
			if o.Type() != drawing.TypeGroup {
				s.items = append(s.items, item{obj: o, m: page.Mul(drawing.RenderTransform(o))})
			}
			return true
		})
	}
	return s
}

// paint is the resolved stroke and fill of an object.
type paint struct {
	stroke      string
	strokeWidth float64
	dash        []float64
	fill        string
}

func paintOf(o drawing.Object) paint {
	p := paint{stroke: "none", fill: "none"}
	if s, ok := o.(drawing.Stroked); ok {
		p.stroke, p.strokeWidth = s.Stroke(), s.StrokeWidth()
		p.dash = parseDash(s.StrokeDashArray())
		if p.stroke == "" {
			p.stroke = defaultStroke
		}
	}
	if f, ok := o.(drawing.Filled); ok && f.Fill() != "" {
		p.fill = f.Fill()
	}
	return p
}

func (p paint) hasStroke() bool {
	_, ok := parseColor(p.stroke)
	return ok && p.strokeWidth > 0
}

func (p paint) hasFill() bool {
	_, ok := parseColor(p.fill)
	return ok
}

// parseDash reads an SVG dash array such as "5,3" or "5 3".
func parseDash(s string) []float64 {
	if s == "" || s == "none" {
		return nil
	}
	var out []float64
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 {
			return nil
		}
		out = append(out, v)
	}
	return out
}

var namedColors = map[string]color.RGBA{
	"black": {0, 0, 0, 255}, "white": {255, 255, 255, 255}, "red": {255, 0, 0, 255},
	"green": {0, 128, 0, 255}, "blue": {0, 0, 255, 255}, "yellow": {255, 255, 0, 255},
	"gray": {128, 128, 128, 255}, "grey": {128, 128, 128, 255}, "orange": {255, 165, 0, 255},
}

// parseColor accepts #rgb, #rrggbb and a few CSS names. "none" and
// "transparent" report false.
func parseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

// lineScale is the factor a transform applies to stroke widths.
func lineScale(m vector.Affine2D) float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}

// angleOf returns the clockwise rotation encoded in m, in degrees.
func angleOf(m vector.Affine2D) float64 {
	return math.Atan2(m.B, m.A) * 180 / math.Pi
}

func transformAll(m vector.Affine2D, pts []vector.Point) []vector.Point {
	out := make([]vector.Point, len(pts))
	for i, p := range pts {
		out[i] = m.Apply(p)
	}
	return out
}

const ellipseSegments = 72

func ellipsePoints(c vector.Point, rx, ry float64) []vector.Point {
	pts := make([]vector.Point, ellipseSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		pts[i] = vector.Point{X: c.X + rx*math.Cos(a), Y: c.Y + ry*math.Sin(a)}
	}
	return pts
}

// textLines lays out t with the measurer and returns its transform to the page.
func textLines(it item, t *drawing.Text, m textlayout.Measurer) (drawing.TextRender, vector.Affine2D) {
	t.InvalidateLayout()
	r := t.Layout(m)
	return r, it.m.Mul(r.Transform)
}

func ascent(m textlayout.Measurer) float64 {
	if fm, ok := m.(*textlayout.FaceMeasurer); ok {
		return fm.Ascent()
	}
	return m.LineHeight() * 0.8
}

// ToFile writes doc in the given format, creating parent directories.
func ToFile(doc *document.Content, f Format, path string, opts Options) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatJSON:
		data, err = JSON(doc, opts)
	case FormatSVG:
		data, err = SVG(doc, opts)
	case FormatPDF:
		data, err = PDF(doc, opts)
	case FormatPNG:
		data, err = PNG(doc, opts)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}
