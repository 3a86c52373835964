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

	"github.com/jung-kurt/gofpdf"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/log"
	"drawtile/internal/vector"
)

const pdfFont = "Helvetica"

// PDF renders doc on a single page sized to its bounds. Coordinates map 1:1
// from drawing units to points. Text is set in Helvetica and wrapped with its
// metrics.
func PDF(doc *document.Content, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	sc := newScene(doc, opts)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: sc.width, Ht: sc.height},
		OrientationStr: "P",
	})
	pdf.SetAuthor("drawtile", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(pdfFont, "", opts.FontSize)
	pdf.AddPage()

	if bg, ok := parseColor(opts.Background); ok {
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, sc.width, sc.height, "F")
	}

	meas := pdfMeasurer{pdf: pdf, size: opts.FontSize}
	for _, it := range sc.items {
		p := paintOf(it.obj)
		switch v := it.obj.(type) {
		case *drawing.Rectangle:
			c := v.UnrotatedBoundingBox().Corners()
			pdfShape(pdf, it.m, p, func() { pdf.Polygon(pdfPoints(it.m, c[:]), pdfStyle(p)) })
		case *drawing.Ellipse:
			rx, ry := v.Radii()
			pts := ellipsePoints(v.UnrotatedBoundingBox().Center(), rx, ry)
			pdfShape(pdf, it.m, p, func() { pdf.Polygon(pdfPoints(it.m, pts), pdfStyle(p)) })
		case *drawing.Line:
			p.fill = "none"
			pdfShape(pdf, it.m, p, func() { pdfPolyline(pdf, transformAll(it.m, v.Points())) })
		case *drawing.Vector:
			p.fill = "none"
			pdfShape(pdf, it.m, p, func() { pdfPolyline(pdf, transformAll(it.m, v.Points())) })
			if c, ok := parseColor(p.stroke); ok {
				pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
				for _, a := range v.Arrowheads() {
					pdf.Polygon(pdfPoints(it.m, a.Polygon()), "F")
				}
			}
		case *drawing.Text:
			pdfText(pdf, it, v, p, meas)
		case *drawing.Image:
			pdfImage(pdf, it, v, opts)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfMeasurer wraps text with the current PDF core font.
type pdfMeasurer struct {
	pdf  *gofpdf.Fpdf
	size float64
}

func (m pdfMeasurer) MeasureString(s string) float64 { return m.pdf.GetStringWidth(s) }
func (m pdfMeasurer) LineHeight() float64            { return m.size }

func pdfStyle(p paint) string {
	switch {
	case p.hasFill() && p.hasStroke():
		return "FD"
	case p.hasFill():
		return "F"
	default:
		return "D"
	}
}

// pdfShape sets the paint state, runs draw, and resets the dash pattern.
func pdfShape(pdf *gofpdf.Fpdf, m vector.Affine2D, p paint, draw func()) {
	if !p.hasFill() && !p.hasStroke() {
		return
	}
	if c, ok := parseColor(p.fill); ok {
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	}
	if c, ok := parseColor(p.stroke); ok {
		pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	}
	scale := lineScale(m)
	pdf.SetLineWidth(p.strokeWidth * scale)
	if len(p.dash) > 0 {
		dash := make([]float64, len(p.dash))
		for i, d := range p.dash {
			dash[i] = d * scale
		}
		pdf.SetDashPattern(dash, 0)
		defer pdf.SetDashPattern([]float64{}, 0)
	}
	draw()
}

func pdfPoints(m vector.Affine2D, pts []vector.Point) []gofpdf.PointType {
	out := make([]gofpdf.PointType, len(pts))
	for i, p := range pts {
		q := m.Apply(p)
		out[i] = gofpdf.PointType{X: q.X, Y: q.Y}
	}
	return out
}

func pdfPolyline(pdf *gofpdf.Fpdf, pts []vector.Point) {
	if len(pts) < 2 {
		return
	}
	pdf.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		pdf.LineTo(p.X, p.Y)
	}
	pdf.DrawPath("D")
}

func pdfText(pdf *gofpdf.Fpdf, it item, t *drawing.Text, p paint, meas pdfMeasurer) {
	r, m := textLines(it, t, meas)
	if c, ok := parseColor(p.stroke); ok {
		pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
	}
	pos := t.Position()
	asc := meas.size * 0.8
	angle := angleOf(m)
	for _, ln := range r.Block.Lines {
		o := m.Apply(vector.Point{X: pos.X, Y: pos.Y + ln.Y + asc})
		if angle != 0 {
			pdf.TransformBegin()
			// gofpdf rotates counter-clockwise.
			pdf.TransformRotate(-angle, o.X, o.Y)
		}
		pdf.Text(o.X, o.Y, ln.Text)
		if angle != 0 {
			pdf.TransformEnd()
		}
	}
}

// pdfImage embeds PNG, JPEG and GIF images. Anything else, or a failed fetch,
// leaves a gray frame.
func pdfImage(pdf *gofpdf.Fpdf, it item, im *drawing.Image, opts Options) {
	box := im.UnrotatedBoundingBox()
	url := opts.imageURL(im)
	frame := func() {
		pdf.SetDrawColor(160, 160, 160)
		pdf.SetLineWidth(1)
		c := box.Corners()
		pdf.Polygon(pdfPoints(it.m, c[:]), "D")
	}
	data, err := opts.fetch(url)
	if err != nil {
		frame()
		return
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (format != "png" && format != "jpeg" && format != "gif") {
		frame()
		return
	}
	info := pdf.RegisterImageOptionsReader(url, gofpdf.ImageOptions{ImageType: format}, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		log.WithComponent("export").Warn("pdf image skipped", "url", url, "error", pdf.Error())
		pdf.ClearError()
		frame()
		return
	}
	sx, sy := it.m.ScaleFactors()
	w, h := box.Width()*sx, box.Height()*sy
	c := it.m.Apply(box.Center())
	angle := angleOf(it.m)
	pdf.TransformBegin()
	if angle != 0 {
		pdf.TransformRotate(-angle, c.X, c.Y)
	}
	pdf.ImageOptions(url, c.X-w/2, c.Y-h/2, w, h, false, gofpdf.ImageOptions{ImageType: format}, 0, "")
	pdf.TransformEnd()
}
