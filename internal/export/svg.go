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
	"strings"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/vector"
)

// SVG renders doc as a standalone SVG document. Each leaf object is emitted in
// its local frame inside a group carrying its full transform, so rotation and
// group scale are preserved exactly.
func SVG(doc *document.Content, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	sc := newScene(doc, opts)
	meas := opts.Fonts.Measurer(opts.FontFamily, opts.FontSize)

	var buf bytes.Buffer
	wf := func(format string, args ...any) {
		_, _ = fmt.Fprintf(&buf, format, args...)
	}
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", sc.width, sc.height, sc.width, sc.height)
	if _, ok := parseColor(opts.Background); ok {
		wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", sc.width, sc.height, escAttr(opts.Background))
	}
	for _, it := range sc.items {
		o := it.obj
		p := paintOf(o)
		wf("  <g id=\"%s\" transform=\"%s\">\n", escAttr(o.ID()), svgMatrix(it.m))
		switch v := o.(type) {
		case *drawing.Rectangle:
			b := v.UnrotatedBoundingBox()
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"%s/>\n", b.NW.X, b.NW.Y, b.Width(), b.Height(), svgPaint(p))
		case *drawing.Ellipse:
			c := v.UnrotatedBoundingBox().Center()
			rx, ry := v.Radii()
			wf("    <ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\"%s/>\n", c.X, c.Y, rx, ry, svgPaint(p))
		case *drawing.Line:
			p.fill = "none"
			wf("    <polyline points=\"%s\"%s/>\n", svgPoints(v.Points()), svgPaint(p))
		case *drawing.Vector:
			p.fill = "none"
			pts := v.Points()
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"%s/>\n", pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, svgPaint(p))
			for _, a := range v.Arrowheads() {
				wf("    <polygon points=\"%s\" fill=\"%s\"/>\n", svgPoints(a.Polygon()), escAttr(p.stroke))
			}
		case *drawing.Text:
			r, _ := textLines(it, v, meas)
			pos := v.Position()
			asc := ascent(meas)
			wf("    <g transform=\"%s\" font-family=\"%s\" font-size=\"%g\" fill=\"%s\">\n", svgMatrix(r.Transform), escAttr(opts.FontFamily), opts.FontSize, escAttr(p.stroke))
			for _, ln := range r.Block.Lines {
				wf("      <text x=\"%g\" y=\"%g\" xml:space=\"preserve\">%s</text>\n", pos.X, pos.Y+ln.Y+asc, escText(ln.Text))
			}
			wf("    </g>\n")
		case *drawing.Image:
			b := v.UnrotatedBoundingBox()
			href := escAttr(opts.imageURL(v))
			wf("    <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"none\" href=\"%s\" xlink:href=\"%s\"/>\n", b.NW.X, b.NW.Y, b.Width(), b.Height(), href, href)
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	return buf.Bytes(), nil
}

func svgMatrix(m vector.Affine2D) string {
	return fmt.Sprintf("matrix(%g %g %g %g %g %g)", m.A, m.B, m.C, m.D, m.E, m.F)
}

func svgPoints(pts []vector.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = fmt.Sprintf("%g,%g", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func svgPaint(p paint) string {
	var sb strings.Builder
	fill := "none"
	if p.hasFill() {
		fill = p.fill
	}
	fmt.Fprintf(&sb, " fill=\"%s\"", escAttr(fill))
	if !p.hasStroke() {
		sb.WriteString(" stroke=\"none\"")
		return sb.String()
	}
	fmt.Fprintf(&sb, " stroke=\"%s\" stroke-width=\"%g\"", escAttr(p.stroke), p.strokeWidth)
	if len(p.dash) > 0 {
		parts := make([]string, len(p.dash))
		for i, d := range p.dash {
			parts[i] = fmt.Sprintf("%g", d)
		}
		fmt.Fprintf(&sb, " stroke-dasharray=\"%s\"", strings.Join(parts, ","))
	}
	return sb.String()
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
