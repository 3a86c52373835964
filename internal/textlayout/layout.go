/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and greedy word wrapping for text objects. Measurement sits
// behind the Measurer interface so tests can use a deterministic bitmap face.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// LineSpacing is the distance between baselines as a multiple of the line height.
const LineSpacing = 1.2

// Measurer reports rendered text widths in pixels.
type Measurer interface {
	MeasureString(s string) float64
	LineHeight() float64
}

// Line is a single wrapped line. Y is the top of the line inside the block.
type Line struct {
	Text  string
	Width float64
	Y     float64
}

// Block is the result of wrapping text into a width.
type Block struct {
	Lines      []Line
	Width      float64
	Height     float64
	LineHeight float64
}

// FaceMeasurer measures with a font.Face.
type FaceMeasurer struct {
	face   font.Face
	height float64
}

func NewFaceMeasurer(face font.Face) *FaceMeasurer {
	m := face.Metrics()
	return &FaceMeasurer{face: face, height: float64(m.Height) / 64}
}

// Face returns the underlying face for renderers that draw glyphs.
func (f *FaceMeasurer) Face() font.Face { return f.face }

// Ascent is the distance from the top of a line to its baseline.
func (f *FaceMeasurer) Ascent() float64 { return float64(f.face.Metrics().Ascent) / 64 }

// BasicMeasurer uses x/image/basicfont Face7x13 for deterministic tests.
func BasicMeasurer() *FaceMeasurer { return NewFaceMeasurer(basicfont.Face7x13) }

func (f *FaceMeasurer) MeasureString(s string) float64 {
	d := &font.Drawer{Face: f.face}
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}

func (f *FaceMeasurer) LineHeight() float64 { return f.height }

// WrapLines breaks text into lines no wider than width. Explicit newlines always
// break. For every line all remaining words are tried first and the last word is
// pushed back until the line fits; a single word wider than width stays alone on
// its line. A width <= 0 disables wrapping.
func WrapLines(text string, width float64, m Measurer) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		for len(words) > 0 {
			n := len(words)
			for n > 1 && width > 0 && m.MeasureString(strings.Join(words[:n], " ")) > width {
				n--
			}
			out = append(out, strings.Join(words[:n], " "))
			words = words[n:]
		}
	}
	return out
}

// Layout wraps text and positions the lines LineSpacing line-heights apart.
func Layout(text string, width float64, m Measurer) Block {
	lh := m.LineHeight()
	b := Block{LineHeight: lh}
	for i, s := range WrapLines(text, width, m) {
		w := m.MeasureString(s)
		b.Lines = append(b.Lines, Line{Text: s, Width: w, Y: float64(i) * lh * LineSpacing})
		if w > b.Width {
			b.Width = w
		}
	}
	if n := len(b.Lines); n > 0 {
		b.Height = float64(n-1)*lh*LineSpacing + lh
	}
	return b
}
