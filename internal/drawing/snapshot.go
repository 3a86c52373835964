/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drawing

import (
	"fmt"

	"drawtile/internal/vector"
)

// Snapshot is the flat, tagged record persisted for every object. Which optional
// fields are present depends on Type.
type Snapshot struct {
	Type     ObjectType `json:"type"`
	ID       string     `json:"id,omitempty"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Rotation float64    `json:"rotation,omitempty"`

	Stroke          *string  `json:"stroke,omitempty"`
	StrokeWidth     *float64 `json:"strokeWidth,omitempty"`
	StrokeDashArray *string  `json:"strokeDashArray,omitempty"`
	Fill            *string  `json:"fill,omitempty"`

	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Rx     *float64 `json:"rx,omitempty"`
	Ry     *float64 `json:"ry,omitempty"`

	DeltaPoints []vector.Point    `json:"deltaPoints,omitempty"`
	Dx          *float64          `json:"dx,omitempty"`
	Dy          *float64          `json:"dy,omitempty"`
	HeadShape   vector.ArrowShape `json:"headShape,omitempty"`
	TailShape   vector.ArrowShape `json:"tailShape,omitempty"`

	Text *string `json:"text,omitempty"`

	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`

	Objects []Snapshot `json:"objects,omitempty"`
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// FromSnapshot instantiates a live object. A missing id is replaced by a fresh one.
func FromSnapshot(s Snapshot) (Object, error) {
	switch s.Type {
	case TypeRectangle:
		return rectangleFromSnapshot(s), nil
	case TypeEllipse:
		return ellipseFromSnapshot(s), nil
	case TypeText:
		return textFromSnapshot(s), nil
	case TypeImage:
		return imageFromSnapshot(s), nil
	case TypeLine:
		return lineFromSnapshot(s), nil
	case TypeVector:
		return vectorFromSnapshot(s), nil
	case TypeGroup:
		children := make([]Object, 0, len(s.Objects))
		for i, cs := range s.Objects {
			c, err := FromSnapshot(cs)
			if err != nil {
				return nil, fmt.Errorf("group %s child %d: %w", s.ID, i, err)
			}
			children = append(children, c)
		}
		g := &Group{width: deref(s.Width), height: deref(s.Height)}
		g.bind(g, s.ID, s.X, s.Y)
		g.rotation = s.Rotation
		g.setChildren(children)
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
}

// WithFreshIDs returns a copy of s where s and every nested object get new ids.
func WithFreshIDs(s Snapshot) Snapshot {
	out := s
	out.ID = NewID()
	if len(s.Objects) > 0 {
		out.Objects = make([]Snapshot, len(s.Objects))
		for i, c := range s.Objects {
			out.Objects[i] = WithFreshIDs(c)
		}
	}
	if s.DeltaPoints != nil {
		out.DeltaPoints = append([]vector.Point(nil), s.DeltaPoints...)
	}
	return out
}

// Walk visits o and, for groups, every descendant depth-first.
func Walk(o Object, fn func(Object) bool) bool {
	if !fn(o) {
		return false
	}
	if g, ok := o.(*Group); ok {
		for _, c := range g.objects {
			if !Walk(c, fn) {
				return false
			}
		}
	}
	return true
}
