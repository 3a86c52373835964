/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drawing

import "drawtile/internal/vector"

// Stroke and fill capabilities. Objects opt in by embedding these structs, which
// makes them satisfy the Stroked and Filled interfaces.

type strokeProps struct {
	host            *baseObject
	stroke          string
	strokeWidth     float64
	strokeDashArray string
}

func (s *strokeProps) Stroke() string          { return s.stroke }
func (s *strokeProps) StrokeWidth() float64    { return s.strokeWidth }
func (s *strokeProps) StrokeDashArray() string { return s.strokeDashArray }

func (s *strokeProps) SetStroke(color string) {
	s.host.mutate("setStroke", []any{color}, func() { s.stroke = color })
}

func (s *strokeProps) SetStrokeWidth(w float64) {
	s.host.mutate("setStrokeWidth", []any{w}, func() { s.strokeWidth = w })
}

func (s *strokeProps) SetStrokeDashArray(dash string) {
	s.host.mutate("setStrokeDashArray", []any{dash}, func() { s.strokeDashArray = dash })
}

func (s *strokeProps) snapshotInto(snap *Snapshot) {
	stroke, width, dash := s.stroke, s.strokeWidth, s.strokeDashArray
	snap.Stroke, snap.StrokeWidth, snap.StrokeDashArray = &stroke, &width, &dash
}

// loadFrom copies the stroke fields of snap. Absent fields take the toolbar
// defaults; older change logs create objects without any style.
func (s *strokeProps) loadFrom(snap Snapshot) {
	d := vector.DefaultToolbarSettings
	s.stroke, s.strokeWidth, s.strokeDashArray = d.Stroke, d.StrokeWidth, d.StrokeDashArray
	if snap.Stroke != nil {
		s.stroke = *snap.Stroke
	}
	if snap.StrokeWidth != nil {
		s.strokeWidth = *snap.StrokeWidth
	}
	if snap.StrokeDashArray != nil {
		s.strokeDashArray = *snap.StrokeDashArray
	}
}

type fillProps struct {
	host *baseObject
	fill string
}

func (f *fillProps) Fill() string { return f.fill }

func (f *fillProps) SetFill(color string) {
	f.host.mutate("setFill", []any{color}, func() { f.fill = color })
}

func (f *fillProps) snapshotInto(snap *Snapshot) {
	fill := f.fill
	snap.Fill = &fill
}

func (f *fillProps) loadFrom(snap Snapshot) {
	f.fill = vector.DefaultToolbarSettings.Fill
	if snap.Fill != nil {
		f.fill = *snap.Fill
	}
}

// IsStroked reports whether o carries stroke properties.
func IsStroked(o Object) bool {
	_, ok := o.(Stroked)
	return ok
}

// IsFilled reports whether o carries a fill.
func IsFilled(o Object) bool {
	_, ok := o.(Filled)
	return ok
}
