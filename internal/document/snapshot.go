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
	"fmt"
	"log/slog"

	"drawtile/internal/drawing"
	"drawtile/internal/vector"
)

// Snapshot is the persisted form of a drawing.
type Snapshot struct {
	Type              string             `json:"type"`
	Version           string             `json:"version"`
	Objects           []drawing.Snapshot `json:"objects"`
	Stroke            string             `json:"stroke"`
	Fill              string             `json:"fill"`
	StrokeDashArray   string             `json:"strokeDashArray"`
	StrokeWidth       float64            `json:"strokeWidth"`
	VectorType        vector.VectorType  `json:"vectorType,omitempty"`
	Stamps            []Stamp            `json:"stamps,omitempty"`
	CurrentStampIndex *int               `json:"currentStampIndex,omitempty"`
}

// Empty returns the snapshot of a new drawing.
func Empty() Snapshot {
	d := vector.DefaultToolbarSettings
	return Snapshot{
		Type: DocType, Version: Version, Objects: []drawing.Snapshot{},
		Stroke: d.Stroke, Fill: d.Fill, StrokeDashArray: d.StrokeDashArray,
		StrokeWidth: d.StrokeWidth, VectorType: d.VectorType,
	}
}

// Snapshot captures the persisted content. Selection and tool are excluded.
func (c *Content) Snapshot() Snapshot {
	s := Snapshot{
		Type:            DocType,
		Version:         Version,
		Objects:         make([]drawing.Snapshot, len(c.objects)),
		Stroke:          c.settings.Stroke,
		Fill:            c.settings.Fill,
		StrokeDashArray: c.settings.StrokeDashArray,
		StrokeWidth:     c.settings.StrokeWidth,
		VectorType:      c.settings.VectorType,
		Stamps:          c.Stamps(),
	}
	for i, o := range c.objects {
		s.Objects[i] = o.Snapshot()
	}
	if len(c.stamps) > 0 {
		i := c.currentStamp
		s.CurrentStampIndex = &i
	}
	return s
}

func (c *Content) MarshalJSON() ([]byte, error) { return json.Marshal(c.Snapshot()) }

// FromSnapshot builds a document from a snapshot. Objects that cannot be
// instantiated or reuse an id are skipped with a warning.
func FromSnapshot(s Snapshot, opts ...Option) *Content {
	c := New(opts...)
	c.load(s)
	return c
}

// ApplySnapshot replaces the whole content as one action. Selected ids that no
// longer exist are dropped from the selection.
func (c *Content) ApplySnapshot(s Snapshot) {
	c.action("applySnapshot", []any{s}, func() {
		for len(c.objects) > 0 {
			c.removeAt(len(c.objects) - 1)
		}
		c.load(s)
	})
	sel := c.meta.selection
	c.meta.selection = nil
	c.Select(sel...)
}

func (c *Content) load(s Snapshot) {
	c.settings = vector.ToolbarSettings{
		Stroke: s.Stroke, Fill: s.Fill, StrokeDashArray: s.StrokeDashArray,
		StrokeWidth: s.StrokeWidth, VectorType: s.VectorType,
	}
	if c.settings.VectorType == "" {
		c.settings.VectorType = vector.VectorLine
	}
	c.stamps = append([]Stamp(nil), s.Stamps...)
	c.currentStamp = 0
	if s.CurrentStampIndex != nil {
		c.currentStamp = *s.CurrentStampIndex
	}
	for i, snap := range s.Objects {
		if snap.ID != "" && c.Find(snap.ID) != nil {
			c.log.Warn("skipping object with duplicate id", slog.String("id", snap.ID), slog.Int("index", i))
			continue
		}
		o, err := drawing.FromSnapshot(snap)
		if err != nil {
			c.log.Warn("skipping object", slog.Int("index", i), slog.Any("err", err))
			continue
		}
		fitGroups(o)
		c.insert(len(c.objects), o)
	}
}

// String is a short description for diagnostics.
func (c *Content) String() string {
	return fmt.Sprintf("drawing %s (%d objects, %d selected)", c.id, len(c.objects), len(c.meta.selection))
}
