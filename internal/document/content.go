/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document holds the authoritative content of a drawing: the ordered
// object list (last is topmost), toolbar defaults and stamps, plus session
// metadata (current tool, selection) that is never serialized.
//
// Every mutation runs as a named action. Actions nest: only the outermost one is
// reported to the ActionLogger, so a bulk edit over many ids is a single entry.
package document

import (
	"errors"
	"log/slog"

	"drawtile/internal/drawing"
	applog "drawtile/internal/log"
	"drawtile/internal/vector"
)

const (
	// Version is written into every snapshot.
	Version = "1.1.0"
	// DocType is the snapshot discriminant of a drawing.
	DocType = "Drawing"
)

var (
	ErrLiveObject    = errors.New("document: live objects cannot be added, pass a snapshot")
	ErrUnknownObject = errors.New("document: unknown object")
	ErrNotGroup      = errors.New("document: object is not a group")
	ErrDuplicateID   = errors.New("document: duplicate object id")
	ErrUnsupported   = errors.New("document: unsupported value")
)

// Action is one logged mutation. Path is "" for document actions and the
// object path (e.g. /objects/<id>) for actions on a single object.
type Action struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Args []any  `json:"args,omitempty"`
}

// ActionLogger receives committed actions, in order.
type ActionLogger interface {
	LogAction(a Action)
}

// ActionLoggerFunc adapts a function to ActionLogger.
type ActionLoggerFunc func(Action)

func (f ActionLoggerFunc) LogAction(a Action) { f(a) }

type fanOut []ActionLogger

func (f fanOut) LogAction(a Action) {
	for _, l := range f {
		l.LogAction(a)
	}
}

// FanOut delivers every action to each non-nil logger.
func FanOut(loggers ...ActionLogger) ActionLogger {
	var out fanOut
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// Stamp is an image offered by the stamp tool.
type Stamp struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Tool identifies the toolbar button in use.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolLine      Tool = "line"
	ToolVector    Tool = "vector"
	ToolRectangle Tool = "rectangle"
	ToolEllipse   Tool = "ellipse"
	ToolText      Tool = "text"
	ToolStamp     Tool = "stamp"
)

// Metadata is per-session state kept out of the persisted content.
type Metadata struct {
	selectedButton Tool
	selection      []string
}

// Option configures a Content.
type Option func(*Content)

// WithActionLogger routes actions to l.
func WithActionLogger(l ActionLogger) Option { return func(c *Content) { c.logger = l } }

// WithID sets the id used to tag log records and history.
func WithID(id string) Option { return func(c *Content) { c.id = id } }

// WithDuplicateOffset changes the offset applied by DuplicateObjects.
func WithDuplicateOffset(d float64) Option { return func(c *Content) { c.duplicateOffset = d } }

// Content is the drawing document. It is not safe for concurrent use; all
// calls are expected on the UI thread.
type Content struct {
	id              string
	objects         []drawing.Object
	settings        vector.ToolbarSettings
	stamps          []Stamp
	currentStamp    int
	meta            Metadata
	duplicateOffset float64

	logger ActionLogger
	depth  int
	log    *slog.Logger
}

func New(opts ...Option) *Content {
	c := &Content{
		settings:        vector.DefaultToolbarSettings,
		duplicateOffset: 10,
		meta:            Metadata{selectedButton: ToolSelect},
	}
	for _, o := range opts {
		o(c)
	}
	if c.id == "" {
		c.id = drawing.NewID()
	}
	c.log = applog.WithComponent("document").With(slog.String("document", c.id))
	return c
}

func (c *Content) ID() string { return c.id }

// SetActionLogger replaces the action sink.
func (c *Content) SetActionLogger(l ActionLogger) { c.logger = l }

// Record implements drawing.Recorder. Only the outermost action is logged, after
// fn has run.
func (c *Content) Record(path, name string, args []any, fn func()) {
	c.depth++
	func() {
		defer func() { c.depth-- }()
		fn()
	}()
	if c.depth == 0 && c.logger != nil {
		c.logger.LogAction(Action{Name: name, Path: path, Args: args})
	}
}

func (c *Content) action(name string, args []any, fn func()) { c.Record("", name, args, fn) }

// Objects returns the top-level objects in z-order.
func (c *Content) Objects() []drawing.Object { return append([]drawing.Object(nil), c.objects...) }

// Settings returns the toolbar defaults for new objects.
func (c *Content) Settings() vector.ToolbarSettings { return c.settings }

func (c *Content) Stamps() []Stamp { return append([]Stamp(nil), c.stamps...) }

// CurrentStamp returns the selected stamp, if any.
func (c *Content) CurrentStamp() (Stamp, bool) {
	if c.currentStamp < 0 || c.currentStamp >= len(c.stamps) {
		return Stamp{}, false
	}
	return c.stamps[c.currentStamp], true
}

func (c *Content) indexOf(id string) int {
	for i, o := range c.objects {
		if o.ID() == id {
			return i
		}
	}
	return -1
}

// Get returns the top-level object with the id.
func (c *Content) Get(id string) drawing.Object {
	if i := c.indexOf(id); i >= 0 {
		return c.objects[i]
	}
	return nil
}

// Find searches the whole tree, including group members.
func (c *Content) Find(id string) drawing.Object {
	var found drawing.Object
	for _, o := range c.objects {
		drawing.Walk(o, func(x drawing.Object) bool {
			if x.ID() == id {
				found = x
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// IsAlive reports whether o is still part of this document.
func (c *Content) IsAlive(o drawing.Object) bool {
	if o == nil {
		return false
	}
	alive := false
	for _, top := range c.objects {
		drawing.Walk(top, func(x drawing.Object) bool {
			alive = x == o
			return !alive
		})
		if alive {
			return true
		}
	}
	return false
}

// ObjectAt returns the topmost object hit by p.
func (c *Content) ObjectAt(p vector.Point, tolerance float64) drawing.Object {
	for i := len(c.objects) - 1; i >= 0; i-- {
		if c.objects[i].HitTest(p, tolerance) {
			return c.objects[i]
		}
	}
	return nil
}

// ObjectsInBox returns the ids of top-level objects intersecting box, in z-order.
func (c *Content) ObjectsInBox(box vector.BoundingBox) []string {
	var ids []string
	for _, o := range c.objects {
		if o.IntersectsBox(box) {
			ids = append(ids, o.ID())
		}
	}
	return ids
}

func (c *Content) lookup(ids []string) []drawing.Object {
	out := make([]drawing.Object, 0, len(ids))
	for _, id := range ids {
		if o := c.Get(id); o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (c *Content) insert(at int, o drawing.Object) {
	c.objects = append(c.objects, nil)
	copy(c.objects[at+1:], c.objects[at:])
	c.objects[at] = o
	o.Attach(c, nil, "")
}

func (c *Content) removeAt(i int) drawing.Object {
	o := c.objects[i]
	c.objects = append(c.objects[:i], c.objects[i+1:]...)
	o.Detach()
	return o
}
