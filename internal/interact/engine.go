/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact turns pointer and keyboard input into edits of a drawing.
// Gestures only write volatile drag state on objects; the document is changed
// once, when the gesture ends.
package interact

import (
	"fmt"
	"log/slog"

	"drawtile/internal/config"
	"drawtile/internal/document"
	"drawtile/internal/drawing"
	applog "drawtile/internal/log"
	"drawtile/internal/vector"
)

// Options tune hit testing and handle placement.
type Options struct {
	SelectionPadding float64
	HitTolerance     float64
	HandleSize       float64
	DefaultTextSize  vector.Point
	// Snap aligns moved selections with other objects. Hold Alt to bypass.
	Snap vector.SnapOptions
}

func DefaultOptions() Options {
	return Options{SelectionPadding: 5, HitTolerance: 4, HandleSize: 8, DefaultTextSize: vector.Point{X: 150, Y: 40}}
}

// FromConfig maps the editor section of the app config onto engine options.
// A zero snap threshold disables snapping.
func FromConfig(c config.EditorConfig) Options {
	o := DefaultOptions()
	if c.SelectionPadding > 0 {
		o.SelectionPadding = c.SelectionPadding
	}
	if c.HitTolerance > 0 {
		o.HitTolerance = c.HitTolerance
	}
	if c.SnapThreshold > 0 {
		o.Snap = vector.SnapOptions{Threshold: c.SnapThreshold, SnapToEdges: true, SnapToCenters: true}
	}
	return o
}

// Option configures an Engine.
type Option func(*Engine)

func WithOptions(o Options) Option { return func(e *Engine) { e.opts = o } }

// Command is a momentary toolbar action on the selection.
type Command string

const (
	CommandDuplicate Command = "duplicate"
	CommandDelete    Command = "delete"
	CommandGroup     Command = "group"
	CommandUngroup   Command = "ungroup"
	CommandFront     Command = "front"
	CommandBack      Command = "back"
	CommandRotate    Command = "rotate"
)

type gesture interface {
	move(e *Engine, ev PointerEvent)
	end(e *Engine, ev PointerEvent)
	cancel(e *Engine)
}

// Engine is the interaction state machine for one drawing.
type Engine struct {
	doc  *document.Content
	host ListenerHost
	opts Options
	log  *slog.Logger

	gesture gesture
	release func()

	current      drawing.Object
	selectionBox *vector.BoundingBox
	hover        string
	edit         *TextEdit
	pendingEdit  *drawing.Text
	guides       []vector.GuideLine
}

// New creates an engine. A nil host uses a private Registry.
func New(doc *document.Content, host ListenerHost, opts ...Option) *Engine {
	if host == nil {
		host = &Registry{}
	}
	e := &Engine{doc: doc, host: host, opts: DefaultOptions(), log: applog.WithComponent("interact")}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Document() *document.Content { return e.doc }
func (e *Engine) Tool() document.Tool         { return e.doc.SelectedButton() }

// SetTool switches the modal tool. Any running gesture is cancelled and the
// selection cleared.
func (e *Engine) SetTool(t document.Tool) {
	e.Cancel()
	e.EndTextEdit(true)
	e.doc.SetSelectedButton(t)
}

// Current is the object being drawn; it is not part of the document yet.
func (e *Engine) Current() drawing.Object { return e.current }

// SelectionBox returns the rubber band of an in-flight box selection.
func (e *Engine) SelectionBox() (vector.BoundingBox, bool) {
	if e.selectionBox == nil {
		return vector.BoundingBox{}, false
	}
	return *e.selectionBox, true
}

// Hovered returns the id of the object under the pointer, if any.
func (e *Engine) Hovered() string { return e.hover }

// Guides are the alignment lines of the snap applied to the current move.
func (e *Engine) Guides() []vector.GuideLine { return e.guides }

// Busy reports whether a gesture is in flight.
func (e *Engine) Busy() bool { return e.gesture != nil }

// PointerDown starts a gesture according to the active tool.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.edit != nil {
		e.EndTextEdit(true)
	}
	switch tool := e.Tool(); tool {
	case document.ToolSelect:
		e.selectDown(ev)
	case document.ToolStamp:
		e.placeStamp(ev.Point)
	default:
		if obj := e.newDrawing(tool, ev.Point); obj != nil {
			e.current = obj
			e.begin(&drawGesture{tool: tool, start: ev.Point, last: ev.Point})
		}
	}
}

// PointerMove tracks hover while no gesture is running. Gesture moves arrive
// through the global listeners.
func (e *Engine) PointerMove(ev PointerEvent) {
	if e.gesture != nil {
		return
	}
	e.hover = ""
	if e.Tool() != document.ToolSelect {
		return
	}
	if o := e.doc.ObjectAt(ev.Point, e.opts.HitTolerance); o != nil {
		e.hover = o.ID()
	}
}

func (e *Engine) selectDown(ev PointerEvent) {
	if h, ok := e.handleAt(ev.Point); ok {
		e.beginResize(h, ev)
		return
	}
	if o := e.doc.ObjectAt(ev.Point, e.opts.HitTolerance); o != nil {
		e.beginMove(o, ev)
		return
	}
	e.begin(&boxGesture{start: ev.Point, extend: ev.Mods.Extend(), initial: e.doc.Selection()})
}

func (e *Engine) begin(g gesture) {
	e.Cancel()
	e.gesture = g
	e.release = e.host.AddGlobalPointerListeners(e.onMove, e.onUp)
}

func (e *Engine) onMove(ev PointerEvent) {
	if e.gesture != nil {
		e.gesture.move(e, ev)
	}
}

func (e *Engine) onUp(ev PointerEvent) {
	g := e.gesture
	if g == nil {
		return
	}
	func() {
		defer e.finish()
		g.end(e, ev)
	}()
	if t := e.pendingEdit; t != nil {
		e.pendingEdit = nil
		e.BeginTextEdit(t.ID())
	}
}

// finish releases the listeners of the current gesture.
func (e *Engine) finish() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
	e.gesture = nil
	e.selectionBox = nil
	e.current = nil
	e.guides = nil
}

// Cancel aborts a running gesture without touching the document.
func (e *Engine) Cancel() {
	g := e.gesture
	if g == nil {
		return
	}
	defer e.finish()
	g.cancel(e)
}

// KeyDown handles editing keys. It reports whether the key was consumed.
func (e *Engine) KeyDown(key string) bool {
	if e.edit != nil {
		switch key {
		case "Enter", "Tab":
			e.EndTextEdit(true)
			return true
		case "Escape":
			e.EndTextEdit(false)
			return true
		}
		return false
	}
	switch key {
	case "Delete", "Backspace":
		if sel := e.doc.Selection(); len(sel) > 0 {
			e.doc.DeleteObjects(sel)
			return true
		}
	case "Escape":
		e.Cancel()
		e.doc.ClearSelection()
		return true
	}
	return false
}

// Do runs a momentary command on the selection. Rotation turns by 90 degrees.
func (e *Engine) Do(cmd Command) error {
	e.Cancel()
	sel := e.doc.Selection()
	switch cmd {
	case CommandDuplicate:
		e.doc.DuplicateObjects(sel)
	case CommandDelete:
		e.doc.DeleteObjects(sel)
	case CommandGroup:
		if len(sel) < 2 {
			return nil
		}
		if _, err := e.doc.CreateGroup(sel); err != nil {
			return err
		}
	case CommandUngroup:
		e.doc.UngroupGroups(sel)
	case CommandFront:
		e.doc.MoveObjectsToFront(sel)
	case CommandBack:
		e.doc.MoveObjectsToBack(sel)
	case CommandRotate:
		e.doc.RotateObjects(sel, 90)
	default:
		return fmt.Errorf("interact: unknown command %q", cmd)
	}
	e.log.Debug("command", slog.String("cmd", string(cmd)), slog.Int("selected", len(sel)))
	return nil
}

func (e *Engine) placeStamp(p vector.Point) {
	stamp, ok := e.doc.CurrentStamp()
	if !ok {
		return
	}
	w, h := stamp.Width, stamp.Height
	im := drawing.NewImage(p.X-w/2, p.Y-h/2, w, h, stamp.URL, "")
	if _, err := e.doc.AddObject(im.Snapshot()); err != nil {
		e.log.Warn("stamp not placed", slog.Any("err", err))
	}
}
