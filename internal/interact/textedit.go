/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interact

import (
	"log/slog"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
)

// TextEdit is an in-place edit session on a text object. The draft is kept
// apart from the object until the session commits.
type TextEdit struct {
	target *drawing.Text
	draft  string
}

func (t *TextEdit) ID() string    { return t.target.ID() }
func (t *TextEdit) Draft() string { return t.draft }

// SetDraft replaces the uncommitted text.
func (t *TextEdit) SetDraft(s string) { t.draft = s }

// TextEdit returns the running edit session, if any.
func (e *Engine) TextEdit() *TextEdit { return e.edit }

// DoubleClick opens a text edit session on the text object under p.
func (e *Engine) DoubleClick(ev PointerEvent) bool {
	if e.Tool() != document.ToolSelect {
		return false
	}
	e.Cancel()
	o := e.doc.ObjectAt(ev.Point, e.opts.HitTolerance)
	if o == nil {
		return false
	}
	return e.BeginTextEdit(o.ID())
}

// BeginTextEdit starts editing the top-level text object id. Any previous
// session is committed first.
func (e *Engine) BeginTextEdit(id string) bool {
	t, ok := e.doc.Get(id).(*drawing.Text)
	if !ok {
		return false
	}
	e.EndTextEdit(true)
	t.SetEditing(true)
	e.edit = &TextEdit{target: t, draft: t.Text()}
	e.doc.SetSelection([]string{id})
	return true
}

// EndTextEdit closes the session. A commit writes the draft only when it
// differs from the stored text.
func (e *Engine) EndTextEdit(commit bool) {
	s := e.edit
	if s == nil {
		return
	}
	e.edit = nil
	s.target.SetEditing(false)
	if !commit || !e.doc.IsAlive(s.target) || s.draft == s.target.Text() {
		return
	}
	s.target.SetText(s.draft)
	e.log.Debug("text committed", slog.String("id", s.target.ID()))
}
