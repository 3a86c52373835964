/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"drawtile/internal/document"
	applog "drawtile/internal/log"
)

// History consumes a document's action log and snapshots the drawing after
// every action. Undo and Redo restore through ApplySnapshot, which is itself a
// logged action, so other log consumers see restores as ordinary edits.
type History struct {
	m         *Manager
	doc       *document.Content
	now       func() time.Time
	restoring bool
	log       *slog.Logger
}

// NewHistory records the current state of doc as the baseline. The caller
// wires the history into the document's action logger; Track does both.
func NewHistory(m *Manager, doc *document.Content) *History {
	h := &History{m: m, doc: doc, now: time.Now, log: applog.WithComponent("undo")}
	m.Clear(doc.ID())
	h.push("")
	return h
}

// Track creates a History and appends it to loggers, installing the result
// on doc.
func Track(m *Manager, doc *document.Content, loggers ...document.ActionLogger) *History {
	h := NewHistory(m, doc)
	doc.SetActionLogger(document.FanOut(append(loggers, h)...))
	return h
}

func (h *History) push(key string) {
	blob, err := json.Marshal(h.doc.Snapshot())
	if err != nil {
		h.log.Error("snapshot failed", slog.Any("err", err))
		return
	}
	h.m.Push(Snapshot{Doc: h.doc.ID(), Key: key, Blob: blob, TS: h.now()})
}

// LogAction implements document.ActionLogger.
func (h *History) LogAction(a document.Action) {
	if h.restoring {
		return
	}
	h.push(a.Name + " " + a.Path)
}

func (h *History) Undo() error {
	s, ok := h.m.Undo(h.doc.ID())
	if !ok {
		return nil
	}
	return h.restore(s)
}

func (h *History) Redo() error {
	s, ok := h.m.Redo(h.doc.ID())
	if !ok {
		return nil
	}
	return h.restore(s)
}

func (h *History) CanUndo() bool { return h.m.CanUndo(h.doc.ID()) }
func (h *History) CanRedo() bool { return h.m.CanRedo(h.doc.ID()) }

func (h *History) restore(s Snapshot) error {
	var snap document.Snapshot
	if err := json.Unmarshal(s.Blob, &snap); err != nil {
		return fmt.Errorf("undo: decode state: %w", err)
	}
	h.restoring = true
	defer func() { h.restoring = false }()
	h.doc.ApplySnapshot(snap)
	return nil
}
