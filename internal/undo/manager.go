/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is a serialized drawing state recorded after an action.
// Key identifies the kind of edit; consecutive snapshots with the same
// non-empty key inside MinInterval coalesce.
type Snapshot struct {
	Doc  string
	Key  string
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerDoc limits the states kept per document (0 means unlimited).
	MaxPerDoc int
	// MinInterval coalesces repeated edits of the same kind, e.g. a color
	// picker firing setStroke while it is dragged.
	MinInterval time.Duration
}

// Manager keeps undo/redo stacks of drawing states per document.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot

	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records a state and clears the redo stack of its document.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Doc]
	m.redo[s.Doc] = nil
	if n := len(stack); n > 1 {
		last := stack[n-1]
		if s.Key != "" && s.Key == last.Key && s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes += len(s.Blob) - len(last.Blob)
			stack[n-1] = s
			m.enforceCapsLocked(s.Doc)
			return
		}
	}
	m.undo[s.Doc] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Doc)
}

// Peek returns the newest state of doc without removing it.
func (m *Manager) Peek(doc string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[doc]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	return stack[len(stack)-1], true
}

// Undo moves the newest state of doc onto the redo stack and returns the
// state before it. The oldest state is the baseline and is never popped.
func (m *Manager) Undo(doc string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[doc]
	if len(stack) < 2 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[doc] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[doc] = append(m.redo[doc], s)
	return stack[len(stack)-2], true
}

// Redo reinstates the most recently undone state.
func (m *Manager) Redo(doc string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[doc]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[doc] = r[:len(r)-1]
	m.undo[doc] = append(m.undo[doc], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(doc)
	return s, true
}

func (m *Manager) CanUndo(doc string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[doc]) > 1
}

func (m *Manager) CanRedo(doc string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[doc]) > 0
}

// Clear drops both stacks of a document.
func (m *Manager) Clear(doc string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[doc] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, doc)
	delete(m.redo, doc)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, docs int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, docs, totalSnapshots
}

func (m *Manager) enforceCapsLocked(doc string) {
	if m.cfg.MaxPerDoc > 0 {
		stack := m.undo[doc]
		if len(stack) > m.cfg.MaxPerDoc {
			toDrop := len(stack) - m.cfg.MaxPerDoc
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[doc] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// prune the oldest state across documents, keeping each current state
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for d, stack := range m.undo {
			if len(stack) < 2 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = d, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
	}
}
