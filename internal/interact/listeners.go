/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interact

import (
	"sync"

	"drawtile/internal/vector"
)

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift, Ctrl, Alt, Meta bool
}

// Extend reports whether the event should add to the selection.
func (m Modifiers) Extend() bool { return m.Shift || m.Ctrl || m.Meta }

// Constrain reports whether drawing should force squares and circles.
func (m Modifiers) Constrain() bool { return m.Shift || m.Ctrl }

// PointerEvent is a pointer position in document coordinates.
type PointerEvent struct {
	Point vector.Point
	Mods  Modifiers
}

// ListenerHost installs document-wide pointer listeners for the duration of a
// gesture, so that a release outside the original target still ends it. The
// returned function removes both listeners; calling it more than once is safe.
type ListenerHost interface {
	AddGlobalPointerListeners(move, up func(PointerEvent)) (release func())
}

// Registry is an in-process ListenerHost. Hosts without their own event
// plumbing forward pointer events to DispatchMove and DispatchUp.
type Registry struct {
	mu        sync.Mutex
	next      int
	listeners map[int]listenerPair
}

type listenerPair struct {
	move, up func(PointerEvent)
}

func (r *Registry) AddGlobalPointerListeners(move, up func(PointerEvent)) func() {
	r.mu.Lock()
	if r.listeners == nil {
		r.listeners = make(map[int]listenerPair)
	}
	id := r.next
	r.next++
	r.listeners[id] = listenerPair{move: move, up: up}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Active returns the number of installed listener pairs.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *Registry) snapshot() []listenerPair {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]listenerPair, 0, len(r.listeners))
	for i := 0; i < r.next; i++ {
		if l, ok := r.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// DispatchMove delivers a pointer move to every installed listener.
func (r *Registry) DispatchMove(ev PointerEvent) {
	for _, l := range r.snapshot() {
		l.move(ev)
	}
}

// DispatchUp delivers a pointer release to every installed listener.
func (r *Registry) DispatchUp(ev PointerEvent) {
	for _, l := range r.snapshot() {
		l.up(ev)
	}
}
