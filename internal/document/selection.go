/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import "slices"

// SelectedButton returns the active tool.
func (c *Content) SelectedButton() Tool { return c.meta.selectedButton }

// SetSelectedButton switches tools and clears the selection.
func (c *Content) SetSelectedButton(t Tool) {
	c.meta.selectedButton = t
	c.ClearSelection()
}

// Selection returns the selected ids in selection order.
func (c *Content) Selection() []string { return slices.Clone(c.meta.selection) }

func (c *Content) IsSelected(id string) bool { return slices.Contains(c.meta.selection, id) }

// SetSelection replaces the selection with the existing ids among ids.
func (c *Content) SetSelection(ids []string) {
	c.meta.selection = nil
	c.Select(ids...)
}

// Select adds existing top-level ids to the selection.
func (c *Content) Select(ids ...string) {
	for _, id := range ids {
		if c.indexOf(id) >= 0 && !c.IsSelected(id) {
			c.meta.selection = append(c.meta.selection, id)
		}
	}
}

// Unselect removes the ids from the selection.
func (c *Content) Unselect(ids []string) {
	c.meta.selection = slices.DeleteFunc(c.meta.selection, func(id string) bool {
		return slices.Contains(ids, id)
	})
}

// ToggleSelected flips membership of id.
func (c *Content) ToggleSelected(id string) {
	if c.IsSelected(id) {
		c.Unselect([]string{id})
		return
	}
	c.Select(id)
}

func (c *Content) ClearSelection() { c.meta.selection = nil }

func (c *Content) anySelected(ids []string) bool {
	for _, id := range ids {
		if c.IsSelected(id) {
			return true
		}
	}
	return false
}
