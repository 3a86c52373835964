/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package migrate

import (
	"encoding/json"
	"log/slog"
	"slices"
)

// change is one entry of a legacy change log.
type change struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type moveData struct {
	ID          string `json:"id"`
	Destination struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"destination"`
}

type updateData struct {
	IDs    json.RawMessage `json:"ids"`
	Update struct {
		Prop     string `json:"prop"`
		NewValue any    `json:"newValue"`
	} `json:"update"`
}

// replay applies the change log in order and returns the surviving objects in
// creation order.
func (im *importer) replay(changes []string) []any {
	var order []string
	objects := map[string]map[string]any{}
	seen := map[string]bool{}

	for i, raw := range changes {
		var c change
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			im.warn("replay", "skipping unparseable change", slog.Int("index", i), slog.Any("err", err))
			continue
		}
		switch c.Action {
		case "create":
			var obj map[string]any
			if err := json.Unmarshal(c.Data, &obj); err != nil || obj == nil {
				im.warn("replay", "skipping malformed create", slog.Int("index", i))
				continue
			}
			id, _ := obj["id"].(string)
			if id == "" {
				im.warn("replay", "skipping create without id", slog.Int("index", i))
				continue
			}
			if seen[id] {
				im.warn("replay", "skipping create with duplicate id", slog.Int("index", i), slog.String("id", id))
				continue
			}
			seen[id] = true
			objects[id] = obj
			order = append(order, id)
		case "move":
			var moves []moveData
			if err := json.Unmarshal(c.Data, &moves); err != nil {
				im.warn("replay", "skipping malformed move", slog.Int("index", i))
				continue
			}
			for _, m := range moves {
				if obj, ok := objects[m.ID]; ok {
					obj["x"], obj["y"] = m.Destination.X, m.Destination.Y
				}
			}
		case "update":
			var u updateData
			if err := json.Unmarshal(c.Data, &u); err != nil || u.Update.Prop == "" {
				im.warn("replay", "skipping malformed update", slog.Int("index", i))
				continue
			}
			for _, id := range idList(u.IDs) {
				if obj, ok := objects[id]; ok {
					obj[u.Update.Prop] = u.Update.NewValue
				}
			}
		case "delete":
			var ids []string
			if err := json.Unmarshal(c.Data, &ids); err != nil {
				im.warn("replay", "skipping malformed delete", slog.Int("index", i))
				continue
			}
			for _, id := range ids {
				if _, ok := objects[id]; !ok {
					continue
				}
				delete(objects, id)
				order = slices.DeleteFunc(order, func(s string) bool { return s == id })
			}
		default:
			im.warn("replay", "skipping unknown change", slog.Int("index", i), slog.String("action", c.Action))
		}
	}

	out := make([]any, 0, len(order))
	for _, id := range order {
		out = append(out, objects[id])
	}
	return rewriteGroups(out)
}

// idList accepts a single id or a list of ids.
func idList(raw json.RawMessage) []string {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	return nil
}
