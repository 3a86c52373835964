/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package migrate normalizes persisted drawings into the current snapshot
// format. Malformed input never fails the load: it degrades to an empty or
// partial drawing and the problems are reported as warnings.
package migrate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"golang.org/x/mod/semver"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	applog "drawtile/internal/log"
)

//go:embed drawing.schema.json
var schemaJSON []byte

// Schema returns the JSON schema current snapshots conform to.
func Schema() []byte { return bytes.Clone(schemaJSON) }

// Format is the detected shape of the input.
type Format int

const (
	FormatUnknown Format = iota
	FormatCurrent
	FormatChangeLog
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatChangeLog:
		return "changelog"
	case FormatLegacy:
		return "legacy"
	}
	return "unknown"
}

// groupTransformVersion is the first version whose groups carry their own box.
const groupTransformVersion = "v1.1.0"

// Result is a normalized drawing plus what happened on the way.
type Result struct {
	Snapshot document.Snapshot
	Format   Format
	Warnings []string
}

type importer struct {
	log      *slog.Logger
	warnings []string
}

func (im *importer) warn(op, msg string, attrs ...any) {
	im.log.Warn(msg, append([]any{slog.String("op", op)}, attrs...)...)
	im.warnings = append(im.warnings, msg)
}

// Import detects the format of data and returns the drawing in the current
// format. It never returns an error.
func Import(data []byte) Result {
	im := &importer{log: applog.WithComponent("migrate")}
	res := im.run(data)
	res.Warnings = im.warnings
	return res
}

// Load imports data and instantiates the document.
func Load(data []byte, opts ...document.Option) (*document.Content, Result) {
	res := Import(data)
	return document.FromSnapshot(res.Snapshot, opts...), res
}

func (im *importer) run(data []byte) Result {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		im.warn("detect", "unparseable drawing, starting empty", slog.Any("err", err))
		return Result{Snapshot: document.Empty()}
	}
	switch f := Detect(raw); f {
	case FormatChangeLog:
		var cl struct {
			Changes []string `json:"changes"`
		}
		if err := json.Unmarshal(data, &cl); err != nil {
			im.warn("changelog", "malformed change log, starting empty", slog.Any("err", err))
			return Result{Snapshot: document.Empty(), Format: f}
		}
		objs := im.replay(cl.Changes)
		return im.finish(f, map[string]any{"objects": objs})
	case FormatLegacy:
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			im.warn("legacy", "malformed legacy drawing, starting empty", slog.Any("err", err))
			return Result{Snapshot: document.Empty(), Format: f}
		}
		objs, _ := doc["objects"].([]any)
		doc["objects"] = rewriteGroups(objs)
		return im.finish(f, doc)
	case FormatCurrent:
		if err := Validate(data); err != nil {
			im.warn("validate", "drawing does not match schema, starting empty", slog.Any("err", err))
			return Result{Snapshot: document.Empty(), Format: f}
		}
		var s document.Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			im.warn("decode", "undecodable drawing, starting empty", slog.Any("err", err))
			return Result{Snapshot: document.Empty(), Format: f}
		}
		return Result{Snapshot: s, Format: f}
	default:
		im.warn("detect", "unrecognized drawing format, starting empty")
		return Result{Snapshot: document.Empty()}
	}
}

// Detect classifies a decoded top-level JSON object.
func Detect(raw map[string]json.RawMessage) Format {
	if _, ok := raw["changes"]; ok {
		return FormatChangeLog
	}
	objs, ok := raw["objects"]
	if !ok || len(objs) == 0 || objs[0] != '[' {
		return FormatUnknown
	}
	var version string
	if v, ok := raw["version"]; ok {
		_ = json.Unmarshal(v, &version)
	}
	if isLegacyVersion(version) {
		return FormatLegacy
	}
	return FormatCurrent
}

func isLegacyVersion(v string) bool {
	if v == "" {
		return true
	}
	sv := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(sv) {
		return true
	}
	return semver.Compare(sv, groupTransformVersion) < 0
}

// finish fills document defaults for a migrated tree and decodes it.
func (im *importer) finish(f Format, doc map[string]any) Result {
	out := document.Empty()
	doc["type"] = out.Type
	doc["version"] = out.Version
	for k, def := range map[string]any{
		"stroke": out.Stroke, "fill": out.Fill,
		"strokeDashArray": out.StrokeDashArray, "strokeWidth": out.StrokeWidth,
	} {
		if _, ok := doc[k]; !ok {
			doc[k] = def
		}
	}
	if doc["objects"] == nil {
		doc["objects"] = []any{}
	}
	data, err := json.Marshal(doc)
	if err == nil {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		im.warn("finish", "migrated drawing could not be decoded, starting empty", slog.Any("err", err))
		return Result{Snapshot: document.Empty(), Format: f}
	}
	if out.Objects == nil {
		out.Objects = []drawing.Snapshot{}
	}
	return Result{Snapshot: out, Format: f}
}

// rewriteGroups zeroes the box of every group so it is recomputed from its
// children on load, and strips the stale objectExtents field.
func rewriteGroups(objs []any) []any {
	for _, o := range objs {
		m, ok := o.(map[string]any)
		if !ok {
			continue
		}
		if m["type"] == string(drawing.TypeGroup) {
			m["width"], m["height"] = 0.0, 0.0
			delete(m, "objectExtents")
		}
		if children, ok := m["objects"].([]any); ok {
			rewriteGroups(children)
		}
	}
	return objs
}

// Validate checks a current-format snapshot against the schema.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%d schema errors: %s", len(msgs), strings.Join(msgs, "; "))
}
