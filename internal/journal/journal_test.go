/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/vector"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestOpenCreatesWALAndSchema(t *testing.T) {
	j := openTemp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := j.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var schema int
	if err := j.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
	var idx string
	err := j.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='index' AND name='idx_actions_doc'`).Scan(&idx)
	if err == sql.ErrNoRows || idx == "" {
		t.Fatalf("migration index missing: %v", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.sqlite")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Append(context.Background(), "d", document.Action{Name: "addStamp", Args: []any{"x"}}); err != nil {
		t.Fatal(err)
	}
	_ = j.Close()
	if err := j.Append(context.Background(), "d", document.Action{Name: "late"}); err != ErrClosed {
		t.Fatalf("append after close = %v", err)
	}
	j2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j2.Close()
	entries, err := j2.List(context.Background(), "d", 10)
	if err != nil || len(entries) != 1 || entries[0].Name != "addStamp" {
		t.Fatalf("entries = %+v err = %v", entries, err)
	}
}

func TestLoggerRecordsDocumentActions(t *testing.T) {
	j := openTemp(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	j.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	doc := document.New(document.WithID("doc-1"), document.WithActionLogger(j.Logger("doc-1")))
	w, h := 10.0, 10.0
	if _, err := doc.AddObject(drawing.Snapshot{Type: drawing.TypeRectangle, ID: "a", Width: &w, Height: &h}); err != nil {
		t.Fatal(err)
	}
	doc.MoveObjects([]document.Move{{ID: "a", Destination: vector.Point{X: 5}}})
	other := document.New(document.WithID("doc-2"), document.WithActionLogger(j.Logger("doc-2")))
	other.AddStamp(document.Stamp{URL: "s.png"})

	ctx := context.Background()
	entries, err := j.List(ctx, "doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Name != "moveObjects" || entries[1].Name != "addObject" {
		t.Fatalf("entries = %+v", entries)
	}
	if !strings.Contains(string(entries[1].Args), `"id":"a"`) {
		t.Fatalf("addObject args = %s", entries[1].Args)
	}
	all, _ := j.List(ctx, "", 0)
	if len(all) != 3 {
		t.Fatalf("all entries = %d", len(all))
	}
	docs, err := j.Documents(ctx)
	if err != nil || len(docs) != 2 || docs[0].DocID != "doc-2" || docs[1].Actions != 2 {
		t.Fatalf("documents = %+v err = %v", docs, err)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := j.Append(ctx, "d", document.Action{Name: fmt.Sprintf("a%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := j.Prune(ctx, "d", 2)
	if err != nil || n != 3 {
		t.Fatalf("pruned %d err %v", n, err)
	}
	entries, _ := j.List(ctx, "d", 10)
	if len(entries) != 2 || entries[0].Name != "a4" || entries[1].Name != "a3" {
		t.Fatalf("entries = %+v", entries)
	}
}
