/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package journal persists the action log of drawings in a local SQLite
// database, one row per logged action.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drawtile/internal/document"
	applog "drawtile/internal/log"
	"drawtile/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the journal schema. Bump it together with a step in
// runMigrations.
const schemaVersion = 2

// language=SQL
// dialect=SQLite
const insertActionSQL = `INSERT INTO actions(doc_id, ts, name, path, args) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listActionsSQL = `SELECT id, doc_id, ts, name, path, args FROM actions
	WHERE (? = '' OR doc_id = ?) ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const listDocumentsSQL = `SELECT doc_id, COUNT(*), MAX(ts) FROM actions GROUP BY doc_id ORDER BY MAX(ts) DESC`

// language=SQL
// dialect=SQLite
const pruneActionsSQL = `DELETE FROM actions WHERE doc_id = ? AND id NOT IN (
	SELECT id FROM actions WHERE doc_id = ? ORDER BY id DESC LIMIT ?
)`

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal closed")

// Entry is one recorded action.
type Entry struct {
	ID    int64
	DocID string
	TS    time.Time
	Name  string
	Path  string
	Args  json.RawMessage
}

// DocumentStat summarizes the actions recorded for one document.
type DocumentStat struct {
	DocID   string
	Actions int
	Last    time.Time
}

// Journal is an open action journal.
type Journal struct {
	db   *sql.DB
	path string
	log  *slog.Logger
	now  func() time.Time
}

// Open creates or opens the journal database at path, enables WAL mode and
// brings the schema up to date.
func Open(path string) (*Journal, error) {
	l := applog.WithOperation(applog.WithComponent("journal"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create journal dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("journal ready")
	return &Journal{db: db, path: path, log: applog.WithComponent("journal"), now: time.Now}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			id     INTEGER PRIMARY KEY,
			doc_id TEXT NOT NULL,
			ts     TEXT NOT NULL,
			name   TEXT NOT NULL,
			path   TEXT NOT NULL,
			args   TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh databases start at 1 and migrate forward like old ones
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_actions_doc ON actions(doc_id, id);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Append records a for the document docID.
func (j *Journal) Append(ctx context.Context, docID string, a document.Action) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	args, err := json.Marshal(a.Args)
	if err != nil {
		return fmt.Errorf("encode args of %s: %w", a.Name, err)
	}
	if _, err := j.db.ExecContext(ctx, insertActionSQL, docID, j.now().UTC().Format(time.RFC3339Nano), a.Name, a.Path, string(args)); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. An empty docID lists all
// documents.
func (j *Journal) List(ctx context.Context, docID string, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, listActionsSQL, docID, docID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			ts   string
			args string
		)
		if err := rows.Scan(&e.ID, &e.DocID, &ts, &e.Name, &e.Path, &args); err != nil {
			return nil, err
		}
		e.TS, _ = time.Parse(time.RFC3339Nano, ts)
		e.Args = json.RawMessage(args)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Documents summarizes the journal per document, most recently edited first.
func (j *Journal) Documents(ctx context.Context) ([]DocumentStat, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx, listDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocumentStat
	for rows.Next() {
		var (
			s  DocumentStat
			ts string
		)
		if err := rows.Scan(&s.DocID, &s.Actions, &ts); err != nil {
			return nil, err
		}
		s.Last, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune keeps only the newest keep entries of docID.
func (j *Journal) Prune(ctx context.Context, docID string, keep int) (int64, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	if keep < 0 {
		keep = 0
	}
	res, err := j.db.ExecContext(ctx, pruneActionsSQL, docID, docID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Logger returns an action logger recording into the journal for docID.
// Write failures are logged, not returned, since action logging cannot fail
// an edit.
func (j *Journal) Logger(docID string) document.ActionLogger {
	return document.ActionLoggerFunc(func(a document.Action) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := j.Append(ctx, docID, a); err != nil {
			j.log.Warn("journal append failed", slog.String("document", docID), slog.String("action", a.Name), slog.Any("err", err))
		}
	})
}
