/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

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

	"pamet/internal/entity"
	"pamet/internal/geom"
	applog "pamet/internal/log"
	"pamet/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	SQLiteFileName = "pamet.sqlite"

	// schemaVersion is bumped together with a new step in runMigrations.
	schemaVersion = 2

	dbTimeout = 5 * time.Second
)

// SQLiteRepository keeps all pages of a notebook in one database.
type SQLiteRepository struct {
	Path string
	db   *sql.DB
	log  *slog.Logger
}

// SQLitePath returns the database file used for root.
func SQLitePath(root string) string { return filepath.Join(root, SQLiteFileName) }

// OpenSQLite opens or creates the database under root with WAL enabled and the
// schema migrated to the current version.
func OpenSQLite(root string) (*SQLiteRepository, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(slog.String("root", root))
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("repository root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}
	path := SQLitePath(root)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("prepare schema failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Info("sqlite repository ready", slog.String("path", path))
	return &SQLiteRepository{Path: path, db: db, log: l}, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
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
		// Fresh databases start at version 1 and migrate up like old ones.
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

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			created  TEXT NOT NULL,
			modified TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notes (
			id               TEXT NOT NULL,
			page_id          TEXT NOT NULL,
			type             TEXT NOT NULL,
			x                REAL NOT NULL,
			y                REAL NOT NULL,
			width            REAL NOT NULL,
			height           REAL NOT NULL,
			text             TEXT NOT NULL,
			text_color       TEXT NOT NULL,
			background_color TEXT NOT NULL,
			created          TEXT NOT NULL,
			modified         TEXT NOT NULL,
			seq              INTEGER NOT NULL,
			PRIMARY KEY(page_id, id),
			FOREIGN KEY(page_id) REFERENCES pages(id) ON DELETE CASCADE
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental steps up to schemaVersion.
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
			// Full text index over note text, kept in sync by triggers.
			stmts = []string{
				`CREATE VIRTUAL TABLE IF NOT EXISTS fts_notes USING fts5(
					text,
					content='notes',
					content_rowid='rowid',
					tokenize = 'unicode61'
				);`,
				`CREATE TRIGGER IF NOT EXISTS notes_ai AFTER INSERT ON notes BEGIN
					INSERT INTO fts_notes(rowid, text) VALUES (new.rowid, new.text);
				END;`,
				`CREATE TRIGGER IF NOT EXISTS notes_ad AFTER DELETE ON notes BEGIN
					INSERT INTO fts_notes(fts_notes, rowid, text) VALUES ('delete', old.rowid, old.text);
				END;`,
				`CREATE TRIGGER IF NOT EXISTS notes_au AFTER UPDATE OF text ON notes BEGIN
					INSERT INTO fts_notes(fts_notes, rowid, text) VALUES ('delete', old.rowid, old.text);
					INSERT INTO fts_notes(rowid, text) VALUES (new.rowid, new.text);
				END;`,
				`INSERT INTO fts_notes(fts_notes) VALUES ('rebuild');`,
			}
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

// SchemaVersion reports the migrated schema version.
func (r *SQLiteRepository) SchemaVersion() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	var v int
	err := r.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func (r *SQLiteRepository) PageIDs() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM pages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) CreatePage(p entity.Page, notes []entity.Note) error {
	if err := validatePageID(p.ID); err != nil {
		return err
	}
	return r.inTx(func(ctx context.Context, tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM pages WHERE id=?`, p.ID).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrExists, p.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO pages(id, name, created, modified) VALUES(?,?,?,?)`,
			p.ID, p.Name, formatTime(p.Created), formatTime(p.Modified)); err != nil {
			return fmt.Errorf("insert page: %w", err)
		}
		return insertNotes(ctx, tx, p.ID, notes)
	})
}

func (r *SQLiteRepository) UpdatePage(p entity.Page, notes []entity.Note) error {
	if err := validatePageID(p.ID); err != nil {
		return err
	}
	return r.inTx(func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE pages SET name=?, created=?, modified=? WHERE id=?`,
			p.Name, formatTime(p.Created), formatTime(p.Modified), p.ID)
		if err != nil {
			return fmt.Errorf("update page: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE page_id=?`, p.ID); err != nil {
			return fmt.Errorf("clear notes: %w", err)
		}
		return insertNotes(ctx, tx, p.ID, notes)
	})
}

func (r *SQLiteRepository) PageWithNotes(id string) (entity.Page, []entity.Note, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	var (
		p                 entity.Page
		created, modified string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created, modified FROM pages WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &created, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Page{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return entity.Page{}, nil, fmt.Errorf("read page: %w", err)
	}
	if p.Created, err = parseTime(created); err != nil {
		return entity.Page{}, nil, fmt.Errorf("page %s: %w", id, err)
	}
	if p.Modified, err = parseTime(modified); err != nil {
		return entity.Page{}, nil, fmt.Errorf("page %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, page_id, type, x, y, width, height, text, text_color,
		background_color, created, modified FROM notes WHERE page_id=? ORDER BY seq`, id)
	if err != nil {
		return entity.Page{}, nil, fmt.Errorf("read notes: %w", err)
	}
	defer rows.Close()
	notes := []entity.Note{}
	for rows.Next() {
		var (
			n              entity.Note
			tc, bg, cr, md string
		)
		if err := rows.Scan(&n.ID, &n.PageID, &n.Type, &n.Position.X, &n.Position.Y, &n.Size.X, &n.Size.Y,
			&n.Text, &tc, &bg, &cr, &md); err != nil {
			return entity.Page{}, nil, err
		}
		if err := decodeNoteRow(&n, tc, bg, cr, md); err != nil {
			return entity.Page{}, nil, fmt.Errorf("note %s: %w", n.ID, err)
		}
		notes = append(notes, n)
	}
	return p, notes, rows.Err()
}

func (r *SQLiteRepository) DeletePage(id string) error {
	return r.inTx(func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE page_id=?`, id); err != nil {
			return fmt.Errorf("delete notes: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id=?`, id)
		if err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) inTx(fn func(context.Context, *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertNotes(ctx context.Context, tx *sql.Tx, pageID string, notes []entity.Note) error {
	if err := checkNotesBelong(pageID, notes); err != nil {
		return err
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO notes(id, page_id, type, x, y, width, height, text,
		text_color, background_color, created, modified, seq) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for i, n := range notes {
		if _, err := ins.ExecContext(ctx, n.ID, n.PageID, n.Type, n.Position.X, n.Position.Y, n.Size.X, n.Size.Y,
			n.Text, formatColor(n.TextColor), formatColor(n.BackgroundColor),
			formatTime(n.Created), formatTime(n.Modified), i); err != nil {
			return fmt.Errorf("insert note %s: %w", n.ID, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t, nil
}

func formatColor(c geom.Color) string {
	b, _ := json.Marshal(c)
	return string(b)
}

func parseColor(s string) (geom.Color, error) {
	var c geom.Color
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return geom.Color{}, fmt.Errorf("decode color %q: %w", s, err)
	}
	return c, nil
}

func decodeNoteRow(n *entity.Note, textColor, bgColor, created, modified string) error {
	var err error
	if n.TextColor, err = parseColor(textColor); err != nil {
		return err
	}
	if n.BackgroundColor, err = parseColor(bgColor); err != nil {
		return err
	}
	if n.Created, err = parseTime(created); err != nil {
		return err
	}
	n.Modified, err = parseTime(modified)
	return err
}
