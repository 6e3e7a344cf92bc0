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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chordfinder/internal/domain"
	"chordfinder/internal/geom"
	applog "chordfinder/internal/log"
	"chordfinder/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// HistoryDirName stores per-scene disposable data under the scene root.
	HistoryDirName  = ".chf"
	HistoryFileName = "history.sqlite"

	// historySchemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	historySchemaVersion = 2
)

// HistoryPath returns the full path to the scene's solve history database.
func HistoryPath(root string) string {
	return filepath.Join(root, HistoryDirName, HistoryFileName)
}

// SolveRecord is one row of the solve history.
type SolveRecord struct {
	ID       int64
	At       time.Time
	Outcome  string
	Points   int
	Pairs    int
	Length   float64
	Pair     []geom.Vec // empty unless Outcome is "found"
	Crossing []geom.Vec
	Source   string // cli, ui, api
}

// RecordFromScene builds a history row from the scene's stored solution.
func RecordFromScene(s domain.Scene, source string) (SolveRecord, bool) {
	sol := s.Solution
	if sol == nil {
		return SolveRecord{}, false
	}
	rec := SolveRecord{
		At:       sol.SolvedAt,
		Outcome:  sol.Outcome,
		Points:   len(s.Points),
		Pairs:    sol.Pairs,
		Length:   sol.Length,
		Crossing: append([]geom.Vec(nil), sol.Crossing...),
		Source:   source,
	}
	for _, p := range sol.Pair {
		rec.Pair = append(rec.Pair, p.Pos)
	}
	return rec, true
}

// History is the per-scene solve log.
type History struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenHistory ensures <root>/.chf/history.sqlite exists, opens it with WAL
// enabled and brings the schema up to date.
func OpenHistory(root string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("scene root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, HistoryDirName), 0o755); err != nil {
		l.Error("create .chf dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .chf dir: %w", err)
	}

	path := HistoryPath(root)
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
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("history ready", slog.String("path", path))
	return &History{db: db, path: path, log: l}, nil
}

// Close releases the database.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// SchemaVersion reports the applied schema version.
func (h *History) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// RecordSolve appends rec and returns its row id.
func (h *History) RecordSolve(ctx context.Context, rec SolveRecord) (int64, error) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	if rec.Source == "" {
		rec.Source = "cli"
	}
	args := []any{rec.At.UTC().Format(time.RFC3339Nano), rec.Outcome, rec.Points, rec.Pairs, rec.Length}
	args = append(args, vecArgs(rec.Pair)...)
	args = append(args, vecArgs(rec.Crossing)...)
	args = append(args, rec.Source)
	res, err := h.db.ExecContext(ctx, `INSERT INTO solves
		(ts, outcome, points, pairs, length, p1x, p1y, p2x, p2y, c1x, c1y, c2x, c2y, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, fmt.Errorf("insert solve: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("solve id: %w", err)
	}
	h.log.Debug("recorded solve", slog.Int64("id", id), slog.String("outcome", rec.Outcome))
	return id, nil
}

// ListSolves returns up to limit records, newest first. limit <= 0 returns all.
func (h *History) ListSolves(ctx context.Context, limit int) ([]SolveRecord, error) {
	q := `SELECT id, ts, outcome, points, pairs, length, p1x, p1y, p2x, p2y, c1x, c1y, c2x, c2y, source
		FROM solves ORDER BY ts DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query solves: %w", err)
	}
	defer rows.Close()
	var out []SolveRecord
	for rows.Next() {
		var (
			rec SolveRecord
			ts  string
			v   [8]sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Outcome, &rec.Points, &rec.Pairs, &rec.Length,
			&v[0], &v[1], &v[2], &v[3], &v[4], &v[5], &v[6], &v[7], &rec.Source); err != nil {
			return nil, fmt.Errorf("scan solve: %w", err)
		}
		rec.At, _ = time.Parse(time.RFC3339Nano, ts)
		rec.Pair = vecsFrom(v[:4])
		rec.Crossing = vecsFrom(v[4:])
		out = append(out, rec)
	}
	return out, rows.Err()
}

func vecArgs(vs []geom.Vec) []any {
	out := make([]any, 4)
	for i := 0; i < 2; i++ {
		if i < len(vs) {
			out[2*i], out[2*i+1] = vs[i].X, vs[i].Y
		}
	}
	return out
}

func vecsFrom(v []sql.NullFloat64) []geom.Vec {
	var out []geom.Vec
	for i := 0; i+1 < len(v); i += 2 {
		if v[i].Valid && v[i+1].Valid {
			out = append(out, geom.V(v[i].Float64, v[i+1].Float64))
		}
	}
	return out
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
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh DB starts at 0 so every migration runs.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

var historyMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS solves (
			id      INTEGER PRIMARY KEY,
			ts      TEXT    NOT NULL,
			outcome TEXT    NOT NULL,
			points  INTEGER NOT NULL,
			pairs   INTEGER NOT NULL,
			length  REAL    NOT NULL,
			p1x REAL, p1y REAL, p2x REAL, p2y REAL,
			c1x REAL, c1y REAL, c2x REAL, c2y REAL
		);`,
	},
	2: {
		`ALTER TABLE solves ADD COLUMN source TEXT NOT NULL DEFAULT 'cli';`,
		`CREATE INDEX IF NOT EXISTS idx_solves_ts ON solves(ts);`,
	},
}

// runMigrations applies incremental schema migrations up to historySchemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < historySchemaVersion {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range historyMigrations[next] {
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
