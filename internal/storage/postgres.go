/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "trafficeditor/internal/log"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGStore is a Store backed by PostgreSQL through the pgx stdlib driver.
// It lets several editor installations share one scene.
type PGStore struct {
	db   *sql.DB
	keep int

	mu     sync.RWMutex
	closed bool
}

var _ RevisionStore = (*PGStore)(nil)

// OpenPostgres connects to dsn, verifies the connection and applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string, keepRevisions int) (*PGStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "pg_open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if keepRevisions == 0 {
		keepRevisions = DefaultKeepRevisions
	}
	l.Info("store ready")
	return &PGStore{db: db, keep: keepRevisions}, nil
}

func (s *PGStore) Get(ctx context.Context, store, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE store=$1 AND key=$2`, store, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", store, key, err)
	}
	return v, true, nil
}

func (s *PGStore) Put(ctx context.Context, store, key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if value == nil {
		value = []byte{}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	// dialect=PostgreSQL
	if _, err := tx.ExecContext(ctx, `INSERT INTO kv(store, key, value, updated_at) VALUES($1,$2,$3,now())
		ON CONFLICT (store, key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, store, key, value); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("put %s/%s: %w", store, key, err)
	}
	if s.keep > 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv_history(store, key, value) VALUES($1,$2,$3)`, store, key, value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append revision: %w", err)
		}
		if _, err := tx.ExecContext(ctx, pgPruneSQL, store, key, s.keep); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prune revisions: %w", err)
		}
	}
	return tx.Commit()
}

// dialect=PostgreSQL
const pgPruneSQL = `DELETE FROM kv_history WHERE store=$1 AND key=$2 AND id NOT IN (
	SELECT id FROM kv_history WHERE store=$1 AND key=$2 ORDER BY id DESC LIMIT $3
)`

func (s *PGStore) ListRevisions(ctx context.Context, store, key string, limit int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, ts, value FROM kv_history WHERE store=$1 AND key=$2 ORDER BY id DESC LIMIT $3`, store, key, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		r := Revision{Store: store, Key: key}
		if err := rows.Scan(&r.ID, &r.TS, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) PruneRevisions(ctx context.Context, store, key string, keepLast int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pgPruneSQL, store, key, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PGStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "pg_migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		sqlText := string(b)
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1,$2) ON CONFLICT DO NOTHING`, version, fname); err != nil {
			return fmt.Errorf("record %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
