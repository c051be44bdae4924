/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// SQLite is a TokenStore backed by a single SQLite key/value table, so
// credentials survive process restarts.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

var _ TokenStore = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at cfg.Path, applies
// pragmas and runs migrations.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: sqlite path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path,
		int(cfg.BusyTimeout.Milliseconds()),
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// one writer keeps SetTokens transactions from tripping over each other
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_ns INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}

	const latest = 1

	var cur sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations;`).Scan(&cur); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	for v := int(cur.Int64) + 1; v <= latest; v++ {
		if err := s.apply(ctx, v); err != nil {
			return fmt.Errorf("store: migrate to v%d: %w", v, err)
		}
	}
	return nil
}

func (s *SQLite) apply(ctx context.Context, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	switch version {
	case 1:
		if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS credentials (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at_ns INTEGER NOT NULL
);
`); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migration version %d", version)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations(version, applied_at_ns) VALUES(?, ?);`,
		version, time.Now().UnixNano(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Tokens(ctx context.Context) (Tokens, error) {
	if s.closed.Load() {
		return Tokens{}, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM credentials WHERE key IN (?, ?);`, KeyAccess, KeyRefresh)
	if err != nil {
		return Tokens{}, fmt.Errorf("store: read tokens: %w", err)
	}
	defer rows.Close()

	var t Tokens
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Tokens{}, fmt.Errorf("store: read tokens: %w", err)
		}
		switch k {
		case KeyAccess:
			t.Access = v
		case KeyRefresh:
			t.Refresh = v
		}
	}
	if err := rows.Err(); err != nil {
		return Tokens{}, fmt.Errorf("store: read tokens: %w", err)
	}
	return t, nil
}

func (s *SQLite) SetTokens(ctx context.Context, t Tokens) error {
	if s.closed.Load() {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: write tokens: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	for _, kv := range [...][2]string{{KeyAccess, t.Access}, {KeyRefresh, t.Refresh}} {
		if kv[1] == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?;`, kv[0]); err != nil {
				return fmt.Errorf("store: write tokens: %w", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO credentials(key, value, updated_at_ns) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_ns = excluded.updated_at_ns;
`, kv[0], kv[1], now); err != nil {
			return fmt.Errorf("store: write tokens: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: write tokens: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE key IN (?, ?);`, KeyAccess, KeyRefresh); err != nil {
		return fmt.Errorf("store: clear tokens: %w", err)
	}
	return nil
}

// Close releases the database. Further calls return ErrClosed.
func (s *SQLite) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
