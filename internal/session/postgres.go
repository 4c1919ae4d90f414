/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore persists sessions and their blobs in PostgreSQL. Blobs
// live in a single table keyed (session_id, kind, name); a serial insert
// order column preserves upload ordering for List.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for the given DSN and verifies
// connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing pool. Used by tests.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the backing tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS session_blobs (
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			data BYTEA NOT NULL,
			seq BIGSERIAL,
			PRIMARY KEY (session_id, kind, name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres store: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (id) VALUES ($1)`, id)
	if err != nil {
		return "", fmt.Errorf("postgres store: create session: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres store: exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Put(ctx context.Context, sessionID, kind, name string, data []byte) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_blobs (session_id, kind, name, data)
		 SELECT id, $2, $3, $4 FROM sessions WHERE id = $1
		 ON CONFLICT (session_id, kind, name) DO UPDATE SET data = EXCLUDED.data`,
		sessionID, kind, name, data)
	if err != nil {
		return fmt.Errorf("postgres store: put %s/%s: %w", kind, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres store: put %s/%s: %w", kind, name, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID, kind, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM session_blobs WHERE session_id = $1 AND kind = $2 AND name = $3`,
		sessionID, kind, name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ok, exErr := s.Exists(ctx, sessionID)
			if exErr != nil {
				return nil, exErr
			}
			if !ok {
				return nil, ErrSessionNotFound
			}
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("postgres store: get %s/%s: %w", kind, name, err)
	}
	return data, nil
}

func (s *PostgresStore) List(ctx context.Context, sessionID, kind string) ([]string, error) {
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM session_blobs WHERE session_id = $1 AND kind = $2 ORDER BY seq`,
		sessionID, kind)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list %s: %w", kind, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres store: list %s: %w", kind, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: list %s: %w", kind, err)
	}
	return names, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("postgres store: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres store: delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
