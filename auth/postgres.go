// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/lib/pq"
)

// PostgresBackend keeps the credential in one row of a key/value table
type PostgresBackend struct {
	db    *sql.DB
	table string // quoted identifier
	name  string
}

func NewPostgresBackend(ctx context.Context, cfg *config.Config) (*PostgresBackend, error) {
	pg := cfg.TokenStore.Postgres
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		pg.Host,
		pg.Port,
		pg.User,
		pg.Password,
		pg.DBName,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	s := &PostgresBackend{
		db:    db,
		table: pq.QuoteIdentifier(pg.Table),
		name:  pg.Name,
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresBackend) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres schema setup failed: %w", err)
	}
	return nil
}

func (s *PostgresBackend) Get(ctx context.Context) ([]byte, error) {
	var payload string
	query := fmt.Sprintf("SELECT payload FROM %s WHERE name = $1", s.table)
	err := s.db.QueryRowContext(ctx, query, s.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres select failed: %w", err)
	}
	return []byte(payload), nil
}

func (s *PostgresBackend) Put(ctx context.Context, data []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (name, payload, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, s.name, string(data)); err != nil {
		return fmt.Errorf("postgres upsert failed: %w", err)
	}
	return nil
}

func (s *PostgresBackend) Delete(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE name = $1", s.table)
	if _, err := s.db.ExecContext(ctx, query, s.name); err != nil {
		return fmt.Errorf("postgres delete failed: %w", err)
	}
	return nil
}

func (s *PostgresBackend) Close() error {
	return s.db.Close()
}
