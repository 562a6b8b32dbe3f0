// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sqlite journals committed events to a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/events"
	"github.com/luxfi/surety/vms/suretyvm/events/sqlite/migrations"

	_ "modernc.org/sqlite"
)

var (
	errPathRequired  = errors.New("journal path is required")
	errNotConfigured = errors.New("journal is not configured")
	errBadLimit      = errors.New("limit must be greater than zero")
)

// Record is a journaled event with its sequence number.
type Record struct {
	Seq uint64
	events.Event
}

// Filter narrows a journal query. Empty fields match everything.
type Filter struct {
	Kind    events.Kind
	Subject string
	// AfterSeq skips records with a sequence number <= AfterSeq.
	AfterSeq uint64
	Limit    int
}

// Store is an append-only event journal.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path and applies its migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errPathRequired
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends evs in a single transaction.
func (s *Store) Record(ctx context.Context, evs []events.Event) error {
	if s == nil || s.db == nil {
		return errNotConfigured
	}
	if len(evs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal write: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (kind, time, actor, subject, amount, attrs)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare journal write: %w", err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		attrs, err := json.Marshal(ev.Attrs)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode attrs: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(ev.Kind),
			int64(ev.Time),
			ev.Actor.String(),
			ev.Subject,
			ev.Amount,
			string(attrs),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("journal %s: %w", ev.Kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal write: %w", err)
	}
	return nil
}

// List returns journaled events in sequence order.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errNotConfigured
	}
	if f.Limit <= 0 {
		return nil, errBadLimit
	}

	query := "SELECT seq, kind, time, actor, subject, amount, attrs FROM events WHERE seq > ?"
	args := []any{int64(f.AfterSeq)}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if f.Subject != "" {
		query += " AND subject = ?"
		args = append(args, f.Subject)
	}
	query += " ORDER BY seq LIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			seq   int64
			when  int64
			kind  string
			actor string
			attrs string
		)
		if err := rows.Scan(&seq, &kind, &when, &actor, &rec.Subject, &rec.Amount, &attrs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Seq = uint64(seq)
		rec.Kind = events.Kind(kind)
		rec.Time = uint64(when)
		if rec.Actor, err = ids.ShortFromString(actor); err != nil {
			return nil, fmt.Errorf("decode actor: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &rec.Attrs); err != nil {
			return nil, fmt.Errorf("decode attrs: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of journaled events.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	if s == nil || s.db == nil {
		return 0, errNotConfigured
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return uint64(n), nil
}
