// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package inventory persists the player's unopened capsule packs in SQLite
// as an append-only ledger.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrInsufficient is returned when consuming more packs than are held.
var ErrInsufficient = errors.New("not enough packs")

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Reason labels a ledger entry.
type Reason string

const (
	ReasonOpened   Reason = "opened"   // reward from a completed session
	ReasonConsumed Reason = "consumed" // spent by the player
	ReasonGranted  Reason = "granted"  // added by an operator
)

// Entry is one ledger row.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Delta     int       `json:"delta"`
	Reason    Reason    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps SQLite access for the pack ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer keeps the ledger sum consistent
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inventory migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pack_ledger (
			id TEXT PRIMARY KEY,
			delta INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pack_ledger_created_at ON pack_ledger(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddPack records n opened packs and returns the new total. It implements
// driver.Inventory.
func (s *Store) AddPack(ctx context.Context, n int) (int, error) {
	return s.Record(ctx, n, ReasonOpened)
}

// Grant adds n packs outside a session.
func (s *Store) Grant(ctx context.Context, n int) (int, error) {
	return s.Record(ctx, n, ReasonGranted)
}

// Consume removes n packs, failing with ErrInsufficient if fewer are held.
func (s *Store) Consume(ctx context.Context, n int) (int, error) {
	return s.Record(ctx, -n, ReasonConsumed)
}

// Record appends one ledger entry and returns the resulting total. The
// total never goes negative.
func (s *Store) Record(ctx context.Context, delta int, reason Reason) (total int, err error) {
	if delta == 0 {
		return s.Count(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(delta), 0) FROM pack_ledger`).Scan(&total); err != nil {
		return 0, err
	}
	if total+delta < 0 {
		err = fmt.Errorf("%w: have %d, need %d", ErrInsufficient, total, -delta)
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pack_ledger (id, delta, reason, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), delta, string(reason), s.now().UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return total + delta, nil
}

// Count returns the number of packs held.
func (s *Store) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(delta), 0) FROM pack_ledger`).Scan(&total)
	return total, err
}

// History returns the newest entries first, at most limit of them.
func (s *Store) History(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, delta, reason, created_at FROM pack_ledger ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var id, reason, at string
		if err := rows.Scan(&id, &e.Delta, &reason, &at); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("inventory: bad entry id %q: %w", id, err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("inventory: bad timestamp %q: %w", at, err)
		}
		e.Reason = Reason(reason)
		out = append(out, e)
	}
	return out, rows.Err()
}
