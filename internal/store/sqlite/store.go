// Package sqlite implements store.Store on an SQLite database file.
//
// Writes go through a single connection opened with BEGIN IMMEDIATE, so
// write transactions are serialised by the database itself. Reads use a
// separate pool; in WAL mode every read transaction sees one consistent
// snapshot and never waits for a writer.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/cleared-dev/forecourt/internal/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	writer *sql.DB
	reader *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	writer, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := migrate(ctx, writer); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("sqlite: open reader: %w", err)
	}

	return &Store{writer: writer, reader: reader}, nil
}

func dsn(path string, immediate bool) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	if immediate {
		q.Set("_txlock", "immediate")
	}
	return "file:" + path + "?" + q.Encode()
}

// Update runs fn inside a write transaction.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	sqlTx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&txn{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// View runs fn inside a read transaction.
func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	sqlTx, err := s.reader.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin read: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // read-only

	return fn(&txn{tx: sqlTx})
}

// NextSequence increments and returns the counter named key in its own
// transaction. It must not be called from inside Update.
func (s *Store) NextSequence(ctx context.Context, key string) (int64, error) {
	var next int64
	err := s.Update(ctx, func(tx store.Tx) error {
		t := tx.(*txn)
		err := t.tx.QueryRowContext(ctx, `
INSERT INTO sequences (key, value) VALUES (?, 1)
ON CONFLICT (key) DO UPDATE SET value = value + 1
RETURNING value`, key).Scan(&next)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite: next sequence %s: %w", key, err)
	}
	return next, nil
}

// Close closes both connection pools.
func (s *Store) Close() error {
	return errors.Join(s.reader.Close(), s.writer.Close())
}
