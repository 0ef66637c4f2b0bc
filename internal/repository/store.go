// Package repository holds the database/sql data access layer of the
// ledger.  Each repo wraps a *sql.DB; methods with a Tx suffix run inside
// a caller-supplied transaction so that services can compose several
// writes into one atomic unit via Store.WithinTx.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/tuition-ledger/internal/database"
)

// Store owns the connection pool and the dialect it speaks.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() database.Dialect { return s.dialect }

// WithinTx runs fn in a transaction.  The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}

// forUpdate is appended to SELECTs that must lock the rows they read.
// SQLite has no row locks; its transactions are opened IMMEDIATE instead.
func forUpdate(d database.Dialect) string {
	if d == database.MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// notFound converts sql.ErrNoRows into the supplied sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
