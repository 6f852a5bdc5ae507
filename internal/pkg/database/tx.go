package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
)

// TxFunc is a unit of work bound to a single database transaction.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// Transactor runs a unit of work inside one transaction: commit on a nil
// return, rollback on an error or a panic. Kinded apperr errors propagate
// unchanged; any other failure is reported as apperr.ErrTransactionFailed.
type Transactor interface {
	ExecuteInTransaction(ctx context.Context, fn TxFunc) error
}

// TxManager is the Postgres-backed Transactor.
type TxManager struct {
	db      *sqlx.DB
	opts    *sql.TxOptions
	timeout time.Duration
}

// NewTxManager creates a transaction manager. A zero timeout leaves the
// statement and lock timeouts to the server.
func NewTxManager(db *sqlx.DB, timeout time.Duration) *TxManager {
	return &TxManager{
		db:      db,
		opts:    &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		timeout: timeout,
	}
}

func (m *TxManager) ExecuteInTransaction(ctx context.Context, fn TxFunc) (err error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	tx, err := m.db.BeginTxx(ctx, m.opts)
	if err != nil {
		return apperr.Transaction(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		rollback(tx)
		if apperr.KindOf(err) == nil {
			return apperr.Transaction(err, "transaction aborted")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Transaction(err, "commit transaction")
	}
	return nil
}

func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error().Err(err).Msg("Transaction rollback failed")
	}
}
