package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database/dbtest"
)

func countUsers(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}

func insertUser(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users (email) VALUES ('tx@test.local')`)
	return err
}

func TestExecuteInTransactionCommits(t *testing.T) {
	db := dbtest.Open(t)
	txm := database.NewTxManager(db, 0)

	err := txm.ExecuteInTransaction(context.Background(), insertUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := countUsers(t, db); n != 1 {
		t.Fatalf("expected 1 user after commit, got %d", n)
	}
}

func TestExecuteInTransactionRollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	txm := database.NewTxManager(db, 0)
	boom := apperr.Insufficient("Insufficient credits")

	err := txm.ExecuteInTransaction(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected work error to propagate unchanged, got %v", err)
	}
	if n := countUsers(t, db); n != 0 {
		t.Fatalf("expected rollback, found %d users", n)
	}
}

func TestExecuteInTransactionRollsBackOnPanic(t *testing.T) {
	db := dbtest.Open(t)
	txm := database.NewTxManager(db, 0)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to be re-raised")
			}
		}()
		_ = txm.ExecuteInTransaction(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
			if err := insertUser(ctx, tx); err != nil {
				return err
			}
			panic("ticket issuer exploded")
		})
	}()

	if n := countUsers(t, db); n != 0 {
		t.Fatalf("expected rollback after panic, found %d users", n)
	}
}

func TestExecuteInTransactionWrapsStoreErrors(t *testing.T) {
	db := dbtest.Open(t)
	txm := database.NewTxManager(db, 0)

	err := txm.ExecuteInTransaction(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx); err != nil {
			return err
		}
		// duplicate email violates users_email_key
		return insertUser(ctx, tx)
	})
	if !errors.Is(err, apperr.ErrTransactionFailed) {
		t.Fatalf("expected transaction failure, got %v", err)
	}
	if n := countUsers(t, db); n != 0 {
		t.Fatalf("expected rollback, found %d users", n)
	}
}
