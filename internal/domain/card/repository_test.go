package card_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database/dbtest"
)

func TestRepositoryDefaultCardSwitch(t *testing.T) {
	db := dbtest.Open(t)
	repo := card.NewRepository(db)
	txm := database.NewTxManager(db, 0)
	userID := dbtest.CreateUser(t, db, "cards@test.local", "0")
	ctx := context.Background()

	insert := func(number string, isDefault bool) *card.SavedCard {
		c := (card.Details{Number: number, ExpiryMonth: 12, ExpiryYear: 2031}).ToSavedCard(userID, isDefault)
		err := txm.ExecuteInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
			if isDefault {
				if err := repo.UnsetDefaultsTx(ctx, tx, userID); err != nil {
					return err
				}
			}
			return repo.CreateTx(ctx, tx, c)
		})
		if err != nil {
			t.Fatalf("insert card: %v", err)
		}
		return c
	}

	first := insert("4111111111111111", true)
	second := insert("5555555555554444", true)

	cards, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	for _, c := range cards {
		if c.IsDefault != (c.ID == second.ID) {
			t.Fatalf("expected only card %d to be default, got %+v", second.ID, cards)
		}
	}
	if first.ID == second.ID || second.CardType != card.BrandMastercard {
		t.Fatalf("unexpected second card %+v", second)
	}
}

func TestRepositoryFindScopedToUser(t *testing.T) {
	db := dbtest.Open(t)
	repo := card.NewRepository(db)
	txm := database.NewTxManager(db, 0)
	owner := dbtest.CreateUser(t, db, "owner@test.local", "0")
	other := dbtest.CreateUser(t, db, "other@test.local", "0")
	ctx := context.Background()

	c := (card.Details{Number: "4111111111111111", ExpiryMonth: 1, ExpiryYear: 2032}).ToSavedCard(owner, false)
	err := txm.ExecuteInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return repo.CreateTx(ctx, tx, c)
	})
	if err != nil {
		t.Fatalf("insert card: %v", err)
	}

	err = txm.ExecuteInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := repo.FindForUserTx(ctx, tx, c.ID, other)
		return err
	})
	if !errors.Is(err, apperr.ErrNotFound) || err.Error() != "Saved card not found" {
		t.Fatalf("expected Saved card not found, got %v", err)
	}
}
