package card

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	FindForUserTx(ctx context.Context, tx *sqlx.Tx, id, userID int64) (*SavedCard, error)
	UnsetDefaultsTx(ctx context.Context, tx *sqlx.Tx, userID int64) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, c *SavedCard) error
	ListByUser(ctx context.Context, userID int64) ([]SavedCard, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates saved card repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const cardColumns = `id, user_id, card_type, last_four, cardholder_name, expiry_month, expiry_year, is_default, created_at`

// FindForUserTx returns the card only when it belongs to userID.
func (r *repository) FindForUserTx(ctx context.Context, tx *sqlx.Tx, id, userID int64) (*SavedCard, error) {
	var c SavedCard
	err := tx.GetContext(ctx, &c, `SELECT `+cardColumns+` FROM saved_cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("find saved card: %w", err)
	}
	return &c, nil
}

func (r *repository) UnsetDefaultsTx(ctx context.Context, tx *sqlx.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE saved_cards SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	if err != nil {
		return fmt.Errorf("unset default cards: %w", err)
	}
	return nil
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, c *SavedCard) error {
	query := `
		INSERT INTO saved_cards (user_id, card_type, last_four, cardholder_name, expiry_month, expiry_year, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		c.UserID, c.CardType, c.LastFour, c.CardholderName, c.ExpiryMonth, c.ExpiryYear, c.IsDefault,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert saved card: %w", err)
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]SavedCard, error) {
	cards := make([]SavedCard, 0)
	err := r.db.SelectContext(ctx, &cards, `SELECT `+cardColumns+` FROM saved_cards WHERE user_id = $1 ORDER BY is_default DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved cards: %w", err)
	}
	return cards, nil
}
