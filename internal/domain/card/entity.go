package card

import (
	"strings"
	"time"

	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
)

var (
	ErrCardNotFound = apperr.NotFound("Saved card not found")
	ErrCardExpired  = apperr.Validation("Card has expired")
)

// SavedCard is non-sensitive card metadata reusable across purchases.
type SavedCard struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"userId"`
	CardType       string    `db:"card_type" json:"cardType"`
	LastFour       string    `db:"last_four" json:"lastFour"`
	CardholderName string    `db:"cardholder_name" json:"cardholderName"`
	ExpiryMonth    int       `db:"expiry_month" json:"expiryMonth"`
	ExpiryYear     int       `db:"expiry_year" json:"expiryYear"`
	IsDefault      bool      `db:"is_default" json:"isDefault"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Details is a card entered at checkout. Number and CVV are never persisted.
type Details struct {
	Number         string
	CardholderName string
	ExpiryMonth    int
	ExpiryYear     int
	CVV            string
}

// Digits returns the card number without separators.
func (d Details) Digits() string {
	return digitsOnly(d.Number)
}

// LastFour returns the last four digits of the card number.
func (d Details) LastFour() string {
	digits := d.Digits()
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// CheckExpiry fails when the card expired before the month of now.
func (d Details) CheckExpiry(now time.Time) error {
	year, month := now.Year(), int(now.Month())
	if d.ExpiryYear < year || (d.ExpiryYear == year && d.ExpiryMonth < month) {
		return ErrCardExpired
	}
	return nil
}

// ToSavedCard builds the row persisted for d.
func (d Details) ToSavedCard(userID int64, isDefault bool) *SavedCard {
	return &SavedCard{
		UserID:         userID,
		CardType:       GetCardType(d.Number),
		LastFour:       d.LastFour(),
		CardholderName: strings.TrimSpace(d.CardholderName),
		ExpiryMonth:    d.ExpiryMonth,
		ExpiryYear:     d.ExpiryYear,
		IsDefault:      isDefault,
	}
}
