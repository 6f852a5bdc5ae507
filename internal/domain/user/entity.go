package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the buyer as seen by the purchase core.
type User struct {
	ID            int64           `db:"id" json:"id"`
	Email         string          `db:"email" json:"email"`
	Name          string          `db:"name" json:"name"`
	CreditBalance decimal.Decimal `db:"credit_balance" json:"creditBalance"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the name used to greet the user.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
