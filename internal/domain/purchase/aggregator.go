package purchase

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
)

const orderIDConstraint = "purchases_order_id_key"

// Aggregator persists the order for a funded payment and its tickets.
type Aggregator struct {
	repo        Repository
	orderNumber func() string
}

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo, orderNumber: GenerateOrderNumber}
}

// CreateTx writes the purchase row and links every ticket to it. An order
// number collision fails the transaction; the caller retries with a new one.
func (a *Aggregator) CreateTx(ctx context.Context, tx *sqlx.Tx, userID, paymentID int64, tickets []ticket.Ticket) (*Purchase, error) {
	p := &Purchase{
		UserID:    userID,
		PaymentID: paymentID,
		OrderID:   a.orderNumber(),
		Tickets:   tickets,
	}
	if err := a.repo.CreateTx(ctx, tx, p); err != nil {
		if database.IsUniqueViolation(err, orderIDConstraint) {
			return nil, apperr.Transaction(err, "order number %s already exists", p.OrderID)
		}
		return nil, err
	}

	ids := make([]int64, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	if err := a.repo.LinkTicketsTx(ctx, tx, p.ID, ids); err != nil {
		return nil, err
	}
	return p, nil
}
