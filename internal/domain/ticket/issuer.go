package ticket

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// QREncoder renders a ticket hash as a scannable image data URI.
type QREncoder interface {
	ToDataURL(payload string) (string, error)
}

// Issuer mints tickets for a funded payment.
type Issuer struct {
	repo    Repository
	qr      QREncoder
	newHash func(userID, ticketTypeID int64) (string, error)
}

func NewIssuer(repo Repository, qr QREncoder) *Issuer {
	return &Issuer{repo: repo, qr: qr, newHash: NewHash}
}

// IssueTx creates one ticket per unit of quantity, attaches its QR payload
// and links it to paymentID. Any failure aborts the whole issue.
func (i *Issuer) IssueTx(ctx context.Context, tx *sqlx.Tx, userID, paymentID int64, items []LineItem, types map[int64]*TicketType) ([]Ticket, error) {
	tickets := make([]Ticket, 0, TotalQuantity(items))

	for _, it := range items {
		eventID := it.EventID
		if tt, ok := types[it.TicketTypeID]; ok {
			eventID = tt.EventID
		}

		for n := 0; n < it.Quantity; n++ {
			hash, err := i.newHash(userID, it.TicketTypeID)
			if err != nil {
				return nil, err
			}

			t := Ticket{
				EventID:      eventID,
				UserID:       userID,
				TicketTypeID: it.TicketTypeID,
				Price:        it.Price,
				Hash:         hash,
				Status:       StatusActive,
			}
			if err := i.repo.CreateTx(ctx, tx, &t); err != nil {
				return nil, err
			}

			qr, err := i.qr.ToDataURL(t.Hash)
			if err != nil {
				return nil, fmt.Errorf("render qr for ticket %d: %w", t.ID, err)
			}
			if err := i.repo.UpdateQRTx(ctx, tx, t.ID, qr); err != nil {
				return nil, err
			}
			t.QRCode = qr

			if err := i.repo.LinkPaymentTx(ctx, tx, paymentID, t.ID); err != nil {
				return nil, err
			}
			tickets = append(tickets, t)
		}
	}
	return tickets, nil
}
