package ticket

import (
	"context"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
)

// InventoryLedger checks and decrements ticket type availability.
type InventoryLedger struct {
	repo Repository
}

func NewInventoryLedger(repo Repository) *InventoryLedger {
	return &InventoryLedger{repo: repo}
}

// ReserveTx takes the requested quantity of every line item out of stock
// inside tx and returns the reserved ticket types keyed by id. Items are
// merged per ticket type and locked in ascending id order so concurrent
// purchases acquire row locks in the same order. An unknown ticket type is
// reported before any stock check, naming the first one in request order.
func (l *InventoryLedger) ReserveTx(ctx context.Context, tx *sqlx.Tx, items []LineItem) (map[int64]*TicketType, error) {
	wanted := make(map[int64]int, len(items))
	events := make(map[int64]int64, len(items))
	requested := make([]int64, 0, len(items))
	for _, it := range items {
		if _, seen := wanted[it.TicketTypeID]; !seen {
			requested = append(requested, it.TicketTypeID)
		}
		wanted[it.TicketTypeID] += it.Quantity
		if it.EventID != 0 {
			events[it.TicketTypeID] = it.EventID
		}
	}
	ids := append([]int64(nil), requested...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(map[int64]*TicketType, len(ids))
	for _, id := range ids {
		tt, err := l.repo.LockTicketTypeTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = tt
	}
	for _, id := range requested {
		if locked[id] == nil {
			return nil, apperr.NotFound("Ticket type with ID %d not found", id)
		}
	}

	for _, id := range ids {
		tt := locked[id]
		if eventID, ok := events[id]; ok && eventID != tt.EventID {
			return nil, apperr.Validation("Ticket type %d does not belong to event %d", id, eventID)
		}
		if wanted[id] > tt.AvailableQuantity {
			return nil, insufficient(tt)
		}
	}

	for _, id := range ids {
		tt := locked[id]
		qty := wanted[id]
		if err := l.repo.DecrementTx(ctx, tx, id, qty); err != nil {
			if errors.Is(err, ErrNoStock) {
				return nil, insufficient(tt)
			}
			return nil, err
		}
		tt.AvailableQuantity -= qty
	}
	return locked, nil
}

func insufficient(tt *TicketType) error {
	return apperr.Insufficient("Not enough tickets available for %s", tt.Name)
}
