package ticket

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusActive = "active"

// Event is read-only reference data for tickets and emails.
type Event struct {
	ID    int64     `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Date  time.Time `db:"date" json:"date"`
	Venue string    `db:"venue" json:"venue"`
}

// TicketType is a purchasable category of an event with its own stock.
type TicketType struct {
	ID                int64           `db:"id" json:"id"`
	EventID           int64           `db:"event_id" json:"eventId"`
	EventName         string          `db:"event_name" json:"eventName"`
	Name              string          `db:"name" json:"name"`
	Price             decimal.Decimal `db:"price" json:"price"`
	AvailableQuantity int             `db:"available_quantity" json:"availableQuantity"`
}

// Ticket is one admission. Every committed ticket has a hash, a QR payload
// and a payment link.
type Ticket struct {
	ID           int64           `db:"id" json:"id"`
	EventID      int64           `db:"event_id" json:"eventId"`
	UserID       int64           `db:"user_id" json:"userId"`
	TicketTypeID int64           `db:"ticket_type_id" json:"ticketTypeId"`
	Price        decimal.Decimal `db:"price" json:"price"`
	QRCode       string          `db:"qr_code" json:"qrCode"`
	Hash         string          `db:"hash" json:"hash"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// LineItem is one cart selection.
type LineItem struct {
	TicketTypeID int64
	EventID      int64
	Quantity     int
	Price        decimal.Decimal
}

// TotalQuantity sums the quantity across items.
func TotalQuantity(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
