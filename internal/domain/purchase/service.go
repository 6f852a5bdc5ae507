package purchase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/payment"
	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
	"github.com/ticketbox/ticketbox-api/internal/domain/user"
	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
	"github.com/ticketbox/ticketbox-api/internal/pkg/email"
	"github.com/ticketbox/ticketbox-api/internal/pkg/logger"
	"github.com/ticketbox/ticketbox-api/internal/pkg/metrics"
)

const notifyTimeout = 30 * time.Second

// Reserver takes line items out of stock inside a transaction.
type Reserver interface {
	ReserveTx(ctx context.Context, tx *sqlx.Tx, items []ticket.LineItem) (map[int64]*ticket.TicketType, error)
}

// TicketIssuer mints the tickets of a funded payment.
type TicketIssuer interface {
	IssueTx(ctx context.Context, tx *sqlx.Tx, userID, paymentID int64, items []ticket.LineItem, types map[int64]*ticket.TicketType) ([]ticket.Ticket, error)
}

// TicketLister reads the tickets linked to a payment.
type TicketLister interface {
	ListByPayment(ctx context.Context, paymentID int64) ([]ticket.Ticket, error)
}

// CardLister reads the cards a user keeps on file.
type CardLister interface {
	ListByUser(ctx context.Context, userID int64) ([]card.SavedCard, error)
}

// Notifier delivers the ticket confirmation email.
type Notifier interface {
	SendTicketEmail(ctx context.Context, to, toName string, tickets []email.TicketLine, orderNumber string) error
}

// Deps groups the collaborators of Service.
type Deps struct {
	Tx              database.Transactor
	Inventory       Reserver
	Resolver        *Resolver
	Issuer          TicketIssuer
	Aggregator      *Aggregator
	Payments        payment.Repository
	Cards           CardLister
	Purchases       Repository
	Tickets         TicketLister
	Users           user.Repository
	Notifier        Notifier
	Metrics         *metrics.Purchase
	DefaultCurrency string
}

// Service runs the purchase transaction and the payment queries.
type Service struct {
	deps Deps
	wg   sync.WaitGroup
}

// NewService creates purchase service
func NewService(deps Deps) *Service {
	if deps.DefaultCurrency == "" {
		deps.DefaultCurrency = "USD"
	}
	return &Service{deps: deps}
}

// ProcessPayment validates req, then reserves inventory, charges the chosen
// funding source, issues the tickets and records the order in a single
// transaction. The confirmation email is sent after commit and never affects
// the result.
func (s *Service) ProcessPayment(ctx context.Context, userID int64, req Request) (*Result, error) {
	start := time.Now()
	method := methodLabel(req.Method)

	res, types, err := s.processPayment(ctx, userID, &req)
	s.deps.Metrics.ObservePurchase(method, outcome(err), time.Since(start))

	l := logger.FromContext(ctx)
	if err != nil {
		ev := l.Warn()
		if outcome(err) == metrics.OutcomeFailed {
			ev = l.Error()
		}
		ev.Err(err).Int64("user_id", userID).Str("method", method).Msg("Purchase aborted")
		return nil, err
	}

	s.deps.Metrics.TicketsIssued(len(res.CreatedTickets))
	l.Info().
		Int64("user_id", userID).
		Int64("payment_id", res.Payment.ID).
		Str("order_id", res.Purchase.OrderID).
		Str("method", string(res.PaymentMethod)).
		Int("tickets", len(res.CreatedTickets)).
		Msg("Purchase committed")

	s.notify(ctx, userID, res, types)
	return res, nil
}

func (s *Service) processPayment(ctx context.Context, userID int64, req *Request) (*Result, map[int64]*ticket.TicketType, error) {
	if err := ValidatePaymentRequest(req.Amount, req.Tickets); err != nil {
		return nil, nil, err
	}
	if err := validateLineItems(req.Tickets); err != nil {
		return nil, nil, err
	}
	if req.Method == nil {
		return nil, nil, ErrMethodRequired
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.deps.DefaultCurrency
	}

	var (
		res   Result
		types map[int64]*ticket.TicketType
	)
	err := s.deps.Tx.ExecuteInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		types, err = s.deps.Inventory.ReserveTx(ctx, tx, req.Tickets)
		if err != nil {
			return err
		}

		funding, err := s.deps.Resolver.ChargeTx(ctx, tx, userID, *req)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Debug().Object("funding", funding).Msg("Payment funded")

		p := &payment.Payment{
			UserID:         userID,
			Amount:         req.Amount,
			Currency:       currency,
			PaymentMethod:  funding.Method,
			Status:         payment.StatusSucceeded,
			SavedCardID:    funding.ChargedCardID,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := s.deps.Payments.CreateTx(ctx, tx, p); err != nil {
			return err
		}

		tickets, err := s.deps.Issuer.IssueTx(ctx, tx, userID, p.ID, req.Tickets, types)
		if err != nil {
			return err
		}

		order, err := s.deps.Aggregator.CreateTx(ctx, tx, userID, p.ID, tickets)
		if err != nil {
			return err
		}

		res = Result{
			Payment:        p,
			Purchase:       order,
			CreatedTickets: tickets,
			PaymentMethod:  funding.Method,
			SavedCardID:    funding.SavedCardID,
			CurrentCredits: funding.CurrentCredits,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &res, types, nil
}

// notify sends the ticket email in the background. The goroutine detaches
// from the request context but keeps its logger.
func (s *Service) notify(ctx context.Context, userID int64, res *Result, types map[int64]*ticket.TicketType) {
	if s.deps.Notifier == nil {
		return
	}

	lines := make([]email.TicketLine, 0, len(res.CreatedTickets))
	for _, t := range res.CreatedTickets {
		line := email.TicketLine{
			TicketID: t.ID,
			Price:    t.Price.StringFixed(2) + " " + res.Payment.Currency,
			Hash:     t.Hash,
			QRCode:   t.QRCode,
		}
		if tt, ok := types[t.TicketTypeID]; ok {
			line.EventName = tt.EventName
			line.TicketType = tt.Name
		}
		lines = append(lines, line)
	}
	orderID := res.Purchase.OrderID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		u, err := s.deps.Users.GetByID(bg, userID)
		if err != nil {
			s.deps.Metrics.NotificationFailed()
			logger.FromContext(bg).Error().Err(err).Int64("user_id", userID).Str("order_id", orderID).
				Msg("Ticket email skipped: buyer lookup failed")
			return
		}
		s.SendTicketEmail(bg, u.Email, u.DisplayName(), lines, orderID)
	}()
}

// SendTicketEmail delivers the confirmation. Failures, panics included, are
// logged and never returned.
func (s *Service) SendTicketEmail(ctx context.Context, to, name string, tickets []email.TicketLine, orderNumber string) {
	l := logger.FromContext(ctx)
	defer func() {
		if p := recover(); p != nil {
			s.deps.Metrics.NotificationFailed()
			l.Error().Interface("panic", p).Str("order_id", orderNumber).Msg("Ticket email panicked")
		}
	}()

	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.SendTicketEmail(ctx, to, name, tickets, orderNumber); err != nil {
		s.deps.Metrics.NotificationFailed()
		l.Error().Err(err).Str("to", to).Str("order_id", orderNumber).Msg("Failed to send ticket email")
		return
	}
	l.Info().Str("order_id", orderNumber).Int("tickets", len(tickets)).Msg("Ticket email sent")
}

// Wait blocks until every pending ticket email has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// GetPaymentHistory returns every payment of the user, newest first.
func (s *Service) GetPaymentHistory(ctx context.Context, userID int64) ([]payment.Payment, error) {
	return s.deps.Payments.ListByUser(ctx, userID, 0, 0)
}

// GetPaymentHistoryPage returns one page of the user's payments, newest first.
func (s *Service) GetPaymentHistoryPage(ctx context.Context, userID int64, limit, offset int) ([]payment.Payment, error) {
	return s.deps.Payments.ListByUser(ctx, userID, limit, offset)
}

// ListSavedCards returns the user's cards on file, default first.
func (s *Service) ListSavedCards(ctx context.Context, userID int64) ([]card.SavedCard, error) {
	return s.deps.Cards.ListByUser(ctx, userID)
}

// GetPaymentDetails returns a payment owned by userID with its tickets.
func (s *Service) GetPaymentDetails(ctx context.Context, paymentID, userID int64) (*Details, error) {
	p, err := s.deps.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, payment.ErrPaymentNotFound
	}
	if p.UserID != userID {
		return nil, payment.ErrUnauthorizedAccess
	}

	tickets, err := s.deps.Tickets.ListByPayment(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	d := &Details{Payment: p, Tickets: tickets}
	if s.deps.Purchases != nil {
		order, err := s.deps.Purchases.GetByPaymentID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			d.OrderID = order.OrderID
		}
	}
	return d, nil
}

func methodLabel(m PaymentMethod) string {
	if m == nil {
		return "unknown"
	}
	return string(m.Method())
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSucceeded
	}
	switch apperr.KindOf(err) {
	case apperr.ErrValidation, apperr.ErrNotFound, apperr.ErrInsufficientResource, apperr.ErrUnauthorized, apperr.ErrConflict:
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}
