package purchase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/credit"
	"github.com/ticketbox/ticketbox-api/internal/domain/payment"
	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
	"github.com/ticketbox/ticketbox-api/internal/domain/user"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
	"github.com/ticketbox/ticketbox-api/internal/pkg/email"
	"github.com/ticketbox/ticketbox-api/internal/pkg/metrics"
	"github.com/ticketbox/ticketbox-api/internal/pkg/qrcode"
)

// fakeTx runs work directly. snapshot, when set, captures state before the
// work and returns the function that restores it on rollback.
type fakeTx struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
	snapshot  func() (restore func())
}

func (f *fakeTx) ExecuteInTransaction(ctx context.Context, fn database.TxFunc) error {
	restore := func() {}
	if f.snapshot != nil {
		restore = f.snapshot()
	}
	err := fn(ctx, nil)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		restore()
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeTickets struct {
	types   map[int64]*ticket.TicketType
	tickets []ticket.Ticket
	links   map[int64][]int64
	nextID  int64
}

func (f *fakeTickets) LockTicketTypeTx(_ context.Context, _ *sqlx.Tx, id int64) (*ticket.TicketType, error) {
	tt, ok := f.types[id]
	if !ok {
		return nil, nil
	}
	cp := *tt
	return &cp, nil
}

func (f *fakeTickets) DecrementTx(_ context.Context, _ *sqlx.Tx, id int64, qty int) error {
	tt := f.types[id]
	if tt.AvailableQuantity < qty {
		return ticket.ErrNoStock
	}
	tt.AvailableQuantity -= qty
	return nil
}

func (f *fakeTickets) CreateTx(_ context.Context, _ *sqlx.Tx, t *ticket.Ticket) error {
	f.nextID++
	t.ID = f.nextID
	f.tickets = append(f.tickets, *t)
	return nil
}

func (f *fakeTickets) UpdateQRTx(_ context.Context, _ *sqlx.Tx, id int64, qr string) error {
	for i := range f.tickets {
		if f.tickets[i].ID == id {
			f.tickets[i].QRCode = qr
		}
	}
	return nil
}

func (f *fakeTickets) LinkPaymentTx(_ context.Context, _ *sqlx.Tx, paymentID, ticketID int64) error {
	f.links[paymentID] = append(f.links[paymentID], ticketID)
	return nil
}

func (f *fakeTickets) ListByPayment(_ context.Context, paymentID int64) ([]ticket.Ticket, error) {
	out := make([]ticket.Ticket, 0)
	for _, id := range f.links[paymentID] {
		for _, t := range f.tickets {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeTickets) GetTicketType(_ context.Context, id int64) (*ticket.TicketType, error) {
	return f.types[id], nil
}

type fakeCards struct {
	cards  map[int64]*card.SavedCard
	nextID int64
}

func (f *fakeCards) FindForUserTx(_ context.Context, _ *sqlx.Tx, id, userID int64) (*card.SavedCard, error) {
	c, ok := f.cards[id]
	if !ok || c.UserID != userID {
		return nil, card.ErrCardNotFound
	}
	return c, nil
}

func (f *fakeCards) UnsetDefaultsTx(_ context.Context, _ *sqlx.Tx, userID int64) error {
	for _, c := range f.cards {
		if c.UserID == userID {
			c.IsDefault = false
		}
	}
	return nil
}

func (f *fakeCards) CreateTx(_ context.Context, _ *sqlx.Tx, c *card.SavedCard) error {
	f.nextID++
	c.ID = f.nextID
	f.cards[c.ID] = c
	return nil
}

func (f *fakeCards) ListByUser(_ context.Context, userID int64) ([]card.SavedCard, error) {
	out := make([]card.SavedCard, 0)
	for _, c := range f.cards {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeLedger struct {
	balances map[int64]decimal.Decimal
	entries  []credit.LedgerEntry
}

func (f *fakeLedger) LockBalanceTx(_ context.Context, _ *sqlx.Tx, userID int64) (decimal.Decimal, error) {
	b, ok := f.balances[userID]
	if !ok {
		return decimal.Zero, credit.ErrUserNotFound
	}
	return b, nil
}

func (f *fakeLedger) HasEntryTx(_ context.Context, _ *sqlx.Tx, userID int64, reason credit.Reason, meta credit.Meta) (bool, error) {
	for _, e := range f.entries {
		if e.UserID == userID && e.Reason == string(reason) && e.ReferenceID != nil && meta.ReferenceID != nil && *e.ReferenceID == *meta.ReferenceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ApplyTx(_ context.Context, _ *sqlx.Tx, userID int64, delta decimal.Decimal, reason credit.Reason, meta credit.Meta) (decimal.Decimal, error) {
	f.balances[userID] = f.balances[userID].Add(delta)
	f.entries = append(f.entries, credit.LedgerEntry{
		UserID: userID, Delta: delta, Reason: string(reason), ReferenceID: meta.ReferenceID, ReferenceType: meta.ReferenceType,
	})
	return f.balances[userID], nil
}

func (f *fakeLedger) GetBalance(_ context.Context, userID int64) (decimal.Decimal, error) {
	return f.balances[userID], nil
}

func (f *fakeLedger) ListEntries(context.Context, int64, credit.Pagination) ([]credit.LedgerEntry, error) {
	return f.entries, nil
}

type fakePayments struct {
	payments map[int64]*payment.Payment
	keys     map[string]bool
	nextID   int64
}

func (f *fakePayments) CreateTx(_ context.Context, _ *sqlx.Tx, p *payment.Payment) error {
	key := fmt.Sprintf("%d:%s", p.UserID, p.IdempotencyKey)
	if f.keys[key] {
		return payment.ErrDuplicateRequest
	}
	f.keys[key] = true
	f.nextID++
	p.ID = f.nextID
	f.payments[p.ID] = p
	return nil
}

func (f *fakePayments) GetByID(_ context.Context, id int64) (*payment.Payment, error) {
	return f.payments[id], nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID int64, limit, offset int) ([]payment.Payment, error) {
	out := make([]payment.Payment, 0)
	for id := f.nextID; id > 0; id-- {
		if p, ok := f.payments[id]; ok && p.UserID == userID {
			out = append(out, *p)
		}
	}
	if offset >= len(out) {
		return []payment.Payment{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type fakePurchases struct {
	purchases []*Purchase
	links     map[int64][]int64
	createErr error
}

func (f *fakePurchases) CreateTx(_ context.Context, _ *sqlx.Tx, p *Purchase) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = int64(len(f.purchases) + 1)
	f.purchases = append(f.purchases, p)
	return nil
}

func (f *fakePurchases) LinkTicketsTx(_ context.Context, _ *sqlx.Tx, purchaseID int64, ids []int64) error {
	f.links[purchaseID] = append(f.links[purchaseID], ids...)
	return nil
}

func (f *fakePurchases) GetByPaymentID(_ context.Context, paymentID int64) (*Purchase, error) {
	for _, p := range f.purchases {
		if p.PaymentID == paymentID {
			return p, nil
		}
	}
	return nil, nil
}

type fakeUsers struct {
	users map[int64]*user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

type sentEmail struct {
	to, name, order string
	tickets         []email.TicketLine
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentEmail
	err   error
	panic bool
}

func (f *fakeNotifier) SendTicketEmail(_ context.Context, to, name string, tickets []email.TicketLine, order string) error {
	if f.panic {
		panic("smtp exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{to: to, name: name, order: order, tickets: tickets})
	return f.err
}

type env struct {
	svc       *Service
	tx        *fakeTx
	tickets   *fakeTickets
	cards     *fakeCards
	ledger    *fakeLedger
	payments  *fakePayments
	purchases *fakePurchases
	notifier  *fakeNotifier
}

// newEnv seeds user 1 (100 credits, saved card 1) and ticket type 1
// "General" for event 1 with 10 available at 50.
func newEnv() *env {
	e := &env{
		tx: &fakeTx{},
		tickets: &fakeTickets{
			types: map[int64]*ticket.TicketType{
				1: {ID: 1, EventID: 1, EventName: "Spring Gala", Name: "General", Price: decimal.NewFromInt(50), AvailableQuantity: 10},
			},
			links: make(map[int64][]int64),
		},
		cards: &fakeCards{
			cards:  map[int64]*card.SavedCard{1: {ID: 1, UserID: 1, CardType: card.BrandVisa, LastFour: "1111", IsDefault: true}},
			nextID: 1,
		},
		ledger:    &fakeLedger{balances: map[int64]decimal.Decimal{1: decimal.NewFromInt(100), 2: decimal.Zero}},
		payments:  &fakePayments{payments: make(map[int64]*payment.Payment), keys: make(map[string]bool)},
		purchases: &fakePurchases{links: make(map[int64][]int64)},
		notifier:  &fakeNotifier{},
	}

	e.tx.snapshot = e.snapshot

	credits := credit.NewService(e.ledger, e.tx)
	e.svc = NewService(Deps{
		Tx:         e.tx,
		Inventory:  ticket.NewInventoryLedger(e.tickets),
		Resolver:   NewResolver(e.cards, credits),
		Issuer:     ticket.NewIssuer(e.tickets, qrcode.NewEncoder(64)),
		Aggregator: NewAggregator(e.purchases),
		Payments:   e.payments,
		Cards:      e.cards,
		Purchases:  e.purchases,
		Tickets:    e.tickets,
		Users: &fakeUsers{users: map[int64]*user.User{
			1: {ID: 1, Email: "buyer@example.com", Name: "Ada"},
			2: {ID: 2, Email: "other@example.com", Name: "Grace"},
		}},
		Notifier: e.notifier,
		Metrics:  metrics.NewPurchase(prometheus.NewRegistry()),
	})
	return e
}

// snapshot saves stock, balances and cards so a failed purchase leaves them as
// a rolled back transaction would.
func (e *env) snapshot() func() {
	stock := make(map[int64]int, len(e.tickets.types))
	for id, tt := range e.tickets.types {
		stock[id] = tt.AvailableQuantity
	}
	balances := make(map[int64]decimal.Decimal, len(e.ledger.balances))
	for id, b := range e.ledger.balances {
		balances[id] = b
	}
	entries := len(e.ledger.entries)
	cards := make(map[int64]card.SavedCard, len(e.cards.cards))
	for id, c := range e.cards.cards {
		cards[id] = *c
	}
	tickets := len(e.tickets.tickets)

	return func() {
		for id, n := range stock {
			e.tickets.types[id].AvailableQuantity = n
		}
		e.ledger.balances = balances
		e.ledger.entries = e.ledger.entries[:entries]
		for id := range e.cards.cards {
			if _, ok := cards[id]; !ok {
				delete(e.cards.cards, id)
			}
		}
		for id, c := range cards {
			*e.cards.cards[id] = c
		}
		e.tickets.tickets = e.tickets.tickets[:tickets]
	}
}

func generalLine(qty int) ticket.LineItem {
	return ticket.LineItem{TicketTypeID: 1, EventID: 1, Quantity: qty, Price: decimal.NewFromInt(50)}
}
