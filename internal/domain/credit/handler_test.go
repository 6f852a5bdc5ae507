package credit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbox/ticketbox-api/internal/middleware"
)

type stubLedger struct {
	balance decimal.Decimal
	entries []LedgerEntry
	page    [2]int

	addedUser   int64
	addedAmount decimal.Decimal
	addedReason Reason
	addedMeta   Meta
}

func (s *stubLedger) GetBalance(context.Context, int64) (decimal.Decimal, error) {
	return s.balance, nil
}

func (s *stubLedger) ListEntries(_ context.Context, _ int64, limit, offset int) ([]LedgerEntry, error) {
	s.page = [2]int{limit, offset}
	return s.entries, nil
}

func (s *stubLedger) Add(_ context.Context, userID int64, amount decimal.Decimal, reason Reason, meta Meta) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	s.addedUser, s.addedAmount, s.addedReason, s.addedMeta = userID, amount, reason, meta
	return s.balance.Add(amount), nil
}

// fakeAuth stands in for the JWT middleware.
func fakeAuth(userID int64, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func serve(h *Handler, auth func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes(auth).ServeHTTP(rec, req)
	return rec
}

func TestHandlerBalance(t *testing.T) {
	ref := "attempt-1"
	svc := &stubLedger{
		balance: decimal.NewFromInt(70),
		entries: []LedgerEntry{{ID: 1, UserID: 7, Delta: decimal.NewFromInt(-30), Reason: string(ReasonPurchase), ReferenceID: &ref}},
	}

	rec := serve(NewHandler(svc), fakeAuth(7, "user"), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool            `json:"success"`
		Data    BalanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Data.Balance.Equal(decimal.NewFromInt(70)))
	require.Len(t, body.Data.Entries, 1)
	assert.Equal(t, "purchase", body.Data.Entries[0].Reason)
	assert.Equal(t, [2]int{defaultPageSize, 0}, svc.page)
}

func TestHandlerBalancePaging(t *testing.T) {
	tests := []struct {
		query string
		want  int
		page  [2]int
	}{
		{"?limit=5&offset=10", http.StatusOK, [2]int{5, 10}},
		{"?limit=0", http.StatusBadRequest, [2]int{}},
		{"?limit=101", http.StatusBadRequest, [2]int{}},
		{"?offset=abc", http.StatusBadRequest, [2]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &stubLedger{}
			rec := serve(NewHandler(svc), fakeAuth(7, "user"), httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.page, svc.page)
		})
	}
}

func TestHandlerBalanceEmptyLedger(t *testing.T) {
	rec := serve(NewHandler(&stubLedger{}), fakeAuth(7, "user"), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestHandlerBalanceRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&stubLedger{}).Balance(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerGrant(t *testing.T) {
	svc := &stubLedger{balance: decimal.NewFromInt(10)}
	body := `{"userId":9,"amount":"25.50","reason":"refund","referenceId":"payment-42"}`

	rec := serve(NewHandler(svc), fakeAuth(1, "admin"), httptest.NewRequest(http.MethodPost, "/grants", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(9), svc.addedUser)
	assert.True(t, svc.addedAmount.Equal(decimal.RequireFromString("25.50")))
	assert.Equal(t, ReasonRefund, svc.addedReason)
	require.NotNil(t, svc.addedMeta.ReferenceID)
	assert.Equal(t, "payment-42", *svc.addedMeta.ReferenceID)
	assert.Equal(t, "refund", *svc.addedMeta.ReferenceType)
	assert.Contains(t, rec.Body.String(), `"balance":"35.5"`)
}

func TestHandlerGrantWithoutReference(t *testing.T) {
	svc := &stubLedger{}
	body := `{"userId":9,"amount":5,"reason":"admin_grant"}`

	rec := serve(NewHandler(svc), fakeAuth(1, "admin"), httptest.NewRequest(http.MethodPost, "/grants", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ReasonAdminGrant, svc.addedReason)
	assert.Nil(t, svc.addedMeta.ReferenceID)
	assert.Nil(t, svc.addedMeta.ReferenceType)
}

func TestHandlerGrantRequiresAdmin(t *testing.T) {
	svc := &stubLedger{}
	body := `{"userId":9,"amount":5,"reason":"admin_grant"}`

	rec := serve(NewHandler(svc), fakeAuth(7, "user"), httptest.NewRequest(http.MethodPost, "/grants", strings.NewReader(body)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.addedUser)
}

func TestHandlerGrantRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"purchase reason", `{"userId":9,"amount":5,"reason":"purchase"}`, http.StatusUnprocessableEntity},
		{"missing user", `{"amount":5,"reason":"refund"}`, http.StatusUnprocessableEntity},
		{"non positive amount", `{"userId":9,"amount":0,"reason":"refund"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubLedger{}
			rec := serve(NewHandler(svc), fakeAuth(1, "admin"), httptest.NewRequest(http.MethodPost, "/grants", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, rec.Code)
			assert.Zero(t, svc.addedUser)
		})
	}
}
