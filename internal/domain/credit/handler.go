package credit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/middleware"
	"github.com/ticketbox/ticketbox-api/internal/pkg/errorhandler"
	"github.com/ticketbox/ticketbox-api/internal/pkg/logger"
	"github.com/ticketbox/ticketbox-api/internal/pkg/response"
	"github.com/ticketbox/ticketbox-api/internal/pkg/validator"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LedgerService is the part of Service used by the handler.
type LedgerService interface {
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListEntries(ctx context.Context, userID int64, limit, offset int) ([]LedgerEntry, error)
	Add(ctx context.Context, userID int64, amount decimal.Decimal, reason Reason, meta Meta) (decimal.Decimal, error)
}

// Handler handles credit HTTP requests
type Handler struct {
	svc LedgerService
}

// NewHandler creates credit handler
func NewHandler(svc LedgerService) *Handler {
	return &Handler{svc: svc}
}

// BalanceResponse is the body of GET /credits
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Entries []LedgerEntry   `json:"entries"`
}

// GrantRequest is the body of POST /credits/grants
type GrantRequest struct {
	UserID      int64           `json:"userId" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason" validate:"required,oneof=admin_grant refund"`
	ReferenceID string          `json:"referenceId" validate:"omitempty,max=128"`
}

// Balance handles GET /credits
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset := defaultPageSize, 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 || v > maxPageSize {
			response.BadRequest(w, "Invalid limit")
			return
		}
		limit = v
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 {
			response.BadRequest(w, "Invalid offset")
			return
		}
		offset = v
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}
	entries, err := h.svc.ListEntries(r.Context(), userID, limit, offset)
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}

	response.OK(w, BalanceResponse{Balance: balance, Entries: entries})
}

// Grant handles POST /credits/grants (admin only)
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	reason := Reason(req.Reason)
	var meta Meta
	if req.ReferenceID != "" {
		refType := req.Reason
		refID := req.ReferenceID
		meta = Meta{ReferenceType: &refType, ReferenceID: &refID}
	}

	balance, err := h.svc.Add(r.Context(), req.UserID, req.Amount, reason, meta)
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}

	logger.FromContext(r.Context()).Info().
		Int64("admin_id", middleware.GetUserID(r.Context())).
		Int64("target_user_id", req.UserID).
		Str("amount", req.Amount.String()).
		Str("reason", req.Reason).
		Msg("Credits granted")

	response.OK(w, map[string]interface{}{"userId": req.UserID, "balance": balance})
}

// Routes returns the credit routes, all behind authMiddleware.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Balance)
	r.With(middleware.RequireRole("admin")).Post("/grants", h.Grant)
	return r
}
