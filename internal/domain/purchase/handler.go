package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/payment"
	"github.com/ticketbox/ticketbox-api/internal/middleware"
	"github.com/ticketbox/ticketbox-api/internal/pkg/errorhandler"
	"github.com/ticketbox/ticketbox-api/internal/pkg/idempotency"
	"github.com/ticketbox/ticketbox-api/internal/pkg/logger"
	"github.com/ticketbox/ticketbox-api/internal/pkg/response"
	"github.com/ticketbox/ticketbox-api/internal/pkg/validator"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxPageSize          = 100
)

// PurchaseService is the part of Service used by the handler.
type PurchaseService interface {
	ProcessPayment(ctx context.Context, userID int64, req Request) (*Result, error)
	GetPaymentHistory(ctx context.Context, userID int64) ([]payment.Payment, error)
	GetPaymentHistoryPage(ctx context.Context, userID int64, limit, offset int) ([]payment.Payment, error)
	GetPaymentDetails(ctx context.Context, paymentID, userID int64) (*Details, error)
	ListSavedCards(ctx context.Context, userID int64) ([]card.SavedCard, error)
}

// ReplayStore keeps completed responses per idempotency key.
type ReplayStore interface {
	Reserve(ctx context.Context, userID int64, key string) (*idempotency.Record, error)
	Complete(ctx context.Context, userID int64, key string, status int, body []byte) error
	Release(ctx context.Context, userID int64, key string) error
}

// Handler handles payment HTTP requests
type Handler struct {
	svc    PurchaseService
	replay ReplayStore
}

// NewHandler creates payment handler. replay may be nil.
func NewHandler(svc PurchaseService, replay ReplayStore) *Handler {
	return &Handler{svc: svc, replay: replay}
}

// ProcessPayment handles POST /payments
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var body PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(body); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	req := body.ToRequest()
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	ctx := r.Context()
	l := logger.FromContext(ctx)

	replay := h.replay != nil && req.IdempotencyKey != ""
	if replay {
		rec, err := h.replay.Reserve(ctx, userID, req.IdempotencyKey)
		switch {
		case errors.Is(err, idempotency.ErrInFlight):
			response.Conflict(w, "A request with this idempotency key is already in progress")
			return
		case err != nil:
			l.Warn().Err(err).Msg("Idempotency store unavailable, continuing without replay")
			replay = false
		case rec != nil:
			w.Header().Set(replayedHeader, "true")
			response.Raw(w, rec.Status, rec.Body)
			return
		}
	}

	// Released unless a response was stored, panics included
	stored := false
	if replay {
		defer func() {
			if stored {
				return
			}
			if err := h.replay.Release(ctx, userID, req.IdempotencyKey); err != nil {
				l.Warn().Err(err).Msg("Failed to release idempotency key")
			}
		}()
	}

	result, err := h.svc.ProcessPayment(ctx, userID, req)
	if err != nil {
		errorhandler.Write(ctx, w, err)
		return
	}

	encoded, err := response.Encode(http.StatusCreated, result)
	if err != nil {
		errorhandler.Write(ctx, w, err)
		return
	}
	if replay {
		if err := h.replay.Complete(ctx, userID, req.IdempotencyKey, http.StatusCreated, encoded); err != nil {
			l.Warn().Err(err).Msg("Failed to store idempotent response")
		} else {
			stored = true
		}
	}
	response.Raw(w, http.StatusCreated, encoded)
}

// History handles GET /payments. Without limit the full history is returned;
// limit (1-100) and offset page through it.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var (
		payments []payment.Payment
		err      error
	)
	q := r.URL.Query()
	if q.Get("limit") == "" && q.Get("offset") == "" {
		payments, err = h.svc.GetPaymentHistory(r.Context(), userID)
	} else {
		limit, offset := 20, 0
		if l := q.Get("limit"); l != "" {
			v, convErr := strconv.Atoi(l)
			if convErr != nil || v < 1 || v > maxPageSize {
				response.BadRequest(w, "Invalid limit")
				return
			}
			limit = v
		}
		if o := q.Get("offset"); o != "" {
			v, convErr := strconv.Atoi(o)
			if convErr != nil || v < 0 {
				response.BadRequest(w, "Invalid offset")
				return
			}
			offset = v
		}
		payments, err = h.svc.GetPaymentHistoryPage(r.Context(), userID, limit, offset)
	}
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}
	response.OK(w, payments)
}

// Cards handles GET /payments/cards
func (h *Handler) Cards(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		response.Unauthorized(w, "unauthorized")
		return
	}

	cards, err := h.svc.ListSavedCards(r.Context(), userID)
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}
	response.OK(w, cards)
}

// Details handles GET /payments/{id}
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		response.Unauthorized(w, "unauthorized")
		return
	}

	paymentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || paymentID <= 0 {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	details, err := h.svc.GetPaymentDetails(r.Context(), paymentID, userID)
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}
	response.OK(w, details)
}

// CardType handles GET /payments/card-type?number=
func (h *Handler) CardType(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"cardType": card.GetCardType(r.URL.Query().Get("number"))})
}

// Routes returns the payment routes, all behind authMiddleware.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.ProcessPayment)
	r.Get("/", h.History)
	r.Get("/card-type", h.CardType)
	r.Get("/cards", h.Cards)
	r.Get("/{id}", h.Details)
	return r
}
