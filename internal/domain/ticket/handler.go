package ticket

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ticketbox/ticketbox-api/internal/pkg/errorhandler"
	"github.com/ticketbox/ticketbox-api/internal/pkg/response"
)

// TypeReader is the part of Repository used by the handler.
type TypeReader interface {
	GetTicketType(ctx context.Context, id int64) (*TicketType, error)
}

// Handler serves ticket type lookups
type Handler struct {
	types TypeReader
}

// NewHandler creates ticket handler
func NewHandler(types TypeReader) *Handler {
	return &Handler{types: types}
}

// GetType handles GET /ticket-types/{id}
func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid ticket type ID")
		return
	}

	tt, err := h.types.GetTicketType(r.Context(), id)
	if err != nil {
		errorhandler.Write(r.Context(), w, err)
		return
	}
	if tt == nil {
		response.NotFound(w, "Ticket type with ID "+strconv.FormatInt(id, 10)+" not found")
		return
	}
	response.OK(w, tt)
}

// Routes returns the ticket type routes, all behind authMiddleware.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/{id}", h.GetType)
	return r
}
