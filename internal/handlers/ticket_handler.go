package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ticket-gate/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketTransitioner interface {
	Refund(ctx context.Context, ticketID string) error
	Cancel(ctx context.Context, ticketID string) error
}

// TicketHandler exposes the refund and cancellation transitions to the
// payment and event-management side. Routes are superuser only.
type TicketHandler struct {
	lifecycle TicketTransitioner
}

func NewTicketHandler(lifecycle TicketTransitioner) *TicketHandler {
	return &TicketHandler{lifecycle: lifecycle}
}

// RefundTicket - Move a valid ticket to refunded
func (h *TicketHandler) RefundTicket(e *core.RequestEvent) error {
	return h.transition(e, "refunded", h.lifecycle.Refund)
}

// CancelTicket - Move a valid ticket to cancelled
func (h *TicketHandler) CancelTicket(e *core.RequestEvent) error {
	return h.transition(e, "cancelled", h.lifecycle.Cancel)
}

func (h *TicketHandler) transition(e *core.RequestEvent, next string, apply func(context.Context, string) error) error {
	ticketID := e.Request.PathValue("ticketId")
	if ticketID == "" {
		return apis.NewBadRequestError("Ticket ID required", nil)
	}

	err := apply(e.Request.Context(), ticketID)
	switch {
	case err == nil:
		return e.JSON(http.StatusOK, map[string]string{"ticket_id": ticketID, "status": next})
	case errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError("Ticket not found", nil)
	case errors.Is(err, status.ErrTransitionRejected):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	default:
		slog.Error("ticket transition failed", "error", err, "ticket_id", ticketID, "status", next)
		return apis.NewApiError(http.StatusServiceUnavailable, "Ticket store unavailable, try again", nil)
	}
}
