package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ticket-gate/internal/services"
	"ticket-gate/internal/status"
	"ticket-gate/models"
	"ticket-gate/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type CredentialRenderer interface {
	RenderTicket(t models.Ticket) (string, error)
}

type CredentialHandler struct {
	store    services.TicketStore
	renderer CredentialRenderer
	qrSize   int
}

func NewCredentialHandler(store services.TicketStore, renderer CredentialRenderer, qrSize int) *CredentialHandler {
	return &CredentialHandler{
		store:    store,
		renderer: renderer,
		qrSize:   qrSize,
	}
}

// GetCredential - Current payload for the caller's ticket, as JSON or a QR image
func (h *CredentialHandler) GetCredential(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	if ticketID == "" {
		return apis.NewBadRequestError("Ticket ID required", nil)
	}

	ticket, err := h.store.GetTicket(e.Request.Context(), ticketID)
	if errors.Is(err, status.ErrTicketNotFound) {
		return apis.NewNotFoundError("Ticket not found", nil)
	}
	if err != nil {
		slog.Error("h.store.GetTicket()", "error", err, "ticket_id", ticketID)
		return apis.NewApiError(http.StatusServiceUnavailable, "Ticket store unavailable, try again", nil)
	}

	// other holders' tickets look the same as missing ones
	if ticket.OwnerID != e.Auth.Id && !e.Auth.IsSuperuser() {
		return apis.NewNotFoundError("Ticket not found", nil)
	}

	payload, err := h.renderer.RenderTicket(ticket)
	if errors.Is(err, status.ErrTicketNotValid) {
		return apis.NewApiError(http.StatusConflict, "Ticket is "+string(ticket.Status), nil)
	}
	if err != nil {
		slog.Error("h.renderer.RenderTicket()", "error", err, "ticket_id", ticketID)
		return apis.NewInternalServerError("Failed to render credential", nil)
	}

	e.Response.Header().Set("Cache-Control", "no-store")

	if e.Request.URL.Query().Get("format") == "png" {
		png, err := utils.RenderQR(payload, h.qrSize)
		if err != nil {
			return apis.NewInternalServerError("Failed to render QR code", err)
		}
		return e.Blob(http.StatusOK, "image/png", png)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": ticket.ID,
		"payload":   payload,
	})
}
