package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ticket-gate/internal/auth"
	"ticket-gate/internal/services"
	"ticket-gate/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type Validator interface {
	Validate(ctx context.Context, rawPayload, scannerID string) (services.ValidationResult, error)
}

type ScanHandler struct {
	validator Validator
	auth      auth.Provider
}

func NewScanHandler(validator Validator, provider auth.Provider) *ScanHandler {
	return &ScanHandler{
		validator: validator,
		auth:      provider,
	}
}

// Scan - Validate a scanned credential and admit the holder
func (h *ScanHandler) Scan(e *core.RequestEvent) error {
	scannerID, err := h.auth.ScannerID(e)
	if err != nil {
		return authError(err)
	}

	var req struct {
		Payload string `json:"payload"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	result, err := h.validator.Validate(e.Request.Context(), req.Payload, scannerID)
	if err != nil {
		// Details stay in the log; the door only needs to know to retry.
		slog.Error("h.validator.Validate()", "error", err, "scanner_id", scannerID)
		return apis.NewApiError(http.StatusServiceUnavailable, "Validation temporarily unavailable, try again", nil)
	}

	return e.JSON(http.StatusOK, result)
}

func authError(err error) error {
	switch {
	case errors.Is(err, status.ErrAuthUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Scanner authentication is not configured", nil)
	case errors.Is(err, status.ErrForbiddenScanner):
		return apis.NewForbiddenError("Not allowed to scan tickets", nil)
	default:
		return apis.NewUnauthorizedError("Scanner not authenticated", nil)
	}
}
