package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticket-gate/config"
	"ticket-gate/internal/status"
	"ticket-gate/models"
	"ticket-gate/monitoring"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Reason is the machine-readable cause of a rejected scan.
type Reason string

const (
	ReasonMalformedPayload Reason = "MALFORMED_PAYLOAD"
	ReasonPayloadExpired   Reason = "PAYLOAD_EXPIRED"
	ReasonRateLimited      Reason = "RATE_LIMITED"
	ReasonTicketNotFound   Reason = "TICKET_NOT_FOUND"
	ReasonInvalidStatus    Reason = "INVALID_STATUS"
	ReasonAlreadyUsed      Reason = "ALREADY_USED"
	ReasonOwnerMismatch    Reason = "OWNER_MISMATCH"
	ReasonCodeInvalid      Reason = "CODE_INVALID"
)

// ValidationResult is the outcome of one scan. Rejections are results, not errors.
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Reason   Reason `json:"reason,omitempty"`
	Message  string `json:"message"`
	TicketID string `json:"ticket_id,omitempty"`
	ScanID   string `json:"scan_id,omitempty"`
}

func reject(reason Reason, ticketID, message string) ValidationResult {
	return ValidationResult{
		Reason:   reason,
		Message:  message,
		TicketID: ticketID,
	}
}

// ValidatorError is an infrastructure fault during validation. The caller should
// ask the operator to retry; it says nothing about the ticket itself.
type ValidatorError struct {
	Op       string
	TicketID string
	Err      error
}

func (e *ValidatorError) Error() string {
	if e.TicketID == "" {
		return fmt.Sprintf("validator: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("validator: %s ticket %s: %v", e.Op, e.TicketID, e.Err)
}

func (e *ValidatorError) Unwrap() error {
	return e.Err
}

type EntryValidator struct {
	Store TicketStore
	// Limiter and Notifier are optional.
	Limiter  AttemptLimiter
	Notifier ScanNotifier

	opts   CodeOptions
	maxAge time.Duration
	nowFn  func() time.Time
}

func NewEntryValidator(store TicketStore, cfg config.CredentialConfig) *EntryValidator {
	return &EntryValidator{
		Store:  store,
		opts:   CodeOptionsFromConfig(cfg),
		maxAge: cfg.MaxAge,
		nowFn:  time.Now,
	}
}

// Validate checks a scanned payload and, when every check passes, consumes the
// ticket with a single conditional write. Only that write has side effects.
func (v *EntryValidator) Validate(ctx context.Context, rawPayload, scannerID string) (ValidationResult, error) {
	now := v.nowFn()
	started := time.Now()

	result, err := v.validate(ctx, rawPayload, scannerID, now)

	outcome := monitoring.OutcomeAccepted
	switch {
	case err != nil:
		outcome = monitoring.OutcomeError
		slog.Error("Scan validation failed", "error", err, "scanner_id", scannerID)
	case !result.Valid:
		outcome = string(result.Reason)
		slog.Info("Scan rejected", "reason", result.Reason, "ticket_id", result.TicketID, "scanner_id", scannerID)
	default:
		slog.Info("Scan accepted", "ticket_id", result.TicketID, "scanner_id", scannerID, "scan_id", result.ScanID)
	}
	monitoring.TrackScan(outcome, time.Since(started))

	return result, err
}

func (v *EntryValidator) validate(ctx context.Context, rawPayload, scannerID string, now time.Time) (ValidationResult, error) {
	if scannerID == "" {
		return ValidationResult{}, &ValidatorError{Op: "validate", Err: errors.New("scanner id is required")}
	}

	// 1. decode
	payload, err := DecodePayload(rawPayload)
	if err != nil {
		return reject(ReasonMalformedPayload, "", err.Error()), nil
	}
	ticketID := payload.TicketID

	// 2. coarse age bound, independent of the code window
	age := now.Sub(time.UnixMilli(payload.IssuedAt))
	if age > v.maxAge || age < -v.maxAge {
		return reject(ReasonPayloadExpired, ticketID,
			fmt.Sprintf("credential was generated %s ago; ask the holder to reopen the ticket", age.Truncate(time.Second))), nil
	}

	if v.Limiter != nil {
		allowed, err := v.Limiter.Allow(ctx, ticketID)
		if err != nil {
			return ValidationResult{}, &ValidatorError{Op: "limit", TicketID: ticketID, Err: err}
		}
		if !allowed {
			return reject(ReasonRateLimited, ticketID, "too many scan attempts for this ticket, wait before retrying"), nil
		}
	}

	// 3. lookup
	ticket, err := v.Store.GetTicket(ctx, ticketID)
	if errors.Is(err, status.ErrTicketNotFound) {
		return reject(ReasonTicketNotFound, ticketID, "no ticket with this id"), nil
	}
	if err != nil {
		return ValidationResult{}, &ValidatorError{Op: "lookup", TicketID: ticketID, Err: err}
	}

	// 4. status
	if ticket.Status != models.TicketValid {
		return reject(ReasonInvalidStatus, ticketID, statusMessage(ticket)), nil
	}

	// 5. usage mark; the status check already covers this unless the record is inconsistent
	if ticket.UsedAt != nil {
		return reject(ReasonAlreadyUsed, ticketID,
			fmt.Sprintf("ticket already scanned at %s", ticket.UsedAt.UTC().Format(time.RFC3339))), nil
	}

	// 6. owner
	if payload.OwnerID != ticket.OwnerID {
		return reject(ReasonOwnerMismatch, ticketID, "credential does not belong to this ticket's holder"), nil
	}

	// 7. code
	ok, err := v.verifyCode(payload.Code, ticket.Secret, now)
	if err != nil {
		return ValidationResult{}, &ValidatorError{Op: "verify", TicketID: ticketID, Err: err}
	}
	if !ok {
		return reject(ReasonCodeInvalid, ticketID, "code does not match; ask the holder to reopen the ticket"), nil
	}

	// 8. commit
	rows, err := v.Store.ConditionalUpdateStatus(ctx, ticketID, models.TicketValid, models.TicketUsed, models.UsageMark{
		UsedAt: now,
		UsedBy: scannerID,
	})
	if err != nil {
		return ValidationResult{}, &ValidatorError{Op: "commit", TicketID: ticketID, Err: err}
	}
	if rows == 0 {
		return reject(ReasonAlreadyUsed, ticketID, "ticket was scanned by another device at the same time"), nil
	}

	result := ValidationResult{
		Valid:    true,
		Message:  "entry granted",
		TicketID: ticketID,
		ScanID:   uuid.NewString(),
	}

	if v.Notifier != nil {
		event := models.ScanEvent{
			ScanID:    result.ScanID,
			TicketID:  ticketID,
			OwnerID:   ticket.OwnerID,
			ScannerID: scannerID,
			ScannedAt: now,
		}
		if err := v.Notifier.NotifyScanned(ctx, event); err != nil {
			slog.Warn("Failed to publish scan event", "error", err, "ticket_id", ticketID, "scan_id", result.ScanID)
		}
	}

	return result, nil
}

// verifyCode accepts codes for the current interval and Skew intervals either side.
func (v *EntryValidator) verifyCode(code, secret string, now time.Time) (bool, error) {
	ok, err := totp.ValidateCustom(code, secret, now, v.opts.totp())
	switch {
	case errors.Is(err, otp.ErrValidateInputInvalidLength):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: %v", status.ErrCorruptSecret, err)
	}
	return ok, nil
}

func statusMessage(t models.Ticket) string {
	switch t.Status {
	case models.TicketUsed:
		if t.UsedAt != nil {
			return fmt.Sprintf("ticket already used at %s", t.UsedAt.UTC().Format(time.RFC3339))
		}
		return "ticket already used"
	case models.TicketRefunded:
		return "ticket was refunded"
	case models.TicketCancelled:
		return "ticket was cancelled"
	default:
		return fmt.Sprintf("ticket status %q does not allow entry", t.Status)
	}
}
