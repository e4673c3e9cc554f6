package services

import (
	"context"

	"ticket-gate/models"
)

// TicketStore is the narrow persistence contract the door-scan flow depends on.
//
// ConditionalUpdateStatus must be a single atomic write that applies only while
// the stored status equals expected. It reports 1 when it applied and 0 when the
// precondition did not hold, including when the ticket does not exist.
type TicketStore interface {
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	ConditionalUpdateStatus(ctx context.Context, id string, expected, next models.TicketStatus, mark models.UsageMark) (int64, error)
}

// AttemptLimiter bounds how often a single ticket may be presented for validation.
type AttemptLimiter interface {
	Allow(ctx context.Context, ticketID string) (bool, error)
}

// ScanNotifier is told about every committed scan.
type ScanNotifier interface {
	NotifyScanned(ctx context.Context, event models.ScanEvent) error
}
