package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticket-gate/internal/status"
	"ticket-gate/models"
)

// TicketLifecycle applies the refund and cancellation transitions driven by the
// payment and event-management flows. Scans go through EntryValidator instead.
type TicketLifecycle struct {
	Store TicketStore
}

func NewTicketLifecycle(store TicketStore) *TicketLifecycle {
	return &TicketLifecycle{Store: store}
}

func (l *TicketLifecycle) Refund(ctx context.Context, ticketID string) error {
	return l.transition(ctx, ticketID, models.TicketRefunded)
}

func (l *TicketLifecycle) Cancel(ctx context.Context, ticketID string) error {
	return l.transition(ctx, ticketID, models.TicketCancelled)
}

func (l *TicketLifecycle) transition(ctx context.Context, ticketID string, next models.TicketStatus) error {
	// used is only reachable through a scan
	if !next.IsTerminal() || next == models.TicketUsed {
		return fmt.Errorf("%w: valid -> %s", status.ErrTransitionInvalid, next)
	}

	rows, err := l.Store.ConditionalUpdateStatus(ctx, ticketID, models.TicketValid, next, models.UsageMark{})
	if err != nil {
		return fmt.Errorf("updating ticket %s to %s: %w", ticketID, next, err)
	}
	if rows > 0 {
		slog.Info("Ticket status changed", "ticket_id", ticketID, "status", next)
		return nil
	}

	// Zero rows: either the ticket is gone or it already left valid.
	ticket, err := l.Store.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: ticket %s is %s", status.ErrTransitionRejected, ticketID, ticket.Status)
}
