// Package ticketstore holds the persistence adapters behind services.TicketStore.
package ticketstore

import (
	"context"
	"errors"

	"ticket-gate/internal/status"
	"ticket-gate/models"
	"ticket-gate/utils"
)

// Store mirrors services.TicketStore so the adapters do not import services.
type Store interface {
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	ConditionalUpdateStatus(ctx context.Context, id string, expected, next models.TicketStatus, mark models.UsageMark) (int64, error)
}

// BreakerStore fails fast while the wrapped store keeps erroring. A missing
// ticket is an answer, not a fault, and does not count against the store.
type BreakerStore struct {
	next Store
	cb   *utils.CircuitBreaker
}

func NewBreakerStore(next Store, cb *utils.CircuitBreaker) *BreakerStore {
	cb.IsSuccessful = func(err error) bool {
		return errors.Is(err, status.ErrTicketNotFound)
	}
	return &BreakerStore{next: next, cb: cb}
}

func (s *BreakerStore) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	return utils.Run(s.cb, func() (models.Ticket, error) {
		return s.next.GetTicket(ctx, id)
	})
}

func (s *BreakerStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next models.TicketStatus, mark models.UsageMark) (int64, error) {
	return utils.Run(s.cb, func() (int64, error) {
		return s.next.ConditionalUpdateStatus(ctx, id, expected, next, mark)
	})
}
