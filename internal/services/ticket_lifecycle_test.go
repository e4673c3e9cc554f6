package services

import (
	"context"
	"errors"
	"testing"

	"ticket-gate/internal/status"
	"ticket-gate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketLifecycle_Transitions(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(l *TicketLifecycle, ctx context.Context, id string) error
		expect models.TicketStatus
	}{
		{"Refund", (*TicketLifecycle).Refund, models.TicketRefunded},
		{"Cancel", (*TicketLifecycle).Cancel, models.TicketCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeTicketStore()
			issueTicket(t, store, "T1", "U1")
			lifecycle := NewTicketLifecycle(store)

			require.NoError(t, tt.apply(lifecycle, context.Background(), "T1"))

			ticket := store.get("T1")
			assert.Equal(t, tt.expect, ticket.Status)
			assert.Nil(t, ticket.UsedAt)
			assert.Empty(t, ticket.UsedBy)

			// terminal statuses never leave
			err := lifecycle.Refund(context.Background(), "T1")
			assert.ErrorIs(t, err, status.ErrTransitionRejected)
			assert.Equal(t, tt.expect, store.get("T1").Status)
		})
	}
}

func TestTicketLifecycle_UsedTicketCannotBeRefunded(t *testing.T) {
	store := newFakeTicketStore()
	payload, _ := issueTicket(t, store, "T1", "U1")

	result, err := newTestValidator(store, t0).Validate(context.Background(), payload, "gate-a")
	require.NoError(t, err)
	require.True(t, result.Valid)

	err = NewTicketLifecycle(store).Refund(context.Background(), "T1")
	assert.ErrorIs(t, err, status.ErrTransitionRejected)
	assert.Contains(t, err.Error(), "used")
}

func TestTicketLifecycle_RefundedTicketIsRejectedAtDoor(t *testing.T) {
	store := newFakeTicketStore()
	payload, _ := issueTicket(t, store, "T1", "U1")

	require.NoError(t, NewTicketLifecycle(store).Refund(context.Background(), "T1"))

	result, err := newTestValidator(store, t0).Validate(context.Background(), payload, "gate-a")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidStatus, result.Reason)
	assert.Equal(t, "ticket was refunded", result.Message)
}

func TestTicketLifecycle_UnknownTicket(t *testing.T) {
	err := NewTicketLifecycle(newFakeTicketStore()).Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestTicketLifecycle_StoreFault(t *testing.T) {
	store := newFakeTicketStore()
	issueTicket(t, store, "T1", "U1")
	storeErr := errors.New("disk full")
	store.updateErr = storeErr

	err := NewTicketLifecycle(store).Refund(context.Background(), "T1")
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, models.TicketValid, store.get("T1").Status)
}

func TestTicketLifecycle_RejectsNonTerminalTarget(t *testing.T) {
	store := newFakeTicketStore()
	issueTicket(t, store, "T1", "U1")

	err := NewTicketLifecycle(store).transition(context.Background(), "T1", models.TicketUsed)
	assert.ErrorIs(t, err, status.ErrTransitionInvalid)
	assert.Equal(t, models.TicketValid, store.get("T1").Status)
}
