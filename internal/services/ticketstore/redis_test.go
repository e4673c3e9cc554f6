package ticketstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticket-gate/internal/status"
	"ticket-gate/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_GetTicket(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	mock.ExpectHGetAll("ticket:T1").SetVal(map[string]string{
		"owner_id": "U1",
		"secret":   "SECRET",
		"status":   "used",
		"used_at":  "2026-10-16T19:00:10Z",
		"used_by":  "gate-a",
	})

	ticket, err := store.GetTicket(ctx, "T1")

	require.NoError(t, err)
	assert.Equal(t, "T1", ticket.ID)
	assert.Equal(t, "U1", ticket.OwnerID)
	assert.Equal(t, "SECRET", ticket.Secret)
	assert.Equal(t, models.TicketUsed, ticket.Status)
	assert.Equal(t, "gate-a", ticket.UsedBy)
	require.NotNil(t, ticket.UsedAt)
	assert.Equal(t, time.Date(2026, 10, 16, 19, 0, 10, 0, time.UTC), *ticket.UsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetTicket_NotFound(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectHGetAll("ticket:missing").SetVal(map[string]string{})

	_, err := store.GetTicket(context.Background(), "missing")

	assert.ErrorIs(t, err, status.ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetTicket_Errors(t *testing.T) {
	t.Run("connection", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectHGetAll("ticket:T1").SetErr(errors.New("connection refused"))

		_, err := NewRedisStore(db).GetTicket(context.Background(), "T1")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, status.ErrTicketNotFound)
	})

	t.Run("bad used_at", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectHGetAll("ticket:T1").SetVal(map[string]string{
			"owner_id": "U1",
			"status":   "used",
			"used_at":  "yesterday",
		})

		_, err := NewRedisStore(db).GetTicket(context.Background(), "T1")

		assert.ErrorContains(t, err, "used_at")
	})
}

func TestRedisStore_SaveTicket(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectHSet("ticket:T1",
		"owner_id", "U1",
		"secret", "SECRET",
		"status", "valid",
		"used_at", "",
		"used_by", "",
	).SetVal(5)

	err := store.SaveTicket(context.Background(), models.Ticket{
		ID:      "T1",
		OwnerID: "U1",
		Secret:  "SECRET",
		Status:  models.TicketValid,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ConditionalUpdateStatus(t *testing.T) {
	usedAt := time.Date(2026, 10, 16, 19, 0, 10, 0, time.UTC)

	tests := []struct {
		name     string
		mark     models.UsageMark
		next     models.TicketStatus
		usedAt   string
		usedBy   string
		affected int64
	}{
		{"Scan commits", models.UsageMark{UsedAt: usedAt, UsedBy: "gate-a"}, models.TicketUsed, "2026-10-16T19:00:10Z", "gate-a", 1},
		{"Lost race", models.UsageMark{UsedAt: usedAt, UsedBy: "gate-b"}, models.TicketUsed, "2026-10-16T19:00:10Z", "gate-b", 0},
		{"Refund without mark", models.UsageMark{}, models.TicketRefunded, "", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			store := NewRedisStore(db)

			mock.ExpectEval(conditionalUpdateScript, []string{"ticket:T1"},
				"valid", string(tt.next), tt.usedAt, tt.usedBy,
			).SetVal(tt.affected)

			rows, err := store.ConditionalUpdateStatus(context.Background(), "T1", models.TicketValid, tt.next, tt.mark)

			require.NoError(t, err)
			assert.Equal(t, tt.affected, rows)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisStore_ConditionalUpdateStatus_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectEval(conditionalUpdateScript, []string{"ticket:T1"},
		"valid", "cancelled", "", "",
	).SetErr(errors.New("READONLY You can't write against a read only replica"))

	rows, err := store.ConditionalUpdateStatus(context.Background(), "T1", models.TicketValid, models.TicketCancelled, models.UsageMark{})

	assert.Error(t, err)
	assert.Zero(t, rows)
}

func TestRedisStore_DeleteTicket(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectDel("ticket:T1").SetVal(1)
	assert.NoError(t, store.DeleteTicket(context.Background(), "T1"))

	mock.ExpectDel("ticket:T2").SetErr(errors.New("connection refused"))
	assert.Error(t, store.DeleteTicket(context.Background(), "T2"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
