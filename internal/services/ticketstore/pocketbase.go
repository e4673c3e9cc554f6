package ticketstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticket-gate/internal/status"
	"ticket-gate/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const TicketsCollection = "tickets"

type ticketRow struct {
	ID      string `db:"id"`
	OwnerID string `db:"owner_id"`
	Secret  string `db:"secret"`
	Status  string `db:"status"`
	UsedAt  string `db:"used_at"`
	UsedBy  string `db:"used_by"`
}

// PocketBaseStore reads and updates the tickets collection directly through dbx.
// The conditional update bypasses record hooks so that it stays one statement.
type PocketBaseStore struct {
	app core.App
}

func NewPocketBaseStore(app core.App) *PocketBaseStore {
	return &PocketBaseStore{app: app}
}

func (s *PocketBaseStore) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	var row ticketRow
	err := s.app.DB().
		Select("id", "owner_id", "secret", "status", "used_at", "used_by").
		From(TicketsCollection).
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ticket{}, status.ErrTicketNotFound
	}
	if err != nil {
		return models.Ticket{}, fmt.Errorf("reading ticket %s: %w", id, err)
	}

	ticket := models.Ticket{
		ID:      row.ID,
		OwnerID: row.OwnerID,
		Secret:  row.Secret,
		Status:  models.TicketStatus(row.Status),
		UsedBy:  row.UsedBy,
	}

	if row.UsedAt != "" {
		usedAt, err := types.ParseDateTime(row.UsedAt)
		if err != nil {
			return models.Ticket{}, fmt.Errorf("parsing used_at of ticket %s: %w", id, err)
		}
		if !usedAt.IsZero() {
			t := usedAt.Time()
			ticket.UsedAt = &t
		}
	}

	return ticket, nil
}

func (s *PocketBaseStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next models.TicketStatus, mark models.UsageMark) (int64, error) {
	params := dbx.Params{
		"status":  string(next),
		"updated": types.NowDateTime().String(),
	}
	if !mark.IsZero() {
		usedAt, err := types.ParseDateTime(mark.UsedAt)
		if err != nil {
			return 0, fmt.Errorf("formatting used_at: %w", err)
		}
		params["used_at"] = usedAt.String()
		params["used_by"] = mark.UsedBy
	}

	res, err := s.app.NonconcurrentDB().
		Update(TicketsCollection, params, dbx.HashExp{"id": id, "status": string(expected)}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("updating ticket %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows for ticket %s: %w", id, err)
	}

	return rows, nil
}
