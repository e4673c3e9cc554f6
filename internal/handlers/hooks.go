package handlers

import (
	"context"
	"log/slog"

	"ticket-gate/internal/services"
	"ticket-gate/models"

	"github.com/pocketbase/pocketbase/core"
)

const ticketsCollection = "tickets"

// TicketMirror receives every newly created ticket when pocketbase is not the
// store the door reads from.
type TicketMirror interface {
	SaveTicket(ctx context.Context, t models.Ticket) error
	DeleteTicket(ctx context.Context, id string) error
}

// RegisterTicketHooks attaches credential issuance to ticket creation. A ticket
// whose secret cannot be generated, or cannot be mirrored, is never created.
func RegisterTicketHooks(app core.App, issuer *services.CredentialIssuer, mirror TicketMirror) {
	app.OnRecordCreate(ticketsCollection).BindFunc(func(e *core.RecordEvent) error {
		if e.Record.Id == "" {
			e.Record.Id = core.GenerateDefaultRandomId()
		}

		_, secret, err := issuer.Issue(e.Record.Id, e.Record.GetString("owner_id"))
		if err != nil {
			slog.Error("Ticket credential issuance failed", "error", err, "ticket_id", e.Record.Id)
			return err
		}

		e.Record.Set("secret", secret)
		e.Record.Set("status", string(models.TicketValid))
		e.Record.Set("used_at", "")
		e.Record.Set("used_by", "")

		return e.Next()
	})

	if mirror == nil {
		return
	}

	// The mirror is written before the insert so a failed copy stops the create,
	// and removed again if the insert itself fails.
	app.OnRecordCreateExecute(ticketsCollection).BindFunc(func(e *core.RecordEvent) error {
		ticket := models.Ticket{
			ID:      e.Record.Id,
			OwnerID: e.Record.GetString("owner_id"),
			Secret:  e.Record.GetString("secret"),
			Status:  models.TicketStatus(e.Record.GetString("status")),
		}
		if err := mirror.SaveTicket(e.Context, ticket); err != nil {
			slog.Error("Failed to mirror ticket to Redis", "error", err, "ticket_id", ticket.ID)
			return err
		}

		if err := e.Next(); err != nil {
			if delErr := mirror.DeleteTicket(context.Background(), ticket.ID); delErr != nil {
				slog.Error("Failed to remove mirrored ticket after create failed", "error", delErr, "ticket_id", ticket.ID)
			}
			return err
		}

		slog.Info("Mirrored ticket to Redis", "ticket_id", ticket.ID)
		return nil
	})
}
