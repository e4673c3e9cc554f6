package migrations

import (
	"ticket-gate/models"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		return app.Save(NewTicketsCollection())
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}

// NewTicketsCollection describes the tickets collection. The secret field is
// hidden so it is never returned by the records API.
func NewTicketsCollection() *core.Collection {
	statuses := make([]string, len(models.TicketStatuses))
	for i, s := range models.TicketStatuses {
		statuses[i] = string(s)
	}

	collection := core.NewBaseCollection("tickets")

	// holders see their own tickets; writes go through the server
	collection.ListRule = types.Pointer("owner_id = @request.auth.id")
	collection.ViewRule = types.Pointer("owner_id = @request.auth.id")

	collection.Fields.Add(
		&core.TextField{
			Name:     "owner_id",
			Required: true,
		},
		&core.TextField{
			Name:     "event_id",
			Required: false,
		},
		&core.TextField{
			Name:     "secret",
			Required: true,
			Hidden:   true,
		},
		&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    statuses,
		},
		&core.DateField{
			Name: "used_at",
		},
		&core.TextField{
			Name: "used_by",
		},
		&core.AutodateField{
			Name:     "created",
			OnCreate: true,
		},
		&core.AutodateField{
			Name:     "updated",
			OnCreate: true,
			OnUpdate: true,
		},
	)

	collection.AddIndex("idx_tickets_owner_id", false, "owner_id", "")
	collection.AddIndex("idx_tickets_status", false, "status", "")

	return collection
}
