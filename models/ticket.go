package models

import (
	"time"
)

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketRefunded  TicketStatus = "refunded"
	TicketCancelled TicketStatus = "cancelled"
)

// TicketStatuses lists every status in the order the tickets collection declares them.
var TicketStatuses = []TicketStatus{TicketValid, TicketUsed, TicketRefunded, TicketCancelled}

func (s TicketStatus) IsTerminal() bool {
	return s == TicketUsed || s == TicketRefunded || s == TicketCancelled
}

// Ticket is the slice of the ticket record the door-scan flow reads and writes.
type Ticket struct {
	ID      string       `json:"id"`
	OwnerID string       `json:"owner_id"`
	Secret  string       `json:"-"`
	Status  TicketStatus `json:"status"`
	UsedAt  *time.Time   `json:"used_at,omitempty"`
	UsedBy  string       `json:"used_by,omitempty"`
}

// UsageMark is written together with the valid -> used transition.
type UsageMark struct {
	UsedAt time.Time
	UsedBy string
}

func (m UsageMark) IsZero() bool {
	return m.UsedAt.IsZero() && m.UsedBy == ""
}
