package models

import (
	"time"
)

// ScanEvent is published to the ticket owner after a successful door scan.
type ScanEvent struct {
	ScanID    string    `json:"scan_id"`
	TicketID  string    `json:"ticket_id"`
	OwnerID   string    `json:"owner_id"`
	ScannerID string    `json:"scanner_id"`
	ScannedAt time.Time `json:"scanned_at"`
}
