package services

import (
	"context"
	"fmt"

	"ticket-gate/models"

	pubnub "github.com/pubnub/go"
)

// PubNubNotifier publishes scan events on the owner's channel, the same
// channel the storefront already listens on for booking updates.
type PubNubNotifier struct {
	PubNub *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{PubNub: pn}
}

func (n *PubNubNotifier) NotifyScanned(_ context.Context, event models.ScanEvent) error {
	channel := fmt.Sprintf("user-%s", event.OwnerID)

	_, _, err := n.PubNub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":       "ticket_scanned",
			"scan_id":    event.ScanID,
			"ticket_id":  event.TicketID,
			"scanner_id": event.ScannerID,
			"scanned_at": event.ScannedAt.UnixMilli(),
		}).
		Execute()
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}

	return nil
}
