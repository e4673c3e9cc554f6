package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"ticket-gate/internal/status"
)

const (
	PayloadFormatVersion = 1

	maxPayloadLength = 2048
)

// CredentialPayload is the content of the QR code shown at the door.
type CredentialPayload struct {
	Version  int    `json:"v"`
	TicketID string `json:"tid"`
	OwnerID  string `json:"oid"`
	Code     string `json:"code"`
	// IssuedAt is epoch milliseconds at encoding time.
	IssuedAt int64 `json:"iat"`
}

func (p CredentialPayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding credential payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses a scanned string. Every failure wraps status.ErrMalformedPayload.
func DecodePayload(raw string) (CredentialPayload, error) {
	var p CredentialPayload

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p, fmt.Errorf("%w: empty", status.ErrMalformedPayload)
	}
	if len(raw) > maxPayloadLength {
		return p, fmt.Errorf("%w: %d bytes exceeds %d", status.ErrMalformedPayload, len(raw), maxPayloadLength)
	}

	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("%w: %v", status.ErrMalformedPayload, err)
	}

	switch {
	case p.Version != PayloadFormatVersion:
		return p, fmt.Errorf("%w: unsupported version %d", status.ErrMalformedPayload, p.Version)
	case p.TicketID == "":
		return p, fmt.Errorf("%w: missing ticket id", status.ErrMalformedPayload)
	case p.OwnerID == "":
		return p, fmt.Errorf("%w: missing owner id", status.ErrMalformedPayload)
	case p.Code == "":
		return p, fmt.Errorf("%w: missing code", status.ErrMalformedPayload)
	case p.IssuedAt <= 0:
		return p, fmt.Errorf("%w: missing issue time", status.ErrMalformedPayload)
	}

	return p, nil
}
