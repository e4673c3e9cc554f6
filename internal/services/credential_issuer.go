package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ticket-gate/config"
	"ticket-gate/internal/status"
	"ticket-gate/models"
	"ticket-gate/monitoring"
	"ticket-gate/utils"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// CodeOptions describes the time-stepped one-time code.
type CodeOptions struct {
	Period time.Duration
	Digits int
	Skew   uint
}

func CodeOptionsFromConfig(cfg config.CredentialConfig) CodeOptions {
	return CodeOptions{
		Period: cfg.Period,
		Digits: cfg.Digits,
		Skew:   cfg.Skew,
	}
}

func (o CodeOptions) totp() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(o.Period / time.Second),
		Skew:      o.Skew,
		Digits:    otp.Digits(o.Digits),
		Algorithm: otp.AlgorithmSHA1,
	}
}

// CredentialIssuer creates ticket secrets and the payloads derived from them.
// It never persists anything.
type CredentialIssuer struct {
	opts  CodeOptions
	rand  io.Reader
	nowFn func() time.Time
}

func NewCredentialIssuer(cfg config.CredentialConfig) *CredentialIssuer {
	return &CredentialIssuer{
		opts:  CodeOptionsFromConfig(cfg),
		nowFn: time.Now,
	}
}

// SetRandSource replaces the entropy source. Nil restores crypto/rand.
func (i *CredentialIssuer) SetRandSource(r io.Reader) {
	i.rand = r
}

// Issue generates a fresh secret for the ticket and the first payload for it.
// An entropy failure is returned as status.ErrEntropy and must abort the purchase.
func (i *CredentialIssuer) Issue(ticketID, ownerID string) (payload string, secret string, err error) {
	if ticketID == "" || ownerID == "" {
		return "", "", status.ErrMissingIdentity
	}

	secret, err = utils.GenerateSecret(i.rand, utils.SecretBytes)
	if err != nil {
		slog.Error("Failed to generate ticket secret", "error", err, "ticket_id", ticketID)
		return "", "", errors.Join(status.ErrEntropy, err)
	}

	payload, err = i.Render(ticketID, ownerID, secret)
	if err != nil {
		return "", "", err
	}

	monitoring.TrackCredentialIssued()
	return payload, secret, nil
}

// Render encodes a payload for an existing secret. Within one code interval
// repeated calls carry the same code.
func (i *CredentialIssuer) Render(ticketID, ownerID, secret string) (string, error) {
	now := i.nowFn()

	code, err := i.Code(secret, now)
	if err != nil {
		return "", err
	}

	return CredentialPayload{
		Version:  PayloadFormatVersion,
		TicketID: ticketID,
		OwnerID:  ownerID,
		Code:     code,
		IssuedAt: now.UnixMilli(),
	}.Encode()
}

// RenderTicket renders a payload for a stored ticket. Only valid tickets get one.
func (i *CredentialIssuer) RenderTicket(t models.Ticket) (string, error) {
	if t.Status != models.TicketValid {
		return "", fmt.Errorf("%w: %s", status.ErrTicketNotValid, t.Status)
	}
	return i.Render(t.ID, t.OwnerID, t.Secret)
}

// Code computes the one-time code for the interval containing at.
func (i *CredentialIssuer) Code(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, i.opts.totp())
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrCorruptSecret, err)
	}
	return code, nil
}
