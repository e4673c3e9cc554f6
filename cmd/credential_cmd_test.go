package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ticket-gate/config"
	"ticket-gate/internal/services"
	"ticket-gate/internal/status"
	"ticket-gate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore map[string]models.Ticket

func (s stubStore) GetTicket(_ context.Context, id string) (models.Ticket, error) {
	t, ok := s[id]
	if !ok {
		return models.Ticket{}, status.ErrTicketNotFound
	}
	return t, nil
}

func (s stubStore) ConditionalUpdateStatus(context.Context, string, models.TicketStatus, models.TicketStatus, models.UsageMark) (int64, error) {
	return 0, nil
}

func newTestCommand(t *testing.T, ticketStatus models.TicketStatus) (*bytes.Buffer, func(args ...string) error) {
	t.Helper()

	issuer := services.NewCredentialIssuer(config.CredentialConfig{Period: 30 * time.Second, Digits: 6, Skew: 1, MaxAge: time.Minute})
	_, secret, err := issuer.Issue("T1", "U1")
	require.NoError(t, err)

	store := stubStore{"T1": {ID: "T1", OwnerID: "U1", Secret: secret, Status: ticketStatus}}
	command := NewCredentialCommand(store, issuer, 128)

	var out bytes.Buffer
	command.SetOut(&out)
	command.SetErr(&out)

	return &out, func(args ...string) error {
		command.SetArgs(args)
		return command.Execute()
	}
}

func TestCredentialCommand_PrintsPayload(t *testing.T) {
	out, run := newTestCommand(t, models.TicketValid)

	require.NoError(t, run("render", "T1"))

	p, err := services.DecodePayload(out.String())
	require.NoError(t, err)
	assert.Equal(t, "T1", p.TicketID)
	assert.Equal(t, "U1", p.OwnerID)
}

func TestCredentialCommand_WritesPNG(t *testing.T) {
	_, run := newTestCommand(t, models.TicketValid)
	path := filepath.Join(t.TempDir(), "t1.png")

	require.NoError(t, run("render", "T1", "--out", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestCredentialCommand_Errors(t *testing.T) {
	_, run := newTestCommand(t, models.TicketUsed)

	assert.ErrorIs(t, run("render", "T1"), status.ErrTicketNotValid)
	assert.ErrorIs(t, run("render", "T9"), status.ErrTicketNotFound)
	assert.Error(t, run("render"))
}
