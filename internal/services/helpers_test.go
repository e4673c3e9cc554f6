package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticket-gate/config"
	"ticket-gate/internal/status"
	"ticket-gate/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// t0 sits on a 30 second boundary so interval arithmetic in tests is exact.
var t0 = time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC)

var testCredentialConfig = config.CredentialConfig{
	Period: 30 * time.Second,
	Digits: 6,
	Skew:   1,
	MaxAge: 5 * time.Minute,
	QRSize: 128,
}

// fakeTicketStore applies the conditional update under a mutex, which is what a
// single-statement UPDATE ... WHERE status = ? gives us in the real stores.
type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]models.Ticket

	getErr    error
	updateErr error
	// beforeGet runs after the read and before it is returned.
	beforeGet func()
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]models.Ticket)}
}

func (f *fakeTicketStore) put(t models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[t.ID] = t
}

func (f *fakeTicketStore) get(id string) models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[id]
}

func (f *fakeTicketStore) GetTicket(_ context.Context, id string) (models.Ticket, error) {
	if f.getErr != nil {
		return models.Ticket{}, f.getErr
	}

	f.mu.Lock()
	t, ok := f.tickets[id]
	f.mu.Unlock()

	if f.beforeGet != nil {
		f.beforeGet()
	}
	if !ok {
		return models.Ticket{}, status.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeTicketStore) ConditionalUpdateStatus(_ context.Context, id string, expected, next models.TicketStatus, mark models.UsageMark) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[id]
	if !ok || t.Status != expected {
		return 0, nil
	}

	t.Status = next
	if !mark.IsZero() {
		usedAt := mark.UsedAt
		t.UsedAt = &usedAt
		t.UsedBy = mark.UsedBy
	}
	f.tickets[id] = t
	return 1, nil
}

type MockAttemptLimiter struct {
	mock.Mock
}

func (m *MockAttemptLimiter) Allow(ctx context.Context, ticketID string) (bool, error) {
	args := m.Called(ctx, ticketID)
	return args.Bool(0), args.Error(1)
}

type MockScanNotifier struct {
	mock.Mock
}

func (m *MockScanNotifier) NotifyScanned(ctx context.Context, event models.ScanEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestIssuer(at time.Time) *CredentialIssuer {
	issuer := NewCredentialIssuer(testCredentialConfig)
	issuer.nowFn = fixedClock(at)
	return issuer
}

func newTestValidator(store TicketStore, at time.Time) *EntryValidator {
	v := NewEntryValidator(store, testCredentialConfig)
	v.nowFn = fixedClock(at)
	return v
}

// issueTicket issues a credential at t0 and stores a valid ticket for it.
func issueTicket(t *testing.T, store *fakeTicketStore, ticketID, ownerID string) (payload, secret string) {
	t.Helper()

	payload, secret, err := newTestIssuer(t0).Issue(ticketID, ownerID)
	require.NoError(t, err)

	store.put(models.Ticket{
		ID:      ticketID,
		OwnerID: ownerID,
		Secret:  secret,
		Status:  models.TicketValid,
	})
	return payload, secret
}
