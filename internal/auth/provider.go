// Package auth identifies the scanner behind a scan request.
package auth

import (
	"fmt"

	"ticket-gate/config"
	"ticket-gate/internal/status"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"
)

const (
	ScannerIDHeader  = "X-Scanner-Id"
	ScannerKeyHeader = "X-Scanner-Key"
)

// Provider returns the scanner id recorded against a committed scan.
type Provider interface {
	ScannerID(e *core.RequestEvent) (string, error)
}

// NewProvider picks the provider named by cfg.AuthProvider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.AuthProvider {
	case "record":
		return &RecordAuth{Role: cfg.ScannerRole}, nil
	case "device":
		return NewDeviceKeyAuth(cfg.ScannerKeys), nil
	case "disabled", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("auth: unknown provider %q", cfg.AuthProvider)
	}
}

// Disabled rejects every scan until a real provider is configured.
type Disabled struct{}

func (Disabled) ScannerID(*core.RequestEvent) (string, error) {
	return "", status.ErrAuthUnavailable
}

// RecordAuth trusts the pocketbase auth record on the request. When Role is
// set, non-superusers also need a matching "role" field.
type RecordAuth struct {
	Role string
}

func (a *RecordAuth) ScannerID(e *core.RequestEvent) (string, error) {
	if e.Auth == nil {
		return "", status.ErrUnauthenticated
	}
	if a.Role != "" && !e.Auth.IsSuperuser() && e.Auth.GetString("role") != a.Role {
		return "", status.ErrForbiddenScanner
	}
	return e.Auth.Id, nil
}

// DeviceKeyAuth authenticates door devices by a per-device key checked against
// a bcrypt hash.
type DeviceKeyAuth struct {
	hashes map[string][]byte
}

func NewDeviceKeyAuth(keys map[string]string) *DeviceKeyAuth {
	hashes := make(map[string][]byte, len(keys))
	for id, hash := range keys {
		hashes[id] = []byte(hash)
	}
	return &DeviceKeyAuth{hashes: hashes}
}

func (a *DeviceKeyAuth) ScannerID(e *core.RequestEvent) (string, error) {
	id := e.Request.Header.Get(ScannerIDHeader)
	key := e.Request.Header.Get(ScannerKeyHeader)
	if id == "" || key == "" {
		return "", status.ErrUnauthenticated
	}

	hash, ok := a.hashes[id]
	if !ok {
		return "", status.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
		return "", status.ErrUnauthenticated
	}

	return id, nil
}
