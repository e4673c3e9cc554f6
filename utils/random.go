package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
)

// SecretBytes is the raw size of a ticket secret (256 bits).
const SecretBytes = 32

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret reads n bytes from r and returns them base32 encoded without
// padding. A nil reader means crypto/rand. Short reads are errors; there is no
// fallback source.
func GenerateSecret(r io.Reader, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}

	byt := make([]byte, n)
	if _, err := io.ReadFull(r, byt); err != nil {
		return "", fmt.Errorf("reading %d random bytes: %w", n, err)
	}

	return secretEncoding.EncodeToString(byt), nil
}

// DecodeSecret is the inverse of GenerateSecret.
func DecodeSecret(secret string) ([]byte, error) {
	return secretEncoding.DecodeString(secret)
}
