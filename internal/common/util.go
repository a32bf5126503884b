package common

import (
	"crypto/rand"
	"encoding/hex"
)

// RefreshCookieName is the cookie that carries the renewal token for web clients.
const RefreshCookieName = "refresh_token"

// MakeRandHexString generates size random bytes and returns them hex-encoded,
// so the resulting string is twice as long as size.
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size bytes read from crypto/rand.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
