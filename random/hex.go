// Package random produces secrets for development defaults.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Bytes generates n random bytes.
func Bytes(n int) ([]byte, error) {
	bytes := make([]byte, n)

	_, err := rand.Read(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}

	return bytes, nil
}

// String returns n random bytes hex encoded, so 2n characters.
func String(n int) (string, error) {
	bytes, err := Bytes(n)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}
