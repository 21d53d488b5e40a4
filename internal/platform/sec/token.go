// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package sec

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// # Random Material

// GenerateSecureToken returns a hex-encoded random token of byteLength random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// GenerateNumericCode returns a zero-padded random numeric code of the given
// number of digits (e.g. "042917" for digits=6).
//
// Used for email verification and password reset codes that a human has to
// type from their inbox.
func GenerateNumericCode(digits int) (string, error) {
	// upper bound = 10^digits
	bound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate numeric code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// GenerateContentKey returns a base64-encoded 256-bit symmetric key.
//
// # Immutability
//
// Each user gets exactly one content key, generated lazily on first access.
// The storage layer guarantees it is written at most once; this function only
// produces the material.
func GenerateContentKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("sec: failed to generate content key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
