package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	sessionTokenBytes = 20
	recoveryCodeBytes = 10
)

// base32 lowercase without padding, matching the session token alphabet
// expected by existing cookies.
var lowerBase32 = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

var upperBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewSessionToken returns a fresh opaque session token. The token itself is
// never persisted; stores key sessions by HashToken(token).
func NewSessionToken() (string, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return lowerBase32.EncodeToString(raw), nil
}

// HashToken derives the stable session id from a raw token: lowercase hex of
// SHA-256. One-way, so possession of the cache key never reveals the token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewRecoveryCode returns a 16-character single-use recovery code
// (10 random bytes, upper-case base32).
func NewRecoveryCode() (string, error) {
	raw := make([]byte, recoveryCodeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return upperBase32.EncodeToString(raw), nil
}

// NewNumericCode returns a zero-padded numeric code of the given length,
// drawn uniformly from the full range (000…0 through 999…9).
func NewNumericCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}
	bound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// NewTOTPKey returns a fresh 20-byte TOTP key.
func NewTOTPKey() ([]byte, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// NewOAuthState returns a random value suitable for an OAuth state parameter
// or PKCE verifier seed.
func NewOAuthState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return upperBase32.EncodeToString(raw), nil
}
