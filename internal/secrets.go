package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

const (
	// MinCodeDigits and MaxCodeDigits bound NewCode.
	MinCodeDigits = 4
	MaxCodeDigits = 10

	sessionIDSize     = 16
	refreshSecretSize = 32
)

var ErrMalformedToken = errors.New("malformed refresh token")

var tokenEncoding = base64.RawURLEncoding

// SessionID is the opaque identifier of a provider-side session.
type SessionID [sessionIDSize]byte

func (s SessionID) String() string {
	return tokenEncoding.EncodeToString(s[:])
}

// RefreshToken is the refresh credential of a provider session. Only a
// hash of Secret is ever stored.
type RefreshToken struct {
	Session SessionID
	Secret  [refreshSecretSize]byte
}

// NewRefreshToken draws a fresh session id and secret.
func NewRefreshToken() (RefreshToken, error) {
	var t RefreshToken
	if _, err := rand.Read(t.Session[:]); err != nil {
		return RefreshToken{}, fmt.Errorf("session id: %w", err)
	}
	if _, err := rand.Read(t.Secret[:]); err != nil {
		return RefreshToken{}, fmt.Errorf("refresh secret: %w", err)
	}
	return t, nil
}

// String encodes the id followed by the secret as unpadded base64url.
func (t RefreshToken) String() string {
	var raw [sessionIDSize + refreshSecretSize]byte
	copy(raw[:sessionIDSize], t.Session[:])
	copy(raw[sessionIDSize:], t.Secret[:])
	return tokenEncoding.EncodeToString(raw[:])
}

func (t RefreshToken) SecretHash() [32]byte {
	return sha256.Sum256(t.Secret[:])
}

// ParseRefreshToken is the inverse of RefreshToken.String.
func ParseRefreshToken(s string) (RefreshToken, error) {
	raw, err := tokenEncoding.DecodeString(s)
	if err != nil || len(raw) != sessionIDSize+refreshSecretSize {
		return RefreshToken{}, ErrMalformedToken
	}
	var t RefreshToken
	copy(t.Session[:], raw[:sessionIDSize])
	copy(t.Secret[:], raw[sessionIDSize:])
	return t, nil
}

// NewCode returns a uniformly random numeric code of the given length,
// leading zeros included.
func NewCode(digits int) (string, error) {
	if digits < MinCodeDigits || digits > MaxCodeDigits {
		return "", fmt.Errorf("code length %d outside [%d,%d]", digits, MinCodeDigits, MaxCodeDigits)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// HashCode binds a one-time code to the record it was issued for, so the
// same digits issued to two challenges never hash alike.
func HashCode(scope, code string) [32]byte {
	return sha256.Sum256([]byte(scope + "\x00" + code))
}
