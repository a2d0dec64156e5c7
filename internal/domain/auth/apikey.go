// Package auth resolves API keys to caller identities.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing, unknown or inactive key.
var ErrUnauthorized = errors.New("unauthorized")

// ErrKeyNotFound is returned by a Repository when no active key matches.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is a stored credential bound to a user and role.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Role    Role
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// Authenticator turns raw API keys into identities.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator hashing keys with pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Hash returns the hex HMAC-SHA256 of raw under pepper.
func Hash(pepper []byte, raw string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate resolves raw to an Identity. Lookup failures other than a
// missing key are returned wrapped so they can be told apart from bad
// credentials.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrUnauthorized
	}
	hash := Hash(a.pepper, raw)

	key, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, errors.Wrap(err, "find api key")
	}

	// The row came back by hash; still compare in constant time.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(key.KeyHash)) != 1 {
		return Identity{}, ErrUnauthorized
	}
	if !key.Role.Valid() || key.UserID == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: key.UserID, Role: key.Role}, nil
}
