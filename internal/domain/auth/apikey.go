package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ScopeAdmin marks keys allowed to manage discount rules and order statuses.
const ScopeAdmin = "admin"

// ErrKeyNotFound is returned when no active key matches the given hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
// UserID is the customer the key acts for.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// HasScope reports whether the key carries the given scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
