package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/storefront/internal/domain/auth"
)

// APIKeyHeader is the request header carrying the caller's API key.
const APIKeyHeader = "api_key"

type identityKey struct{}

// Identity describes the authenticated caller for the duration of a request.
type Identity struct {
	UserID string
	Name   string
	Scopes []string
}

// IsAdmin reports whether the caller may manage rules and order statuses.
func (id *Identity) IsAdmin() bool {
	for _, s := range id.Scopes {
		if s == auth.ScopeAdmin {
			return true
		}
	}
	return false
}

// IdentityFrom extracts the authenticated identity from the context, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// Security authenticates requests via HMAC-SHA256 hashed API keys.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security middleware with the given API key
// repository and HMAC pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// Middleware authenticates the request by computing the HMAC-SHA256 of the
// provided API key, looking it up, and performing a constant-time comparison
// to prevent timing attacks. On success the caller's Identity is stored in
// the request context.
func (s *Security) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, &Identity{
			UserID: info.UserID,
			Name:   info.Name,
			Scopes: info.Scopes,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates privileged endpoints on the admin scope.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFrom(r.Context())
		if id == nil || !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}
		next(w, r)
	}
}
