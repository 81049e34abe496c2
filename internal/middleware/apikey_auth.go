package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

type contextKey string

const (
	ctxAPIKeyKey   contextKey = "api_key"
	ctxOperatorKey contextKey = "operator"
)

// KeyFinder resolves an active service credential by its SHA-256 hash.
type KeyFinder interface {
	FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error)
}

// APIKeyAuth authenticates the chat adapter's requests by hashing the Bearer
// token (SHA-256) and looking it up in api_keys. On success the key record is
// set into request context.
func APIKeyAuth(keys KeyFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			key, err := keys.FindByKeyHash(r.Context(), HashKey(raw))
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxAPIKeyKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyFromCtx returns the authenticated service credential or nil.
func APIKeyFromCtx(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value(ctxAPIKeyKey).(*models.APIKey)
	return key
}

// WithAPIKey returns a context carrying the given credential.
func WithAPIKey(ctx context.Context, key *models.APIKey) context.Context {
	return context.WithValue(ctx, ctxAPIKeyKey, key)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// HashKey derives the stored lookup hash for a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
