package auth

import (
	"context"
	"net/http"
	"strings"
)

// Identity is what a verified access token proves about the caller. It is
// attached to the request context by RequireAuth and read back by handlers
// via IdentityFromContext.
type Identity struct {
	UserID string
	Role   string
}

// contextKey is an unexported type for this package's context keys. Using a
// package-private type means no other package can read or shadow the
// identity value — a plain string key would be world-writable.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is the auth gate for protected routes.
//
// It reads the access token from the Authorization header
// ("Bearer <token>"), validates it statelessly, and stores the resulting
// Identity in the request context. On any failure it responds
// 401 Unauthorized and performs no downstream work.
//
// The gate never consults the user store: everything it needs (subject,
// role, expiry) is inside the signed token. The flip side is that an access
// token cannot be revoked before its natural expiry, which is why its
// lifetime is short.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated caller's identity.
// Returns (zero, false) when the request did not pass through RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// extractIdentity pulls the bearer token out of the Authorization header
// and validates it.
func extractIdentity(r *http.Request, tokens *TokenService) (Identity, error) {
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenStr) == "" {
		return Identity{}, ErrTokenInvalid
	}

	userID, role, err := tokens.ValidateAccess(strings.TrimSpace(tokenStr))
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Role: role}, nil
}
