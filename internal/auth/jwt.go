// Package auth provides JWT issuance and verification for the API.
//
// TWO TOKEN KINDS:
//
//   - Access token (15 minutes): carries subject + role. Proves identity for
//     a single request; verified statelessly by the middleware with no store
//     lookup. Not revocable before it expires — accepted tradeoff.
//   - Refresh token (30 days): carries subject only. Exchanged at
//     /api/auth/refresh for a fresh pair. The store keeps exactly one active
//     refresh token per user, and every successful refresh rotates it.
//
// Both are HS256-signed with the same server secret. The signature makes
// them tamper-evident: any bit flip fails verification. Expiry is embedded
// in the claims, so verification fails deterministically past expiresAt.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "longbox"

// Default token lifetimes. Overridable through TokenConfig for tests and
// deployments that want shorter sessions.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Verification failure kinds. Callers classify with errors.Is; the message
// detail stays server-side.
var (
	// ErrTokenExpired means the token was well-formed and correctly signed
	// but its exp claim is in the past.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers everything else: malformed structure, bad
	// signature, wrong algorithm, missing subject.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// TokenConfig carries the tunable parts of token issuance.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues and verifies the two token kinds. It holds the HMAC
// secret used for both signing and verification.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of random data in production (JWT_SECRET=$(openssl rand -hex 32));
// we enforce a 16-character floor so an empty or trivially guessable secret
// fails at startup rather than at the first forged token.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// RefreshTTL reports the configured refresh-token lifetime. The session
// controller uses it to compute the store-side expiry it persists alongside
// the token.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// accessClaims is the access-token payload: standard registered claims plus
// the user's role. Subject carries the user ID.
type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// refreshClaims is the refresh-token payload. Subject only — a refresh
// token proves identity for exactly one operation (the refresh exchange),
// which re-reads the role from the store anyway.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// GenerateAccess creates a signed access token for the given user and role.
func (s *TokenService) GenerateAccess(userID, role string) (string, error) {
	now := time.Now()
	c := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    issuer,
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}
	return signed, nil
}

// GenerateRefresh creates a signed refresh token for the given user. Each
// token carries a unique jti: rotation compares tokens by value, and two
// tokens minted within the same second would otherwise be identical.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	now := time.Now()
	c := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing refresh token: %w", err)
	}
	return signed, nil
}

// ValidateAccess parses and verifies an access token, returning the user ID
// (sub) and role it encodes.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - signature is valid (token wasn't tampered with)
//   - exp is in the future, and is present at all
//   - issuer matches (rejects tokens minted by other apps sharing a secret)
//   - algorithm is HS256 (prevents algorithm-confusion attacks where an
//     attacker submits a token signed with "none")
func (s *TokenService) ValidateAccess(tokenStr string) (userID, role string, err error) {
	c := &accessClaims{}
	if err := s.parse(tokenStr, c); err != nil {
		return "", "", err
	}
	if c.Subject == "" {
		return "", "", fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}
	return c.Subject, c.Role, nil
}

// ValidateRefresh parses and verifies a refresh token, returning the user
// ID it encodes. This checks only the token's own signature and embedded
// expiry; the session controller additionally checks the token against the
// store (the store's record is authoritative — logout clears it even while
// the token itself is still cryptographically valid).
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	c := &refreshClaims{}
	if err := s.parse(tokenStr, c); err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}
	return c.Subject, nil
}

func (s *TokenService) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
