package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService with a fixed secret so tests
// are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(TokenConfig{Secret: "test-secret-at-least-16-chars!!"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService(TokenConfig{Secret: "short"}); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTLs(t *testing.T) {
	ts := newTestTokenService(t)
	if ts.accessTTL != DefaultAccessTTL {
		t.Errorf("accessTTL = %v, want %v", ts.accessTTL, DefaultAccessTTL)
	}
	if ts.RefreshTTL() != DefaultRefreshTTL {
		t.Errorf("RefreshTTL() = %v, want %v", ts.RefreshTTL(), DefaultRefreshTTL)
	}
}

// =========================================================================
// ACCESS TOKEN TESTS
// =========================================================================

func TestAccessToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateAccess("user-123", "admin")
	if err != nil {
		t.Fatalf("GenerateAccess() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("GenerateAccess() output doesn't look like a JWT: %q", token)
	}

	userID, role, err := ts.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want %q", userID, "user-123")
	}
	if role != "admin" {
		t.Errorf("role = %q, want %q", role, "admin")
	}
}

func TestAccessToken_Tampered(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.GenerateAccess("user-123", "user")

	// Flip a character in the payload segment. Any bit flip must fail
	// signature verification.
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, _, err := ts.ValidateAccess(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ValidateAccess(tampered) error = %v, want ErrTokenInvalid", err)
	}
}

func TestAccessToken_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService(TokenConfig{Secret: "a-completely-different-secret"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts.GenerateAccess("user-123", "user")

	if _, _, err := other.ValidateAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ValidateAccess() with wrong secret error = %v, want ErrTokenInvalid", err)
	}
}

func TestAccessToken_Expired(t *testing.T) {
	ts, err := NewTokenService(TokenConfig{
		Secret:    "test-secret-at-least-16-chars!!",
		AccessTTL: -time.Minute, // already expired at issuance
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts.GenerateAccess("user-123", "user")

	if _, _, err := ts.ValidateAccess(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateAccess(expired) error = %v, want ErrTokenExpired", err)
	}
}

func TestAccessToken_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, _, err := ts.ValidateAccess(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ValidateAccess(%q) error = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

// =========================================================================
// REFRESH TOKEN TESTS
// =========================================================================

func TestRefreshToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateRefresh("user-456")
	if err != nil {
		t.Fatalf("GenerateRefresh() error = %v", err)
	}

	userID, err := ts.ValidateRefresh(token)
	if err != nil {
		t.Fatalf("ValidateRefresh() error = %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	ts, err := NewTokenService(TokenConfig{
		Secret:     "test-secret-at-least-16-chars!!",
		RefreshTTL: -time.Minute,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts.GenerateRefresh("user-456")

	if _, err := ts.ValidateRefresh(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateRefresh(expired) error = %v, want ErrTokenExpired", err)
	}
}

func TestTokens_DistinctPerCall(t *testing.T) {
	ts := newTestTokenService(t)

	access, _ := ts.GenerateAccess("user-1", "user")
	refresh, _ := ts.GenerateRefresh("user-1")

	if access == refresh {
		t.Error("access and refresh tokens for the same user must differ")
	}
}
