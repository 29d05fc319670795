package auth

import (
	"testing"
	"time"
)

func newTestService(t *testing.T, accessTTL time.Duration) *AuthService {
	t.Helper()
	svc, err := NewEphemeralService(accessTTL, time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc := newTestService(t, time.Minute)

	pair, err := svc.GenerateTokenPair(Principal{UserID: 42, Role: "admin", MustChangePassword: true})
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}

	access, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if access.TokenType != TokenTypeAccess || access.UserID != 42 || access.Role != "admin" {
		t.Fatalf("unexpected access claims %+v", access)
	}
	if !access.Principal().MustChangePassword {
		t.Fatalf("must change password claim lost")
	}

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if refresh.TokenType != TokenTypeRefresh || refresh.ID == "" {
		t.Fatalf("refresh token must carry a jti, got %+v", refresh)
	}
}

func TestValidateTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	svc := newTestService(t, time.Minute)
	other := newTestService(t, time.Minute)

	pair, err := other.GenerateTokenPair(Principal{UserID: 1, Role: "user"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.ValidateToken(pair.AccessToken); err == nil {
		t.Fatalf("token signed by another key must be rejected")
	}

	expired := newTestService(t, -time.Minute)
	pair, err = expired.GenerateTokenPair(Principal{UserID: 1, Role: "user"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := expired.ValidateToken(pair.AccessToken); err == nil {
		t.Fatalf("expired token must be rejected")
	}

	if _, err := svc.ValidateToken(""); err == nil {
		t.Fatalf("empty token must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("correct horse", hash) {
		t.Fatalf("expected password to match")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatalf("expected mismatch")
	}
}

func TestSecretEqual(t *testing.T) {
	if !SecretEqual("token", "token") {
		t.Fatalf("equal secrets must match")
	}
	if SecretEqual("token", "other") || SecretEqual("tok", "token") {
		t.Fatalf("different secrets must not match")
	}
	if SecretEqual("", "") {
		t.Fatalf("empty configured secret must never match")
	}
}
