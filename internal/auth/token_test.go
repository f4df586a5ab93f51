package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)

	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleTechnician)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry in the past: %v", expiresAt)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != domain.RoleTechnician {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 15).GenerateToken("user-1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 15).ParseToken(token); err == nil {
		t.Fatal("expected parse to fail with different secret")
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, _, err := tm.GenerateToken("user-1", domain.RoleRequester)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA"
	if _, err := tm.ParseToken(tampered); err == nil {
		t.Fatal("expected parse to fail on tampered signature")
	}
}
