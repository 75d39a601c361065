package auth

import (
	"testing"
	"time"

	"github.com/prepnest/prepnest-api/model"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        AccessTokenTTL,
		RefreshExpiry: RefreshTokenTTL,
		Issuer:        "prepnest-test",
	})
}

func testUser() *model.User {
	return &model.User{
		ID:    1,
		Email: "student@example.com",
		Role:  model.RoleStudent,
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := testManager()

	token, err := m.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 1 || claims.Email != "student@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Errorf("expected access token type, got %s", claims.TokenType)
	}
	if claims.Role != model.RoleStudent {
		t.Errorf("expected student role, got %s", claims.Role)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := testManager().GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	other := NewJWTManager(JWTConfig{Secret: "different-secret", Expiry: time.Minute})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected token signed with another secret to fail")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "test-secret", Expiry: -time.Minute})

	token, err := m.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := m.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRefreshAccessTokenRequiresRefreshType(t *testing.T) {
	m := testManager()

	access, err := m.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := m.RefreshAccessToken(access); err == nil {
		t.Error("expected access token to be rejected on the refresh path")
	}

	refresh, err := m.GenerateRefreshToken(testUser())
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}
	claims, err := m.RefreshAccessToken(refresh)
	if err != nil {
		t.Fatalf("RefreshAccessToken failed: %v", err)
	}
	if claims.UserID != 1 {
		t.Errorf("unexpected claims: %+v", claims)
	}
}
