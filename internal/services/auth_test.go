package services

import (
	"testing"
	"time"
)

func testTokens() TokenService {
	return TokenService{
		Secret:     []byte("test-secret"),
		Issuer:     "cordforge-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	tokens := testTokens()
	hash, err := tokens.HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret" {
		t.Fatal("password stored unhashed")
	}
	if !tokens.VerifyPassword("secret", hash) {
		t.Fatal("correct password rejected")
	}
	if tokens.VerifyPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := testTokens()
	signed, exp, err := tokens.CreateAccessToken("user-1", "alice@example.com", "USER")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	if exp <= time.Now().Unix() {
		t.Fatalf("expiry in the past: %d", exp)
	}
	token, claims, err := tokens.ParseToken(signed)
	if err != nil || !token.Valid {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims["sub"] != "user-1" || claims["email"] != "alice@example.com" || claims["role"] != "USER" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims["typ"] != "access" {
		t.Fatalf("typ = %v", claims["typ"])
	}
}

func TestRefreshTokenHasRefreshType(t *testing.T) {
	tokens := testTokens()
	signed, err := tokens.CreateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	_, claims, err := tokens.ParseToken(signed)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims["typ"] != "refresh" {
		t.Fatalf("typ = %v", claims["typ"])
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	signed, _, err := testTokens().CreateAccessToken("user-1", "a@b.c", "USER")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	other := testTokens()
	other.Secret = []byte("different")
	if token, _, err := other.ParseToken(signed); err == nil && token.Valid {
		t.Fatal("token signed with another secret accepted")
	}
}
