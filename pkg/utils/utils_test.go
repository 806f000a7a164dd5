package utils

import (
	"testing"
)

func TestHashPassword(t *testing.T) {
	password := "secret"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !CheckPassword(password, hash) {
		t.Errorf("Expected password check to pass")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Errorf("Expected password check to fail")
	}
}

func TestJWT(t *testing.T) {
	secret := "supersecret"
	userID := "0b3f0c7e-3f6a-4c7e-9a53-0d6f1c2a9e10"
	role := "student"

	token, err := GenerateToken(userID, role, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}

	if claims.Role != role {
		t.Errorf("Expected Role %s, got %s", role, claims.Role)
	}

	_, err = ValidateToken(token, "wrongsecret")
	if err == nil {
		t.Errorf("Expected error with wrong secret")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not-a-token", "supersecret"); err == nil {
		t.Errorf("Expected error for malformed token")
	}
}
