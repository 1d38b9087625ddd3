package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	staffID := uuid.New()

	token, err := auth.GenerateToken(secret, staffID, "CASHIER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.StaffID != staffID {
		t.Errorf("staff ID: got %v, want %v", claims.StaffID, staffID)
	}
	if claims.Role != "CASHIER" {
		t.Errorf("role: got %v, want CASHIER", claims.Role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "CASHIER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("secret-b", token); err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	if _, err := auth.ValidateToken("secret", "not-a-jwt"); err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestPINHashAndCheck(t *testing.T) {
	hash, err := auth.HashPIN("4821")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !auth.CheckPIN(hash, "4821") {
		t.Error("correct pin rejected")
	}
	if auth.CheckPIN(hash, "4822") {
		t.Error("wrong pin accepted")
	}
	if _, err := auth.HashPIN("12"); err != auth.ErrInvalidPIN {
		t.Errorf("short pin: got %v, want ErrInvalidPIN", err)
	}
}

func TestMaskPIN(t *testing.T) {
	cases := map[string]string{"": "", "7": "*", "4821": "***1"}
	for in, want := range cases {
		if got := auth.MaskPIN(in); got != want {
			t.Errorf("MaskPIN(%q) = %q, want %q", in, got, want)
		}
	}
}
