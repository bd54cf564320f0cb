package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{
		Sub:   "google:123",
		Email: "jane@example.com",
		Plan:  "Starter",
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Sub != "google:123" {
		t.Fatalf("Sub = %q", claims.Sub)
	}
	if claims.Plan != "Starter" {
		t.Fatalf("Plan = %q", claims.Plan)
	}
	if claims.Iss != Issuer {
		t.Fatalf("Iss = %q, want %q", claims.Iss, Issuer)
	}
	if claims.Exp <= claims.Iat {
		t.Fatalf("Exp %d not after Iat %d", claims.Exp, claims.Iat)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{Sub: "google:123", Iss: "someone-else"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT(token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{Sub: "google:123"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	parts := strings.Split(token, ".")
	forged, _ := json.Marshal(Claims{Iss: Issuer, Sub: "google:999"})
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)
	if _, err := VerifyJWT(strings.Join(parts, ".")); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{
		Sub: "google:123",
		Iat: time.Now().UTC().Add(-2 * time.Hour).Unix(),
		Exp: time.Now().UTC().Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT(token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
