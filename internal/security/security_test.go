package security

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatalf("expected match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := SignAdminToken("secret", time.Hour, 42, "root", "admin")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseAdminToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != 42 || claims.Username != "root" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, errBad := ParseAdminToken("other-secret", token); errBad == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestAdminTokenExpiry(t *testing.T) {
	token, err := SignAdminToken("secret", -time.Minute, 1, "root", "admin")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, errExpired := ParseAdminToken("secret", token); errExpired == nil {
		t.Fatalf("expected error for expired token")
	}
}
