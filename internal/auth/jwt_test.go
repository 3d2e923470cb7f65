package auth

import (
	"testing"
	"time"

	"meettrack/internal/apperr"
)

const (
	testIssuer = "meettrack-test"
	testKey    = "test-signing-key"
)

func TestIssueParseRoundTrip(t *testing.T) {
	tok, err := Issue("user-1", "budi@example.com", true, testIssuer, testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Value == "" {
		t.Fatalf("issued empty token")
	}
	if time.Until(tok.ExpiresAt) <= 0 {
		t.Fatalf("token already expired at issue: %v", tok.ExpiresAt)
	}

	claims, err := Parse(tok.Value, testKey, testIssuer)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "budi@example.com" || !claims.IsAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseFailuresCollapse(t *testing.T) {
	tok, err := Issue("user-1", "budi@example.com", false, testIssuer, testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, err := Issue("user-1", "budi@example.com", false, testIssuer, testKey, -time.Minute)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	cases := map[string]struct {
		token  string
		key    string
		issuer string
	}{
		"garbage":      {"not-a-token", testKey, testIssuer},
		"wrong key":    {tok.Value, "other-key", testIssuer},
		"expired":      {expired.Value, testKey, testIssuer},
		"wrong issuer": {tok.Value, testKey, "someone-else"},
	}
	for name, tc := range cases {
		_, err := Parse(tc.token, tc.key, tc.issuer)
		if apperr.KindOf(err) != apperr.KindAuth {
			t.Fatalf("%s: err = %v, want auth kind", name, err)
		}
		if apperr.Message(err) != "Authentication failed" {
			t.Fatalf("%s: message = %q, failure modes must be indistinguishable", name, apperr.Message(err))
		}
	}
}

func TestParseIsAdminFalse(t *testing.T) {
	tok, err := Issue("user-2", "siti@example.com", false, testIssuer, testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := Parse(tok.Value, testKey, testIssuer)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.IsAdmin {
		t.Fatalf("non-admin token parsed as admin")
	}
}
