package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

// makeJWT builds an unsigned JWT with the given exp claim (0 means no claim).
func makeJWT(t *testing.T, exp int64) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims := map[string]any{"sub": "user-1"}
	if exp > 0 {
		claims["exp"] = exp
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestParse(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tok, err := Parse(makeJWT(t, exp))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tok.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", tok.Subject)
	}
	if tok.ExpiresAt.Unix() != exp {
		t.Errorf("ExpiresAt = %v, want unix %d", tok.ExpiresAt, exp)
	}
	if tok.Expired(time.Now()) {
		t.Error("token should not be expired yet")
	}
	if !tok.Expired(time.Now().Add(2 * time.Hour)) {
		t.Error("token should be expired after exp")
	}
}

func TestParse_NoExpClaim(t *testing.T) {
	tok, err := Parse(makeJWT(t, 0))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tok.Expired(time.Now().Add(1000 * time.Hour)) {
		t.Error("token without exp claim must not expire locally")
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "notajwt", "a.b", "a.!!!.c"} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) should fail", raw)
		}
	}
}

func TestExtractBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")

	got, err := ExtractBearer(r)
	if err != nil {
		t.Fatalf("ExtractBearer() error = %v", err)
	}
	if got != "abc123" {
		t.Errorf("ExtractBearer() = %q, want abc123", got)
	}
}

func TestExtractBearer_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no scheme", "abc123"},
		{"wrong scheme", "Basic abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if _, err := ExtractBearer(r); err == nil {
				t.Error("ExtractBearer() should fail")
			}
		})
	}
}

func TestTokenContext(t *testing.T) {
	ctx := ContextWithToken(context.Background(), Token{Raw: "abc"})

	tok, ok := TokenFromContext(ctx)
	if !ok || tok.Raw != "abc" {
		t.Errorf("TokenFromContext() = %v, %v", tok, ok)
	}

	if _, ok := TokenFromContext(context.Background()); ok {
		t.Error("TokenFromContext on bare context should report false")
	}
}
