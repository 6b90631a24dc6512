// Package auth handles the bearer tokens issued by the upstream API.
//
// The upstream owns issuance and signature verification; this service only
// checks the expiry claim locally before forwarding the token, so an expired
// session is rejected without a round trip.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Token is a bearer token with its locally-decoded claims.
type Token struct {
	Raw       string
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim has passed. Tokens without
// an exp claim never expire locally; the upstream still gets the final say.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Parse decodes the payload segment of a JWT to extract the exp claim.
// The signature is not verified here.
func Parse(raw string) (Token, error) {
	if raw == "" {
		return Token{}, fmt.Errorf("empty token")
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("malformed token")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("decode token payload: %w", err)
	}

	var claims struct {
		Sub string `json:"sub"`
		Exp int64  `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Token{}, fmt.Errorf("parse token claims: %w", err)
	}

	tok := Token{Raw: raw, Subject: claims.Sub}
	if claims.Exp > 0 {
		tok.ExpiresAt = time.Unix(claims.Exp, 0)
	}
	return tok, nil
}

// ExtractBearer extracts the bearer token from the Authorization header.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

type tokenContextKey struct{}

// ContextWithToken stores a token in the context for downstream upstream calls.
func ContextWithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, tok)
}

// TokenFromContext retrieves the token stored by the auth middleware.
func TokenFromContext(ctx context.Context) (Token, bool) {
	tok, ok := ctx.Value(tokenContextKey{}).(Token)
	return tok, ok
}
