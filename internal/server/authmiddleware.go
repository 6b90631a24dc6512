package server

import (
	"net/http"
	"time"

	"github.com/reclamo/reclamo/internal/auth"
)

// AuthMiddleware extracts the caller's bearer token, rejects missing,
// malformed, or expired tokens, and stores the parsed token in the request
// context for the upstream client to forward. Token signatures are not
// verified here; the upstream gateway that issued the token is the one that
// checks them on every forwarded call.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.ExtractBearer(r)
		if err != nil {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		tok, err := auth.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		if tok.Expired(time.Now()) {
			http.Error(w, "Token expired", http.StatusUnauthorized)
			return
		}

		ctx := auth.ContextWithToken(r.Context(), tok)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
