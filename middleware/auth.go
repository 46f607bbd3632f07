package middleware

import (
	"context"
	"net/http"
	"strings"

	"tulisbareng/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "userID"

// TokenFromRequest pulls the bearer credential from wherever the client put
// it. Websocket handshakes use the query string because the browser
// WebSocket API doesn't support custom headers; browser HTTP clients use
// the login cookie; everything else sends an Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// Auth rejects requests without a valid credential and puts the verified
// user id into the request context.
func Auth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.Verify(TokenFromRequest(r))
			if err != nil {
				http.Error(w, "Unauthorized: invalid or missing token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
