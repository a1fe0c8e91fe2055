package jwt

import (
	"context"
	"net/http"
	"strings"

	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

// contextKey prevents key collisions with other packages storing context values.
type contextKey string

const (
	// ContextAuthPayloadKey stores the parsed Payload (user identity) in the request context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// IdentityExtractorMiddleware extracts and validates a JWT from the request.
// On success the Payload is injected into the context. It never interrupts the
// request: a missing or invalid token means the caller is treated as anonymous,
// matching the session model of the discussion socket.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided, treating as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if payload.TokenType != TypeAccess {
				logx.Warn("Non-access token presented as identity, treating as anonymous")
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts the raw bearer token from the Authorization header
// or, for WebSocket upgrades where custom headers are awkward, from the
// "token" query parameter.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	return r.URL.Query().Get("token")
}

// GetPayloadFromContext extracts the authenticated Payload from the request
// context. A nil return means the caller is anonymous.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}
