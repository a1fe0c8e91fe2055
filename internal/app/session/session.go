// Package session resolves WebSocket upgrade requests to discussion identities.
//
// The real-time endpoint accepts both authenticated and anonymous connections,
// so resolution never fails the upgrade: a missing or invalid credential just
// yields an anonymous session.
package session

import (
	"net/http"

	"github.com/JulietLog/JulietLog-back/internal/app/discussion"
	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

// Authenticator turns an upgrade request into an optional identity.
type Authenticator struct {
	jwtSecret string
}

// NewAuthenticator creates an Authenticator verifying tokens with the given secret.
func NewAuthenticator(jwtSecret string) *Authenticator {
	return &Authenticator{jwtSecret: jwtSecret}
}

// Resolve extracts and verifies the request's access token. It returns the
// caller's identity, or nil for anonymous and for any credential that fails
// verification. Refresh tokens never authenticate a socket.
func (a *Authenticator) Resolve(r *http.Request) *discussion.Identity {
	tokenString := jwt.TokenFromRequest(r)
	if tokenString == "" {
		return nil
	}

	payload, err := jwt.ParseToken(tokenString, a.jwtSecret)
	if err != nil {
		logx.Warn("Rejected socket credential.", "remote_addr", r.RemoteAddr, "reason", err.Error())
		return nil
	}

	if payload.TokenType != jwt.TypeAccess {
		logx.Warn("Rejected non-access token on socket upgrade.", "user_id", payload.UserID)
		return nil
	}

	return &discussion.Identity{
		UserID:   payload.UserID,
		Nickname: payload.Nickname,
	}
}
