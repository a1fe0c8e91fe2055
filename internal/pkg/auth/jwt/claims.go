package jwt

import "github.com/golang-jwt/jwt"

// Token type values stored in the TokenType claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Payload defines the JWT claims issued by the JulietLog backend.
// The same structure is used for HTTP Authorization headers and for the
// credential carried by WebSocket upgrade requests.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss, required for validity checks.
	jwt.StandardClaims

	// UserID is the account identifier of the token holder.
	UserID int64 `json:"userId"`

	// Nickname is the holder's profile nickname at issue time.
	Nickname string `json:"nickname"`

	// TokenType distinguishes short-lived access tokens from refresh tokens.
	TokenType string `json:"tokenType"`
}
