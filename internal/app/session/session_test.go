package session

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
)

const testSecret = "test-secret"

func TestResolveAnonymous(t *testing.T) {
	a := NewAuthenticator(testSecret)

	r := httptest.NewRequest("GET", "/ws/discussions", nil)
	assert.Nil(t, a.Resolve(r))
}

func TestResolveQueryToken(t *testing.T) {
	a := NewAuthenticator(testSecret)

	token, err := jwt.GenerateToken(&jwt.Payload{
		UserID:    42,
		Nickname:  "alice",
		TokenType: jwt.TypeAccess,
	}, testSecret, jwt.AccessExpiration)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws/discussions?token="+token, nil)

	identity := a.Resolve(r)
	require.NotNil(t, identity)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, "alice", identity.Nickname)
}

func TestResolveBearerHeader(t *testing.T) {
	a := NewAuthenticator(testSecret)

	token, err := jwt.GenerateToken(&jwt.Payload{
		UserID:    7,
		Nickname:  "bob",
		TokenType: jwt.TypeAccess,
	}, testSecret, jwt.AccessExpiration)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws/discussions", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	identity := a.Resolve(r)
	require.NotNil(t, identity)
	assert.Equal(t, int64(7), identity.UserID)
}

func TestResolveRejectsRefreshToken(t *testing.T) {
	a := NewAuthenticator(testSecret)

	token, err := jwt.GenerateToken(&jwt.Payload{
		UserID:    42,
		Nickname:  "alice",
		TokenType: jwt.TypeRefresh,
	}, testSecret, jwt.RefreshExpiration)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws/discussions?token="+token, nil)
	assert.Nil(t, a.Resolve(r))
}

func TestResolveRejectsForgedToken(t *testing.T) {
	a := NewAuthenticator(testSecret)

	token, err := jwt.GenerateToken(&jwt.Payload{
		UserID:    42,
		TokenType: jwt.TypeAccess,
	}, "attacker-secret", jwt.AccessExpiration)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws/discussions?token="+token, nil)
	assert.Nil(t, a.Resolve(r))
}
