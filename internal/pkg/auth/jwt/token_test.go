package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{
		UserID:    42,
		Nickname:  "alice",
		TokenType: TypeAccess,
	}, testSecret, AccessExpiration)
	require.NoError(t, err)

	parsed, err := ParseToken(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, int64(42), parsed.UserID)
	assert.Equal(t, "alice", parsed.Nickname)
	assert.Equal(t, TypeAccess, parsed.TokenType)
	assert.Equal(t, TokenIssuer, parsed.Issuer)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(&Payload{UserID: 1, TokenType: TypeAccess}, testSecret, AccessExpiration)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	token, err := GenerateToken(&Payload{UserID: 1, TokenType: TypeAccess}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseGarbageToken(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	assert.Error(t, err)
}

func TestRefreshTokenCarriesType(t *testing.T) {
	token, err := GenerateToken(&Payload{
		UserID:    7,
		Nickname:  "bob",
		TokenType: TypeRefresh,
	}, testSecret, RefreshExpiration)
	require.NoError(t, err)

	parsed, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, parsed.TokenType)
}
