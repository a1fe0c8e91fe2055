package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionIDUnique(t *testing.T) {
	seen := make(map[string]struct{})

	for range 100 {
		id := ConnectionID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestVerificationCodeShape(t *testing.T) {
	code, err := VerificationCode()
	require.NoError(t, err)

	assert.Len(t, code, VerificationCodeLength)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(CodeChars, c), "unexpected character %q", c)
	}
}

func TestTempPasswordShape(t *testing.T) {
	password, err := TempPassword()
	require.NoError(t, err)

	require.Len(t, password, 9)

	for _, c := range password[:6] {
		assert.True(t, strings.ContainsRune(PasswordChars, c), "unexpected character %q", c)
	}
	for _, c := range password[6:] {
		assert.True(t, strings.ContainsRune(PasswordSpecialChars, c), "unexpected character %q", c)
	}
}
