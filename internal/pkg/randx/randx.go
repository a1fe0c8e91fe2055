/*
Package randx provides cryptographically secure random identifiers and codes.

It generates UUID connection and message identifiers, mail verification codes,
and one-time temporary passwords for the password-reset flow.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// CodeChars is the character set used for mail verification codes.
	CodeChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// PasswordChars is the alphanumeric character set used for temporary passwords.
	PasswordChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// PasswordSpecialChars is the special-character set appended to temporary passwords.
	PasswordSpecialChars = "!@#$%^&*()"

	// VerificationCodeLength is the fixed length of mail verification codes.
	VerificationCodeLength = 6
)

// ConnectionID generates a UUID v4 string identifying a live WebSocket connection.
func ConnectionID() string {
	return uuid.New().String()
}

// MessageID generates a UUID v4 string identifying a persisted chat message.
func MessageID() string {
	return uuid.New().String()
}

func pick(charset string) (byte, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random index: %w", err)
	}
	return charset[num.Int64()], nil
}

// VerificationCode generates a fixed-length uppercase alphanumeric code for
// the password-reset mail flow.
func VerificationCode() (string, error) {
	result := make([]byte, VerificationCodeLength)

	for i := range VerificationCodeLength {
		c, err := pick(CodeChars)
		if err != nil {
			return "", err
		}
		result[i] = c
	}

	return string(result), nil
}

// TempPassword generates a one-time password issued after a successful mail
// verification: six alphanumeric characters followed by three specials.
func TempPassword() (string, error) {
	result := make([]byte, 0, 9)

	for range 6 {
		c, err := pick(PasswordChars)
		if err != nil {
			return "", err
		}
		result = append(result, c)
	}

	for range 3 {
		c, err := pick(PasswordSpecialChars)
		if err != nil {
			return "", err
		}
		result = append(result, c)
	}

	return string(result), nil
}
