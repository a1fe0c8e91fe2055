package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
)

const (
	// VerificationCodeTTL bounds how long a mail verification code stays valid.
	VerificationCodeTTL = 10 * time.Minute

	verificationKeyPrefix = "verify:email:"
	refreshKeyPrefix      = "auth:refresh:"
)

// nicknameKey builds the presence key for a nickname.
// Format: chat:nickname:<nickname>:socketId.
func nicknameKey(nickname string) string {
	return fmt.Sprintf("chat:nickname:%s:socketId", nickname)
}

// Store maps participant nicknames to their current live connection ID and
// holds the auxiliary short-lived entries (refresh tokens, mail codes).
type Store struct {
	kv KeyValue
}

// NewStore builds a Store on top of any KeyValue backend.
func NewStore(kv KeyValue) *Store {
	return &Store{kv: kv}
}

// Register records connID as the live connection for nickname.
// Last write wins: a newer connection for the same nickname silently
// supersedes the previous entry.
func (s *Store) Register(ctx context.Context, nickname, connID string) error {
	return s.kv.Set(ctx, nicknameKey(nickname), connID, 0)
}

// Lookup returns the connection ID currently registered for nickname.
// Returns ErrNotFound when the nickname has no live connection.
func (s *Store) Lookup(ctx context.Context, nickname string) (string, error) {
	return s.kv.Get(ctx, nicknameKey(nickname))
}

// Unregister removes the presence entry for nickname, but only when the entry
// still addresses connID. A connection superseded by a newer one for the same
// nickname must not delete the newer connection's entry during its own late
// cleanup.
func (s *Store) Unregister(ctx context.Context, nickname, connID string) error {
	current, err := s.kv.Get(ctx, nicknameKey(nickname))
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if current != connID {
		return nil
	}

	return s.kv.Delete(ctx, nicknameKey(nickname))
}

// SetVerificationCode stores a one-time mail verification code under the
// email address with the store-level TTL.
func (s *Store) SetVerificationCode(ctx context.Context, email, code string) error {
	return s.kv.Set(ctx, verificationKeyPrefix+email, code, VerificationCodeTTL)
}

// GetVerificationCode returns the pending verification code for email.
func (s *Store) GetVerificationCode(ctx context.Context, email string) (string, error) {
	return s.kv.Get(ctx, verificationKeyPrefix+email)
}

// DeleteVerificationCode drops a consumed verification code.
func (s *Store) DeleteVerificationCode(ctx context.Context, email string) error {
	return s.kv.Delete(ctx, verificationKeyPrefix+email)
}

// SetRefreshToken stores a user's refresh token for the refresh lifetime.
func (s *Store) SetRefreshToken(ctx context.Context, userID int64, token string) error {
	return s.kv.Set(ctx, fmt.Sprintf("%s%d", refreshKeyPrefix, userID), token, jwt.RefreshExpiration)
}

// GetRefreshToken returns the stored refresh token for a user.
func (s *Store) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	return s.kv.Get(ctx, fmt.Sprintf("%s%d", refreshKeyPrefix, userID))
}

// DeleteRefreshToken invalidates a user's refresh token at logout.
func (s *Store) DeleteRefreshToken(ctx context.Context, userID int64) error {
	return s.kv.Delete(ctx, fmt.Sprintf("%s%d", refreshKeyPrefix, userID))
}
