package store

import (
	"context"
	"fmt"
	"time"
)

// Login types stored on the users row. Social accounts have no local password.
const (
	LoginTypeLocal = 0
)

// Account aggregates a user row with its profile, the shape most of the HTTP
// surface works with.
type Account struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	LoginType int       `json:"loginType"`
	Nickname  string    `json:"nickname"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUser inserts the user, password, and profile rows in one transaction
// and returns the stored account. Unique violations on email or nickname
// surface as pgx errors for the caller to classify.
func (s *Store) CreateUser(ctx context.Context, email, nickname, passwordHash string) (Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback(ctx)

	var a Account
	a.Email = email
	a.Nickname = nickname
	a.LoginType = LoginTypeLocal

	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, login_type)
		VALUES ($1, $2)
		RETURNING user_id, created_at`,
		email, LoginTypeLocal,
	).Scan(&a.UserID, &a.CreatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("create user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO passwords (user_id, password_hash) VALUES ($1, $2)`,
		a.UserID, passwordHash,
	)
	if err != nil {
		return Account{}, fmt.Errorf("create password: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO profiles (user_id, nickname) VALUES ($1, $2)`,
		a.UserID, nickname,
	)
	if err != nil {
		return Account{}, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}

	return a, nil
}

// GetAccountByID fetches a user with its profile.
func (s *Store) GetAccountByID(ctx context.Context, userID int64) (Account, error) {
	var a Account

	err := s.pool.QueryRow(ctx, `
		SELECT u.user_id, u.email, u.login_type, u.created_at, p.nickname, p.image_url
		FROM users u
		JOIN profiles p ON p.user_id = u.user_id
		WHERE u.user_id = $1`,
		userID,
	).Scan(&a.UserID, &a.Email, &a.LoginType, &a.CreatedAt, &a.Nickname, &a.ImageURL)
	if err != nil {
		return Account{}, err
	}

	return a, nil
}

// GetAccountByEmail fetches a user with its profile by email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var a Account

	err := s.pool.QueryRow(ctx, `
		SELECT u.user_id, u.email, u.login_type, u.created_at, p.nickname, p.image_url
		FROM users u
		JOIN profiles p ON p.user_id = u.user_id
		WHERE u.email = $1`,
		email,
	).Scan(&a.UserID, &a.Email, &a.LoginType, &a.CreatedAt, &a.Nickname, &a.ImageURL)
	if err != nil {
		return Account{}, err
	}

	return a, nil
}

// EmailExists reports whether an account uses the email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)

	return exists, err
}

// NicknameExists reports whether a profile uses the nickname.
func (s *Store) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE nickname = $1)`,
		nickname,
	).Scan(&exists)

	return exists, err
}

// UpdateNickname changes the profile nickname. Unique violations surface as
// pgx errors.
func (s *Store) UpdateNickname(ctx context.Context, userID int64, nickname string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE profiles SET nickname = $2 WHERE user_id = $1`,
		userID, nickname,
	)
	return err
}

// UpdateImageURL changes the profile avatar image.
func (s *Store) UpdateImageURL(ctx context.Context, userID int64, imageURL string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE profiles SET image_url = $2 WHERE user_id = $1`,
		userID, imageURL,
	)
	return err
}

// DeleteUser removes the account; dependent rows cascade.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	return err
}

// GetPasswordHash returns the stored bcrypt hash for the user.
func (s *Store) GetPasswordHash(ctx context.Context, userID int64) (string, error) {
	var hash string

	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM passwords WHERE user_id = $1`,
		userID,
	).Scan(&hash)

	return hash, err
}

// UpdatePassword replaces the stored hash for the user.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE passwords
		SET password_hash = $2, updated_at = now()
		WHERE user_id = $1`,
		userID, passwordHash,
	)
	return err
}

// BlockUser records that userID blocked blockedUserID. Blocking twice is a
// no-op reported to the caller.
func (s *Store) BlockUser(ctx context.Context, userID, blockedUserID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO blocks (user_id, blocked_user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, blocked_user_id) DO NOTHING`,
		userID, blockedUserID,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
