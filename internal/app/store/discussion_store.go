package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JulietLog/JulietLog-back/internal/app/discussion"
	"github.com/JulietLog/JulietLog-back/internal/app/db"
	"github.com/JulietLog/JulietLog-back/internal/pkg/randx"
)

// Discussion is a persisted discussion row.
type Discussion struct {
	DiscussionID int64     `json:"discussionId"`
	AuthorID     int64     `json:"authorId"`
	Title        string    `json:"title"`
	Progress     string    `json:"progress"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateDiscussion persists a new discussion and returns the stored row.
func (s *Store) CreateDiscussion(ctx context.Context, authorID int64, title string) (Discussion, error) {
	var d Discussion

	err := s.pool.QueryRow(ctx, `
		INSERT INTO discussions (author_id, title)
		VALUES ($1, $2)
		RETURNING discussion_id, author_id, title, progress, created_at, updated_at`,
		authorID, title,
	).Scan(&d.DiscussionID, &d.AuthorID, &d.Title, &d.Progress, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Discussion{}, fmt.Errorf("create discussion: %w", err)
	}

	return d, nil
}

// GetDiscussion fetches one discussion by ID.
func (s *Store) GetDiscussion(ctx context.Context, discussionID int64) (Discussion, error) {
	var d Discussion

	err := s.pool.QueryRow(ctx, `
		SELECT discussion_id, author_id, title, progress, created_at, updated_at
		FROM discussions
		WHERE discussion_id = $1`,
		discussionID,
	).Scan(&d.DiscussionID, &d.AuthorID, &d.Title, &d.Progress, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Discussion{}, err
	}

	return d, nil
}

// UpdateDiscussionTitle renames a discussion.
func (s *Store) UpdateDiscussionTitle(ctx context.Context, discussionID int64, title string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE discussions
		SET title = $2, updated_at = now()
		WHERE discussion_id = $1`,
		discussionID, title,
	)
	return err
}

// Exists reports whether the discussion is persisted.
func (s *Store) Exists(ctx context.Context, discussionID int64) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM discussions WHERE discussion_id = $1)`,
		discussionID,
	).Scan(&exists)

	return exists, err
}

// VerifyAuthor reports whether userID created the discussion.
func (s *Store) VerifyAuthor(ctx context.Context, discussionID, userID int64) (bool, error) {
	var isAuthor bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM discussions WHERE discussion_id = $1 AND author_id = $2)`,
		discussionID, userID,
	).Scan(&isAuthor)

	return isAuthor, err
}

// IsBanned reports whether userID is on the discussion's ban list.
func (s *Store) IsBanned(ctx context.Context, discussionID, userID int64) (bool, error) {
	var banned bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM discussion_bans WHERE discussion_id = $1 AND user_id = $2)`,
		discussionID, userID,
	).Scan(&banned)

	return banned, err
}

// GetBanList returns the identities banned from the discussion.
func (s *Store) GetBanList(ctx context.Context, discussionID int64) ([]discussion.Identity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, nickname
		FROM discussion_bans
		WHERE discussion_id = $1
		ORDER BY banned_at`,
		discussionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// AddBan resolves the target nickname, records the ban, and drops the
// target's membership row so status snapshots no longer list them.
func (s *Store) AddBan(ctx context.Context, discussionID int64, nickname string) (discussion.Identity, error) {
	target, err := s.identityByNickname(ctx, nickname)
	if err != nil {
		return discussion.Identity{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return discussion.Identity{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO discussion_bans (discussion_id, user_id, nickname)
		VALUES ($1, $2, $3)
		ON CONFLICT (discussion_id, user_id) DO NOTHING`,
		discussionID, target.UserID, target.Nickname,
	)
	if err != nil {
		return discussion.Identity{}, err
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM discussion_members WHERE discussion_id = $1 AND user_id = $2`,
		discussionID, target.UserID,
	)
	if err != nil {
		return discussion.Identity{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return discussion.Identity{}, err
	}

	return target, nil
}

// RemoveBan removes nickname from the discussion's ban list.
func (s *Store) RemoveBan(ctx context.Context, discussionID int64, nickname string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM discussion_bans WHERE discussion_id = $1 AND nickname = $2`,
		discussionID, nickname,
	)
	return err
}

// SetProgress persists the author's progress state.
func (s *Store) SetProgress(ctx context.Context, discussionID int64, progress string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE discussions
		SET progress = $2, updated_at = now()
		WHERE discussion_id = $1`,
		discussionID, progress,
	)
	return err
}

// ListKnownMembers returns every identity that has joined the discussion.
func (s *Store) ListKnownMembers(ctx context.Context, discussionID int64) ([]discussion.Identity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, nickname
		FROM discussion_members
		WHERE discussion_id = $1
		ORDER BY joined_at`,
		discussionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// AddMember records an authenticated participant's membership. Rejoining is a
// no-op.
func (s *Store) AddMember(ctx context.Context, discussionID int64, member discussion.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO discussion_members (discussion_id, user_id, nickname)
		VALUES ($1, $2, $3)
		ON CONFLICT (discussion_id, user_id) DO NOTHING`,
		discussionID, member.UserID, member.Nickname,
	)
	return err
}

// CreateMessage persists a chat message, assigning the authoritative message
// ID and creation timestamp returned to the broadcaster.
func (s *Store) CreateMessage(ctx context.Context, discussionID, senderID int64, content string) (discussion.StoredMessage, error) {
	messageID := randx.MessageID()

	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `
		INSERT INTO discussion_messages (message_id, discussion_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		messageID, discussionID, senderID, content,
	).Scan(&createdAt)
	if err != nil {
		return discussion.StoredMessage{}, fmt.Errorf("create message: %w", err)
	}

	return discussion.StoredMessage{MessageID: messageID, CreatedAt: createdAt}, nil
}

func (s *Store) identityByNickname(ctx context.Context, nickname string) (discussion.Identity, error) {
	var id discussion.Identity

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, nickname FROM profiles WHERE nickname = $1`,
		nickname,
	).Scan(&id.UserID, &id.Nickname)
	if db.IsNoRows(err) {
		return discussion.Identity{}, discussion.ErrUnknownNickname
	}
	if err != nil {
		return discussion.Identity{}, err
	}

	return id, nil
}

func scanIdentities(rows pgx.Rows) ([]discussion.Identity, error) {
	var out []discussion.Identity

	for rows.Next() {
		var id discussion.Identity
		if err := rows.Scan(&id.UserID, &id.Nickname); err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, rows.Err()
}
