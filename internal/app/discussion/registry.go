package discussion

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownNickname is returned by Registry implementations when a
// moderation target nickname does not resolve to any user.
var ErrUnknownNickname = errors.New("nickname does not resolve to a user")

// Identity describes an authenticated participant. It is resolved once per
// connection at upgrade time and never changes for the connection's lifetime.
type Identity struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
}

// StoredMessage is the persistence result for a chat message. The registry
// assigns the authoritative message ID and timestamp before broadcast.
type StoredMessage struct {
	MessageID string
	CreatedAt time.Time
}

// Registry is the narrow persistence interface the room coordinator consumes.
// It is backed by the relational store; the coordinator never touches SQL.
type Registry interface {
	// Exists reports whether the discussion is persisted.
	Exists(ctx context.Context, discussionID int64) (bool, error)

	// VerifyAuthor reports whether userID created the discussion.
	VerifyAuthor(ctx context.Context, discussionID, userID int64) (bool, error)

	// IsBanned reports whether userID is on the discussion's ban list.
	IsBanned(ctx context.Context, discussionID, userID int64) (bool, error)

	// GetBanList returns the identities currently banned from the discussion.
	GetBanList(ctx context.Context, discussionID int64) ([]Identity, error)

	// AddBan resolves nickname to a user, records the ban, and drops the
	// user's membership row. Returns the banned identity.
	AddBan(ctx context.Context, discussionID int64, nickname string) (Identity, error)

	// RemoveBan removes nickname from the discussion's ban list.
	RemoveBan(ctx context.Context, discussionID int64, nickname string) error

	// SetProgress persists the author's free-form progress state.
	SetProgress(ctx context.Context, discussionID int64, progress string) error

	// ListKnownMembers returns the identities that have joined the discussion,
	// used together with live membership to build status snapshots.
	ListKnownMembers(ctx context.Context, discussionID int64) ([]Identity, error)

	// AddMember records an authenticated participant's membership.
	AddMember(ctx context.Context, discussionID int64, member Identity) error

	// CreateMessage persists a chat message and returns its authoritative
	// message ID and creation time.
	CreateMessage(ctx context.Context, discussionID, senderID int64, content string) (StoredMessage, error)
}

// PresenceStore is the cross-connection addressing interface the coordinator
// consumes, so moderation can target a nickname's current live connection.
type PresenceStore interface {
	Register(ctx context.Context, nickname, connID string) error
	Lookup(ctx context.Context, nickname string) (string, error)
	Unregister(ctx context.Context, nickname, connID string) error
}
