package discussion

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeRegistry is an in-memory Registry for handler tests.
type fakeRegistry struct {
	mu sync.Mutex

	discussions map[int64]int64 // discussionID -> authorID
	progress    map[int64]string
	members     map[int64][]Identity
	bans        map[int64][]Identity
	byNickname  map[string]Identity
	messages    []string

	failWith   error
	failAddBan error

	// panicOnExists makes Exists panic, for loop-recovery tests.
	panicOnExists bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		discussions: make(map[int64]int64),
		progress:    make(map[int64]string),
		members:     make(map[int64][]Identity),
		bans:        make(map[int64][]Identity),
		byNickname:  make(map[string]Identity),
	}
}

func (f *fakeRegistry) addDiscussion(discussionID int64, author Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discussions[discussionID] = author.UserID
	f.byNickname[author.Nickname] = author
}

func (f *fakeRegistry) addUser(id Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byNickname[id.Nickname] = id
}

func (f *fakeRegistry) Exists(ctx context.Context, discussionID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnExists {
		panic("registry exploded")
	}
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.discussions[discussionID]
	return ok, nil
}

func (f *fakeRegistry) VerifyAuthor(ctx context.Context, discussionID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.discussions[discussionID] == userID, nil
}

func (f *fakeRegistry) IsBanned(ctx context.Context, discussionID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.bans[discussionID] {
		if id.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistry) GetBanList(ctx context.Context, discussionID int64) ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Identity(nil), f.bans[discussionID]...), nil
}

func (f *fakeRegistry) AddBan(ctx context.Context, discussionID int64, nickname string) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAddBan != nil {
		return Identity{}, f.failAddBan
	}

	target, ok := f.byNickname[nickname]
	if !ok {
		return Identity{}, ErrUnknownNickname
	}

	for _, id := range f.bans[discussionID] {
		if id.UserID == target.UserID {
			return target, nil
		}
	}
	f.bans[discussionID] = append(f.bans[discussionID], target)

	kept := f.members[discussionID][:0]
	for _, id := range f.members[discussionID] {
		if id.UserID != target.UserID {
			kept = append(kept, id)
		}
	}
	f.members[discussionID] = kept

	return target, nil
}

func (f *fakeRegistry) RemoveBan(ctx context.Context, discussionID int64, nickname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.bans[discussionID][:0]
	for _, id := range f.bans[discussionID] {
		if id.Nickname != nickname {
			kept = append(kept, id)
		}
	}
	f.bans[discussionID] = kept
	return nil
}

func (f *fakeRegistry) SetProgress(ctx context.Context, discussionID int64, progress string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.progress[discussionID] = progress
	return nil
}

func (f *fakeRegistry) ListKnownMembers(ctx context.Context, discussionID int64) ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Identity(nil), f.members[discussionID]...), nil
}

func (f *fakeRegistry) AddMember(ctx context.Context, discussionID int64, member Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.members[discussionID] {
		if id.UserID == member.UserID {
			return nil
		}
	}
	f.members[discussionID] = append(f.members[discussionID], member)
	return nil
}

func (f *fakeRegistry) CreateMessage(ctx context.Context, discussionID, senderID int64, content string) (StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return StoredMessage{}, f.failWith
	}
	f.messages = append(f.messages, content)
	return StoredMessage{MessageID: "msg-1", CreatedAt: time.Unix(1700000000, 0)}, nil
}

// fakePresence is an in-memory PresenceStore with the same guarded-delete
// semantics as the Redis-backed store.
type fakePresence struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakePresence() *fakePresence {
	return &fakePresence{entries: make(map[string]string)}
}

var errPresenceMiss = errors.New("presence miss")

func (f *fakePresence) Register(ctx context.Context, nickname, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[nickname] = connID
	return nil
}

func (f *fakePresence) Lookup(ctx context.Context, nickname string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	connID, ok := f.entries[nickname]
	if !ok {
		return "", errPresenceMiss
	}
	return connID, nil
}

func (f *fakePresence) Unregister(ctx context.Context, nickname, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries[nickname] == connID {
		delete(f.entries, nickname)
	}
	return nil
}

// fakeConnIndex resolves connection IDs for ScopeConn delivery in tests.
type fakeConnIndex struct {
	clients map[string]*Client
}

func (f *fakeConnIndex) ClientByID(connID string) *Client {
	return f.clients[connID]
}
