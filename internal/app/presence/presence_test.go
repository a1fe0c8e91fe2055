package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV is an in-memory KeyValue for store tests. TTLs are recorded, not
// enforced.
type fakeKV struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		entries: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func TestRegisterLastWriteWins(t *testing.T) {
	store := NewStore(newFakeKV())

	require.NoError(t, store.Register(t.Context(), "alice", "conn-1"))
	require.NoError(t, store.Register(t.Context(), "alice", "conn-2"))

	connID, err := store.Lookup(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "conn-2", connID)
}

func TestLookupMissingNickname(t *testing.T) {
	store := NewStore(newFakeKV())

	_, err := store.Lookup(t.Context(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

// The eviction scenario the guard exists for: a user reconnects, the new
// connection overwrites the entry, and only then does the old connection's
// disconnect cleanup run. The entry must survive.
func TestUnregisterGuardsAgainstStaleDelete(t *testing.T) {
	store := NewStore(newFakeKV())

	require.NoError(t, store.Register(t.Context(), "alice", "conn-old"))
	require.NoError(t, store.Register(t.Context(), "alice", "conn-new"))

	require.NoError(t, store.Unregister(t.Context(), "alice", "conn-old"))

	connID, err := store.Lookup(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "conn-new", connID)

	require.NoError(t, store.Unregister(t.Context(), "alice", "conn-new"))

	_, err = store.Lookup(t.Context(), "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnregisterMissingEntryIsNoop(t *testing.T) {
	store := NewStore(newFakeKV())

	assert.NoError(t, store.Unregister(t.Context(), "alice", "conn-1"))
}

func TestVerificationCodeLifecycle(t *testing.T) {
	kv := newFakeKV()
	store := NewStore(kv)

	require.NoError(t, store.SetVerificationCode(t.Context(), "a@b.c", "ABC123"))

	code, err := store.GetVerificationCode(t.Context(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", code)

	kv.mu.Lock()
	assert.Equal(t, VerificationCodeTTL, kv.ttls["verify:email:a@b.c"])
	kv.mu.Unlock()

	require.NoError(t, store.DeleteVerificationCode(t.Context(), "a@b.c"))

	_, err = store.GetVerificationCode(t.Context(), "a@b.c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshTokenKeyedByUser(t *testing.T) {
	store := NewStore(newFakeKV())

	require.NoError(t, store.SetRefreshToken(t.Context(), 42, "token-42"))
	require.NoError(t, store.SetRefreshToken(t.Context(), 43, "token-43"))

	token, err := store.GetRefreshToken(t.Context(), 42)
	require.NoError(t, err)
	assert.Equal(t, "token-42", token)

	require.NoError(t, store.DeleteRefreshToken(t.Context(), 42))

	_, err = store.GetRefreshToken(t.Context(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	token, err = store.GetRefreshToken(t.Context(), 43)
	require.NoError(t, err)
	assert.Equal(t, "token-43", token)
}
