package discussion

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	author = Identity{UserID: 1, Nickname: "alice"}
	member = Identity{UserID: 2, Nickname: "bob"}
)

func newTestRoom(t *testing.T, reg *fakeRegistry, pres *fakePresence, conns *fakeConnIndex) *Room {
	t.Helper()

	if conns == nil {
		conns = &fakeConnIndex{clients: make(map[string]*Client)}
	}

	return NewRoom(1, reg, pres, conns, make(chan int64, 1))
}

func newTestClient(identity *Identity) *Client {
	return NewClient(nil, nil, identity)
}

func joinPayload() json.RawMessage {
	return json.RawMessage(`{"discussionId":1}`)
}

// join must be announced only after every room member got the membership
// snapshot that already contains the joiner.
func TestJoinBroadcastOrder(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	joiner := newTestClient(&member)
	outs := room.handleJoin(joiner, joinPayload())

	require.Len(t, outs, 3)

	assert.Equal(t, ScopeRoom, outs[0].Scope)
	assert.Equal(t, EventStatus, outs[0].Event)

	snapshot, ok := outs[0].Data.(StatusPayload)
	require.True(t, ok)
	assert.Contains(t, snapshot.Participants, member)

	assert.Equal(t, ScopeSender, outs[1].Scope)
	assert.Equal(t, EventHistory, outs[1].Event)

	history, ok := outs[1].Data.(HistoryPayload)
	require.True(t, ok)
	assert.Empty(t, history.Messages)

	assert.Equal(t, ScopeRoom, outs[2].Scope)
	assert.Equal(t, EventInfo, outs[2].Event)

	_, joined := room.members[joiner.ID]
	assert.True(t, joined)
	assert.Contains(t, joiner.joinedRooms(), int64(1))
}

func TestJoinAnonymousNoAnnouncement(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	joiner := newTestClient(nil)
	outs := room.handleJoin(joiner, joinPayload())

	require.Len(t, outs, 2)
	assert.Equal(t, EventStatus, outs[0].Event)
	assert.Equal(t, EventHistory, outs[1].Event)

	_, joined := room.members[joiner.ID]
	assert.True(t, joined)
}

func TestJoinUnknownDiscussion(t *testing.T) {
	room := newTestRoom(t, newFakeRegistry(), newFakePresence(), nil)

	joiner := newTestClient(&member)
	outs := room.handleJoin(joiner, joinPayload())

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeSender, outs[0].Scope)
	assert.Equal(t, EventError, outs[0].Event)

	assert.Empty(t, room.members)
	assert.Empty(t, joiner.joinedRooms())
}

// A banned identity never transitions to joined and never shows up in the
// membership snapshot, regardless of presence state.
func TestJoinBannedRejected(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	reg.addUser(member)

	_, err := reg.AddBan(t.Context(), 1, member.Nickname)
	require.NoError(t, err)

	room := newTestRoom(t, reg, newFakePresence(), nil)

	joiner := newTestClient(&member)
	outs := room.handleJoin(joiner, joinPayload())

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeSender, outs[0].Scope)
	assert.Equal(t, EventError, outs[0].Event)
	assert.Empty(t, room.members)

	snapshot := room.statusSnapshot(t.Context())
	assert.NotContains(t, snapshot.Participants, member)
	assert.Contains(t, snapshot.Banned, member)
}

func TestMessageRequiresIdentityAndMembership(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	payload := json.RawMessage(`{"discussionId":1,"message":"hello"}`)

	anon := newTestClient(nil)
	outs := room.handleMessage(anon, payload)
	require.Len(t, outs, 1)
	assert.Equal(t, EventError, outs[0].Event)
	assert.Equal(t, ScopeSender, outs[0].Scope)

	stranger := newTestClient(&member)
	outs = room.handleMessage(stranger, payload)
	require.Len(t, outs, 1)
	assert.Equal(t, EventError, outs[0].Event)

	assert.Empty(t, reg.messages)
}

func TestMessagePersistedThenBroadcast(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	sender := newTestClient(&member)
	room.handleJoin(sender, joinPayload())

	outs := room.handleMessage(sender, json.RawMessage(`{"discussionId":1,"message":"hello"}`))

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeRoom, outs[0].Scope)
	assert.Equal(t, EventMessage, outs[0].Event)

	msg, ok := outs[0].Data.(ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, member.Nickname, msg.Nickname)
	assert.Equal(t, "msg-1", msg.MessageID)
	assert.False(t, msg.CreatedAt.IsZero())

	assert.Equal(t, []string{"hello"}, reg.messages)
}

func TestMessageContentTooLong(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	sender := newTestClient(&member)
	room.handleJoin(sender, joinPayload())

	long := make([]byte, MaxContentBytes+1)
	for i := range long {
		long[i] = 'a'
	}

	frame, err := json.Marshal(MessagePayload{DiscussionID: 1, Message: string(long)})
	require.NoError(t, err)

	outs := room.handleMessage(sender, frame)
	require.Len(t, outs, 1)
	assert.Equal(t, EventError, outs[0].Event)
	assert.Empty(t, reg.messages)
}

// Progress updates are author-only: a rejected update must not mutate the
// registry and must not broadcast anything to the room.
func TestProgressNonAuthorRejected(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	outsider := newTestClient(&member)
	room.handleJoin(outsider, joinPayload())

	outs := room.handleProgress(outsider, json.RawMessage(`{"discussionId":1,"progress":"closing"}`))

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeSender, outs[0].Scope)
	assert.Equal(t, EventError, outs[0].Event)
	assert.Empty(t, reg.progress)
}

func TestProgressAuthorBroadcast(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	owner := newTestClient(&author)
	room.handleJoin(owner, joinPayload())

	outs := room.handleProgress(owner, json.RawMessage(`{"discussionId":1,"progress":"closing"}`))

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeRoom, outs[0].Scope)
	assert.Equal(t, EventProgress, outs[0].Event)

	progress, ok := outs[0].Data.(ProgressPayload)
	require.True(t, ok)
	assert.Equal(t, "closing", progress.Progress)
	assert.Equal(t, int64(1), progress.DiscussionID)

	assert.Equal(t, "closing", reg.progress[1])
}

func TestStatusScopedToRequester(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	requester := newTestClient(nil)
	outs := room.handleStatus(requester, json.RawMessage(`{"discussionId":1}`))

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeSender, outs[0].Scope)
	assert.Equal(t, EventStatus, outs[0].Event)
}

// Banning an online target evicts its live connection: the scoped error goes
// to the connection resolved via presence, membership drops immediately, the
// author gets an acknowledgment, and the room gets the refreshed snapshot.
func TestBanEvictsLiveTarget(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	reg.addUser(member)

	pres := newFakePresence()
	conns := &fakeConnIndex{clients: make(map[string]*Client)}
	room := newTestRoom(t, reg, pres, conns)

	owner := newTestClient(&author)
	room.handleJoin(owner, joinPayload())

	target := newTestClient(&member)
	room.handleJoin(target, joinPayload())
	require.NoError(t, pres.Register(t.Context(), member.Nickname, target.ID))
	conns.clients[target.ID] = target

	outs := room.handleBan(owner, json.RawMessage(`{"discussionId":1,"nickname":"bob"}`))

	require.Len(t, outs, 3)

	assert.Equal(t, ScopeConn, outs[0].Scope)
	assert.Equal(t, target.ID, outs[0].Target)
	assert.Equal(t, EventError, outs[0].Event)

	assert.Equal(t, ScopeSender, outs[1].Scope)
	assert.Equal(t, EventInfo, outs[1].Event)

	assert.Equal(t, ScopeRoom, outs[2].Scope)
	assert.Equal(t, EventStatus, outs[2].Event)

	snapshot, ok := outs[2].Data.(StatusPayload)
	require.True(t, ok)
	assert.NotContains(t, snapshot.Participants, member)
	assert.Contains(t, snapshot.Banned, member)

	_, stillMember := room.members[target.ID]
	assert.False(t, stillMember)
	assert.Empty(t, target.joinedRooms())

	// A rejoin attempt after the ban must be rejected.
	rejoin := room.handleJoin(newTestClient(&member), joinPayload())
	require.Len(t, rejoin, 1)
	assert.Equal(t, EventError, rejoin[0].Event)
}

// An offline target still gets banned; only the eviction step is skipped.
func TestBanOfflineTargetStillRecorded(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	reg.addUser(member)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	owner := newTestClient(&author)
	room.handleJoin(owner, joinPayload())

	outs := room.handleBan(owner, json.RawMessage(`{"discussionId":1,"nickname":"bob"}`))

	require.Len(t, outs, 2)
	assert.Equal(t, EventInfo, outs[0].Event)
	assert.Equal(t, EventStatus, outs[1].Event)

	rejoin := room.handleJoin(newTestClient(&member), joinPayload())
	require.Len(t, rejoin, 1)
	assert.Equal(t, EventError, rejoin[0].Event)
}

func TestBanNonAuthorRejected(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	reg.addUser(member)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	outsider := newTestClient(&member)
	room.handleJoin(outsider, joinPayload())

	outs := room.handleBan(outsider, json.RawMessage(`{"discussionId":1,"nickname":"alice"}`))

	require.Len(t, outs, 1)
	assert.Equal(t, ScopeSender, outs[0].Scope)
	assert.Equal(t, EventError, outs[0].Event)
	assert.Empty(t, reg.bans[1])
}

// Unban removes the list entry but never restores membership; the unbanned
// user rejoins explicitly.
func TestUnbanAllowsRejoin(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	reg.addUser(member)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	owner := newTestClient(&author)
	room.handleJoin(owner, joinPayload())
	room.handleBan(owner, json.RawMessage(`{"discussionId":1,"nickname":"bob"}`))

	outs := room.handleUnban(owner, json.RawMessage(`{"discussionId":1,"nickname":"bob"}`))

	require.Len(t, outs, 2)
	assert.Equal(t, ScopeSender, outs[0].Scope)
	assert.Equal(t, EventInfo, outs[0].Event)
	assert.Equal(t, ScopeRoom, outs[1].Scope)
	assert.Equal(t, EventStatus, outs[1].Event)

	rejoined := newTestClient(&member)
	rejoin := room.handleJoin(rejoined, joinPayload())
	require.Len(t, rejoin, 3)
	assert.Equal(t, EventStatus, rejoin[0].Event)

	_, joined := room.members[rejoined.ID]
	assert.True(t, joined)
}

// An unknown target nickname and a failing store are different problems and
// must surface as different errors to the author.
func TestBanDistinguishesUnknownNicknameFromStoreFailure(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	reg.addUser(member)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	owner := newTestClient(&author)
	room.handleJoin(owner, joinPayload())

	outs := room.handleBan(owner, json.RawMessage(`{"discussionId":1,"nickname":"ghost"}`))
	require.Len(t, outs, 1)
	assert.Equal(t, EventError, outs[0].Event)

	payload, ok := outs[0].Data.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "Account not found.", payload.Message)

	reg.failAddBan = errors.New("connection reset")

	outs = room.handleBan(owner, json.RawMessage(`{"discussionId":1,"nickname":"bob"}`))
	require.Len(t, outs, 1)
	assert.Equal(t, EventError, outs[0].Event)

	payload, ok = outs[0].Data.(ErrorPayload)
	require.True(t, ok)
	assert.NotEqual(t, "Account not found.", payload.Message)
	assert.Empty(t, reg.bans[1])
}

// A panicking handler collaborator must not take down the room loop; the
// next event still gets processed.
func TestHandlerPanicKeepsRoomRunning(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	joiner := newTestClient(&member)

	reg.panicOnExists = true
	require.NotPanics(t, func() {
		room.process(inbound{client: joiner, event: EventJoin, data: joinPayload()})
	})
	assert.Empty(t, room.members)
	assert.Empty(t, drain(joiner))

	reg.panicOnExists = false
	room.process(inbound{client: joiner, event: EventJoin, data: joinPayload()})

	_, joined := room.members[joiner.ID]
	assert.True(t, joined)

	frames := drain(joiner)
	require.NotEmpty(t, frames)
	assert.Equal(t, EventStatus, frames[0].Event)
}

func TestDisconnectDropsMembership(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	c := newTestClient(&member)
	room.handleJoin(c, joinPayload())
	require.Len(t, room.members, 1)

	outs := room.handleDisconnect(c, nil)
	assert.Nil(t, outs)
	assert.Empty(t, room.members)
}

// apply must deliver instructions in slice order: every member sees the
// snapshot frame before the announcement frame.
func TestApplyDeliversInOrder(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(1, author)
	room := newTestRoom(t, reg, newFakePresence(), nil)

	observer := newTestClient(&author)
	room.handleJoin(observer, joinPayload())
	drain(observer)

	joiner := newTestClient(&member)
	outs := room.handleJoin(joiner, joinPayload())
	room.apply(joiner, outs)

	frames := drain(observer)
	require.Len(t, frames, 2)
	assert.Equal(t, EventStatus, frames[0].Event)
	assert.Equal(t, EventInfo, frames[1].Event)

	joinerFrames := drain(joiner)
	require.Len(t, joinerFrames, 3)
	assert.Equal(t, EventStatus, joinerFrames[0].Event)
	assert.Equal(t, EventHistory, joinerFrames[1].Event)
	assert.Equal(t, EventInfo, joinerFrames[2].Event)
}

func drain(c *Client) []Frame {
	var frames []Frame
	for {
		select {
		case raw := <-c.send:
			var f Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				return frames
			}
			frames = append(frames, f)
		default:
			return frames
		}
	}
}
