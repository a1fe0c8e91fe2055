package discussion

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A reconnecting user supersedes their old presence entry; when the old
// connection's cleanup fires later, it must not delete the new entry.
func TestDisconnectKeepsSupersedingPresenceEntry(t *testing.T) {
	reg := newFakeRegistry()
	pres := newFakePresence()
	co := NewCoordinator(reg, pres)
	defer co.Shutdown()

	first := NewClient(co, nil, &member)
	co.Connect(t.Context(), first)

	connID, err := pres.Lookup(t.Context(), member.Nickname)
	require.NoError(t, err)
	assert.Equal(t, first.ID, connID)

	second := NewClient(co, nil, &member)
	co.Connect(t.Context(), second)

	connID, err = pres.Lookup(t.Context(), member.Nickname)
	require.NoError(t, err)
	assert.Equal(t, second.ID, connID)

	// Late cleanup of the superseded connection.
	co.HandleDisconnect(first)

	connID, err = pres.Lookup(t.Context(), member.Nickname)
	require.NoError(t, err)
	assert.Equal(t, second.ID, connID)

	// The live connection's own disconnect removes the entry.
	co.HandleDisconnect(second)

	_, err = pres.Lookup(t.Context(), member.Nickname)
	assert.Error(t, err)
}

func TestConnectIndexesClients(t *testing.T) {
	co := NewCoordinator(newFakeRegistry(), newFakePresence())
	defer co.Shutdown()

	anon := NewClient(co, nil, nil)
	co.Connect(t.Context(), anon)

	assert.Same(t, anon, co.ClientByID(anon.ID))

	co.HandleDisconnect(anon)
	assert.Nil(t, co.ClientByID(anon.ID))
}

func TestDispatchCreatesRoomLazily(t *testing.T) {
	reg := newFakeRegistry()
	reg.addDiscussion(7, author)

	co := NewCoordinator(reg, newFakePresence())
	defer co.Shutdown()

	c := NewClient(co, nil, &member)
	co.Connect(t.Context(), c)

	require.Nil(t, co.GetRoom(7))

	co.Dispatch(c, Frame{Event: EventJoin, Data: json.RawMessage(`{"discussionId":7}`)})

	room := co.GetRoom(7)
	require.NotNil(t, room)

	// The room loop processes the join asynchronously.
	require.Eventually(t, func() bool {
		return len(c.joinedRooms()) == 1
	}, time.Second, 10*time.Millisecond)
}

// A frame addressing a discussion that was never persisted must not
// materialize a room; the client gets an error frame instead.
func TestDispatchRejectsUnknownDiscussion(t *testing.T) {
	co := NewCoordinator(newFakeRegistry(), newFakePresence())
	defer co.Shutdown()

	c := NewClient(co, nil, &member)
	co.Connect(t.Context(), c)

	co.Dispatch(c, Frame{Event: EventJoin, Data: json.RawMessage(`{"discussionId":99}`)})

	assert.Nil(t, co.GetRoom(99))

	frames := drain(c)
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0].Event)
}

// Shutdown with live rooms must wait for their loops before closing the
// cleanup channel; a room notifying cleanup mid-shutdown must not crash.
func TestShutdownWaitsForActiveRooms(t *testing.T) {
	reg := newFakeRegistry()
	for id := int64(1); id <= 5; id++ {
		reg.addDiscussion(id, author)
	}

	co := NewCoordinator(reg, newFakePresence())

	c := NewClient(co, nil, &member)
	co.Connect(t.Context(), c)

	for id := int64(1); id <= 5; id++ {
		co.Dispatch(c, Frame{Event: EventJoin, Data: json.RawMessage(fmt.Sprintf(`{"discussionId":%d}`, id))})
	}

	require.Eventually(t, func() bool {
		return len(c.joinedRooms()) == 5
	}, time.Second, 10*time.Millisecond)

	co.Shutdown()

	for id := int64(1); id <= 5; id++ {
		assert.Nil(t, co.GetRoom(id))
	}
}

func TestDispatchIgnoresUnknownEventsAndBadPayloads(t *testing.T) {
	co := NewCoordinator(newFakeRegistry(), newFakePresence())
	defer co.Shutdown()

	c := NewClient(co, nil, nil)
	co.Connect(t.Context(), c)

	co.Dispatch(c, Frame{Event: "subscribe", Data: json.RawMessage(`{"discussionId":7}`)})
	assert.Nil(t, co.GetRoom(7))

	co.Dispatch(c, Frame{Event: EventJoin, Data: json.RawMessage(`{}`)})
	assert.Nil(t, co.GetRoom(0))
}
