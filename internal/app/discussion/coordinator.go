/*
Package discussion contains the real-time discussion session core.

This file defines the Coordinator, the central manager of the real-time layer.
It tracks every live connection, creates and cleans up Room instances, routes
inbound frames to the owning room, and performs the guarded presence cleanup
when a connection disconnects.
*/
package discussion

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

// Coordinator coordinates all active discussion rooms and live connections.
type Coordinator struct {
	// rooms maps discussion IDs to their active Room instances.
	rooms map[int64]*Room

	// clients indexes every live connection by connection ID, so moderation
	// can address a connection resolved from the presence store even when it
	// is not a member of the acting room.
	clients map[string]*Client

	registry Registry
	presence PresenceStore

	// mu protects the rooms and clients maps.
	mu sync.RWMutex

	// cleanup receives discussion IDs of rooms that shut down.
	cleanup chan int64

	// roomWG waits for every room loop to finish before the cleanup channel
	// closes, so no room can notify a closed channel.
	roomWG sync.WaitGroup

	// wg waits for the cleanup goroutine during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewCoordinator constructs a Coordinator and starts its cleanup loop.
func NewCoordinator(registry Registry, presence PresenceStore) *Coordinator {
	coordinatorLogger := logx.Logger().With().Str("component", "Coordinator").Logger()

	co := &Coordinator{
		rooms:    make(map[int64]*Room),
		clients:  make(map[string]*Client),
		registry: registry,
		presence: presence,
		cleanup:  make(chan int64, 10),
		logger:   coordinatorLogger,
	}

	co.wg.Add(1)

	go co.runCleanupLoop()

	return co
}

// runCleanupLoop removes rooms that finished their Run loops.
func (co *Coordinator) runCleanupLoop() {
	defer co.wg.Done()

	for discussionID := range co.cleanup {
		co.deleteRoom(discussionID)
	}
}

func (co *Coordinator) deleteRoom(discussionID int64) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if _, ok := co.rooms[discussionID]; ok {
		delete(co.rooms, discussionID)
		co.logger.Info().Int64("discussion_id", discussionID).Msg("Room removed.")
	}
}

// Connect registers a new live connection. For authenticated connections the
// presence entry is written here, overwriting any prior entry for the same
// nickname (last connection wins).
func (co *Coordinator) Connect(ctx context.Context, c *Client) {
	co.mu.Lock()
	co.clients[c.ID] = c
	co.mu.Unlock()

	if identity := c.Identity(); identity != nil {
		if err := co.presence.Register(ctx, identity.Nickname, c.ID); err != nil {
			co.logger.Error().Err(err).Str("nickname", identity.Nickname).Msg("Failed to register presence entry.")
		}
	}
}

// HandleDisconnect tears down a connection: membership drops in every joined
// room, the global index forgets the connection, and the presence entry is
// removed only if it still addresses this connection. A newer connection for
// the same nickname keeps its entry intact.
func (co *Coordinator) HandleDisconnect(c *Client) {
	for _, discussionID := range c.joinedRooms() {
		if room := co.GetRoom(discussionID); room != nil {
			room.post(inbound{client: c, event: eventDisconnect})
		}
	}

	co.mu.Lock()
	delete(co.clients, c.ID)
	co.mu.Unlock()

	if identity := c.Identity(); identity != nil {
		ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
		defer cancel()

		if err := co.presence.Unregister(ctx, identity.Nickname, c.ID); err != nil {
			co.logger.Error().Err(err).Str("nickname", identity.Nickname).Msg("Failed to clean up presence entry.")
		}
	}
}

// ClientByID resolves a connection ID to its live client, or nil.
func (co *Coordinator) ClientByID(connID string) *Client {
	co.mu.RLock()
	defer co.mu.RUnlock()

	return co.clients[connID]
}

// GetRoom returns the active room for a discussion, or nil.
func (co *Coordinator) GetRoom(discussionID int64) *Room {
	co.mu.RLock()
	defer co.mu.RUnlock()

	return co.rooms[discussionID]
}

// getOrCreateRoom returns the room for a discussion, starting its Run loop on
// first use. Callers must verify the discussion exists first; rooms are only
// materialized for persisted discussions.
func (co *Coordinator) getOrCreateRoom(discussionID int64) *Room {
	co.mu.Lock()
	defer co.mu.Unlock()

	if room, ok := co.rooms[discussionID]; ok {
		return room
	}

	room := NewRoom(discussionID, co.registry, co.presence, co, co.cleanup)
	co.rooms[discussionID] = room

	co.roomWG.Add(1)
	go func() {
		defer co.roomWG.Done()
		room.Run()
	}()

	co.logger.Info().Int64("discussion_id", discussionID).Msg("Room created and started.")
	return room
}

// Dispatch routes an inbound frame to the room that owns its discussion. A
// frame for a discussion with no active room checks persistence before a room
// (and its goroutine) is materialized, so arbitrary IDs cannot churn rooms.
func (co *Coordinator) Dispatch(c *Client, frame Frame) {
	if _, known := eventHandlers[frame.Event]; !known {
		co.logger.Warn().Str("event", string(frame.Event)).Msg("Client sent unsupported event type.")
		return
	}

	var addr struct {
		DiscussionID int64 `json:"discussionId"`
	}
	if err := json.Unmarshal(frame.Data, &addr); err != nil || addr.DiscussionID == 0 {
		co.logger.Warn().Str("event", string(frame.Event)).Msg("Client sent frame without a valid discussionId.")
		return
	}

	room := co.GetRoom(addr.DiscussionID)
	if room == nil {
		if code, ok := co.discussionKnown(addr.DiscussionID); !ok {
			co.sendError(c, code)
			return
		}
		room = co.getOrCreateRoom(addr.DiscussionID)
	}

	room.post(inbound{client: c, event: frame.Event, data: frame.Data})
}

// discussionKnown reports whether the discussion is persisted. On failure it
// returns the error code to surface to the client.
func (co *Coordinator) discussionKnown(discussionID int64) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	exists, err := co.registry.Exists(ctx, discussionID)
	if err != nil {
		co.logger.Error().Err(err).Int64("discussion_id", discussionID).Msg("Registry existence check failed.")
		return errs.ErrUnknown, false
	}
	if !exists {
		return errs.ErrDiscussionNotFound, false
	}

	return 0, true
}

func (co *Coordinator) sendError(c *Client, code int) {
	frame, err := EncodeFrame(EventError, ErrorPayload{Message: errs.NewError(code).Message})
	if err != nil {
		co.logger.Error().Err(err).Msg("Failed to encode error frame.")
		return
	}
	c.queue(frame)
}

// Shutdown stops every room, waits for their loops to finish, then closes the
// cleanup channel and waits for the cleanup goroutine to exit.
func (co *Coordinator) Shutdown() {
	co.logger.Info().Msg("Shutting down coordinator...")

	co.mu.Lock()

	for _, room := range co.rooms {
		room.Stop()
	}
	co.rooms = make(map[int64]*Room)

	co.mu.Unlock()

	co.roomWG.Wait()

	close(co.cleanup)
	co.wg.Wait()

	co.logger.Info().Msg("Coordinator shutdown complete.")
}
