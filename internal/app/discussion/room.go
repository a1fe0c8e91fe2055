/*
Package discussion contains the real-time discussion session core.

This file defines the Room struct: per-discussion live membership, the event
dispatch table, and the handlers for join/message/progress/status/ban/unban.
A room processes its events on a single goroutine, so each handler runs as one
unit and the outbound instructions it returns are applied strictly in order.
*/
package discussion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

const (
	// eventChannelBuffer sizes the inbound event queue per room.
	eventChannelBuffer = 64

	// RoomInactivityTimeout is the duration after which an empty room shuts down.
	RoomInactivityTimeout = 5 * time.Minute

	// registryTimeout bounds registry and presence I/O inside one handler.
	registryTimeout = 10 * time.Second

	// MaxContentBytes is the maximum allowed size for chat message content.
	MaxContentBytes = 5000
)

// eventDisconnect is the synthetic event posted when a connection's transport
// closes. It only drops room membership; presence cleanup happens once per
// connection in the coordinator.
const eventDisconnect EventName = "disconnect"

// inbound is one event queued for a room: the originating connection, the
// event name, and its raw payload.
type inbound struct {
	client *Client
	event  EventName
	data   json.RawMessage
}

// connIndex resolves a connection ID to its live client, independent of room
// membership. Satisfied by the Coordinator.
type connIndex interface {
	ClientByID(connID string) *Client
}

// handlerFunc is one entry of the event dispatch table. Handlers may mutate
// room state (they run on the room's own goroutine) and return the ordered
// outbound broadcast instructions.
type handlerFunc func(r *Room, c *Client, data json.RawMessage) []Outbound

// eventHandlers is the dispatch table keyed by event name.
var eventHandlers = map[EventName]handlerFunc{
	EventJoin:       (*Room).handleJoin,
	EventMessage:    (*Room).handleMessage,
	EventProgress:   (*Room).handleProgress,
	EventStatus:     (*Room).handleStatus,
	EventBan:        (*Room).handleBan,
	EventUnban:      (*Room).handleUnban,
	eventDisconnect: (*Room).handleDisconnect,
}

// Room owns the live state of one discussion's real-time session.
type Room struct {
	// DiscussionID is the persisted discussion this room serves.
	DiscussionID int64

	// members holds the connections currently joined, keyed by connection ID.
	// Only the Run goroutine touches it.
	members map[string]*Client

	// events queues inbound events for serial processing.
	events chan inbound

	registry Registry
	presence PresenceStore
	conns    connIndex

	// cleanupChan notifies the coordinator that this room shut down.
	cleanupChan chan<- int64

	// stopChan terminates the Run loop immediately.
	stopChan chan struct{}

	// shutdownTimer tracks room inactivity.
	shutdownTimer *time.Timer

	logger zerolog.Logger
}

// NewRoom creates and initializes a new Room instance.
func NewRoom(discussionID int64, registry Registry, presence PresenceStore, conns connIndex, cleanupChan chan<- int64) *Room {
	roomLogger := logx.Logger().With().
		Int64("discussion_id", discussionID).
		Logger()

	return &Room{
		DiscussionID:  discussionID,
		members:       make(map[string]*Client),
		events:        make(chan inbound, eventChannelBuffer),
		registry:      registry,
		presence:      presence,
		conns:         conns,
		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		shutdownTimer: time.NewTimer(RoomInactivityTimeout),
		logger:        roomLogger,
	}
}

// Stop signals the Run loop to terminate immediately.
func (r *Room) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// post queues an inbound event for the room without blocking the caller.
func (r *Room) post(ev inbound) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn().
			Str("event", string(ev.event)).
			Msg("Room event channel full, dropping event.")
	}
}

// Run is the room's event loop. It processes inbound events serially and
// shuts down after RoomInactivityTimeout with no members.
func (r *Room) Run() {
	defer func() {
		r.shutdownTimer.Stop()
		r.notifyCleanup()
		r.logger.Info().Msg("Room loop finished.")
	}()

	for {
		select {
		case ev := <-r.events:
			r.process(ev)
			r.armShutdownTimer()

		case <-r.shutdownTimer.C:
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached. Shutting down.", RoomInactivityTimeout)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// notifyCleanup tells the coordinator this room's loop finished. During
// coordinator shutdown the cleanup channel may already be closed; sending on a
// closed channel panics even under a select default, so the send is guarded.
func (r *Room) notifyCleanup() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().Msg("Cleanup channel closed. Skipping cleanup notification.")
		}
	}()

	select {
	case r.cleanupChan <- r.DiscussionID:
	default:
		r.logger.Warn().Msg("Coordinator cleanup channel blocked. Skipping cleanup notification.")
	}
}

// armShutdownTimer keeps the inactivity timer running only while the room is empty.
func (r *Room) armShutdownTimer() {
	if r.shutdownTimer.Stop() {
		select {
		case <-r.shutdownTimer.C:
		default:
		}
	}

	if len(r.members) == 0 {
		r.shutdownTimer.Reset(RoomInactivityTimeout)
	}
}

// process dispatches one inbound event. Any panic inside a handler is
// recovered and logged; the room and the connection both stay up.
func (r *Room) process(ev inbound) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("event", string(ev.event)).
				Interface("panic", rec).
				Msg("Recovered from panic in event handler.")
		}
	}()

	handler, ok := eventHandlers[ev.event]
	if !ok {
		r.logger.Warn().Str("event", string(ev.event)).Msg("Unsupported event type.")
		return
	}

	r.apply(ev.client, handler(r, ev.client, ev.data))
}

// apply delivers outbound instructions in order, resolving each scope.
func (r *Room) apply(sender *Client, outs []Outbound) {
	for _, out := range outs {
		frame, err := EncodeFrame(out.Event, out.Data)
		if err != nil {
			r.logger.Error().Err(err).Str("event", string(out.Event)).Msg("Failed to encode outbound frame.")
			continue
		}

		switch out.Scope {
		case ScopeRoom:
			for _, member := range r.members {
				member.queue(frame)
			}

		case ScopeSender:
			if sender != nil {
				sender.queue(frame)
			}

		case ScopeConn:
			if target := r.conns.ClientByID(out.Target); target != nil {
				target.queue(frame)
			}
		}
	}
}

// scopedError builds the single scoped error frame used for every validation failure.
func scopedError(code int) []Outbound {
	return []Outbound{toSender(EventError, ErrorPayload{Message: errs.NewError(code).Message})}
}

// handleJoin validates the discussion and the joiner's ban status, adds the
// connection to live membership, and broadcasts in the contractual order:
// membership snapshot to the room, history placeholder to the joiner, then the
// join announcement. The snapshot always precedes the announcement so late
// joiners never see an announcement for a user absent from their snapshot.
func (r *Room) handleJoin(c *Client, data json.RawMessage) []Outbound {
	var p JoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn().Err(err).Msg("Client sent invalid join payload.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	exists, err := r.registry.Exists(ctx, r.DiscussionID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Registry existence check failed.")
		return scopedError(errs.ErrUnknown)
	}
	if !exists {
		return scopedError(errs.ErrDiscussionNotFound)
	}

	identity := c.Identity()

	if identity != nil {
		banned, err := r.registry.IsBanned(ctx, r.DiscussionID, identity.UserID)
		if err != nil {
			r.logger.Error().Err(err).Msg("Registry ban check failed.")
			return scopedError(errs.ErrUnknown)
		}
		if banned {
			return scopedError(errs.ErrBannedFromDiscussion)
		}

		if err := r.registry.AddMember(ctx, r.DiscussionID, *identity); err != nil {
			r.logger.Error().Err(err).Int64("user_id", identity.UserID).Msg("Failed to persist membership.")
		}
	}

	r.members[c.ID] = c
	c.addJoined(r.DiscussionID)

	outs := []Outbound{
		toRoom(EventStatus, r.statusSnapshot(ctx)),
		toSender(EventHistory, HistoryPayload{Messages: []ChatMessage{}}),
	}

	if identity != nil {
		outs = append(outs, toRoom(EventInfo, InfoPayload{
			Message: fmt.Sprintf("%s joined the discussion.", identity.Nickname),
		}))
	}

	return outs
}

// handleMessage persists a chat message through the registry and broadcasts
// the authoritative result to the room. Anonymous senders are rejected, and so
// are senders that never joined the room.
func (r *Room) handleMessage(c *Client, data json.RawMessage) []Outbound {
	var p MessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn().Err(err).Msg("Client sent invalid message payload.")
		return nil
	}

	identity := c.Identity()
	if identity == nil {
		return scopedError(errs.ErrUnauthorized)
	}

	if _, joined := r.members[c.ID]; !joined {
		return scopedError(errs.ErrNotJoined)
	}

	if len(p.Message) > MaxContentBytes {
		return scopedError(errs.ErrMessageContentTooLong)
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	stored, err := r.registry.CreateMessage(ctx, r.DiscussionID, identity.UserID, p.Message)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist chat message.")
		return scopedError(errs.ErrUnknown)
	}

	return []Outbound{toRoom(EventMessage, ChatMessage{
		DiscussionID: r.DiscussionID,
		MessageID:    stored.MessageID,
		Nickname:     identity.Nickname,
		Message:      p.Message,
		CreatedAt:    stored.CreatedAt,
	})}
}

// handleProgress persists the author's progress update and broadcasts it.
// Author-only; last writer wins, there is no optimistic concurrency control.
func (r *Room) handleProgress(c *Client, data json.RawMessage) []Outbound {
	var p ProgressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn().Err(err).Msg("Client sent invalid progress payload.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	if out := r.requireAuthor(ctx, c); out != nil {
		return out
	}

	if err := r.registry.SetProgress(ctx, r.DiscussionID, p.Progress); err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist discussion progress.")
		return scopedError(errs.ErrUnknown)
	}

	return []Outbound{toRoom(EventProgress, ProgressPayload{
		DiscussionID: r.DiscussionID,
		Progress:     p.Progress,
	})}
}

// handleStatus returns the membership/ban snapshot to the requester only.
func (r *Room) handleStatus(c *Client, data json.RawMessage) []Outbound {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	return []Outbound{toSender(EventStatus, r.statusSnapshot(ctx))}
}

// handleBan records a ban, evicts the target's live connection when presence
// can address one, acknowledges the author, and broadcasts the new snapshot.
// The ban is persisted first: an offline target is still banned and gets
// rejected at join time via the ban list, independent of presence.
func (r *Room) handleBan(c *Client, data json.RawMessage) []Outbound {
	var p ModerationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn().Err(err).Msg("Client sent invalid ban payload.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	if out := r.requireAuthor(ctx, c); out != nil {
		return out
	}

	if _, err := r.registry.AddBan(ctx, r.DiscussionID, p.Nickname); err != nil {
		if errors.Is(err, ErrUnknownNickname) {
			return scopedError(errs.ErrUserNotFound)
		}
		r.logger.Error().Err(err).Str("nickname", p.Nickname).Msg("Failed to record ban.")
		return scopedError(errs.ErrUnknown)
	}

	var outs []Outbound

	targetConnID, err := r.presence.Lookup(ctx, p.Nickname)
	if err == nil {
		outs = append(outs, toConn(targetConnID, EventError, ErrorPayload{
			Message: errs.NewError(errs.ErrBannedByModerator).Message,
		}))

		if target, ok := r.members[targetConnID]; ok {
			delete(r.members, targetConnID)
			target.removeJoined(r.DiscussionID)
		}
	} else {
		// Target offline: the ban is recorded either way.
		r.logger.Info().Str("nickname", p.Nickname).Msg("Ban target has no live connection.")
	}

	outs = append(outs,
		toSender(EventInfo, InfoPayload{Message: fmt.Sprintf("Banned user [%s].", p.Nickname)}),
		toRoom(EventStatus, r.statusSnapshot(ctx)),
	)

	return outs
}

// handleUnban removes a ban, acknowledges the author, and broadcasts the new
// snapshot. It does not restore membership; the unbanned user must rejoin.
func (r *Room) handleUnban(c *Client, data json.RawMessage) []Outbound {
	var p ModerationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn().Err(err).Msg("Client sent invalid unban payload.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	if out := r.requireAuthor(ctx, c); out != nil {
		return out
	}

	if err := r.registry.RemoveBan(ctx, r.DiscussionID, p.Nickname); err != nil {
		r.logger.Error().Err(err).Str("nickname", p.Nickname).Msg("Failed to remove ban.")
		return scopedError(errs.ErrUnknown)
	}

	return []Outbound{
		toSender(EventInfo, InfoPayload{Message: fmt.Sprintf("Lifted the ban on user [%s].", p.Nickname)}),
		toRoom(EventStatus, r.statusSnapshot(ctx)),
	}
}

// handleDisconnect drops the connection from live membership. Presence
// cleanup is the coordinator's job, guarded against stale entries.
func (r *Room) handleDisconnect(c *Client, data json.RawMessage) []Outbound {
	delete(r.members, c.ID)
	return nil
}

// requireAuthor validates the discussion's existence and that the sender is
// its author. Returns the scoped error instructions on failure, nil on success.
func (r *Room) requireAuthor(ctx context.Context, c *Client) []Outbound {
	exists, err := r.registry.Exists(ctx, r.DiscussionID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Registry existence check failed.")
		return scopedError(errs.ErrUnknown)
	}
	if !exists {
		return scopedError(errs.ErrDiscussionNotFound)
	}

	identity := c.Identity()
	if identity == nil {
		return scopedError(errs.ErrNotDiscussionAuthor)
	}

	isAuthor, err := r.registry.VerifyAuthor(ctx, r.DiscussionID, identity.UserID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Registry author check failed.")
		return scopedError(errs.ErrUnknown)
	}
	if !isAuthor {
		return scopedError(errs.ErrNotDiscussionAuthor)
	}

	return nil
}

// statusSnapshot builds the membership/ban snapshot from the registry.
// Lookup failures degrade to empty lists; the snapshot itself is best-effort.
func (r *Room) statusSnapshot(ctx context.Context) StatusPayload {
	participants, err := r.registry.ListKnownMembers(ctx, r.DiscussionID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list discussion members.")
	}
	if participants == nil {
		participants = []Identity{}
	}

	banned, err := r.registry.GetBanList(ctx, r.DiscussionID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to fetch ban list.")
	}
	if banned == nil {
		banned = []Identity{}
	}

	return StatusPayload{
		DiscussionID: r.DiscussionID,
		Participants: participants,
		Banned:       banned,
	}
}
