/*
Package discussion contains the real-time discussion session core.

This file defines the wire protocol: the named event frames exchanged over the
WebSocket, their payload shapes, and the outbound broadcast instructions
produced by event handlers. Handlers return ordered Outbound slices so the
broadcast-scope and ordering contracts can be tested without a live transport.
*/
package discussion

import (
	"encoding/json"
	"time"
)

// EventName identifies a frame type on the discussion socket.
type EventName string

// Inbound and outbound event names.
const (
	EventJoin     EventName = "join"
	EventMessage  EventName = "message"
	EventProgress EventName = "discussionProgress"
	EventStatus   EventName = "status"
	EventBan      EventName = "ban"
	EventUnban    EventName = "unban"

	EventError   EventName = "error"
	EventInfo    EventName = "info"
	EventHistory EventName = "history"
)

// Frame is the JSON envelope for every message on the socket.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the inbound payload for the join event.
type JoinPayload struct {
	DiscussionID int64 `json:"discussionId"`
}

// MessagePayload is the inbound payload for the message event.
type MessagePayload struct {
	DiscussionID int64  `json:"discussionId"`
	Message      string `json:"message"`
}

// ProgressPayload is the payload for the discussionProgress event, both
// inbound (author update) and outbound (room broadcast).
type ProgressPayload struct {
	DiscussionID int64  `json:"discussionId"`
	Progress     string `json:"progress"`
}

// StatusRequestPayload is the inbound payload for the status event.
type StatusRequestPayload struct {
	DiscussionID int64 `json:"discussionId"`
}

// ModerationPayload is the inbound payload for ban and unban events.
type ModerationPayload struct {
	DiscussionID int64  `json:"discussionId"`
	Nickname     string `json:"nickname"`
}

// ErrorPayload is the outbound payload of a scoped error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

// InfoPayload is the outbound payload of informational frames.
type InfoPayload struct {
	Message string `json:"message"`
}

// StatusPayload is the outbound membership/ban snapshot of a discussion.
type StatusPayload struct {
	DiscussionID int64      `json:"discussionId"`
	Participants []Identity `json:"participants"`
	Banned       []Identity `json:"banned"`
}

// HistoryPayload is the outbound placeholder for prior chat history.
// Retrieval of persisted messages over the socket is out of scope; joiners
// receive an empty message list.
type HistoryPayload struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is the outbound payload of a broadcast chat message.
type ChatMessage struct {
	DiscussionID int64     `json:"discussionId"`
	MessageID    string    `json:"messageId"`
	Nickname     string    `json:"nickname"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Scope selects the recipients of an outbound instruction.
type Scope int

const (
	// ScopeRoom delivers to every connection currently joined to the room.
	ScopeRoom Scope = iota

	// ScopeSender delivers only to the connection that produced the event.
	ScopeSender

	// ScopeConn delivers to one specific connection, addressed by connection
	// ID (used for presence-targeted moderation).
	ScopeConn
)

// Outbound is a single broadcast instruction produced by an event handler.
// Instructions are applied strictly in slice order.
type Outbound struct {
	Scope  Scope
	Target string // connection ID, only for ScopeConn
	Event  EventName
	Data   any
}

// toRoom, toSender and toConn are shorthands used by the event handlers.

func toRoom(event EventName, data any) Outbound {
	return Outbound{Scope: ScopeRoom, Event: event, Data: data}
}

func toSender(event EventName, data any) Outbound {
	return Outbound{Scope: ScopeSender, Event: event, Data: data}
}

func toConn(connID string, event EventName, data any) Outbound {
	return Outbound{Scope: ScopeConn, Target: connID, Event: event, Data: data}
}

// EncodeFrame marshals an event and its payload into a wire-ready frame.
func EncodeFrame(event EventName, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
