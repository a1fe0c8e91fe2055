/*
Package discussion contains the real-time discussion session core.

This file defines the Client struct, representing one live WebSocket
connection. It manages the connection lifecycle, the read and write pumps, and
the explicit set of rooms the connection has joined.
*/
package discussion

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// sendChannelBuffer sizes the per-connection outbound queue.
	sendChannelBuffer = 256
)

// Client represents one live connection on the discussion socket.
type Client struct {
	// ID is the connection identifier, also stored as the presence entry value.
	ID string

	// identity is nil for anonymous connections. Immutable after creation.
	identity *Identity

	// underlying WebSocket connection; nil in tests that bypass the transport.
	conn *websocket.Conn

	coordinator *Coordinator

	// send queues encoded frames waiting to be written to the connection.
	send chan []byte

	// mu protects joined, which is touched from multiple room goroutines.
	mu     sync.Mutex
	joined map[int64]struct{}

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection. identity may be
// nil; anonymous connections are valid and get reduced capabilities.
func NewClient(coordinator *Coordinator, conn *websocket.Conn, identity *Identity) *Client {
	connID := randx.ConnectionID()

	clientLogger := logx.Logger().With().
		Str("conn_id", connID).
		Logger()
	if identity != nil {
		clientLogger = clientLogger.With().
			Str("nickname", identity.Nickname).
			Logger()
	}

	return &Client{
		ID:          connID,
		identity:    identity,
		conn:        conn,
		coordinator: coordinator,
		send:        make(chan []byte, sendChannelBuffer),
		joined:      make(map[int64]struct{}),
		logger:      clientLogger,
	}
}

// Identity returns the participant identity, or nil for anonymous connections.
func (c *Client) Identity() *Identity {
	return c.identity
}

func (c *Client) addJoined(discussionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined[discussionID] = struct{}{}
}

func (c *Client) removeJoined(discussionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joined, discussionID)
}

// joinedRooms returns a snapshot of the discussion IDs this connection joined.
func (c *Client) joinedRooms() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	return ids
}

// queue enqueues an encoded frame for delivery, dropping it when the
// connection cannot keep up.
func (c *Client) queue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame.")
	}
}

// ReadPump reads frames from the WebSocket connection and dispatches them to
// the coordinator. It handles heartbeats and performs cleanup on close.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(frameBytes, &frame); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid JSON frame")
			continue
		}

		c.coordinator.Dispatch(c, frame)
	}
}

// cleanupOnDisconnect runs when the ReadPump terminates: the coordinator drops
// room membership and the guarded presence entry, then the transport closes.
func (c *Client) cleanupOnDisconnect() {
	c.coordinator.HandleDisconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames to the WebSocket connection and maintains
// the ping/pong heartbeat.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Info().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
