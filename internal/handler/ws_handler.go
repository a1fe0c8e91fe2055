/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which rate limits upgrade requests,
resolves the optional session identity, upgrades the connection, and attaches
the client to the discussion coordinator.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/JulietLog/JulietLog-back/internal/app/discussion"
	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/limiter"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process discussion socket
// connection requests. Anonymous connections are accepted; they may join and
// observe but cannot send messages or moderate.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		identity := deps.Authenticator.Resolve(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := discussion.NewClient(deps.Coordinator, conn, identity)

		deps.Coordinator.Connect(r.Context(), client)

		go client.WritePump()

		if identity != nil {
			logx.Info("WebSocket connection established", "conn_id", client.ID, "nickname", identity.Nickname)
		} else {
			logx.Info("Anonymous WebSocket connection established", "conn_id", client.ID)
		}

		client.ReadPump()
	}
}
