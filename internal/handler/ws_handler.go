/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
authenticating the bearer token, upgrading the HTTP connection to WebSocket, and
initiating the client lifecycle. The write loop is started before the session is
registered so the greeting burst never counts against the send queue.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"teamchat/internal/app/chat"
	"teamchat/internal/pkg/auth/jwt"
	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/limiter"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Authentication happens before the upgrade, so a rejected client gets a plain
// HTTP error and no session state is created.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r.RemoteAddr) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "remote_addr", r.RemoteAddr)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		currentUser, err := hub.Authenticate(jwt.TokenFromRequest(r))
		if err != nil {
			logx.Info("WebSocket connection rejected: Authentication failed.", "error", err.Error())
			resp.RespondErr(w, r, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", currentUser.ID)
			return
		}

		client := chat.NewClient(hub, conn)

		// The write loop drains session:ready and the presence burst of Connect.
		go client.WritePump()

		sess, err := hub.Connect(r.Context(), currentUser, client)
		if err != nil {
			logx.Error(err, "Failed to register WebSocket session", "user_id", currentUser.ID)
			closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session registration failed")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
			client.Close()
			return
		}

		client.Attach(sess)

		logx.Info("WebSocket connection established and session registered", "conn_id", sess.ID, "user_id", currentUser.ID)

		client.ReadPump()
	}
}
