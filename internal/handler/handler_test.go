package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/app/chat"
	"teamchat/internal/app/chat/chattest"
	"teamchat/internal/configs"
	"teamchat/internal/handler"
	"teamchat/internal/pkg/auth/jwt"
	"teamchat/internal/pkg/errs"
)

const testSecret = "handler-test-secret"

type testServer struct {
	*httptest.Server
	hub   *chat.Hub
	store *chattest.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := chattest.NewStore()
	hub := chat.NewHub(chat.Options{
		Messages:   store,
		Membership: store,
		JWTSecret:  testSecret,
		History:    chat.HistoryOptions{DefaultLimit: 50, MaxLimit: 100, AutoEnroll: false},
	})

	router, stop := handler.Router(&handler.AppDeps{
		Hub: hub,
		Config: &configs.AppConfig{
			Environment:    configs.EnvDevelopment,
			JWTSecret:      testSecret,
			MetricsEnabled: true,
		},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
		stop()
	})

	return &testServer{Server: srv, hub: hub, store: store}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.GenerateToken(&jwt.Payload{ID: userID, Username: userID}, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) get(t *testing.T, path, bearer string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func (s *testServer) dial(t *testing.T, tok string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + tok
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type inbound struct {
	Type      chat.EventType  `json:"type"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

// readUntil reads frames until one of type want arrives and returns it.
func readUntil(t *testing.T, conn *websocket.Conn, want chat.EventType) inbound {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f inbound
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == want {
			return f
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, eventType chat.EventType, requestID string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inbound{Type: eventType, RequestID: requestID, Payload: raw}))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, env := s.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)
}

func TestWebSocketRejectsMissingOrBadToken(t *testing.T) {
	s := newTestServer(t)
	base := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"

	for _, url := range []string{base, base + "?token=garbage"} {
		_, res, err := websocket.DefaultDialer.Dial(url, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, res)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		res.Body.Close()
	}

	assert.Equal(t, 0, s.hub.Sessions().Count(), "no session is created for a failed handshake")
}

func TestWebSocketSendFlow(t *testing.T) {
	s := newTestServer(t)
	s.store.AddChannel("general", "ana", "ben")

	ana := s.dial(t, token(t, "ana"))
	ready := readUntil(t, ana, chat.EventSessionReady)
	var readyPayload chat.SessionReadyPayload
	require.NoError(t, json.Unmarshal(ready.Payload, &readyPayload))
	assert.Equal(t, "ana", readyPayload.User.ID)
	assert.Equal(t, []string{"general"}, readyPayload.Channels)

	ben := s.dial(t, token(t, "ben"))
	readUntil(t, ben, chat.EventSessionReady)

	send(t, ana, chat.EventMessageSend, "req-1", chat.SendPayload{ChannelID: "general", Content: "  hello team  "})

	ack := readUntil(t, ana, chat.EventAck)
	assert.Equal(t, "req-1", ack.RequestID)
	var ackPayload chat.AckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ackPayload))
	assert.True(t, ackPayload.Success)
	assert.NotEmpty(t, ackPayload.MessageID)

	received := readUntil(t, ben, chat.EventMessageNew)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(received.Payload, &msg))
	assert.Equal(t, "hello team", msg.Content)
	assert.Equal(t, "ana", msg.Sender.ID)
	assert.Equal(t, ackPayload.MessageID, msg.Cursor())
}

func TestWebSocketRejectedSendIsAckedOnce(t *testing.T) {
	s := newTestServer(t)
	s.store.AddChannel("general", "ana")

	ana := s.dial(t, token(t, "ana"))
	readUntil(t, ana, chat.EventSessionReady)

	send(t, ana, chat.EventMessageSend, "empty", chat.SendPayload{ChannelID: "general", Content: "   "})
	ack := readUntil(t, ana, chat.EventAck)
	assert.Equal(t, "empty", ack.RequestID)

	var ackPayload chat.AckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ackPayload))
	assert.False(t, ackPayload.Success)
	assert.Equal(t, errs.ErrMessageContentEmpty, ackPayload.Code)
	assert.Empty(t, s.store.Messages("general"))

	send(t, ana, chat.EventType("bogus"), "weird", struct{}{})
	errFrame := readUntil(t, ana, chat.EventError)
	assert.Equal(t, "weird", errFrame.RequestID)
}

func TestWebSocketConnectBurstLargerThanSendQueue(t *testing.T) {
	s := newTestServer(t)

	const channels = 300
	for i := 0; i < channels; i++ {
		s.store.AddChannel(fmt.Sprintf("room-%03d", i), "ana")
	}

	ana := s.dial(t, token(t, "ana"))

	ready := readUntil(t, ana, chat.EventSessionReady)
	var readyPayload chat.SessionReadyPayload
	require.NoError(t, json.Unmarshal(ready.Payload, &readyPayload))
	assert.Len(t, readyPayload.Channels, channels)

	require.NoError(t, ana.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < channels; i++ {
		var f inbound
		require.NoError(t, ana.ReadJSON(&f), "frame %d", i)
		assert.Equal(t, chat.EventPresenceUpdate, f.Type)
	}

	send(t, ana, chat.EventMessageSend, "after-burst", chat.SendPayload{ChannelID: "room-000", Content: "still here"})
	ack := readUntil(t, ana, chat.EventAck)
	assert.Equal(t, "after-burst", ack.RequestID)
	assert.Equal(t, 1, s.hub.Sessions().Count())
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.store.AddChannel("general", "ana")
	seeded := s.store.Seed("general", "ana", 3)

	status, env := s.get(t, "/api/channels/general/messages?limit=2", token(t, "ana"))
	require.Equal(t, http.StatusOK, status)

	var page chat.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, seeded[1].ID, page.Messages[0].ID)
	assert.Equal(t, seeded[2].ID, page.Messages[1].ID)
	require.NotNil(t, page.NextCursor)

	status, env = s.get(t, "/api/channels/general/messages?before="+*page.NextCursor, token(t, "ana"))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, seeded[0].ID, page.Messages[0].ID)
	assert.False(t, page.HasMore)
}

func TestHistoryEndpointErrors(t *testing.T) {
	s := newTestServer(t)
	s.store.AddChannel("general", "ana")

	tests := []struct {
		name       string
		path       string
		user       string
		wantStatus int
		wantCode   int
	}{
		{name: "no token", path: "/api/channels/general/messages", wantStatus: http.StatusUnauthorized, wantCode: errs.ErrAuthFailed},
		{name: "bad limit", path: "/api/channels/general/messages?limit=abc", user: "ana", wantStatus: http.StatusBadRequest, wantCode: errs.ErrInvalidLimit},
		{name: "negative limit", path: "/api/channels/general/messages?limit=-1", user: "ana", wantStatus: http.StatusBadRequest, wantCode: errs.ErrInvalidLimit},
		{name: "bad cursor", path: "/api/channels/general/messages?before=xyz", user: "ana", wantStatus: http.StatusBadRequest, wantCode: errs.ErrInvalidCursor},
		{name: "non member", path: "/api/channels/general/messages", user: "eve", wantStatus: http.StatusForbidden, wantCode: errs.ErrNotAuthorized},
		{name: "unknown channel", path: "/api/channels/nowhere/messages", user: "ana", wantStatus: http.StatusNotFound, wantCode: errs.ErrChannelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bearer := ""
			if tt.user != "" {
				bearer = token(t, tt.user)
			}
			status, env := s.get(t, tt.path, bearer)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, env.Code, fmt.Sprintf("message: %s", env.Message))
		})
	}
}
