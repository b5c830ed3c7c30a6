/*
Package chat contains the real-time coordination core: authenticated sessions,
channel rooms, the message broadcast pipeline, typing relay and history paging.

This file defines the wire vocabulary: event types, the frame envelope, the
Message entity and the payloads carried by each event.
*/
package chat

import (
	"encoding/json"
	"strconv"
	"time"

	"teamchat/internal/app/user"
)

// EventType names a WebSocket frame.
type EventType string

// Inbound events, sent by clients.
const (
	EventChannelJoin  EventType = "channel:join"
	EventChannelLeave EventType = "channel:leave"
	EventMessageSend  EventType = "message:send"
	EventTypingStart  EventType = "typing:start"
	EventTypingStop   EventType = "typing:stop"
	EventHeartbeat    EventType = "heartbeat"
)

// Outbound events, sent by the server. EventTypingStop is used in both directions.
const (
	EventSessionReady   EventType = "session:ready"
	EventMessageNew     EventType = "message:new"
	EventPresenceUpdate EventType = "presence:update"
	EventTypingUser     EventType = "typing:user"
	EventAck            EventType = "ack"
	EventError          EventType = "error"
)

const (
	// MaxContentRunes is the maximum message length after trimming.
	MaxContentRunes = 2000

	// TypingExpireHint is how long receivers keep a typing indicator without a stop.
	TypingExpireHint = 3 * time.Second
)

// Message is a persisted chat entry as broadcast to clients.
type Message struct {
	// ID is assigned by the store and increases with insertion order.
	ID        int64     `json:"id,string"`
	ChannelID string    `json:"channelId"`
	Sender    user.User `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Edited    bool      `json:"edited"`
	Deleted   bool      `json:"deleted"`
}

// Cursor returns the message ID in the form accepted as a history cursor.
func (m Message) Cursor() string {
	return strconv.FormatInt(m.ID, 10)
}

// Frame is the envelope of every inbound WebSocket message.
type Frame struct {
	Type      EventType       `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type outboundFrame struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"requestId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// EncodeFrame marshals an outbound frame.
func EncodeFrame(eventType EventType, requestID string, payload any) ([]byte, error) {
	return json.Marshal(outboundFrame{Type: eventType, RequestID: requestID, Payload: payload})
}

// ChannelPayload carries the target of join, leave and typing events.
type ChannelPayload struct {
	ChannelID string `json:"channelId"`
}

// SendPayload is the body of message:send.
type SendPayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

// SessionReadyPayload greets a newly registered connection.
type SessionReadyPayload struct {
	ConnectionID string    `json:"connectionId"`
	User         user.User `json:"user"`
	Channels     []string  `json:"channels"`
	PresenceTTL  int64     `json:"presenceTtlMs"`
}

// PresencePayload lists the online members of a channel.
type PresencePayload struct {
	ChannelID   string   `json:"channelId"`
	OnlineUsers []string `json:"onlineUsers"`
}

// TypingPayload is relayed for typing:user and typing:stop.
type TypingPayload struct {
	UserID      string `json:"userId"`
	ChannelID   string `json:"channelId"`
	ExpiresInMs int64  `json:"expiresInMs,omitempty"`
}

// AckPayload answers a message:send exactly once.
type AckPayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ErrorPayload reports a failed non-acknowledged operation to its caller.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
