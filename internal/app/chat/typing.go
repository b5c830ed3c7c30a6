package chat

import (
	"github.com/rs/zerolog"

	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

// TypingCoordinator relays typing signals to the other users in a room.
// Signals are best-effort: nothing is stored, acknowledged or retried.
type TypingCoordinator struct {
	sessions *SessionRegistry
	rooms    *RoomManager
	fanout   *broadcaster
	logger   zerolog.Logger
}

// NewTypingCoordinator wires a TypingCoordinator.
func NewTypingCoordinator(sessions *SessionRegistry, rooms *RoomManager) *TypingCoordinator {
	return &TypingCoordinator{
		sessions: sessions,
		rooms:    rooms,
		fanout:   &broadcaster{sessions: sessions, rooms: rooms},
		logger:   logx.Component("typing"),
	}
}

// StartTyping relays typing:user and returns the number of connections reached.
func (t *TypingCoordinator) StartTyping(connID, channelID string) int {
	return t.relay(EventTypingUser, connID, channelID)
}

// StopTyping relays typing:stop and returns the number of connections reached.
func (t *TypingCoordinator) StopTyping(connID, channelID string) int {
	return t.relay(EventTypingStop, connID, channelID)
}

func (t *TypingCoordinator) relay(eventType EventType, connID, channelID string) int {
	sess, ok := t.sessions.Lookup(connID)
	if !ok {
		return 0
	}

	// only connections in the room may signal into it
	if !t.rooms.IsIn(connID, channelID) {
		t.logger.Debug().
			Str("conn_id", connID).
			Str("channel_id", channelID).
			Msg("Dropped typing signal from connection outside the room")
		return 0
	}

	payload := TypingPayload{UserID: sess.User.ID, ChannelID: channelID}
	if eventType == EventTypingUser {
		payload.ExpiresInMs = TypingExpireHint.Milliseconds()
	}

	frame, err := EncodeFrame(eventType, "", payload)
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to encode typing frame")
		return 0
	}

	metrics.TypingSignals.WithLabelValues(string(eventType)).Inc()

	senderID := sess.User.ID
	return t.fanout.toRoom(channelID, frame, func(s *Session) bool {
		return s.User.ID == senderID
	})
}
