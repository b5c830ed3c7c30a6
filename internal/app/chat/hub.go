/*
Package chat contains the real-time coordination core.

This file defines the Hub, which owns the session, presence and room registries
for the process and wires connection lifecycle events to them: registering a
connection, auto-joining its channels, announcing presence, and tearing all of
it down again on disconnect or presence expiry.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teamchat/internal/app/presence"
	"teamchat/internal/app/user"
	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

// DefaultSweepInterval is how often expired presence records are collected.
const DefaultSweepInterval = 15 * time.Second

// Options configures a Hub.
type Options struct {
	Messages   MessageStore
	Membership MembershipStore

	// Publisher receives persisted messages. Nil discards them.
	Publisher MessagePublisher

	JWTSecret string

	// Presence is created from PresenceTTL when nil.
	Presence    *presence.Registry
	PresenceTTL time.Duration

	SweepInterval time.Duration
	StoreTimeout  time.Duration

	History HistoryOptions

	// JoinRequiresMembership rejects channel:join from non-members.
	JoinRequiresMembership bool

	// NewConnID generates connection IDs. Defaults to random UUIDs.
	NewConnID func() string
}

// Hub coordinates every live connection of the process.
type Hub struct {
	sessions *SessionRegistry
	rooms    *RoomManager
	presence *presence.Registry
	fanout   *broadcaster

	pipeline *Pipeline
	typing   *TypingCoordinator
	history  *History

	membership    MembershipStore
	joinPolicy    bool
	sweepInterval time.Duration
	storeTimeout  time.Duration
	newConnID     func() string

	stop     chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// NewHub constructs a Hub from opts.
func NewHub(opts Options) *Hub {
	if opts.Presence == nil {
		opts.Presence = presence.New(opts.PresenceTTL)
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.NewConnID == nil {
		opts.NewConnID = uuid.NewString
	}

	sessions := NewSessionRegistry(opts.JWTSecret)
	rooms := NewRoomManager()

	return &Hub{
		sessions:      sessions,
		rooms:         rooms,
		presence:      opts.Presence,
		fanout:        &broadcaster{sessions: sessions, rooms: rooms},
		pipeline:      NewPipeline(sessions, rooms, opts.Messages, opts.Membership, opts.Publisher, opts.StoreTimeout),
		typing:        NewTypingCoordinator(sessions, rooms),
		history:       NewHistory(opts.Messages, opts.Membership, opts.History, opts.StoreTimeout),
		membership:    opts.Membership,
		joinPolicy:    opts.JoinRequiresMembership,
		sweepInterval: opts.SweepInterval,
		storeTimeout:  opts.StoreTimeout,
		newConnID:     opts.NewConnID,
		stop:          make(chan struct{}),
		logger:        logx.Component("hub"),
	}
}

// Sessions returns the session registry.
func (h *Hub) Sessions() *SessionRegistry { return h.sessions }

// Rooms returns the room manager.
func (h *Hub) Rooms() *RoomManager { return h.rooms }

// Presence returns the presence registry.
func (h *Hub) Presence() *presence.Registry { return h.presence }

// Authenticate verifies a connection credential. See SessionRegistry.Authenticate.
func (h *Hub) Authenticate(token string) (user.User, error) {
	return h.sessions.Authenticate(token)
}

// Connect registers an authenticated connection, marks its user online,
// joins every channel the user belongs to and announces presence there.
func (h *Hub) Connect(ctx context.Context, u user.User, sink Sink) (*Session, error) {
	connID := h.newConnID()

	sess, err := h.sessions.Register(connID, u, sink)
	if err != nil {
		return nil, err
	}

	h.presence.MarkOnline(u.ID, connID)
	h.updatePresenceGauge()

	storeCtx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	channels, err := h.membership.ChannelsOf(storeCtx, u.ID)
	cancel()
	if err != nil {
		sess.logger.Warn().Err(err).Msg("Failed to load member channels; connecting without auto-join")
		channels = nil
	}

	for _, channelID := range channels {
		h.rooms.Join(connID, channelID)
	}

	ready := SessionReadyPayload{
		ConnectionID: connID,
		User:         u,
		Channels:     h.rooms.ChannelsOf(connID),
		PresenceTTL:  h.presence.TTL().Milliseconds(),
	}
	h.deliver(sess, EventSessionReady, "", ready)

	sess.logger.Info().Int("channels", len(ready.Channels)).Msg("Session connected")

	for _, channelID := range ready.Channels {
		h.publishPresence(ctx, channelID)
	}

	return sess, nil
}

// Disconnect tears down connID: it leaves every room, demotes presence and
// closes the sink. Presence is re-announced when the user went offline.
// Calling it for an unknown connection is a no-op.
func (h *Hub) Disconnect(connID string) {
	sess, ok := h.sessions.Unregister(connID)
	if !ok {
		return
	}

	left := h.rooms.LeaveAll(connID)
	wentOffline := h.presence.MarkOffline(sess.User.ID, connID)
	h.updatePresenceGauge()

	sess.sink.Close()

	sess.logger.Info().
		Bool("went_offline", wentOffline).
		Int("rooms_left", len(left)).
		Dur("duration", time.Since(sess.ConnectedAt)).
		Msg("Session disconnected")

	if wentOffline {
		for _, channelID := range left {
			h.publishPresence(context.Background(), channelID)
		}
	}
}

// JoinChannel subscribes connID to channelID's room.
func (h *Hub) JoinChannel(ctx context.Context, connID, channelID string) error {
	sess, ok := h.sessions.Lookup(connID)
	if !ok {
		return errs.NewError(errs.ErrNotAuthorized)
	}
	if channelID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if h.joinPolicy {
		storeCtx, cancel := context.WithTimeout(ctx, h.storeTimeout)
		member, err := h.membership.IsMember(storeCtx, channelID, sess.User.ID)
		cancel()

		switch {
		case errors.Is(err, ErrChannelNotFound):
			return errs.NewError(errs.ErrChannelNotFound)
		case err != nil:
			return errs.Wrap(errs.ErrStoreFailed, err)
		case !member:
			return errs.NewError(errs.ErrNotAuthorized)
		}
	}

	if h.rooms.Join(connID, channelID) {
		h.publishPresence(ctx, channelID)
	}
	return nil
}

// LeaveChannel unsubscribes connID from channelID's room. Leaving a room not
// joined is not an error.
func (h *Hub) LeaveChannel(connID, channelID string) error {
	if _, ok := h.sessions.Lookup(connID); !ok {
		return errs.NewError(errs.ErrNotAuthorized)
	}
	h.rooms.Leave(connID, channelID)
	return nil
}

// Heartbeat extends the presence deadline of the connection's user. A user
// whose record already expired is revived with the connections it still
// holds, and the rooms of its live connections get a presence update.
func (h *Hub) Heartbeat(connID string) {
	sess, ok := h.sessions.Lookup(connID)
	if !ok {
		return
	}

	if h.presence.Heartbeat(sess.User.ID) {
		return
	}
	if !h.presence.Revive(sess.User.ID) {
		return
	}
	h.updatePresenceGauge()

	sess.logger.Debug().Msg("Presence revived by heartbeat")
	h.publishPresenceForConns(context.Background(), h.sessions.ConnectionsOf(sess.User.ID))
}

// SendMessage runs the broadcast pipeline for a message:send.
func (h *Hub) SendMessage(ctx context.Context, connID, channelID, content string) (Message, error) {
	return h.pipeline.Send(ctx, connID, channelID, content)
}

// StartTyping relays a typing start signal.
func (h *Hub) StartTyping(connID, channelID string) {
	h.typing.StartTyping(connID, channelID)
}

// StopTyping relays a typing stop signal.
func (h *Hub) StopTyping(connID, channelID string) {
	h.typing.StopTyping(connID, channelID)
}

// FetchHistory serves one history page for userID.
func (h *Hub) FetchHistory(ctx context.Context, userID, channelID string, limit int, before string) (Page, error) {
	return h.history.FetchPage(ctx, userID, channelID, limit, before)
}

// Run sweeps expired presence records until ctx is done or Shutdown is called.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	h.logger.Info().Dur("interval", h.sweepInterval).Msg("Presence sweeper started.")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("Presence sweeper stopped.")
			return
		case <-h.stop:
			h.logger.Info().Msg("Presence sweeper stopped.")
			return
		case <-ticker.C:
			h.SweepPresence(ctx)
		}
	}
}

// SweepPresence announces presence expiries in the rooms of the affected
// users' connections. It returns the user IDs that expired since the last sweep.
func (h *Hub) SweepPresence(ctx context.Context) []string {
	expired := h.presence.Sweep()
	if len(expired) == 0 {
		return nil
	}

	metrics.PresenceExpired.Add(float64(len(expired)))
	h.updatePresenceGauge()

	var conns []string
	for _, userID := range expired {
		conns = append(conns, h.sessions.ConnectionsOf(userID)...)
	}

	h.logger.Info().Strs("user_ids", expired).Msg("Presence expired without heartbeat")
	h.publishPresenceForConns(ctx, conns)

	return expired
}

// Shutdown stops the sweeper and closes every live connection.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	h.stopOnce.Do(func() { close(h.stop) })

	for _, sess := range h.sessions.All() {
		sess.sink.Close()
	}

	h.logger.Info().Int("sessions", h.sessions.Count()).Msg("Hub shutdown complete.")
}

func (h *Hub) publishPresenceForConns(ctx context.Context, conns []string) {
	seen := make(map[string]struct{})
	for _, connID := range conns {
		for _, channelID := range h.rooms.ChannelsOf(connID) {
			if _, done := seen[channelID]; done {
				continue
			}
			seen[channelID] = struct{}{}
			h.publishPresence(ctx, channelID)
		}
	}
}

// publishPresence sends the online subset of the channel's members to its room.
// Failures are logged and swallowed.
func (h *Hub) publishPresence(ctx context.Context, channelID string) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.storeTimeout)
	members, err := h.membership.ListMembers(storeCtx, channelID)
	cancel()
	if err != nil {
		h.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Skipping presence update; member list unavailable")
		return
	}

	payload := PresencePayload{
		ChannelID:   channelID,
		OnlineUsers: h.presence.OnlineSubsetOf(members),
	}

	frame, err := EncodeFrame(EventPresenceUpdate, "", payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode presence frame")
		return
	}

	h.fanout.toRoom(channelID, frame, nil)
}

func (h *Hub) deliver(sess *Session, eventType EventType, requestID string, payload any) bool {
	frame, err := EncodeFrame(eventType, requestID, payload)
	if err != nil {
		sess.logger.Error().Err(err).Str("event", string(eventType)).Msg("Failed to encode frame")
		return false
	}
	return sess.Deliver(frame)
}

func (h *Hub) updatePresenceGauge() {
	metrics.OnlineUsers.Set(float64(h.presence.OnlineCount()))
}
