package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/keymutex"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

// DefaultStoreTimeout bounds every store call made on behalf of a client.
const DefaultStoreTimeout = 5 * time.Second

// Pipeline validates, persists and fans out new messages.
type Pipeline struct {
	sessions   *SessionRegistry
	membership MembershipStore
	messages   MessageStore
	publisher  MessagePublisher
	fanout     *broadcaster

	// locks serializes append and broadcast per channel, so broadcast order
	// equals persistence order.
	locks   keymutex.KeyMutex
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPipeline wires a Pipeline. A nil publisher discards events.
func NewPipeline(
	sessions *SessionRegistry,
	rooms *RoomManager,
	messages MessageStore,
	membership MembershipStore,
	publisher MessagePublisher,
	timeout time.Duration,
) *Pipeline {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	return &Pipeline{
		sessions:   sessions,
		membership: membership,
		messages:   messages,
		publisher:  publisher,
		fanout:     &broadcaster{sessions: sessions, rooms: rooms},
		timeout:    timeout,
		logger:     logx.Component("pipeline"),
	}
}

// ValidateContent trims content and checks its length.
func ValidateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errs.NewError(errs.ErrMessageContentEmpty)
	}
	if utf8.RuneCountInString(trimmed) > MaxContentRunes {
		return "", errs.NewError(errs.ErrMessageContentTooLong, MaxContentRunes)
	}
	return trimmed, nil
}

// Send persists content from the connection's user into the channel and
// broadcasts it to the channel's room, the sender's connections included.
// The work is detached from ctx cancellation, so a disconnecting sender does
// not abort an accepted send.
func (p *Pipeline) Send(ctx context.Context, connID, channelID, content string) (Message, error) {
	msg, err := p.send(ctx, connID, channelID, content)
	if err != nil {
		metrics.MessagesSent.WithLabelValues(string(errs.KindOf(err))).Inc()
		return Message{}, err
	}
	metrics.MessagesSent.WithLabelValues("accepted").Inc()
	return msg, nil
}

func (p *Pipeline) send(ctx context.Context, connID, channelID, content string) (Message, error) {
	sess, ok := p.sessions.Lookup(connID)
	if !ok {
		return Message{}, errs.NewError(errs.ErrNotAuthorized)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	logger := p.logger.With().
		Str("conn_id", connID).
		Str("user_id", sess.User.ID).
		Str("channel_id", channelID).
		Logger()

	member, err := p.membership.IsMember(ctx, channelID, sess.User.ID)
	switch {
	case errors.Is(err, ErrChannelNotFound):
		return Message{}, errs.NewError(errs.ErrNotAuthorized)
	case err != nil:
		logger.Error().Err(err).Msg("Membership check failed")
		return Message{}, errs.Wrap(errs.ErrStoreFailed, err)
	case !member:
		logger.Debug().Msg("Rejected send from non-member")
		return Message{}, errs.NewError(errs.ErrNotAuthorized)
	}

	trimmed, err := ValidateContent(content)
	if err != nil {
		return Message{}, err
	}

	unlock := p.locks.Lock(channelID)
	defer unlock()

	msg, err := p.messages.AppendMessage(ctx, channelID, sess.User.ID, trimmed)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist message")
		return Message{}, errs.Wrap(errs.ErrStoreFailed, err)
	}

	frame, err := EncodeFrame(EventMessageNew, "", msg)
	if err != nil {
		logger.Error().Err(err).Int64("message_id", msg.ID).Msg("Failed to encode message frame")
		return msg, nil
	}

	delivered := p.fanout.toRoom(channelID, frame, nil)
	logger.Debug().
		Int64("message_id", msg.ID).
		Int("delivered", delivered).
		Msg("Message broadcast")

	p.publisher.PublishMessage(msg)

	return msg, nil
}
