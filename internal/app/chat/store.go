package chat

import (
	"context"
	"errors"
)

// ErrChannelNotFound is returned by stores when the channel does not exist.
var ErrChannelNotFound = errors.New("channel not found")

// MessageStore is the durable message log.
type MessageStore interface {
	// AppendMessage persists content and returns the stored message with its
	// server-assigned ID, timestamp and sender display attributes.
	AppendMessage(ctx context.Context, channelID, senderID, content string) (Message, error)

	// QueryBefore returns up to limit non-deleted messages of the channel with an
	// ID lower than *before (or the newest when before is nil), newest first.
	QueryBefore(ctx context.Context, channelID string, before *int64, limit int) ([]Message, error)
}

// MembershipStore holds persisted channel membership.
type MembershipStore interface {
	IsMember(ctx context.Context, channelID, userID string) (bool, error)

	// AddMember is idempotent.
	AddMember(ctx context.Context, channelID, userID string) error

	ListMembers(ctx context.Context, channelID string) ([]string, error)

	// ChannelsOf lists the channels userID belongs to.
	ChannelsOf(ctx context.Context, userID string) ([]string, error)
}

// MessagePublisher receives every persisted message after it was broadcast.
// Implementations must not block the caller.
type MessagePublisher interface {
	PublishMessage(msg Message)
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(Message) {}
