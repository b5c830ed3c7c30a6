package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"teamchat/internal/app/chat"
	"teamchat/internal/app/db/sqlc"
	"teamchat/internal/app/user"
	"teamchat/internal/pkg/logx"
)

const (
	fkMembersChannel  = "channel_members_channel_id_fkey"
	fkMessagesChannel = "messages_channel_id_fkey"

	// DefaultAvatarURLTTL is the lifetime of presigned avatar URLs attached to messages.
	DefaultAvatarURLTTL = 12 * time.Hour
)

// AssetSigner turns an object key into a time-limited download URL.
type AssetSigner interface {
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// Store implements chat.MessageStore and chat.MembershipStore on PostgreSQL.
type Store struct {
	queries   *sqlc.Queries
	signer    AssetSigner
	avatarTTL time.Duration
	logger    zerolog.Logger
}

var (
	_ chat.MessageStore    = (*Store)(nil)
	_ chat.MembershipStore = (*Store)(nil)
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAssetSigner resolves sender avatar keys into presigned URLs valid for ttl.
func WithAssetSigner(signer AssetSigner, ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.signer = signer
		if ttl > 0 {
			s.avatarTTL = ttl
		}
	}
}

// NewStore creates a Store over conn, usually a *pgxpool.Pool.
func NewStore(conn sqlc.DBTX, opts ...StoreOption) *Store {
	s := &Store{
		queries:   sqlc.New(conn),
		avatarTTL: DefaultAvatarURLTTL,
		logger:    logx.Component("pg_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendMessage inserts a message and returns it with its sender's display attributes.
func (s *Store) AppendMessage(ctx context.Context, channelID, senderID, content string) (chat.Message, error) {
	channel, ok := parseUUID(channelID)
	if !ok {
		return chat.Message{}, chat.ErrChannelNotFound
	}
	sender, ok := parseUUID(senderID)
	if !ok {
		return chat.Message{}, fmt.Errorf("invalid sender id %q", senderID)
	}

	row, err := s.queries.AppendMessage(ctx, sqlc.AppendMessageParams{
		ChannelID: channel,
		SenderID:  sender,
		Content:   content,
	})
	if err != nil {
		if IsForeignKeyViolation(err, fkMessagesChannel) {
			return chat.Message{}, chat.ErrChannelNotFound
		}
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return s.toMessage(ctx, messageRow(row)), nil
}

// QueryBefore returns up to limit visible messages older than before, newest first.
func (s *Store) QueryBefore(ctx context.Context, channelID string, before *int64, limit int) ([]chat.Message, error) {
	channel, ok := parseUUID(channelID)
	if !ok {
		return nil, chat.ErrChannelNotFound
	}

	params := sqlc.ListMessagesBeforeParams{
		ChannelID: channel,
		PageLimit: int32(limit),
	}
	if before != nil {
		params.Before = pgtype.Int8{Int64: *before, Valid: true}
	}

	rows, err := s.queries.ListMessagesBefore(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, s.toMessage(ctx, messageRow(row)))
	}
	return messages, nil
}

// SoftDelete hides a message from history. It reports whether a row changed.
func (s *Store) SoftDelete(ctx context.Context, channelID string, messageID int64) (bool, error) {
	channel, ok := parseUUID(channelID)
	if !ok {
		return false, chat.ErrChannelNotFound
	}

	n, err := s.queries.SoftDeleteMessage(ctx, sqlc.SoftDeleteMessageParams{ID: messageID, ChannelID: channel})
	if err != nil {
		return false, fmt.Errorf("soft delete message: %w", err)
	}
	return n > 0, nil
}

func (s *Store) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	channel, ok := parseUUID(channelID)
	if !ok {
		return false, chat.ErrChannelNotFound
	}
	member, ok := parseUUID(userID)
	if !ok {
		member = pgtype.UUID{}
	}

	row, err := s.queries.CheckMembership(ctx, sqlc.CheckMembershipParams{ChannelID: channel, UserID: member})
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	if !row.ChannelExists {
		return false, chat.ErrChannelNotFound
	}
	return row.IsMember, nil
}

func (s *Store) AddMember(ctx context.Context, channelID, userID string) error {
	channel, ok := parseUUID(channelID)
	if !ok {
		return chat.ErrChannelNotFound
	}
	member, ok := parseUUID(userID)
	if !ok {
		return fmt.Errorf("invalid user id %q", userID)
	}

	err := s.queries.AddChannelMember(ctx, sqlc.AddChannelMemberParams{ChannelID: channel, UserID: member})
	if err != nil {
		if IsForeignKeyViolation(err, fkMembersChannel) {
			return chat.ErrChannelNotFound
		}
		return fmt.Errorf("add channel member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership. Removing a non-member is a no-op.
func (s *Store) RemoveMember(ctx context.Context, channelID, userID string) error {
	channel, ok := parseUUID(channelID)
	if !ok {
		return chat.ErrChannelNotFound
	}
	member, ok := parseUUID(userID)
	if !ok {
		return nil
	}

	if _, err := s.queries.RemoveChannelMember(ctx, sqlc.RemoveChannelMemberParams{ChannelID: channel, UserID: member}); err != nil {
		return fmt.Errorf("remove channel member: %w", err)
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, channelID string) ([]string, error) {
	channel, ok := parseUUID(channelID)
	if !ok {
		return nil, chat.ErrChannelNotFound
	}

	ids, err := s.queries.ListChannelMembers(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("list channel members: %w", err)
	}

	if len(ids) == 0 {
		exists, err := s.queries.ChannelExists(ctx, channel)
		if err != nil {
			return nil, fmt.Errorf("check channel: %w", err)
		}
		if !exists {
			return nil, chat.ErrChannelNotFound
		}
	}

	return uuidStrings(ids), nil
}

func (s *Store) ChannelsOf(ctx context.Context, userID string) ([]string, error) {
	member, ok := parseUUID(userID)
	if !ok {
		return []string{}, nil
	}

	ids, err := s.queries.ListUserChannels(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("list user channels: %w", err)
	}
	return uuidStrings(ids), nil
}

// CreateUser inserts a directory entry. Used by seeding tools and tests.
func (s *Store) CreateUser(ctx context.Context, username, email, avatarKey string) (user.User, error) {
	row, err := s.queries.CreateUser(ctx, sqlc.CreateUserParams{
		Username:  username,
		Email:     optionalText(email),
		AvatarKey: optionalText(avatarKey),
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, fmt.Errorf("username %q already taken: %w", username, err)
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	return user.User{
		ID:       uuidToString(row.ID),
		Username: row.Username,
		Email:    row.Email.String,
		Avatar:   s.avatarURL(ctx, row.AvatarKey),
	}, nil
}

// CreateChannel inserts a channel and returns its ID.
func (s *Store) CreateChannel(ctx context.Context, name, description string, private bool, createdBy string) (string, error) {
	creator, _ := parseUUID(createdBy)

	row, err := s.queries.CreateChannel(ctx, sqlc.CreateChannelParams{
		Name:        name,
		Description: optionalText(description),
		IsPrivate:   private,
		CreatedBy:   creator,
	})
	if err != nil {
		return "", fmt.Errorf("create channel: %w", err)
	}
	return uuidToString(row.ID), nil
}

// messageRow is the shape shared by the append and list queries.
type messageRow struct {
	ID        int64
	ChannelID pgtype.UUID
	SenderID  pgtype.UUID
	Content   string
	Edited    bool
	Deleted   bool
	CreatedAt pgtype.Timestamptz
	Username  string
	Email     pgtype.Text
	AvatarKey pgtype.Text
}

func (s *Store) toMessage(ctx context.Context, row messageRow) chat.Message {
	return chat.Message{
		ID:        row.ID,
		ChannelID: uuidToString(row.ChannelID),
		Sender: user.User{
			ID:       uuidToString(row.SenderID),
			Username: row.Username,
			Email:    row.Email.String,
			Avatar:   s.avatarURL(ctx, row.AvatarKey),
		},
		Content:   row.Content,
		CreatedAt: row.CreatedAt.Time.UTC(),
		Edited:    row.Edited,
		Deleted:   row.Deleted,
	}
}

// avatarURL returns "" when no signer is configured or signing fails; a missing
// avatar never fails a message.
func (s *Store) avatarURL(ctx context.Context, key pgtype.Text) string {
	if s.signer == nil || !key.Valid || key.String == "" {
		return ""
	}

	url, err := s.signer.PresignDownload(ctx, key.String, s.avatarTTL)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Str("avatar_key", key.String).Msg("Failed to presign avatar URL")
		}
		return ""
	}
	return url
}

func parseUUID(s string) (pgtype.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: id, Valid: true}, true
}

func uuidToString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func uuidStrings(ids []pgtype.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, uuidToString(id))
	}
	return out
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
