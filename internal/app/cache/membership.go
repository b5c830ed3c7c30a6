/*
Package cache provides a Redis read-through cache in front of the channel
membership store.

Each channel's member set is cached as a Redis set holding the member IDs plus a
sentinel element, so an empty channel and an uncached channel can be told apart.
Writes go to the store first and then invalidate the cached set.
*/
package cache

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"teamchat/internal/app/chat"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

const (
	// sentinel marks a populated set. It can never be a user ID.
	sentinel = "*"

	DefaultPrefix = "teamchat:members:"
	DefaultTTL    = 5 * time.Minute
)

// MemberRemover is implemented by stores that support removing a membership.
type MemberRemover interface {
	RemoveMember(ctx context.Context, channelID, userID string) error
}

// MembershipCache wraps a chat.MembershipStore. Redis failures are logged and the
// call is served by the wrapped store.
type MembershipCache struct {
	client redis.Cmdable
	next   chat.MembershipStore
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

var _ chat.MembershipStore = (*MembershipCache)(nil)

// Config holds cache configuration.
type Config struct {
	Prefix string
	TTL    time.Duration
}

// NewMembershipCache creates a cache in front of next.
func NewMembershipCache(client redis.Cmdable, next chat.MembershipStore, cfg Config) *MembershipCache {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &MembershipCache{
		client: client,
		next:   next,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		logger: logx.Component("membership_cache"),
	}
}

// NewClient parses a redis:// URL and verifies the server is reachable.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func (c *MembershipCache) key(channelID string) string {
	return c.prefix + channelID
}

func (c *MembershipCache) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	res, err := c.client.SMIsMember(ctx, c.key(channelID), sentinel, userID).Result()
	switch {
	case err != nil:
		metrics.MembershipCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Membership cache lookup failed, using store")
		return c.next.IsMember(ctx, channelID, userID)

	case len(res) == 2 && res[0]:
		metrics.MembershipCacheLookups.WithLabelValues("hit").Inc()
		return res[1], nil
	}

	metrics.MembershipCacheLookups.WithLabelValues("miss").Inc()

	members, err := c.fill(ctx, channelID)
	if err != nil {
		return false, err
	}
	return slices.Contains(members, userID), nil
}

func (c *MembershipCache) ListMembers(ctx context.Context, channelID string) ([]string, error) {
	cached, err := c.client.SMembers(ctx, c.key(channelID)).Result()
	if err != nil {
		metrics.MembershipCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Membership cache read failed, using store")
		return c.next.ListMembers(ctx, channelID)
	}

	if slices.Contains(cached, sentinel) {
		metrics.MembershipCacheLookups.WithLabelValues("hit").Inc()
		members := slices.DeleteFunc(cached, func(id string) bool { return id == sentinel })
		slices.Sort(members)
		return members, nil
	}

	metrics.MembershipCacheLookups.WithLabelValues("miss").Inc()
	return c.fill(ctx, channelID)
}

func (c *MembershipCache) AddMember(ctx context.Context, channelID, userID string) error {
	if err := c.next.AddMember(ctx, channelID, userID); err != nil {
		return err
	}
	c.invalidate(ctx, channelID)
	return nil
}

// RemoveMember deletes the membership in the wrapped store, when supported.
func (c *MembershipCache) RemoveMember(ctx context.Context, channelID, userID string) error {
	remover, ok := c.next.(MemberRemover)
	if !ok {
		return fmt.Errorf("membership store %T cannot remove members", c.next)
	}
	if err := remover.RemoveMember(ctx, channelID, userID); err != nil {
		return err
	}
	c.invalidate(ctx, channelID)
	return nil
}

// ChannelsOf is not cached; it runs once per connection.
func (c *MembershipCache) ChannelsOf(ctx context.Context, userID string) ([]string, error) {
	return c.next.ChannelsOf(ctx, userID)
}

// fill loads the member set from the store and caches it. Store errors,
// including chat.ErrChannelNotFound, are returned unchanged; unknown channels
// are not cached.
func (c *MembershipCache) fill(ctx context.Context, channelID string) ([]string, error) {
	members, err := c.next.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}

	key := c.key(channelID)
	values := make([]any, 0, len(members)+1)
	values = append(values, sentinel)
	for _, id := range members {
		values = append(values, id)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, values...)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to populate membership cache")
	}

	return members, nil
}

func (c *MembershipCache) invalidate(ctx context.Context, channelID string) {
	if err := c.client.Del(ctx, c.key(channelID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to invalidate membership cache")
	}
}
