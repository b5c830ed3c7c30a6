package chat

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

const (
	// DefaultHistoryLimit is the page size used when a request names none.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps the page size; larger requests are clamped.
	MaxHistoryLimit = 100
)

// HistoryOptions configures paging and the first-touch membership policy.
type HistoryOptions struct {
	DefaultLimit int
	MaxLimit     int

	// AutoEnroll adds a requesting non-member to the channel instead of
	// rejecting the request.
	AutoEnroll bool
}

// Page is one backward step through a channel's history.
type Page struct {
	// Messages are in ascending chronological order.
	Messages []Message `json:"messages"`

	// NextCursor is the ID of the oldest message in the page, nil when empty.
	NextCursor *string `json:"nextCursor"`

	// HasMore is true when the page is full; callers should request again.
	HasMore bool `json:"hasMore"`

	Count int `json:"count"`
}

// History serves cursor-paginated message history.
type History struct {
	messages   MessageStore
	membership MembershipStore
	opts       HistoryOptions
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewHistory wires a History. Zero limits take the package defaults.
func NewHistory(messages MessageStore, membership MembershipStore, opts HistoryOptions, timeout time.Duration) *History {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultHistoryLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxHistoryLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	return &History{
		messages:   messages,
		membership: membership,
		opts:       opts,
		timeout:    timeout,
		logger:     logx.Component("history"),
	}
}

// ParseCursor parses a before-cursor. An empty cursor means "from the newest".
func ParseCursor(before string) (*int64, error) {
	if before == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(before, 10, 64)
	if err != nil || id <= 0 {
		return nil, errs.NewError(errs.ErrInvalidCursor)
	}
	return &id, nil
}

// effectiveLimit resolves the requested page size.
func (h *History) effectiveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, errs.NewError(errs.ErrInvalidLimit)
	case limit == 0:
		return h.opts.DefaultLimit, nil
	case limit > h.opts.MaxLimit:
		return h.opts.MaxLimit, nil
	default:
		return limit, nil
	}
}

// FetchPage returns the limit messages immediately preceding before, oldest first.
func (h *History) FetchPage(ctx context.Context, userID, channelID string, limit int, before string) (Page, error) {
	page, err := h.fetchPage(ctx, userID, channelID, limit, before)
	if err != nil {
		metrics.HistoryPages.WithLabelValues(string(errs.KindOf(err))).Inc()
		return Page{}, err
	}
	metrics.HistoryPages.WithLabelValues("ok").Inc()
	return page, nil
}

func (h *History) fetchPage(ctx context.Context, userID, channelID string, limit int, before string) (Page, error) {
	if channelID == "" {
		return Page{}, errs.NewError(errs.ErrInvalidParams)
	}

	limit, err := h.effectiveLimit(limit)
	if err != nil {
		return Page{}, err
	}

	cursor, err := ParseCursor(before)
	if err != nil {
		return Page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.ensureMember(ctx, userID, channelID); err != nil {
		return Page{}, err
	}

	rows, err := h.messages.QueryBefore(ctx, channelID, cursor, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", channelID).Msg("History query failed")
		return Page{}, errs.Wrap(errs.ErrStoreFailed, err)
	}

	messages := make([]Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Deleted {
			continue
		}
		messages = append(messages, rows[i])
	}

	page := Page{
		Messages: messages,
		HasMore:  len(rows) == limit,
		Count:    len(messages),
	}
	if len(messages) > 0 {
		next := messages[0].Cursor()
		page.NextCursor = &next
	}

	return page, nil
}

func (h *History) ensureMember(ctx context.Context, userID, channelID string) error {
	member, err := h.membership.IsMember(ctx, channelID, userID)
	switch {
	case errors.Is(err, ErrChannelNotFound):
		return errs.NewError(errs.ErrChannelNotFound)
	case err != nil:
		return errs.Wrap(errs.ErrStoreFailed, err)
	case member:
		return nil
	case !h.opts.AutoEnroll:
		return errs.NewError(errs.ErrNotAuthorized)
	}

	if err := h.membership.AddMember(ctx, channelID, userID); err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			return errs.NewError(errs.ErrChannelNotFound)
		}
		return errs.Wrap(errs.ErrStoreFailed, err)
	}

	h.logger.Info().
		Str("user_id", userID).
		Str("channel_id", channelID).
		Msg("Enrolled non-member on first history fetch")
	return nil
}
