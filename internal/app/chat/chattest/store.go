// Package chattest provides in-memory collaborators for testing the chat core.
package chattest

import (
	"context"
	"sort"
	"sync"
	"time"

	"teamchat/internal/app/chat"
	"teamchat/internal/app/user"
)

// Store is an in-memory MessageStore and MembershipStore.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	messages map[string][]chat.Message
	members  map[string]map[string]struct{}
	users    map[string]user.User

	// AppendErr, when set, is returned by AppendMessage.
	AppendErr error
	// MembershipErr, when set, is returned by every membership call.
	MembershipErr error
	// QueryErr, when set, is returned by QueryBefore.
	QueryErr error

	// OnAppend, when set, runs inside AppendMessage before the row is stored.
	OnAppend func(channelID, senderID, content string)

	now func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		messages: make(map[string][]chat.Message),
		members:  make(map[string]map[string]struct{}),
		users:    make(map[string]user.User),
		now:      time.Now,
	}
}

// AddChannel creates a channel with the given members.
func (s *Store) AddChannel(channelID string, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.members[channelID]
	if !ok {
		set = make(map[string]struct{})
		s.members[channelID] = set
	}
	for _, id := range memberIDs {
		set[id] = struct{}{}
	}
}

// AddUser records display attributes resolved on append.
func (s *Store) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// Seed appends n messages from senderID without going through the pipeline.
func (s *Store) Seed(channelID, senderID string, n int) []chat.Message {
	out := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		msg, _ := s.append(channelID, senderID, "seed")
		out = append(out, msg)
	}
	return out
}

// SoftDelete marks a message deleted.
func (s *Store) SoftDelete(channelID string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages[channelID] {
		if s.messages[channelID][i].ID == id {
			s.messages[channelID][i].Deleted = true
		}
	}
}

// Messages returns the channel's stored messages in insertion order.
func (s *Store) Messages(channelID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages[channelID]...)
}

func (s *Store) AppendMessage(ctx context.Context, channelID, senderID, content string) (chat.Message, error) {
	if s.OnAppend != nil {
		s.OnAppend(channelID, senderID, content)
	}
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	return s.append(channelID, senderID, content)
}

func (s *Store) append(channelID, senderID, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AppendErr != nil {
		return chat.Message{}, s.AppendErr
	}
	if _, ok := s.members[channelID]; !ok {
		return chat.Message{}, chat.ErrChannelNotFound
	}

	sender, ok := s.users[senderID]
	if !ok {
		sender = user.User{ID: senderID, Username: senderID}
	}

	s.nextID++
	msg := chat.Message{
		ID:        s.nextID,
		ChannelID: channelID,
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages[channelID] = append(s.messages[channelID], msg)
	return msg, nil
}

func (s *Store) QueryBefore(_ context.Context, channelID string, before *int64, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	var out []chat.Message
	rows := s.messages[channelID]
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		if rows[i].Deleted {
			continue
		}
		if before != nil && rows[i].ID >= *before {
			continue
		}
		out = append(out, rows[i])
	}
	return out, nil
}

func (s *Store) IsMember(_ context.Context, channelID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MembershipErr != nil {
		return false, s.MembershipErr
	}
	set, ok := s.members[channelID]
	if !ok {
		return false, chat.ErrChannelNotFound
	}
	_, member := set[userID]
	return member, nil
}

func (s *Store) AddMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MembershipErr != nil {
		return s.MembershipErr
	}
	set, ok := s.members[channelID]
	if !ok {
		return chat.ErrChannelNotFound
	}
	set[userID] = struct{}{}
	return nil
}

// RemoveMember drops userID from the channel.
func (s *Store) RemoveMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.members[channelID]; ok {
		delete(set, userID)
	}
	return nil
}

func (s *Store) ListMembers(_ context.Context, channelID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MembershipErr != nil {
		return nil, s.MembershipErr
	}
	set, ok := s.members[channelID]
	if !ok {
		return nil, chat.ErrChannelNotFound
	}
	return sortedKeys(set), nil
}

func (s *Store) ChannelsOf(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MembershipErr != nil {
		return nil, s.MembershipErr
	}
	var channels []string
	for channelID, set := range s.members {
		if _, ok := set[userID]; ok {
			channels = append(channels, channelID)
		}
	}
	sort.Strings(channels)
	return channels, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
