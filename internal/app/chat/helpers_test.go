package chat_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"teamchat/internal/app/chat"
	"teamchat/internal/app/chat/chattest"
	"teamchat/internal/app/presence"
	"teamchat/internal/app/user"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	hub   *chat.Hub
	store *chattest.Store
	clock *fakeClock
}

func newEnv(t *testing.T, configure ...func(*chat.Options)) *env {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := chattest.NewStore()

	var seq atomic.Int64
	opts := chat.Options{
		Messages:   store,
		Membership: store,
		JWTSecret:  "secret",
		Presence:   presence.New(time.Minute, presence.WithClock(clock.Now)),
		History:    chat.HistoryOptions{DefaultLimit: 50, MaxLimit: 100, AutoEnroll: true},
		NewConnID: func() string {
			return fmt.Sprintf("conn-%d", seq.Add(1))
		},
	}
	for _, fn := range configure {
		fn(&opts)
	}

	hub := chat.NewHub(opts)
	t.Cleanup(hub.Shutdown)

	return &env{hub: hub, store: store, clock: clock}
}

func (e *env) connect(t *testing.T, userID string) (*chat.Session, *chattest.Sink) {
	t.Helper()

	sink := chattest.NewSink()
	sess, err := e.hub.Connect(context.Background(), user.User{ID: userID, Username: userID}, sink)
	require.NoError(t, err)
	return sess, sink
}

func resetAll(sinks ...*chattest.Sink) {
	for _, s := range sinks {
		s.Reset()
	}
}
