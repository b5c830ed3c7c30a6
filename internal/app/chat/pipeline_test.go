package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/app/chat"
	"teamchat/internal/app/chat/chattest"
	"teamchat/internal/app/user"
	"teamchat/internal/pkg/errs"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []chat.Message
}

func (p *recordingPublisher) PublishMessage(msg chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestSendBroadcastsToRoomIncludingSender(t *testing.T) {
	pub := &recordingPublisher{}
	e := newEnv(t, func(o *chat.Options) { o.Publisher = pub })
	e.store.AddChannel("general", "alice", "bob")
	e.store.AddUser(user.User{ID: "alice", Username: "Alice", Email: "alice@example.com"})

	alice, aliceSink := e.connect(t, "alice")
	_, bobSink := e.connect(t, "bob")
	_, alice2Sink := e.connect(t, "alice")
	resetAll(aliceSink, bobSink, alice2Sink)

	msg, err := e.hub.SendMessage(context.Background(), alice.ID, "general", "  hello team  ")
	require.NoError(t, err)

	assert.Equal(t, "hello team", msg.Content)
	assert.Equal(t, "Alice", msg.Sender.Username)
	assert.Equal(t, "alice@example.com", msg.Sender.Email)
	assert.Positive(t, msg.ID)

	for _, sink := range []*chattest.Sink{aliceSink, bobSink, alice2Sink} {
		got := sink.OfType(chat.EventMessageNew)
		require.Len(t, got, 1)

		var broadcast chat.Message
		got[0].Decode(&broadcast)
		assert.Equal(t, msg.ID, broadcast.ID)
		assert.Equal(t, "hello team", broadcast.Content)
		assert.Equal(t, "Alice", broadcast.Sender.Username)
	}

	assert.Len(t, e.store.Messages("general"), 1)
	assert.Equal(t, 1, pub.count())
}

func TestSendOnlyReachesTheChannelRoom(t *testing.T) {
	e := newEnv(t)
	e.store.AddChannel("general", "alice", "bob")
	e.store.AddChannel("random", "carol")

	alice, _ := e.connect(t, "alice")
	_, carolSink := e.connect(t, "carol")
	carolSink.Reset()

	_, err := e.hub.SendMessage(context.Background(), alice.ID, "general", "hi")
	require.NoError(t, err)

	assert.Empty(t, carolSink.OfType(chat.EventMessageNew))
}

func TestSendRejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(e *env)
		conn     func(alice *chat.Session) string
		channel  string
		content  string
		wantKind errs.Kind
		wantCode int
	}{
		{
			name:     "non-member",
			channel:  "private",
			content:  "let me in",
			wantKind: errs.KindNotAuthorized,
			wantCode: errs.ErrNotAuthorized,
		},
		{
			name:     "unknown channel",
			channel:  "nowhere",
			content:  "hello?",
			wantKind: errs.KindNotAuthorized,
			wantCode: errs.ErrNotAuthorized,
		},
		{
			name:     "unregistered connection",
			conn:     func(*chat.Session) string { return "ghost" },
			channel:  "general",
			content:  "boo",
			wantKind: errs.KindNotAuthorized,
			wantCode: errs.ErrNotAuthorized,
		},
		{
			name:     "empty content",
			channel:  "general",
			content:  "",
			wantKind: errs.KindValidation,
			wantCode: errs.ErrMessageContentEmpty,
		},
		{
			name:     "whitespace content",
			channel:  "general",
			content:  " \t\n  ",
			wantKind: errs.KindValidation,
			wantCode: errs.ErrMessageContentEmpty,
		},
		{
			name:     "too long",
			channel:  "general",
			content:  strings.Repeat("é", chat.MaxContentRunes+1),
			wantKind: errs.KindValidation,
			wantCode: errs.ErrMessageContentTooLong,
		},
		{
			name:     "membership store down",
			setup:    func(e *env) { e.store.MembershipErr = errors.New("timeout") },
			channel:  "general",
			content:  "hi",
			wantKind: errs.KindStore,
			wantCode: errs.ErrStoreFailed,
		},
		{
			name:     "append fails",
			setup:    func(e *env) { e.store.AppendErr = errors.New("disk full") },
			channel:  "general",
			content:  "hi",
			wantKind: errs.KindStore,
			wantCode: errs.ErrStoreFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			e := newEnv(t, func(o *chat.Options) { o.Publisher = pub })
			e.store.AddChannel("general", "alice", "bob")
			e.store.AddChannel("private", "bob")

			alice, aliceSink := e.connect(t, "alice")
			_, bobSink := e.connect(t, "bob")
			resetAll(aliceSink, bobSink)

			if tt.setup != nil {
				tt.setup(e)
			}
			connID := alice.ID
			if tt.conn != nil {
				connID = tt.conn(alice)
			}

			_, err := e.hub.SendMessage(context.Background(), connID, tt.channel, tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errs.KindOf(err))
			assert.True(t, errs.HasCode(err, tt.wantCode), "got %v", err)

			assert.Empty(t, e.store.Messages("general"), "nothing stored")
			assert.Empty(t, e.store.Messages("private"), "nothing stored")
			assert.Empty(t, aliceSink.OfType(chat.EventMessageNew), "nothing broadcast")
			assert.Empty(t, bobSink.OfType(chat.EventMessageNew), "nothing broadcast")
			assert.Zero(t, pub.count())
		})
	}
}

func TestSendAcceptsMaximumLength(t *testing.T) {
	e := newEnv(t)
	e.store.AddChannel("general", "alice")
	alice, _ := e.connect(t, "alice")

	content := strings.Repeat("界", chat.MaxContentRunes)
	msg, err := e.hub.SendMessage(context.Background(), alice.ID, "general", content)
	require.NoError(t, err)
	assert.Equal(t, content, msg.Content)
}

func TestSendPreservesPersistenceOrderUnderConcurrency(t *testing.T) {
	e := newEnv(t)
	e.store.AddChannel("general", "alice", "bob", "watcher")

	alice, _ := e.connect(t, "alice")
	bob, _ := e.connect(t, "bob")
	_, watcherSink := e.connect(t, "watcher")
	watcherSink.Reset()

	const perSender = 25
	var wg sync.WaitGroup
	for _, sess := range []*chat.Session{alice, bob} {
		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := e.hub.SendMessage(context.Background(), connID, "general", fmt.Sprintf("msg %d", i))
				assert.NoError(t, err)
			}
		}(sess.ID)
	}
	wg.Wait()

	stored := e.store.Messages("general")
	require.Len(t, stored, 2*perSender)

	frames := watcherSink.OfType(chat.EventMessageNew)
	require.Len(t, frames, len(stored))
	for i, f := range frames {
		var m chat.Message
		f.Decode(&m)
		assert.Equal(t, stored[i].ID, m.ID, "broadcast %d out of persistence order", i)
	}
}

func TestSendCompletesAfterSenderContextCanceled(t *testing.T) {
	e := newEnv(t)
	e.store.AddChannel("general", "alice", "bob")

	alice, _ := e.connect(t, "alice")
	_, bobSink := e.connect(t, "bob")
	bobSink.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	e.store.OnAppend = func(string, string, string) {
		cancel()
		e.hub.Disconnect(alice.ID)
	}

	msg, err := e.hub.SendMessage(ctx, alice.ID, "general", "bye")
	require.NoError(t, err)

	assert.Len(t, e.store.Messages("general"), 1)
	got := bobSink.OfType(chat.EventMessageNew)
	require.Len(t, got, 1)
	var broadcast chat.Message
	got[0].Decode(&broadcast)
	assert.Equal(t, msg.ID, broadcast.ID)
}

func TestValidateContent(t *testing.T) {
	got, err := chat.ValidateContent("\n hi \t")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = chat.ValidateContent("   ")
	assert.True(t, errs.HasCode(err, errs.ErrMessageContentEmpty))
}
