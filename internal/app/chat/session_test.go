package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/app/user"
	"teamchat/internal/pkg/auth/jwt"
	"teamchat/internal/pkg/errs"
)

type countingSink struct {
	delivered int
	closed    bool
}

func (s *countingSink) Deliver([]byte) bool {
	if s.closed {
		return false
	}
	s.delivered++
	return true
}

func (s *countingSink) Close() { s.closed = true }

func TestSessionRegistryAuthenticate(t *testing.T) {
	r := NewSessionRegistry("secret")

	token, err := jwt.GenerateToken(&jwt.Payload{ID: "u1", Username: "ada"}, "secret", time.Hour)
	require.NoError(t, err)

	u, err := r.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, user.User{ID: "u1", Username: "ada"}, u)

	for _, bad := range []string{"", "garbage", token + "x"} {
		_, err := r.Authenticate(bad)
		assert.Equal(t, errs.KindAuth, errs.KindOf(err), "token %q", bad)
	}
	assert.Equal(t, 0, r.Count(), "failed authentication creates no state")
}

func TestSessionRegistryRegisterUnregister(t *testing.T) {
	r := NewSessionRegistry("secret")
	ada := user.User{ID: "u1"}

	s1, err := r.Register("c1", ada, &countingSink{})
	require.NoError(t, err)
	_, err = r.Register("c2", ada, &countingSink{})
	require.NoError(t, err)

	assert.Equal(t, "u1", s1.User.ID)
	assert.Equal(t, []string{"c1", "c2"}, r.ConnectionsOf("u1"))
	assert.Equal(t, 2, r.Count())

	got, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Same(t, s1, got)

	removed, ok := r.Unregister("c1")
	require.True(t, ok)
	assert.Same(t, s1, removed)

	_, ok = r.Unregister("c1")
	assert.False(t, ok)

	assert.Equal(t, []string{"c2"}, r.ConnectionsOf("u1"))
	r.Unregister("c2")
	assert.Empty(t, r.ConnectionsOf("u1"))
	assert.Empty(t, r.All())
}

func TestSessionRegistryRegisterRejects(t *testing.T) {
	r := NewSessionRegistry("secret")

	_, err := r.Register("", user.User{ID: "u1"}, &countingSink{})
	assert.Error(t, err)

	_, err = r.Register("c1", user.User{}, &countingSink{})
	assert.Error(t, err)

	_, err = r.Register("c1", user.User{ID: "u1"}, nil)
	assert.Error(t, err)

	_, err = r.Register("c1", user.User{ID: "u1"}, &countingSink{})
	require.NoError(t, err)
	_, err = r.Register("c1", user.User{ID: "u2"}, &countingSink{})
	assert.Error(t, err)

	assert.Equal(t, 1, r.Count())
}

func TestSessionDeliverReportsDrops(t *testing.T) {
	r := NewSessionRegistry("secret")
	sink := &countingSink{}
	sess, err := r.Register("c1", user.User{ID: "u1"}, sink)
	require.NoError(t, err)

	assert.True(t, sess.Deliver([]byte(`{}`)))
	sink.Close()
	assert.False(t, sess.Deliver([]byte(`{}`)))
	assert.Equal(t, 1, sink.delivered)
}
