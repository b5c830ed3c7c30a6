package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"teamchat/internal/app/user"
	"teamchat/internal/pkg/auth/jwt"
	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

// Sink is the outbound side of a connection.
type Sink interface {
	// Deliver queues frame without blocking. It returns false when the frame
	// was dropped because the connection is closed or cannot keep up.
	Deliver(frame []byte) bool

	// Close stops delivery and releases the connection. It is idempotent.
	Close()
}

// Session is a live, authenticated connection.
type Session struct {
	ID          string
	User        user.User
	ConnectedAt time.Time

	sink   Sink
	logger zerolog.Logger
}

// Deliver queues frame to the connection and records the outcome.
func (s *Session) Deliver(frame []byte) bool {
	if s.sink.Deliver(frame) {
		metrics.Deliveries.Inc()
		return true
	}
	metrics.DroppedDeliveries.Inc()
	return false
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *zerolog.Logger {
	return &s.logger
}

var (
	errEmptyConnID   = errors.New("connection id is empty")
	errAnonymousUser = errors.New("user has no id")
	errNilSink       = errors.New("sink is nil")
	errDuplicateConn = errors.New("connection id already registered")
)

// SessionRegistry maps live connection IDs to authenticated users.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]struct{}

	jwtSecret string
	now       func() time.Time
}

// NewSessionRegistry creates a registry verifying tokens with jwtSecret.
func NewSessionRegistry(jwtSecret string) *SessionRegistry {
	return &SessionRegistry{
		sessions:  make(map[string]*Session),
		byUser:    make(map[string]map[string]struct{}),
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// Authenticate verifies a bearer token and returns the identity it names.
// Every failure is reported as ErrAuthFailed; no state is created either way.
func (r *SessionRegistry) Authenticate(token string) (user.User, error) {
	payload, err := jwt.ParseToken(token, r.jwtSecret)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("ws").Inc()
		return user.User{}, errs.Wrap(errs.ErrAuthFailed, err)
	}

	return user.User{ID: payload.ID, Username: payload.Username}, nil
}

// Register records a new session for u on connID.
func (r *SessionRegistry) Register(connID string, u user.User, sink Sink) (*Session, error) {
	switch {
	case connID == "":
		return nil, errEmptyConnID
	case u.Anonymous():
		return nil, errAnonymousUser
	case sink == nil:
		return nil, errNilSink
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connID]; exists {
		return nil, errDuplicateConn
	}

	sess := &Session{
		ID:          connID,
		User:        u,
		ConnectedAt: r.now(),
		sink:        sink,
		logger: logx.Logger().With().
			Str("component", "session").
			Str("conn_id", connID).
			Str("user_id", u.ID).
			Logger(),
	}

	r.sessions[connID] = sess

	conns, ok := r.byUser[u.ID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[u.ID] = conns
	}
	conns[connID] = struct{}{}

	metrics.TotalConnections.Inc()
	metrics.ActiveConnections.Set(float64(len(r.sessions)))

	return sess, nil
}

// Unregister removes the session for connID and returns it.
func (r *SessionRegistry) Unregister(connID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}

	delete(r.sessions, connID)
	if conns, ok := r.byUser[sess.User.ID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, sess.User.ID)
		}
	}

	metrics.ActiveConnections.Set(float64(len(r.sessions)))

	return sess, true
}

// Lookup returns the session for connID.
func (r *SessionRegistry) Lookup(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	return sess, ok
}

// ConnectionsOf returns the sorted connection IDs of userID.
func (r *SessionRegistry) ConnectionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every live session.
func (r *SessionRegistry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	return all
}
