/*
Package presence tracks which users have at least one live connection.

A user is online while their connection set is non-empty and their expiry
deadline has not elapsed. Heartbeats push the deadline forward; the last
MarkOffline removes the record immediately. Reads treat an elapsed deadline
as offline (lazy expiry); Sweep reports such records using the same predicate
and keeps their connection sets, so a swept user revives exactly like one that
was only ever expired lazily.
*/
package presence

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is the window a record stays online without a heartbeat.
const DefaultTTL = 60 * time.Second

// Status is the derived presence state of a user.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type record struct {
	conns         map[string]struct{}
	lastHeartbeat time.Time
	deadline      time.Time

	// swept is set once Sweep reported the expiry; a new deadline clears it.
	swept bool
}

func (r *record) extend(now time.Time, ttl time.Duration) {
	r.lastHeartbeat = now
	r.deadline = now.Add(ttl)
	r.swept = false
}

func (r *record) expired(now time.Time) bool {
	return !now.Before(r.deadline)
}

func (r *record) online(now time.Time) bool {
	return len(r.conns) > 0 && !r.expired(now)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry holds presence records for all users. All methods are safe for
// concurrent use; a single mutex linearizes updates for every user.
type Registry struct {
	mu      sync.Mutex
	records map[string]*record
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Registry with the given TTL. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	r := &Registry{
		records: make(map[string]*record),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the configured expiry window.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// MarkOnline adds connID to the user's connection set and resets the deadline.
// It returns true when the user was not online before the call.
func (r *Registry) MarkOnline(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec, ok := r.records[userID]
	wasOnline := ok && rec.online(now)
	if !ok {
		rec = &record{conns: make(map[string]struct{})}
		r.records[userID] = rec
	}

	rec.conns[connID] = struct{}{}
	rec.extend(now, r.ttl)

	return !wasOnline
}

// MarkOffline removes connID from the user's set. When the set becomes empty
// the record is deleted. It returns true when the call took the user from
// online to offline.
func (r *Registry) MarkOffline(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return false
	}

	if _, held := rec.conns[connID]; !held {
		return false
	}

	wasOnline := rec.online(r.now())
	delete(rec.conns, connID)

	if len(rec.conns) > 0 {
		return false
	}

	delete(r.records, userID)
	return wasOnline
}

// Heartbeat extends the user's deadline without touching the connection set.
// It returns false when the user has no live record, including one whose
// deadline already elapsed; such a record must be brought back with Revive.
func (r *Registry) Heartbeat(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec, ok := r.records[userID]
	if !ok || !rec.online(now) {
		return false
	}

	rec.extend(now, r.ttl)
	return true
}

// Revive resets the deadline of an expired record that still holds
// connections. The connection set is left as MarkOnline and MarkOffline built
// it. It returns true when the call took the user from offline to online.
func (r *Registry) Revive(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec, ok := r.records[userID]
	if !ok || len(rec.conns) == 0 || rec.online(now) {
		return false
	}

	rec.extend(now, r.ttl)
	return true
}

// StatusOf returns the user's current status.
func (r *Registry) StatusOf(userID string) Status {
	if r.IsOnline(userID) {
		return StatusOnline
	}
	return StatusOffline
}

// IsOnline reports whether the user has a live, unexpired record.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	return ok && rec.online(r.now())
}

// OnlineSubsetOf returns the online users among userIDs, in input order and
// without duplicates. The result is never nil.
func (r *Registry) OnlineSubsetOf(userIDs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	online := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))

	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if rec, ok := r.records[id]; ok && rec.online(now) {
			online = append(online, id)
		}
	}
	return online
}

// OnlineCount returns the number of online users.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for _, rec := range r.records {
		if rec.online(now) {
			n++
		}
	}
	return n
}

// Sweep returns the users whose deadline elapsed since the previous sweep.
// Each expiry is reported once. Records are only deleted by MarkOffline.
func (r *Registry) Sweep() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var expired []string
	for id, rec := range r.records {
		if rec.expired(now) && !rec.swept {
			rec.swept = true
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}
