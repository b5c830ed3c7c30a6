package chattest

import (
	"encoding/json"
	"sync"

	"teamchat/internal/app/chat"
)

// Received is a decoded outbound frame.
type Received struct {
	Type      chat.EventType  `json:"type"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into dst and panics on malformed test data.
func (r Received) Decode(dst any) {
	if err := json.Unmarshal(r.Payload, dst); err != nil {
		panic(err)
	}
}

// Sink records every delivered frame.
type Sink struct {
	mu     sync.Mutex
	frames []Received
	closed bool

	// Capacity, when positive, makes Deliver fail once that many frames are held.
	Capacity int
}

// NewSink returns an unbounded Sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.Capacity > 0 && len(s.frames) >= s.Capacity {
		return false
	}

	var r Received
	if err := json.Unmarshal(frame, &r); err != nil {
		panic(err)
	}
	s.frames = append(s.frames, r)
	return true
}

func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close was called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Frames returns every frame received so far.
func (s *Sink) Frames() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.frames...)
}

// OfType returns the frames of the given type.
func (s *Sink) OfType(t chat.EventType) []Received {
	var out []Received
	for _, f := range s.Frames() {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Reset forgets recorded frames.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}
