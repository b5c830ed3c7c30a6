/*
Package events publishes chat domain events to a message broker for downstream
consumers such as search indexers and notification services.

Publishing is fire-and-forget from the chat core's point of view: a publisher
never blocks the broadcast pipeline and never fails a send.
*/
package events

import (
	"time"

	"teamchat/internal/app/chat"
)

// TypeMessageCreated is emitted once for every persisted message.
const TypeMessageCreated = "message.created"

// Event is the JSON envelope written to the broker.
type Event struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Message    chat.Message `json:"message"`
}

// Publisher is a chat.MessagePublisher that owns broker resources.
type Publisher interface {
	chat.MessagePublisher
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishMessage(chat.Message) {}

func (Nop) Close() error { return nil }
