// Package pubsub is the in-process event bus. Auth handlers publish outcome
// events on it and the audit subscriber consumes them.
package pubsub

import (
	"context"
)

// Message is the structure passed between components on the bus.
type Message struct {
	// Topic identifies the channel, e.g. "auth.sign_in".
	Topic string
	// UserID identifies the user the event is about, when known.
	UserID string
	// Payload is the JSON-encoded event.
	Payload []byte
	// Metadata carries extra key-value context.
	Metadata map[string]string
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives messages from the bus.
type Subscriber interface {
	// Subscribe starts consuming topic in the background. Consumption stops
	// when ctx is cancelled or the subscriber is closed.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
