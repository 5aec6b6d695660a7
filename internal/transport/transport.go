// Package transport is the chat-delivery boundary: something that yields
// inbound ChatMessages and accepts outbound payloads. The production
// implementation rides NATS JetStream; tests and the local demo use the
// in-memory queue.
package transport

import (
	"context"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// Handler receives every inbound message. Delivery is fire-and-forget, in
// enqueue order; every registered handler sees every message.
type Handler func(ctx context.Context, msg chat.ChatMessage)

// Listener is the inbound side of the transport.
type Listener interface {
	Start() error
	Stop()
	OnMessage(h Handler)
	IsConnected() bool
}

// Publisher is the outbound side of the transport.
type Publisher interface {
	Publish(subject string, data []byte) error
}
