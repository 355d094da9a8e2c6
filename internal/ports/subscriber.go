package ports

import (
	"context"
	"time"
)

// Message is a single message delivered by a subscription.
type Message interface {
	// Data returns the raw message body.
	Data() []byte

	// Ack acknowledges the message. Best-effort, no result.
	Ack()

	// Nack asks for redelivery. Best-effort, no result.
	Nack()
}

// Handler processes one delivered message.
// A returned error stops the subscription and is reported by Future.Result.
type Handler func(ctx context.Context, msg Message) error

// Future is a handle to a running subscription.
type Future interface {
	// Result blocks until the subscription settles or the timeout expires.
	// A timeout <= 0 waits without bound. Returns domain.ErrTimeout when the
	// deadline passes, the first handler or stream error, or nil when the
	// subscription ended on its own or after Cancel.
	Result(timeout time.Duration) error

	// Cancel requests shutdown and returns immediately.
	// No message is handed to the handler after Cancel is called.
	Cancel()
}

// Subscriber opens subscriptions on a message broker.
type Subscriber interface {
	// Subscribe starts delivering messages from subscription to handler.
	// Handler calls are strictly sequential.
	Subscribe(ctx context.Context, subscription string, handler Handler) (Future, error)

	// Close releases the broker session.
	Close() error
}
