// Package gcppubsub subscribes to Google Cloud Pub/Sub subscriptions.
package gcppubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/bft-labs/pubship/internal/adapters/receive"
	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// Subscriber implements ports.Subscriber using streaming pull.
type Subscriber struct {
	client *pubsub.Client
	logger ports.Logger
}

var _ ports.Subscriber = (*Subscriber)(nil)

// NewSubscriber creates a Pub/Sub client for projectID.
// Credentials come from opts or Application Default Credentials.
func NewSubscriber(ctx context.Context, projectID string, logger ports.Logger, opts ...option.ClientOption) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return NewSubscriberWithClient(client, logger), nil
}

// NewSubscriberWithClient wraps an existing client. Close closes the client.
func NewSubscriberWithClient(client *pubsub.Client, logger ports.Logger) *Subscriber {
	return &Subscriber{client: client, logger: logger}
}

// Subscribe starts a streaming pull on subscription, which may be a bare ID
// or a full projects/<p>/subscriptions/<s> path.
//
// Receive is configured for one outstanding message on one goroutine so the
// handler sees messages strictly one at a time.
func (s *Subscriber) Subscribe(ctx context.Context, subscription string, handler ports.Handler) (ports.Future, error) {
	projectID, id, err := domain.ParseSubscriptionPath(subscription)
	if err != nil {
		return nil, err
	}

	var sub *pubsub.Subscription
	if projectID == "" {
		sub = s.client.Subscription(id)
	} else {
		sub = s.client.SubscriptionInProject(id, projectID)
	}
	sub.ReceiveSettings.Synchronous = true
	sub.ReceiveSettings.NumGoroutines = 1
	sub.ReceiveSettings.MaxOutstandingMessages = 1

	s.logger.Debug("pubsub receive starting", ports.String("subscription", sub.String()))

	return receive.Start(ctx, handler, func(ctx context.Context, deliver ports.Handler) error {
		return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
			// deliver nacks and cancels on error; Receive then returns
			_ = deliver(ctx, message{m: m})
		})
	}), nil
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

type message struct {
	m *pubsub.Message
}

func (m message) Data() []byte { return m.m.Data }
func (m message) Ack()         { m.m.Ack() }
func (m message) Nack()        { m.m.Nack() }
