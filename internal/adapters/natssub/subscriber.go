// Package natssub subscribes to NATS subjects.
package natssub

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bft-labs/pubship/internal/adapters/receive"
	"github.com/bft-labs/pubship/internal/ports"
)

// Config configures the NATS connection.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Queue is the optional queue group name.
	Queue string

	// ConnectTimeout is the timeout for the initial connection.
	// Default is 5 seconds.
	ConnectTimeout time.Duration
}

func (c Config) applyDefaults() Config {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return c
}

// Subscriber implements ports.Subscriber for NATS subjects.
// Messages are pulled with NextMsgWithContext from a synchronous subscription.
type Subscriber struct {
	config Config
	conn   *nats.Conn
	logger ports.Logger
}

var _ ports.Subscriber = (*Subscriber)(nil)

// NewSubscriber connects to NATS.
func NewSubscriber(config Config, logger ports.Logger) (*Subscriber, error) {
	config = config.applyDefaults()

	conn, err := nats.Connect(
		config.URL,
		nats.Name("pubship"),
		nats.Timeout(config.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", ports.Err(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", config.URL, err)
	}

	return &Subscriber{config: config, conn: conn, logger: logger}, nil
}

// Subscribe pulls messages published on subject.
func (s *Subscriber) Subscribe(ctx context.Context, subject string, handler ports.Handler) (ports.Future, error) {
	var (
		sub *nats.Subscription
		err error
	)
	if s.config.Queue != "" {
		sub, err = s.conn.QueueSubscribeSync(subject, s.config.Queue)
	} else {
		sub, err = s.conn.SubscribeSync(subject)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	s.logger.Debug("nats subscription started",
		ports.String("subject", subject),
		ports.String("queue", s.config.Queue),
	)

	return receive.Start(ctx, handler, func(ctx context.Context, deliver ports.Handler) error {
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				s.logger.Debug("nats unsubscribe", ports.Err(err))
			}
		}()

		for {
			m, err := sub.NextMsgWithContext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("next message: %w", err)
			}
			if err := deliver(ctx, message{m: m, logger: s.logger}); err != nil {
				return nil
			}
		}
	}), nil
}

// Close closes the NATS connection.
func (s *Subscriber) Close() error {
	s.conn.Close()
	return nil
}

// message acknowledges through the reply subject when there is one
// (JetStream push consumers); plain core NATS messages have nothing to ack.
type message struct {
	m      *nats.Msg
	logger ports.Logger
}

func (m message) Data() []byte { return m.m.Data }

func (m message) Ack() {
	if m.m.Reply == "" {
		return
	}
	if err := m.m.Ack(); err != nil {
		m.logger.Debug("nats ack", ports.Err(err))
	}
}

func (m message) Nack() {
	if m.m.Reply == "" {
		return
	}
	if err := m.m.Nak(); err != nil {
		m.logger.Debug("nats nak", ports.Err(err))
	}
}
