// Package kafkasub consumes Kafka topics through a consumer group.
package kafkasub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bft-labs/pubship/internal/adapters/receive"
	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// commitTimeout bounds a single offset commit.
const commitTimeout = 5 * time.Second

// Config configures the Kafka consumer.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// GroupID is the consumer group. Required: acks are offset commits.
	GroupID string

	// MaxWait is the maximum time to wait for new data per fetch.
	// Default is 1 second.
	MaxWait time.Duration
}

// reader is the part of *kafka.Reader the subscriber uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Subscriber implements ports.Subscriber for Kafka topics.
// Ack commits the message offset; Nack leaves it for redelivery.
type Subscriber struct {
	config    Config
	logger    ports.Logger
	newReader func(topic string) reader

	mu      sync.Mutex
	readers []reader
}

var _ ports.Subscriber = (*Subscriber)(nil)

// NewSubscriber validates config and returns a subscriber.
// Connections are opened per Subscribe call.
func NewSubscriber(config Config, logger ports.Logger) (*Subscriber, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers are required", domain.ErrInvalidConfig)
	}
	if config.GroupID == "" {
		return nil, fmt.Errorf("%w: kafka group id is required", domain.ErrInvalidConfig)
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	s := &Subscriber{config: config, logger: logger}
	s.newReader = s.kafkaReader
	return s, nil
}

func (s *Subscriber) kafkaReader(topic string) reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.config.Brokers,
		GroupID:     s.config.GroupID,
		Topic:       topic,
		MaxWait:     s.config.MaxWait,
		StartOffset: kafka.FirstOffset,
	})
}

// Subscribe fetches messages from topic.
func (s *Subscriber) Subscribe(ctx context.Context, topic string, handler ports.Handler) (ports.Future, error) {
	r := s.newReader(topic)

	s.mu.Lock()
	s.readers = append(s.readers, r)
	s.mu.Unlock()

	s.logger.Debug("kafka subscription started",
		ports.String("topic", topic),
		ports.String("group", s.config.GroupID),
	)

	return receive.Start(ctx, handler, func(ctx context.Context, deliver ports.Handler) error {
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("fetch message: %w", err)
			}
			if err := deliver(ctx, &message{reader: r, msg: m, logger: s.logger}); err != nil {
				return nil
			}
		}
	}), nil
}

// Close closes every reader opened by Subscribe.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, r := range s.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.readers = nil
	return errors.Join(errs...)
}

type message struct {
	reader reader
	msg    kafka.Message
	logger ports.Logger
}

func (m *message) Data() []byte { return m.msg.Value }

func (m *message) Ack() {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := m.reader.CommitMessages(ctx, m.msg); err != nil {
		m.logger.Error("failed to commit offset",
			ports.Err(err),
			ports.String("topic", m.msg.Topic),
			ports.Int("partition", m.msg.Partition),
			ports.Int64("offset", m.msg.Offset),
		)
	}
}

func (m *message) Nack() {
	m.logger.Debug("message not committed, will be redelivered",
		ports.String("topic", m.msg.Topic),
		ports.Int("partition", m.msg.Partition),
		ports.Int64("offset", m.msg.Offset),
	)
}
