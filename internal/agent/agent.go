// Package agent wires configuration to the pull loop: it builds the
// subscriber and the ingestion client for one invocation and runs it.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/pubship/internal/adapters/chronicle"
	"github.com/bft-labs/pubship/internal/adapters/gcppubsub"
	"github.com/bft-labs/pubship/internal/adapters/kafkasub"
	logadapter "github.com/bft-labs/pubship/internal/adapters/log"
	"github.com/bft-labs/pubship/internal/adapters/natssub"
	"github.com/bft-labs/pubship/internal/app"
	"github.com/bft-labs/pubship/internal/cliconfig"
	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// SubscriberFactory opens a subscriber session for cfg.
type SubscriberFactory func(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (ports.Subscriber, error)

// IngesterFactory builds the ingestion client for cfg.
type IngesterFactory func(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (ports.Ingester, error)

// NewSubscriber opens the backend selected by cfg.Source.
func NewSubscriber(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (ports.Subscriber, error) {
	switch cfg.Source {
	case cliconfig.SourcePubSub, "":
		project, _, err := domain.ParseSubscriptionPath(cfg.SubscriptionID)
		if err != nil {
			return nil, err
		}
		if project == "" {
			project = cfg.ProjectID
		}
		sub, err := gcppubsub.NewSubscriber(ctx, project, logger)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case cliconfig.SourceNATS:
		sub, err := natssub.NewSubscriber(natssub.Config{
			URL:   cfg.NATSURL,
			Queue: cfg.NATSQueue,
		}, logger)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case cliconfig.SourceKafka:
		sub, err := kafkasub.NewSubscriber(kafkasub.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroup,
		}, logger)
		if err != nil {
			return nil, err
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSource, cfg.Source)
	}
}

// NewIngester builds a Chronicle ingester with its authenticated session.
func NewIngester(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (ports.Ingester, error) {
	client, err := chronicle.NewHTTPClient(ctx, cfg.ServiceAccount, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("create http session: %w", err)
	}
	return chronicle.NewIngester(client, chronicle.Config{
		CustomerID:      cfg.CustomerID,
		Region:          cfg.Region,
		BaseURL:         cfg.IngestURL,
		MaxRequestBytes: cfg.RequestBytes,
		Compress:        cfg.Compress,
	}, logger), nil
}

// Option configures a Runner.
type Option func(*Runner)

// WithSubscriberFactory replaces the backend selection.
func WithSubscriberFactory(f SubscriberFactory) Option {
	return func(r *Runner) { r.newSubscriber = f }
}

// WithIngesterFactory replaces the ingestion client construction.
func WithIngesterFactory(f IngesterFactory) Option {
	return func(r *Runner) { r.newIngester = f }
}

// Runner executes pull invocations. It is safe for concurrent use; each
// invocation builds its own sessions and accumulator.
type Runner struct {
	logger        ports.Logger
	recorder      app.Recorder
	newSubscriber SubscriberFactory
	newIngester   IngesterFactory
}

// NewRunner creates a Runner. recorder may be nil.
func NewRunner(logger ports.Logger, recorder app.Recorder, opts ...Option) *Runner {
	if logger == nil {
		logger = logadapter.NewNoopLogger()
	}
	r := &Runner{
		logger:        logger,
		recorder:      recorder,
		newSubscriber: NewSubscriber,
		newIngester:   NewIngester,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains cfg's subscription once. cfg must already be validated.
func (r *Runner) Run(ctx context.Context, cfg cliconfig.Config) error {
	logger := logadapter.With(r.logger, ports.String("run_id", uuid.NewString()))

	ingester, err := r.newIngester(ctx, cfg, logger)
	if err != nil {
		return err
	}
	subscriber, err := r.newSubscriber(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}

	puller := app.NewPuller(app.PullerConfig{
		Subscription:   cfg.Subscription(),
		DataType:       cfg.DataType,
		ReceiveTimeout: cfg.ReceiveTimeout,
		BatchBytes:     cfg.BatchBytes,
	}, subscriber, ingester, logger, r.recorder)

	start := time.Now()
	logger.Info("pull started",
		ports.String("source", cfg.Source),
		ports.String("subscription", cfg.Subscription()),
		ports.String("data_type", cfg.DataType),
	)
	if err := puller.Run(ctx); err != nil {
		logger.Error("pull failed", ports.Err(err), ports.Duration("elapsed", time.Since(start)))
		return err
	}
	logger.Info("pull finished", ports.Duration("elapsed", time.Since(start)))
	return nil
}
