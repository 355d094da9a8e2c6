package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// DefaultReceiveTimeout is how long one invocation waits on the subscription.
const DefaultReceiveTimeout = 5 * time.Second

// PullerConfig contains configuration for one pull loop.
type PullerConfig struct {
	// Subscription is passed to Subscriber.Subscribe as-is
	Subscription string

	// DataType tags every flushed batch
	DataType string

	// ReceiveTimeout bounds the wait on the subscription before drain-and-stop
	ReceiveTimeout time.Duration

	// BatchBytes is the accumulator threshold
	BatchBytes int
}

// Puller drains a subscription into the ingestion service.
type Puller struct {
	config     PullerConfig
	subscriber ports.Subscriber
	ingester   ports.Ingester
	logger     ports.Logger
	recorder   Recorder
	emitter    EventEmitter
}

// NewPuller creates a puller with the given dependencies.
// recorder may be nil. If it also implements EventEmitter it receives
// state changes.
func NewPuller(
	config PullerConfig,
	subscriber ports.Subscriber,
	ingester ports.Ingester,
	logger ports.Logger,
	recorder Recorder,
) *Puller {
	if config.ReceiveTimeout <= 0 {
		config.ReceiveTimeout = DefaultReceiveTimeout
	}
	if config.BatchBytes <= 0 {
		config.BatchBytes = DefaultBatchBytes
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	emitter, _ := recorder.(EventEmitter)

	return &Puller{
		config:     config,
		subscriber: subscriber,
		ingester:   ingester,
		logger:     logger,
		recorder:   recorder,
		emitter:    emitter,
	}
}

// Run executes one pull loop invocation.
//
// It waits on the subscription for ReceiveTimeout while messages are decoded,
// accumulated and acknowledged. On timeout it cancels the subscription and
// waits for it to settle, then flushes whatever is left. Decode and ingestion
// errors end the invocation immediately and are returned unchanged.
func (p *Puller) Run(ctx context.Context) error {
	lc := NewLifecycle(p.logger, p.emitter)
	acc := NewAccumulator(p.config.BatchBytes, p.config.DataType, p.flush)

	closed := false
	closeSubscriber := func() {
		if closed {
			return
		}
		closed = true
		if err := p.subscriber.Close(); err != nil {
			p.logger.Warn("close subscriber", ports.Err(err))
		}
	}
	defer closeSubscriber()

	future, err := p.subscriber.Subscribe(ctx, p.config.Subscription, p.handler(lc, acc))
	if err != nil {
		p.fail(lc, err)
		return fmt.Errorf("subscribe %s: %w", p.config.Subscription, err)
	}
	p.transition(lc, StateWaiting, "subscribed")

	p.logger.Info("waiting for messages",
		ports.String("subscription", p.config.Subscription),
		ports.Duration("timeout", p.config.ReceiveTimeout),
	)

	err = future.Result(p.config.ReceiveTimeout)
	if errors.Is(err, domain.ErrTimeout) {
		err = drainAndStop(future)
	}
	closeSubscriber()
	if err != nil {
		p.fail(lc, err)
		return err
	}

	p.transition(lc, StateDraining, "subscription settled")
	if _, err := acc.Drain(ctx); err != nil {
		p.fail(lc, err)
		return err
	}
	p.transition(lc, StateStopped, "drained")
	return nil
}

// drainAndStop requests cancellation, then waits without bound for the
// in-flight handler to return.
func drainAndStop(future ports.Future) error {
	future.Cancel()
	return future.Result(0)
}

// handler decodes, accumulates and acknowledges a single message.
// The message is acknowledged only after it is safely in the batch.
func (p *Puller) handler(lc *Lifecycle, acc *Accumulator) ports.Handler {
	return func(ctx context.Context, msg ports.Message) error {
		p.transition(lc, StateProcessing, "message delivered")

		data := msg.Data()
		p.recorder.OnMessage(len(data))
		p.logger.Debug("received message", ports.Int("bytes", len(data)))

		record, err := domain.DecodeRecord(data)
		if err != nil {
			p.logger.Error("unexpected data format received while collecting message details from subscription",
				ports.Err(err),
				ports.String("message", string(data)),
			)
			p.recorder.OnDecodeError()
			return err
		}

		if _, err := acc.Add(ctx, record); err != nil {
			return err
		}

		msg.Ack()
		p.recorder.OnAck()
		p.transition(lc, StateWaiting, "message processed")
		return nil
	}
}

// flush sends one batch through the ingester. Errors are not retried.
func (p *Puller) flush(ctx context.Context, f Flush) error {
	start := time.Now()
	err := p.ingester.Ingest(ctx, f.Records, f.DataType)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("flush failed",
			ports.Err(err),
			ports.Int("records", len(f.Records)),
			ports.Int("bytes", f.Bytes),
			ports.String("reason", string(f.Reason)),
		)
		p.recorder.OnFlushError(f, err)
		return err
	}

	p.logger.Info("flushed batch",
		ports.Int("records", len(f.Records)),
		ports.Int("bytes", f.Bytes),
		ports.String("data_type", f.DataType),
		ports.String("reason", string(f.Reason)),
		ports.Duration("duration", duration),
	)
	p.recorder.OnFlush(f, duration)
	return nil
}

func (p *Puller) transition(lc *Lifecycle, to State, reason string) {
	if err := lc.TransitionTo(to, reason); err != nil {
		p.logger.Warn("unexpected state transition", ports.Err(err))
	}
}

func (p *Puller) fail(lc *Lifecycle, err error) {
	if lc.Done() {
		return
	}
	p.transition(lc, StateFailed, err.Error())
}
