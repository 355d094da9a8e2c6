// Package receive implements ports.Future on top of a blocking receive loop.
//
// Broker adapters supply a run function that pulls messages until its
// context is canceled and hands each one to deliver. The Future serializes
// delivery, stops handing out messages once Cancel is called, and reports
// the first handler or stream error.
package receive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// RunFunc pulls messages until ctx is done and passes each to deliver.
// A deliver error means the message was rejected and the subscription is
// shutting down; the run function should stop pulling.
type RunFunc func(ctx context.Context, deliver ports.Handler) error

// Future is a running receive loop.
type Future struct {
	handler ports.Handler
	cancel  context.CancelFunc
	done    chan struct{}

	// mu serializes handler calls
	mu       sync.Mutex
	stopping atomic.Bool

	errOnce sync.Once
	err     error
}

var _ ports.Future = (*Future)(nil)

// Start launches run in its own goroutine.
func Start(parent context.Context, handler ports.Handler, run RunFunc) *Future {
	ctx, cancel := context.WithCancel(parent)
	f := &Future{
		handler: handler,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		defer cancel()
		if err := run(ctx, f.deliver); err != nil && !errors.Is(err, context.Canceled) {
			f.setErr(err)
		}
	}()

	return f
}

// deliver hands msg to the handler unless shutdown has begun, in which case
// the message is nacked untouched.
func (f *Future) deliver(ctx context.Context, msg ports.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopping.Load() {
		msg.Nack()
		return context.Canceled
	}

	if err := f.handler(ctx, msg); err != nil {
		msg.Nack()
		f.setErr(err)
		f.stopping.Store(true)
		f.cancel()
		return err
	}
	return nil
}

func (f *Future) setErr(err error) {
	f.errOnce.Do(func() {
		f.err = err
	})
}

// Result waits for the receive loop to finish.
// A timeout <= 0 waits without bound.
func (f *Future) Result(timeout time.Duration) error {
	if timeout <= 0 {
		<-f.done
		return f.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.err
	case <-timer.C:
		return domain.ErrTimeout
	}
}

// Cancel stops message delivery and asks the receive loop to exit.
// It does not wait; call Result to wait for the in-flight handler.
func (f *Future) Cancel() {
	f.stopping.Store(true)
	f.cancel()
}

// Done is closed when the receive loop has exited.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
