package receive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

type testMessage struct {
	data  string
	acks  atomic.Int32
	nacks atomic.Int32
}

func (m *testMessage) Data() []byte { return []byte(m.data) }
func (m *testMessage) Ack()         { m.acks.Add(1) }
func (m *testMessage) Nack()        { m.nacks.Add(1) }

// chanRun delivers messages from ch until ctx is done.
func chanRun(ch <-chan *testMessage) RunFunc {
	return func(ctx context.Context, deliver ports.Handler) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case m, ok := <-ch:
				if !ok {
					return nil
				}
				if err := deliver(ctx, m); err != nil {
					return nil
				}
			}
		}
	}
}

func TestFuture_TimeoutWhileIdle(t *testing.T) {
	ch := make(chan *testMessage)
	f := Start(context.Background(), func(context.Context, ports.Message) error { return nil }, chanRun(ch))

	err := f.Result(20 * time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrTimeout)

	f.Cancel()
	assert.NoError(t, f.Result(0))

	select {
	case <-f.Done():
	default:
		t.Fatal("future not done after unbounded Result")
	}
}

func TestFuture_ExhaustionReturnsNil(t *testing.T) {
	ch := make(chan *testMessage, 2)
	m1, m2 := &testMessage{data: "1"}, &testMessage{data: "2"}
	ch <- m1
	ch <- m2
	close(ch)

	var got []string
	f := Start(context.Background(), func(_ context.Context, msg ports.Message) error {
		got = append(got, string(msg.Data()))
		msg.Ack()
		return nil
	}, chanRun(ch))

	require.NoError(t, f.Result(time.Second))
	assert.Equal(t, []string{"1", "2"}, got)
	assert.EqualValues(t, 1, m1.acks.Load())
	assert.EqualValues(t, 1, m2.acks.Load())
}

func TestFuture_HandlerErrorStopsAndNacks(t *testing.T) {
	boom := errors.New("boom")
	ch := make(chan *testMessage, 2)
	bad, next := &testMessage{data: "bad"}, &testMessage{data: "next"}
	ch <- bad
	ch <- next

	var calls atomic.Int32
	f := Start(context.Background(), func(context.Context, ports.Message) error {
		calls.Add(1)
		return boom
	}, chanRun(ch))

	err := f.Result(time.Second)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, bad.nacks.Load())
	assert.Zero(t, next.acks.Load())
}

func TestFuture_NoDeliveryAfterCancel(t *testing.T) {
	var calls atomic.Int32
	late := &testMessage{data: "late"}

	deliverLate := make(chan struct{})
	run := func(ctx context.Context, deliver ports.Handler) error {
		<-deliverLate
		// a broker may still hand over a message it fetched before shutdown
		_ = deliver(ctx, late)
		<-ctx.Done()
		return nil
	}

	f := Start(context.Background(), func(context.Context, ports.Message) error {
		calls.Add(1)
		return nil
	}, run)

	f.Cancel()
	close(deliverLate)

	require.NoError(t, f.Result(0))
	assert.Zero(t, calls.Load())
	assert.EqualValues(t, 1, late.nacks.Load())
}

func TestFuture_CancelWaitsForInFlightHandler(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	ch := make(chan *testMessage, 1)
	m := &testMessage{data: "slow"}
	ch <- m

	var finished atomic.Bool
	f := Start(context.Background(), func(_ context.Context, msg ports.Message) error {
		close(started)
		<-release
		msg.Ack()
		finished.Store(true)
		return nil
	}, chanRun(ch))

	<-started
	assert.ErrorIs(t, f.Result(10*time.Millisecond), domain.ErrTimeout)

	f.Cancel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	require.NoError(t, f.Result(0))
	assert.True(t, finished.Load(), "unbounded Result must wait for the in-flight handler")
	assert.EqualValues(t, 1, m.acks.Load())
}

func TestFuture_RunErrorReported(t *testing.T) {
	boom := errors.New("stream broken")
	f := Start(context.Background(), nil, func(context.Context, ports.Handler) error {
		return boom
	})

	assert.ErrorIs(t, f.Result(time.Second), boom)
}

func TestFuture_SerialDelivery(t *testing.T) {
	const n = 50
	var wg sync.WaitGroup
	var active, maxActive atomic.Int32

	run := func(ctx context.Context, deliver ports.Handler) error {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = deliver(ctx, &testMessage{data: "x"})
			}()
		}
		wg.Wait()
		return nil
	}

	f := Start(context.Background(), func(context.Context, ports.Message) error {
		cur := active.Add(1)
		for {
			prev := maxActive.Load()
			if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return nil
	}, run)

	require.NoError(t, f.Result(5*time.Second))
	assert.EqualValues(t, 1, maxActive.Load())
}
