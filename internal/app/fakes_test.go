package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/pubship/internal/ports"
)

type fakeMessage struct {
	data  []byte
	acks  int
	nacks int
}

func newFakeMessage(data string) *fakeMessage {
	return &fakeMessage{data: []byte(data)}
}

func (m *fakeMessage) Data() []byte { return m.data }
func (m *fakeMessage) Ack()         { m.acks++ }
func (m *fakeMessage) Nack()        { m.nacks++ }

// fakeFuture delivers its messages on the first Result call, then returns
// firstResult. Later calls return nil.
type fakeFuture struct {
	ctx         context.Context
	handler     ports.Handler
	messages    []*fakeMessage
	firstResult error

	results []time.Duration
	cancels int
}

func (f *fakeFuture) Result(timeout time.Duration) error {
	f.results = append(f.results, timeout)
	if len(f.results) > 1 {
		return nil
	}
	for _, m := range f.messages {
		if err := f.handler(f.ctx, m); err != nil {
			return err
		}
	}
	return f.firstResult
}

func (f *fakeFuture) Cancel() { f.cancels++ }

type fakeSubscriber struct {
	future       *fakeFuture
	subscribeErr error
	subscription string
	closes       int
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, subscription string, handler ports.Handler) (ports.Future, error) {
	s.subscription = subscription
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.future.ctx = ctx
	s.future.handler = handler
	return s.future, nil
}

func (s *fakeSubscriber) Close() error {
	s.closes++
	return nil
}

type ingestCall struct {
	records  []string
	dataType string
}

type fakeIngester struct {
	calls []ingestCall
	err   error
}

func (i *fakeIngester) Ingest(_ context.Context, records []string, dataType string) error {
	if i.err != nil {
		return i.err
	}
	i.calls = append(i.calls, ingestCall{records: records, dataType: dataType})
	return nil
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *recordingLogger) Debug(msg string, fields ...ports.Field) { l.log("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...ports.Field)  { l.log("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...ports.Field)  { l.log("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...ports.Field) { l.log("error", msg, fields) }

func (l *recordingLogger) find(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// fakeRecorder implements Recorder and EventEmitter.
type fakeRecorder struct {
	messages     int
	acks         int
	decodeErrors int
	flushes      []Flush
	flushErrors  int
	states       []State
}

func (r *fakeRecorder) OnMessage(int)                    { r.messages++ }
func (r *fakeRecorder) OnAck()                           { r.acks++ }
func (r *fakeRecorder) OnDecodeError()                   { r.decodeErrors++ }
func (r *fakeRecorder) OnFlush(f Flush, _ time.Duration) { r.flushes = append(r.flushes, f) }
func (r *fakeRecorder) OnFlushError(Flush, error)        { r.flushErrors++ }
func (r *fakeRecorder) OnStateChange(_, current State, _ string) {
	r.states = append(r.states, current)
}
