// Package metrics exports pull loop activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/pubship/internal/app"
)

const namespace = "pubship"

// Recorder implements app.Recorder and app.EventEmitter.
type Recorder struct {
	received      prometheus.Counter
	receivedBytes prometheus.Counter
	acked         prometheus.Counter
	rejected      prometheus.Counter
	flushes       *prometheus.CounterVec
	flushRecords  prometheus.Counter
	flushBytes    prometheus.Counter
	flushSeconds  prometheus.Histogram
	ingestErrors  prometheus.Counter
	state         prometheus.Gauge
}

var (
	_ app.Recorder     = (*Recorder)(nil)
	_ app.EventEmitter = (*Recorder)(nil)
)

// NewRecorder creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages delivered by the subscription",
		}),
		receivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_bytes_received_total",
			Help:      "Payload bytes delivered by the subscription",
		}),
		acked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_acked_total",
			Help:      "Messages acknowledged after being accumulated",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Messages whose payload was not valid JSON",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Successful batch flushes by reason",
		}, []string{"reason"}),
		flushRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_records_total",
			Help:      "Records sent to ingestion",
		}),
		flushBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_bytes_total",
			Help:      "Serialized record bytes sent to ingestion",
		}),
		flushSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent in one ingestion call",
			Buckets:   prometheus.DefBuckets,
		}),
		ingestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failures_total",
			Help:      "Batch flushes that failed",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pull_state",
			Help:      "Current pull loop state (0=Idle 1=Waiting 2=Processing 3=Draining 4=Stopped 5=Failed)",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			r.received, r.receivedBytes, r.acked, r.rejected,
			r.flushes, r.flushRecords, r.flushBytes, r.flushSeconds,
			r.ingestErrors, r.state,
		)
	}
	return r
}

func (r *Recorder) OnMessage(bytes int) {
	r.received.Inc()
	r.receivedBytes.Add(float64(bytes))
}

func (r *Recorder) OnAck() { r.acked.Inc() }

func (r *Recorder) OnDecodeError() { r.rejected.Inc() }

func (r *Recorder) OnFlush(f app.Flush, duration time.Duration) {
	r.flushes.WithLabelValues(string(f.Reason)).Inc()
	r.flushRecords.Add(float64(len(f.Records)))
	r.flushBytes.Add(float64(f.Bytes))
	r.flushSeconds.Observe(duration.Seconds())
}

func (r *Recorder) OnFlushError(f app.Flush, err error) {
	r.ingestErrors.Inc()
}

func (r *Recorder) OnStateChange(previous, current app.State, reason string) {
	r.state.Set(float64(current))
}
