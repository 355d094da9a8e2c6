package app

import (
	"context"

	"github.com/bft-labs/pubship/internal/domain"
)

// DefaultBatchBytes is the batch size that forces a flush before the next add.
const DefaultBatchBytes = 500000

// FlushReason tells why a batch was sent.
type FlushReason string

const (
	// FlushSize means the next record would have pushed the batch past the threshold.
	FlushSize FlushReason = "size"

	// FlushDrain is the final flush when the pull loop stops.
	FlushDrain FlushReason = "drain"
)

// Flush is one batch handed to the flush collaborator.
type Flush struct {
	Records  []string
	DataType string
	Bytes    int
	Reason   FlushReason
}

// FlushFunc sends a batch downstream.
type FlushFunc func(ctx context.Context, f Flush) error

// Accumulator buffers serialized records and flushes them by byte size.
// It is owned by a single pull loop invocation and is not safe for
// concurrent use.
type Accumulator struct {
	batch     *domain.Batch
	threshold int
	dataType  string
	flush     FlushFunc
}

// NewAccumulator creates an accumulator that flushes through flush.
// A threshold <= 0 selects DefaultBatchBytes.
func NewAccumulator(threshold int, dataType string, flush FlushFunc) *Accumulator {
	if threshold <= 0 {
		threshold = DefaultBatchBytes
	}
	return &Accumulator{
		batch:     domain.NewBatch(),
		threshold: threshold,
		dataType:  dataType,
		flush:     flush,
	}
}

// Add serializes record and appends it to the batch.
// Returns true if the previous batch was flushed to make room.
func (a *Accumulator) Add(ctx context.Context, record domain.Record) (bool, error) {
	encoded, err := record.Encode()
	if err != nil {
		return false, err
	}
	return a.AddEncoded(ctx, encoded)
}

// AddEncoded appends an already serialized record.
//
// The size check runs before the append and only against a non-empty batch,
// so a record larger than the threshold still goes in, alone, and leaves
// with the next flush. If the flush fails the batch is kept and the record
// is not added.
func (a *Accumulator) AddEncoded(ctx context.Context, encoded string) (bool, error) {
	flushed := false
	if !a.batch.Empty() && a.batch.TotalBytes+len(encoded) > a.threshold {
		if err := a.send(ctx, FlushSize); err != nil {
			return false, err
		}
		flushed = true
	}

	a.batch.Add(encoded)
	return flushed, nil
}

// Drain flushes whatever is buffered, regardless of size.
// Returns false without calling the collaborator when the batch is empty.
func (a *Accumulator) Drain(ctx context.Context) (bool, error) {
	if a.batch.Empty() {
		return false, nil
	}
	if err := a.send(ctx, FlushDrain); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Accumulator) send(ctx context.Context, reason FlushReason) error {
	f := Flush{
		Records:  a.batch.Snapshot(),
		DataType: a.dataType,
		Bytes:    a.batch.TotalBytes,
		Reason:   reason,
	}
	if err := a.flush(ctx, f); err != nil {
		return err
	}
	a.batch.Reset()
	return nil
}

// Pending returns a copy of the buffered records in insertion order.
func (a *Accumulator) Pending() []string {
	return a.batch.Snapshot()
}

// Size returns the buffered byte count.
func (a *Accumulator) Size() int {
	return a.batch.TotalBytes
}

// HasPending returns true if there are records waiting to be flushed.
func (a *Accumulator) HasPending() bool {
	return !a.batch.Empty()
}

// Threshold returns the effective flush threshold in bytes.
func (a *Accumulator) Threshold() int {
	return a.threshold
}
