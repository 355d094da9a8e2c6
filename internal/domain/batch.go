package domain

// Batch is an ordered buffer of serialized records ready to be sent together.
// Insertion order is flush order.
type Batch struct {
	// Records contains the serialized records in insertion order
	Records []string

	// TotalBytes is the sum of all record lengths in bytes
	TotalBytes int
}

// NewBatch creates a new empty batch.
func NewBatch() *Batch {
	return &Batch{
		Records: make([]string, 0),
	}
}

// Add appends a serialized record to the batch.
func (b *Batch) Add(record string) {
	b.Records = append(b.Records, record)
	b.TotalBytes += len(record)
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

// Snapshot returns a copy of the records that stays valid after Reset.
func (b *Batch) Snapshot() []string {
	out := make([]string, len(b.Records))
	copy(out, b.Records)
	return out
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.Records = b.Records[:0]
	b.TotalBytes = 0
}
