package ports

import "context"

// Ingester sends serialized log records to the ingestion service.
type Ingester interface {
	// Ingest sends records tagged with dataType.
	// Returns an error on transport failure or a non-2xx response.
	// Implementations do not retry.
	Ingest(ctx context.Context, records []string, dataType string) error
}
