// Package pubship drains a message subscription into the Chronicle
// unstructured log ingestion API.
//
// Example usage:
//
//	cfg := pubship.DefaultConfig()
//	cfg.ProjectID = "my-project"
//	cfg.SubscriptionID = "chronicle-logs"
//	cfg.CustomerID = "customer-uuid"
//	if err := pubship.Run(context.Background(), cfg, nil); err != nil {
//	    log.Fatal(err)
//	}
package pubship

import (
	"context"
	"os"

	logadapter "github.com/bft-labs/pubship/internal/adapters/log"
	"github.com/bft-labs/pubship/internal/agent"
	"github.com/bft-labs/pubship/internal/cliconfig"
	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// Config holds the configuration for one pull invocation.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Logger is the interface for structured logging.
type Logger = ports.Logger

// Errors returned by Run, checkable with errors.Is.
var (
	ErrUnexpectedFormat = domain.ErrUnexpectedFormat
	ErrIngest           = domain.ErrIngest
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrUnknownSource    = domain.ErrUnknownSource
)

// DefaultConfig returns a Config with sensible default values.
// At minimum, SubscriptionID, CustomerID and (for Pub/Sub) ProjectID must be
// set before calling Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Run validates cfg and drains the subscription once: it waits for
// cfg.ReceiveTimeout, batches what arrives, and flushes the remainder.
// A nil logger writes to stderr at cfg.LogLevel.
func Run(ctx context.Context, cfg Config, logger Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = logadapter.NewZerologAdapterWithLogger(logadapter.NewConsoleLogger(os.Stderr, cfg.LogLevel))
	}
	return agent.NewRunner(logger, nil).Run(ctx, cfg)
}
