// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Subscriber]: Opens a message subscription and delivers messages to a handler
//   - [Future]: Handle to a running subscription (bounded wait, cancel)
//   - [Message]: A single delivered message with acknowledgement
//   - [Ingester]: Sends serialized records to the log ingestion service
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with Pub/Sub,
// NATS, Kafka, HTTP and zerolog.
package ports
