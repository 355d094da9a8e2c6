// Package domain contains the core entities and value objects for pubship.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, Pub/Sub clients, logging) and contains only
// the rules for records and batches.
//
// # Entities
//
//   - [Record]: A decoded log record pulled from a subscription
//   - [Batch]: An ordered, size-tracked buffer of serialized records
//
// # Design Principles
//
// Domain entities are:
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
