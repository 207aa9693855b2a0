// Package ports defines the interfaces that connect the mapping core to the
// outside world.
//
// # Port Interfaces
//
//   - [PathQuery]: evaluates a path query against a parsed JSON document
//   - [Evaluator]: evaluates an arithmetic expression over flat variables
//   - [RecordWriter]: delivers produced records to a sink
//   - [Logger]: structured logging abstraction
//
// The core (internal/mapping) depends only on these interfaces. Adapters in
// internal/adapters provide the concrete implementations.
package ports
