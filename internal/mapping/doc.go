// Package mapping turns topic-addressed messages into time-series records.
//
// A Mapper indexes mapping definitions by topic. For each definition that
// matches a message it resolves a raw value (the whole payload, a JSON key, a
// JSON path or a formula), coerces it to the declared type and shapes it into
// one record, or two for the signed layout. Definitions whose value cannot be
// resolved are logged and skipped; they never abort the other definitions.
//
// A Mapper is immutable after New and safe for concurrent use.
package mapping
