// Package log provides the logging abstraction used across topicmap.
//
// The mapping core only ever logs recoverable failures (bad JSON payloads,
// numeric coercion failures, formula evaluation errors) at warn level, so
// anything that satisfies Logger can be plugged in as the sink.
//
// Use the zerolog adapter:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//
// Or discard everything:
//
//	logger := log.NewNoopLogger()
package log
