package ports

import "github.com/bft-labs/topicmap/pkg/log"

// Logger is the logging sink consumed by the core.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Err creates an error field.
func Err(err error) Field { return log.Err(err) }

// String creates a string field.
func String(key, value string) Field { return log.String(key, value) }

// Any creates a field with any value.
func Any(key string, value any) Field { return log.Any(key, value) }
