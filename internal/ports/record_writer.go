package ports

import "github.com/bft-labs/topicmap/internal/domain"

// RecordWriter delivers records produced for one message.
type RecordWriter interface {
	Write(topic string, records []domain.Record) error
	// Flush pushes any buffered output.
	Flush() error
}
