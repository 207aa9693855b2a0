package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/topicmap/internal/adapters/expression"
	"github.com/bft-labs/topicmap/internal/adapters/pathquery"
	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/mapping"
	"github.com/bft-labs/topicmap/internal/ports"
)

// mockLogger implements ports.Logger and counts errors.
type mockLogger struct {
	mu     sync.Mutex
	errors int
}

func (*mockLogger) Debug(string, ...ports.Field) {}
func (*mockLogger) Info(string, ...ports.Field)  {}
func (*mockLogger) Warn(string, ...ports.Field)  {}

func (l *mockLogger) Error(string, ...ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
}

func (l *mockLogger) Errors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errors
}

// mockWriter records everything written to it.
type mockWriter struct {
	mu      sync.Mutex
	topics  []string
	records []domain.Record
	flushes int
	failOn  string
}

func (w *mockWriter) Write(topic string, records []domain.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if topic == w.failOn {
		return errors.New("sink unavailable")
	}
	w.topics = append(w.topics, topic)
	w.records = append(w.records, records...)
	return nil
}

func (w *mockWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
	return nil
}

func (w *mockWriter) Records() []domain.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Record(nil), w.records...)
}

// mockObserver records observed outcomes.
type mockObserver struct {
	mu      sync.Mutex
	topics  []string
	results []string
	reloads []bool
}

func (o *mockObserver) ObserveMessage(topic string, result string, _ []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.topics = append(o.topics, topic)
	o.results = append(o.results, result)
}

func (o *mockObserver) ObserveReload(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reloads = append(o.reloads, ok)
}

func (o *mockObserver) Reloads() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.reloads...)
}

func buildMapper(mappings []domain.Mapping) (*mapping.Mapper, error) {
	return mapping.New(mappings,
		mapping.WithPathQuery(pathquery.New()),
		mapping.WithEvaluator(expression.New()),
	)
}

func testMapper(t *testing.T, specs ...domain.MappingSpec) *mapping.Mapper {
	t.Helper()
	defs := make([]domain.Mapping, len(specs))
	for i, s := range specs {
		m, err := domain.NewMapping(s)
		require.NoError(t, err)
		defs[i] = m
	}
	m, err := buildMapper(defs)
	require.NoError(t, err)
	return m
}
