package mapping

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/topicmap/internal/adapters/expression"
	"github.com/bft-labs/topicmap/internal/adapters/pathquery"
	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/ports"
)

// recordingLogger keeps every warning for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...ports.Field) {}
func (l *recordingLogger) Info(string, ...ports.Field)  {}
func (l *recordingLogger) Error(string, ...ports.Field) {}

func (l *recordingLogger) Warn(msg string, _ ...ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func mustMapping(t *testing.T, spec domain.MappingSpec) domain.Mapping {
	t.Helper()
	m, err := domain.NewMapping(spec)
	require.NoError(t, err)
	return m
}

func newTestMapper(t *testing.T, logger ports.Logger, specs ...domain.MappingSpec) *Mapper {
	t.Helper()
	defs := make([]domain.Mapping, len(specs))
	for i, s := range specs {
		defs[i] = mustMapping(t, s)
	}
	m, err := New(defs,
		WithLogger(logger),
		WithPathQuery(pathquery.New()),
		WithEvaluator(expression.New()),
	)
	require.NoError(t, err)
	return m
}

func signedSpec(topic, typ string) domain.MappingSpec {
	return domain.MappingSpec{
		Topic: topic, Type: typ,
		MeasurementPositive: "grid", FieldPositive: "import",
		MeasurementNegative: "grid", FieldNegative: "export",
	}
}
