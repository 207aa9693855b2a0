package app

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/topicmap/internal/domain"
)

func newTestPipeline(t *testing.T, cfg PipelineConfig, w *mockWriter, l *mockLogger, o Observer) *Pipeline {
	t.Helper()
	m := testMapper(t,
		domain.MappingSpec{Topic: "sensors/temp", Type: "float", JSONKey: "t", Measurement: "climate", Field: "temperature"},
		domain.MappingSpec{
			Topic: "meter", Type: "integer", JSONFormula: "{$.l1} + {$.l2}",
			MeasurementPositive: "grid", FieldPositive: "import",
			MeasurementNegative: "grid", FieldNegative: "export",
		},
		domain.MappingSpec{Topic: "door", Type: "boolean", Measurement: "door", Field: "open"},
	)
	return NewPipeline(cfg, m, w, l, o)
}

func TestPipeline_Run(t *testing.T) {
	w := &mockWriter{}
	l := &mockLogger{}
	o := &mockObserver{}
	p := newTestPipeline(t, PipelineConfig{Separator: " "}, w, l, o)

	input := strings.Join([]string{
		`sensors/temp {"t": "21.5"}`,
		``,
		`meter {"l1": -300, "l2": 100}`,
		`door on`,
		`door`,
		`unknown/topic 1`,
		`sensors/temp {not json`,
	}, "\n")

	require.NoError(t, p.Run(context.Background(), strings.NewReader(input)))

	assert.Equal(t, []domain.Record{
		{Measurement: "climate", Field: "temperature", Value: 21.5},
		{Measurement: "grid", Field: "import", Value: int64(0)},
		{Measurement: "grid", Field: "export", Value: int64(200)},
		{Measurement: "door", Field: "open", Value: true},
	}, w.Records())
	assert.Equal(t, 1, w.flushes)
	assert.Equal(t, 1, l.Errors())

	assert.Equal(t, Stats{Messages: 6, Records: 4, Empty: 2, Errors: 1}, p.Stats())
	assert.Equal(t, []string{ResultMapped, ResultMapped, ResultMapped, ResultEmpty, ResultError, ResultEmpty}, o.results)
}

func TestPipeline_UnknownTopicsShareOneLabel(t *testing.T) {
	o := &mockObserver{}
	p := newTestPipeline(t, PipelineConfig{}, &mockWriter{}, &mockLogger{}, o)

	input := "junk/1 x\njunk/2 y\njunk/3\ndoor on\n"
	require.NoError(t, p.Run(context.Background(), strings.NewReader(input)))

	assert.Equal(t, []string{UnknownTopic, UnknownTopic, UnknownTopic, "door"}, o.topics)
	assert.Equal(t, []string{ResultError, ResultError, ResultEmpty, ResultMapped}, o.results)
}

func TestPipeline_StrictStopsOnUnknownTopic(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(t, PipelineConfig{Separator: " ", Strict: true}, w, &mockLogger{}, nil)

	err := p.Run(context.Background(), strings.NewReader("nope 1\ndoor on\n"))
	require.ErrorIs(t, err, domain.ErrUnknownTopic)
	assert.Empty(t, w.Records())
	assert.Equal(t, 1, w.flushes)
}

func TestPipeline_CustomSeparator(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(t, PipelineConfig{Separator: "\t"}, w, &mockLogger{}, nil)

	require.NoError(t, p.Run(context.Background(), strings.NewReader("sensors/temp\t{\"t\": 3}\n")))
	assert.Equal(t, []domain.Record{{Measurement: "climate", Field: "temperature", Value: 3.0}}, w.Records())
}

func TestPipeline_WriterFailure(t *testing.T) {
	w := &mockWriter{failOn: "door"}
	p := newTestPipeline(t, PipelineConfig{}, w, &mockLogger{}, nil)

	err := p.Run(context.Background(), strings.NewReader("door on\n"))
	assert.ErrorContains(t, err, "sink unavailable")
}

func TestPipeline_CanceledContext(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(t, PipelineConfig{}, w, &mockLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, strings.NewReader("door on\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, w.Records())
}

// stalledReader never returns from Read until release is closed.
type stalledReader struct {
	release chan struct{}
}

func (r stalledReader) Read([]byte) (int, error) {
	<-r.release
	return 0, io.EOF
}

func runAsync(ctx context.Context, p *Pipeline, r io.Reader) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx, r) }()
	return errCh
}

func TestPipeline_CancelWhilePipeIsIdle(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(t, PipelineConfig{}, w, &mockLogger{}, nil)

	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := runAsync(ctx, p, pr)
	_, err := io.WriteString(pw, "door on\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(w.Records()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancel")
	}
	assert.Equal(t, uint64(1), p.Stats().Messages)
}

func TestPipeline_CancelWhileReaderStalls(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(t, PipelineConfig{}, w, &mockLogger{}, nil)

	r := stalledReader{release: make(chan struct{})}
	defer close(r.release)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := runAsync(ctx, p, r)
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancel")
	}
	assert.Empty(t, w.Records())
}

func TestPipeline_SetMapper(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(t, PipelineConfig{}, w, &mockLogger{}, nil)

	p.SetMapper(testMapper(t, domain.MappingSpec{Topic: "door", Type: "string", Measurement: "door", Field: "state"}))
	require.NoError(t, p.Process("door on"))

	assert.Equal(t, []domain.Record{{Measurement: "door", Field: "state", Value: "on"}}, w.Records())
}
