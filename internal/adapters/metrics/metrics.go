// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/topicmap/internal/ports"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	messages *prometheus.CounterVec
	records  *prometheus.CounterVec
	warnings prometheus.Counter
	reloads  *prometheus.CounterVec
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicmap",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is useful in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messages: newCounterVec("messages_total", "Messages processed, by topic and result.", []string{"topic", "result"}),
		records:  newCounterVec("records_total", "Records produced, by measurement.", []string{"measurement"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topicmap",
			Name:      "warnings_total",
			Help:      "Recoverable mapping failures (bad JSON, failed coercion, failed formula).",
		}),
		reloads: newCounterVec("config_reloads_total", "Configuration reload attempts, by result.", []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.messages, m.records, m.warnings, m.reloads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveMessage counts one message and the records it produced.
func (m *Metrics) ObserveMessage(topic, result string, measurements []string) {
	m.messages.WithLabelValues(topic, result).Inc()
	for _, name := range measurements {
		m.records.WithLabelValues(name).Inc()
	}
}

// ObserveReload counts a configuration reload.
func (m *Metrics) ObserveReload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// CountingLogger wraps next and counts every warning.
func (m *Metrics) CountingLogger(next ports.Logger) ports.Logger {
	return &countingLogger{Logger: next, warnings: m.warnings}
}

type countingLogger struct {
	ports.Logger
	warnings prometheus.Counter
}

func (c *countingLogger) Warn(msg string, fields ...ports.Field) {
	c.warnings.Inc()
	c.Logger.Warn(msg, fields...)
}
