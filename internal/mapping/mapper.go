package mapping

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/ports"
	"github.com/bft-labs/topicmap/pkg/log"
)

// binding is a mapping together with what was compiled for it at build time.
type binding struct {
	def     domain.Mapping
	formula *formula
}

// Mapper resolves messages into records according to a fixed set of mappings.
type Mapper struct {
	bindings  []*binding
	byTopic   map[string][]*binding
	topics    []string
	logger    ports.Logger
	paths     ports.PathQuery
	evaluator ports.Evaluator
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the sink for recoverable failures. Defaults to a no-op logger.
func WithLogger(logger ports.Logger) Option {
	return func(m *Mapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPathQuery sets the engine used by json_path sources and path placeholders.
func WithPathQuery(q ports.PathQuery) Option {
	return func(m *Mapper) { m.paths = q }
}

// WithEvaluator sets the evaluator used by json_formula sources.
func WithEvaluator(e ports.Evaluator) Option {
	return func(m *Mapper) { m.evaluator = e }
}

// New indexes mappings by topic, compiles formulas and precomputes the topic
// list. It fails if a formula has colliding placeholders or if a mapping
// needs a collaborator that was not provided.
func New(mappings []domain.Mapping, opts ...Option) (*Mapper, error) {
	m := &Mapper{
		byTopic: make(map[string][]*binding),
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	var errs []error
	for i, def := range mappings {
		b := &binding{def: def}
		if err := m.prepare(b); err != nil {
			errs = append(errs, fmt.Errorf("mapping %d (topic %q): %w", i, def.Topic, err))
			continue
		}
		m.bindings = append(m.bindings, b)
		m.byTopic[def.Topic] = append(m.byTopic[def.Topic], b)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	m.topics = make([]string, 0, len(m.byTopic))
	for topic := range m.byTopic {
		m.topics = append(m.topics, topic)
	}
	slices.Sort(m.topics)
	return m, nil
}

func (m *Mapper) prepare(b *binding) error {
	switch b.def.Source.Kind {
	case domain.SourceFormula:
		if m.evaluator == nil {
			return fmt.Errorf("%w: json_formula needs an evaluator", domain.ErrInvalidMapping)
		}
		f, err := compileFormula(b.def.Source.Expr)
		if err != nil {
			return err
		}
		if m.paths == nil && slices.ContainsFunc(f.vars, func(v variable) bool { return v.path }) {
			return fmt.Errorf("%w: path placeholders need a path query engine", domain.ErrInvalidMapping)
		}
		if err := m.checkFormula(f); err != nil {
			return err
		}
		b.formula = f
	case domain.SourcePath:
		if m.paths == nil {
			return fmt.Errorf("%w: json_path needs a path query engine", domain.ErrInvalidMapping)
		}
	}
	return nil
}

// checkFormula lets the evaluator reject the rewritten expression before any
// message arrives.
func (m *Mapper) checkFormula(f *formula) error {
	names := make([]string, len(f.vars))
	for i, v := range f.vars {
		names[i] = v.name
	}
	err := m.evaluator.Check(f.expression, names)
	if err == nil {
		return nil
	}
	var invalid *ports.InvalidVariableError
	if errors.As(err, &invalid) {
		for _, v := range f.vars {
			if v.name == invalid.Name {
				return fmt.Errorf("%w: placeholder {%s} becomes %q, which %s", domain.ErrInvalidMapping, v.token, v.name, invalid.Reason)
			}
		}
	}
	return fmt.Errorf("%w: formula %q: %v", domain.ErrInvalidMapping, f.expression, err)
}

// Topics returns the distinct topics of all mappings, sorted. The returned
// slice must not be modified.
func (m *Mapper) Topics() []string {
	return m.topics
}

// HasTopic reports whether any mapping is registered for topic.
func (m *Mapper) HasTopic(topic string) bool {
	_, ok := m.byTopic[topic]
	return ok
}

// Definitions returns the mappings registered for topic in configuration order.
func (m *Mapper) Definitions(topic string) []domain.Mapping {
	bs := m.byTopic[topic]
	defs := make([]domain.Mapping, len(bs))
	for i, b := range bs {
		defs[i] = b.def
	}
	return defs
}

// Describe summarizes the mappings of topic, joined with ", ".
// It returns "" for a topic without mappings.
func (m *Mapper) Describe(topic string) string {
	bs := m.byTopic[topic]
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = b.def.Describe()
	}
	return strings.Join(parts, ", ")
}

// Resolve maps one message to records.
//
// An empty payload yields no records and no error, whatever the topic.
// ErrUnknownTopic is returned for topics without mappings and
// ErrInvalidMessageType when a JSON-based mapping receives binary data.
// Every other failure only drops the affected mapping's records.
func (m *Mapper) Resolve(topic string, payload []byte) ([]domain.Record, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	bs, ok := m.byTopic[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTopic, topic)
	}

	var out []domain.Record
	for _, b := range bs {
		raw, err := m.resolveRaw(topic, payload, b)
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", topic, err)
		}
		value, _ := coerce(raw, b.def.Type, m.logger, m.fields(topic, b.def)...)
		for _, rec := range shape(b.def, value) {
			if rec.Present() {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (m *Mapper) resolveRaw(topic string, payload []byte, b *binding) (any, error) {
	var (
		raw any
		err error
	)
	switch b.def.Source.Kind {
	case domain.SourceMessage:
		return string(payload), nil
	case domain.SourceFormula:
		raw, _, err = m.evaluate(payload, b.formula, m.fields(topic, b.def))
	default:
		raw, _, err = m.extract(payload, b.def, m.fields(topic, b.def))
	}
	return raw, err
}

func (m *Mapper) fields(topic string, def domain.Mapping) []ports.Field {
	return []ports.Field{
		ports.String("topic", topic),
		ports.String("mapping", def.Describe()),
		ports.String("source", def.Source.Kind.String()),
	}
}
