package mapping

import (
	"fmt"
	"unicode/utf8"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/jsoncodec"
	"github.com/bft-labs/topicmap/internal/ports"
)

// parseDocument decodes payload for a JSON-based source. A non-text payload
// is a caller error; malformed JSON is logged and reported as absent.
func (m *Mapper) parseDocument(payload []byte, fields []ports.Field) (any, bool, error) {
	if !utf8.Valid(payload) {
		return nil, false, fmt.Errorf("%w: %d bytes of binary payload", domain.ErrInvalidMessageType, len(payload))
	}
	doc, err := jsoncodec.Parse(payload)
	if err != nil {
		m.logger.Warn("invalid json payload", append(fields, ports.Err(err))...)
		return nil, false, nil
	}
	return doc, true, nil
}

// extract resolves a json_key or json_path source.
func (m *Mapper) extract(payload []byte, def domain.Mapping, fields []ports.Field) (any, bool, error) {
	doc, ok, err := m.parseDocument(payload, fields)
	if err != nil || !ok {
		return nil, false, err
	}

	switch def.Source.Kind {
	case domain.SourcePath:
		v, ok := m.lookupPath(def.Source.Expr, doc, fields)
		return v, ok, nil
	case domain.SourceKey:
		v, ok := lookupKey(def.Source.Expr, doc)
		return v, ok, nil
	default:
		return nil, false, nil
	}
}

func (m *Mapper) lookupPath(expr string, doc any, fields []ports.Field) (any, bool) {
	v, ok, err := m.paths.First(expr, doc)
	if err != nil {
		m.logger.Warn("path query failed", append(fields, ports.String("path", expr), ports.Err(err))...)
		return nil, false
	}
	return v, ok && v != nil
}

func lookupKey(key string, doc any) (any, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	return v, ok && v != nil
}
