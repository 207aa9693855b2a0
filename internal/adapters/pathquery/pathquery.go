// Package pathquery implements ports.PathQuery with ojg JSONPath.
package pathquery

import (
	"fmt"
	"sync"

	"github.com/ohler55/ojg/jp"

	"github.com/bft-labs/topicmap/internal/ports"
)

// Engine evaluates JSONPath expressions. Parsed expressions are cached, so
// an Engine should be shared across mappings. It is safe for concurrent use.
type Engine struct {
	cache sync.Map // string -> jp.Expr
}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// First returns the first value matched by expr in doc.
func (e *Engine) First(expr string, doc any) (any, bool, error) {
	x, err := e.compile(expr)
	if err != nil {
		return nil, false, err
	}
	matches := x.Get(doc)
	if len(matches) == 0 {
		return nil, false, nil
	}
	return matches[0], true, nil
}

func (e *Engine) compile(expr string) (jp.Expr, error) {
	if cached, ok := e.cache.Load(expr); ok {
		return cached.(jp.Expr), nil
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", expr, err)
	}
	e.cache.Store(expr, x)
	return x, nil
}

var _ ports.PathQuery = (*Engine)(nil)
