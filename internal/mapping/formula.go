package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/ports"
)

var (
	placeholderPattern = regexp.MustCompile(`\{[^{}]+\}`)
	identifierUnsafe   = regexp.MustCompile(`[^0-9a-zA-Z]`)
)

// pathPrefix marks a placeholder as a path query rather than a key.
const pathPrefix = "$."

type variable struct {
	token string // placeholder text without braces
	name  string // identifier used in the rewritten expression
	path  bool
}

// formula is a template compiled into an expression over plain identifiers.
type formula struct {
	expression string
	vars       []variable
}

// variableName turns a placeholder token into an identifier: every character
// outside [0-9a-zA-Z] becomes '_'.
func variableName(token string) string {
	return identifierUnsafe.ReplaceAllString(token, "_")
}

// compileFormula rewrites every {token} in template to its identifier.
// Distinct tokens that share an identifier are rejected.
func compileFormula(template string) (*formula, error) {
	f := &formula{expression: template}
	owner := make(map[string]string)

	for _, match := range placeholderPattern.FindAllString(template, -1) {
		token := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		name := variableName(token)

		if prev, seen := owner[name]; seen {
			if prev != token {
				return nil, fmt.Errorf("%w: {%s} and {%s} both become %q", domain.ErrVariableCollision, prev, token, name)
			}
			continue
		}
		owner[name] = token
		f.vars = append(f.vars, variable{
			token: token,
			name:  name,
			path:  strings.HasPrefix(token, pathPrefix),
		})
		f.expression = strings.ReplaceAll(f.expression, match, name)
	}
	return f, nil
}

// bind resolves every variable of f against doc. Unresolved variables are
// bound to nil.
func (m *Mapper) bind(f *formula, doc any, fields []ports.Field) map[string]any {
	vars := make(map[string]any, len(f.vars))
	for _, v := range f.vars {
		var value any
		if v.path {
			value, _ = m.lookupPath(v.token, doc, fields)
		} else {
			value, _ = lookupKey(v.token, doc)
		}
		vars[v.name] = value
	}
	return vars
}

// evaluate resolves a json_formula source.
func (m *Mapper) evaluate(payload []byte, f *formula, fields []ports.Field) (any, bool, error) {
	doc, ok, err := m.parseDocument(payload, fields)
	if err != nil || !ok {
		return nil, false, err
	}

	out, err := m.evaluator.Evaluate(f.expression, m.bind(f, doc, fields))
	if err != nil {
		m.logger.Warn("formula evaluation failed", append(fields, ports.String("formula", f.expression), ports.Err(err))...)
		return nil, false, nil
	}
	return out, out != nil, nil
}
