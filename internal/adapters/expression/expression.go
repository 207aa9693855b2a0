// Package expression implements ports.Evaluator with expr-lang/expr.
package expression

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/vm"

	"github.com/bft-labs/topicmap/internal/ports"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved holds words that cannot name a variable: operators, literals and
// builtin functions.
var reserved = func() map[string]struct{} {
	words := map[string]struct{}{}
	for _, w := range []string{
		"true", "false", "nil", "not", "and", "or", "in",
		"matches", "contains", "startsWith", "endsWith", "let", "if", "else",
	} {
		words[w] = struct{}{}
	}
	for _, fn := range builtin.Builtins {
		words[fn.Name] = struct{}{}
	}
	return words
}()

// Evaluator compiles expressions once and runs them against per-message
// variables. It is safe for concurrent use.
type Evaluator struct {
	programs sync.Map // string -> *vm.Program
}

// New creates an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs expression with vars as its environment. Unbound variables
// evaluate to nil, which makes arithmetic on them fail.
func (e *Evaluator) Evaluate(expression string, vars map[string]any) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return out, nil
}

// Check validates every variable name and compiles expression.
func (e *Evaluator) Check(expression string, vars []string) error {
	for _, name := range vars {
		if !identifier.MatchString(name) {
			return &ports.InvalidVariableError{Name: name, Reason: "is not a valid identifier"}
		}
		if _, ok := reserved[name]; ok {
			return &ports.InvalidVariableError{Name: name, Reason: "is a reserved word"}
		}
	}
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	if cached, ok := e.programs.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	e.programs.Store(expression, program)
	return program, nil
}

var _ ports.Evaluator = (*Evaluator)(nil)
