package ports

import "fmt"

// Evaluator evaluates arithmetic expressions.
type Evaluator interface {
	// Evaluate computes expression with the given variable bindings.
	// Variables bound to nil are absent.
	Evaluate(expression string, vars map[string]any) (any, error)

	// Check reports whether expression can be evaluated with vars as its
	// variables. A variable name the grammar cannot bind is reported as an
	// *InvalidVariableError.
	Check(expression string, vars []string) error
}

// InvalidVariableError names a variable an Evaluator cannot bind.
type InvalidVariableError struct {
	Name   string
	Reason string
}

func (e *InvalidVariableError) Error() string {
	return fmt.Sprintf("variable %q %s", e.Name, e.Reason)
}
