package signature

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// AnonymousOperationError is returned for an operation without a name, which
// cannot be exposed as a function.
type AnonymousOperationError struct {
	Kind   ast.Operation
	Line   int
	Column int
}

func newAnonymousOperationError(op *ast.OperationDefinition) *AnonymousOperationError {
	return &AnonymousOperationError{
		Kind:   op.Operation,
		Line:   line(op.Position),
		Column: column(op.Position),
	}
}

func (e *AnonymousOperationError) Error() string {
	return fmt.Sprintf("anonymous %s at line %d cannot be exposed as a function, give it a name", e.Kind, e.Line)
}

// NamingConflictError is returned when two operations map to the same
// function name.
type NamingConflictError struct {
	Name string
	// Operations holds the conflicting operation names in document order.
	Operations []string
	Lines      []int
}

func newNamingConflictError(name string, first, second *ast.OperationDefinition) *NamingConflictError {
	return &NamingConflictError{
		Name:       name,
		Operations: []string{first.Name, second.Name},
		Lines:      []int{line(first.Position), line(second.Position)},
	}
}

func (e *NamingConflictError) Error() string {
	if len(e.Operations) == 2 && len(e.Lines) == 2 {
		return fmt.Sprintf("operation '%s' (line %d) and operation '%s' (line %d) both generate function '%s'",
			e.Operations[0], e.Lines[0], e.Operations[1], e.Lines[1], e.Name)
	}
	return fmt.Sprintf("more than one declaration is named '%s'", e.Name)
}

// UnknownFragmentError is returned when an operation spreads a fragment that
// the document does not define.
type UnknownFragmentError struct {
	Fragment  string
	Operation string
	Line      int
}

func (e *UnknownFragmentError) Error() string {
	return fmt.Sprintf("operation '%s' uses undefined fragment '%s' (line %d)", e.Operation, e.Fragment, e.Line)
}
