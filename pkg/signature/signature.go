// Package signature derives callable function descriptors from the
// operations in a parsed GraphQL document.
//
// Extraction is purely syntactic: it never looks at a schema, so selections
// that do not exist on their parent type are left for the code emitter.
package signature

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vektah/gqlparser/v2/ast"
)

// Parameter is one variable of an operation, exposed as a function argument.
type Parameter struct {
	Name         string
	Type         *ast.Type
	Required     bool
	DefaultValue string
}

// GraphQLType returns the variable's declared type, e.g. "[ID!]!".
func (p Parameter) GraphQLType() string {
	return p.Type.String()
}

// FunctionDescriptor describes the function generated for one operation.
type FunctionDescriptor struct {
	// Name is the exported Go identifier of the function.
	Name          string
	OperationName string
	Kind          ast.Operation
	// Parameters follow the order of the operation's variable definitions.
	Parameters []Parameter
	Operation  *ast.OperationDefinition
}

// FunctionName maps an operation name to the exported identifier of its
// function. Only the first letter changes, so distinct names stay distinct
// unless they differ solely in the case of that letter.
func FunctionName(operationName string) string {
	if operationName == "" {
		return ""
	}
	if strings.HasPrefix(operationName, "_") {
		return "X" + operationName
	}
	runes := []rune(operationName)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Extract returns one descriptor per operation in doc, in document order.
func Extract(doc *ast.QueryDocument) ([]FunctionDescriptor, error) {
	descriptors := make([]FunctionDescriptor, 0, len(doc.Operations))
	seen := make(map[string]*ast.OperationDefinition)

	for _, op := range doc.Operations {
		if op.Name == "" {
			return nil, newAnonymousOperationError(op)
		}

		name := FunctionName(op.Name)
		if first, ok := seen[name]; ok {
			return nil, newNamingConflictError(name, first, op)
		}
		seen[name] = op

		if err := checkFragments(doc, op); err != nil {
			return nil, err
		}

		descriptors = append(descriptors, FunctionDescriptor{
			Name:          name,
			OperationName: op.Name,
			Kind:          op.Operation,
			Parameters:    parameters(op.VariableDefinitions),
			Operation:     op,
		})
	}

	return descriptors, nil
}

func parameters(vars ast.VariableDefinitionList) []Parameter {
	params := make([]Parameter, 0, len(vars))
	for _, v := range vars {
		param := Parameter{
			Name:     v.Variable,
			Type:     v.Type,
			Required: v.Type.NonNull && v.DefaultValue == nil,
		}
		if v.DefaultValue != nil {
			param.DefaultValue = v.DefaultValue.String()
		}
		params = append(params, param)
	}
	return params
}

// checkFragments makes sure every fragment spread reachable from op names a
// fragment defined in the same document.
func checkFragments(doc *ast.QueryDocument, op *ast.OperationDefinition) error {
	visited := make(map[string]bool)

	var walk func(set ast.SelectionSet) error
	walk = func(set ast.SelectionSet) error {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *ast.Field:
				if err := walk(sel.SelectionSet); err != nil {
					return err
				}
			case *ast.InlineFragment:
				if err := walk(sel.SelectionSet); err != nil {
					return err
				}
			case *ast.FragmentSpread:
				if visited[sel.Name] {
					continue
				}
				visited[sel.Name] = true

				frag := doc.Fragments.ForName(sel.Name)
				if frag == nil {
					return &UnknownFragmentError{
						Fragment:  sel.Name,
						Operation: op.Name,
						Line:      line(sel.Position),
					}
				}
				if err := walk(frag.SelectionSet); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return walk(op.SelectionSet)
}

func line(pos *ast.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Line
}

func column(pos *ast.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Column
}

// Describe renders a descriptor as a GraphQL-flavoured signature, e.g.
// "query GetUser(id: ID!, first: Int = 10)".
func Describe(fn FunctionDescriptor) string {
	params := make([]string, len(fn.Parameters))
	for i, p := range fn.Parameters {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.GraphQLType())
		if p.DefaultValue != "" {
			params[i] += " = " + p.DefaultValue
		}
	}
	return fmt.Sprintf("%s %s(%s)", fn.Kind, fn.Name, strings.Join(params, ", "))
}
