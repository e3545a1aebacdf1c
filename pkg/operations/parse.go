package operations

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// SyntaxError is returned when the operations text is not valid GraphQL.
type SyntaxError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// Parse parses operations text with the standard GraphQL grammar. It does not
// look at any schema.
func Parse(name, text string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: text})
	if err != nil {
		syntaxErr := &SyntaxError{File: name, Message: err.Error()}

		var gqlErr *gqlerror.Error
		if errors.As(err, &gqlErr) {
			syntaxErr.Message = gqlErr.Message
			if len(gqlErr.Locations) > 0 {
				syntaxErr.Line = gqlErr.Locations[0].Line
				syntaxErr.Column = gqlErr.Locations[0].Column
			}
		}
		return nil, syntaxErr
	}
	return doc, nil
}

// Parse parses the document's Source.
func (d *Document) Parse() (*ast.QueryDocument, error) {
	return Parse(d.Name, d.Source)
}
