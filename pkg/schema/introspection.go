package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Introspection is the "__schema" part of an introspection query result.
type Introspection struct {
	QueryType        *NamedTypeRef   `json:"queryType"`
	MutationType     *NamedTypeRef   `json:"mutationType"`
	SubscriptionType *NamedTypeRef   `json:"subscriptionType"`
	Types            []FullType      `json:"types"`
	Directives       []DirectiveType `json:"directives"`
}

type NamedTypeRef struct {
	Name string `json:"name"`
}

type FullType struct {
	Kind          string       `json:"kind"`
	Name          string       `json:"name"`
	Description   *string      `json:"description"`
	Fields        []Field      `json:"fields"`
	InputFields   []InputValue `json:"inputFields"`
	Interfaces    []TypeRef    `json:"interfaces"`
	EnumValues    []EnumValue  `json:"enumValues"`
	PossibleTypes []TypeRef    `json:"possibleTypes"`
}

type Field struct {
	Name              string       `json:"name"`
	Description       *string      `json:"description"`
	Args              []InputValue `json:"args"`
	Type              TypeRef      `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason *string      `json:"deprecationReason"`
}

type InputValue struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Type         TypeRef `json:"type"`
	DefaultValue *string `json:"defaultValue"`
}

type TypeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *TypeRef `json:"ofType"`
}

type EnumValue struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason"`
}

type DirectiveType struct {
	Name         string       `json:"name"`
	Description  *string      `json:"description"`
	Locations    []string     `json:"locations"`
	Args         []InputValue `json:"args"`
	IsRepeatable bool         `json:"isRepeatable"`
}

// introspectionResponse accepts both {"data":{"__schema":…}} and a bare
// {"__schema":…} body.
type introspectionResponse struct {
	Data *struct {
		Schema *Introspection `json:"__schema"`
	} `json:"data"`
	Schema *Introspection `json:"__schema"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

var builtinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

var builtinDirectives = map[string]bool{
	"skip":        true,
	"include":     true,
	"deprecated":  true,
	"specifiedBy": true,
	"oneOf":       true,
	"defer":       true,
}

// IntrospectionToSDL converts an introspection result into SDL that
// gqlparser can load. Built-in scalars, introspection types and built-in
// directives are left out since the parser provides its own.
func IntrospectionToSDL(body []byte) (string, error) {
	var resp introspectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("malformed introspection response: %w", err)
	}
	if len(resp.Errors) > 0 {
		messages := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			messages[i] = e.Message
		}
		return "", fmt.Errorf("schema service returned errors: %s", strings.Join(messages, "; "))
	}

	introspection := resp.Schema
	if resp.Data != nil && resp.Data.Schema != nil {
		introspection = resp.Data.Schema
	}
	if introspection == nil {
		return "", errors.New("malformed introspection response: missing __schema")
	}

	doc, err := introspection.SchemaDocument()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String(), nil
}

// SchemaDocument converts the introspection result into an SDL document.
func (in *Introspection) SchemaDocument() (*ast.SchemaDocument, error) {
	doc := &ast.SchemaDocument{}

	types := append([]FullType(nil), in.Types...)
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	for _, t := range types {
		if strings.HasPrefix(t.Name, "__") || builtinScalars[t.Name] {
			continue
		}
		def, err := t.definition()
		if err != nil {
			return nil, err
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	for _, d := range in.Directives {
		if builtinDirectives[d.Name] {
			continue
		}
		directive := &ast.DirectiveDefinition{
			Name:         d.Name,
			Description:  deref(d.Description),
			IsRepeatable: d.IsRepeatable,
		}
		for _, loc := range d.Locations {
			directive.Locations = append(directive.Locations, ast.DirectiveLocation(loc))
		}
		args, err := argumentDefinitions(d.Args)
		if err != nil {
			return nil, err
		}
		directive.Arguments = args
		doc.Directives = append(doc.Directives, directive)
	}

	if in.QueryType == nil || in.QueryType.Name == "" {
		return nil, errors.New("malformed introspection response: missing query type")
	}
	schemaDef := &ast.SchemaDefinition{}
	schemaDef.OperationTypes = append(schemaDef.OperationTypes, &ast.OperationTypeDefinition{Operation: ast.Query, Type: in.QueryType.Name})
	if in.MutationType != nil && in.MutationType.Name != "" {
		schemaDef.OperationTypes = append(schemaDef.OperationTypes, &ast.OperationTypeDefinition{Operation: ast.Mutation, Type: in.MutationType.Name})
	}
	if in.SubscriptionType != nil && in.SubscriptionType.Name != "" {
		schemaDef.OperationTypes = append(schemaDef.OperationTypes, &ast.OperationTypeDefinition{Operation: ast.Subscription, Type: in.SubscriptionType.Name})
	}
	doc.Schema = append(doc.Schema, schemaDef)

	return doc, nil
}

func (t FullType) definition() (*ast.Definition, error) {
	def := &ast.Definition{
		Kind:        ast.DefinitionKind(t.Kind),
		Name:        t.Name,
		Description: deref(t.Description),
	}

	switch def.Kind {
	case ast.Scalar:
	case ast.Object, ast.Interface:
		for _, iface := range t.Interfaces {
			def.Interfaces = append(def.Interfaces, deref(iface.Name))
		}
		for _, f := range t.Fields {
			typ, err := f.Type.astType()
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name, f.Name, err)
			}
			args, err := argumentDefinitions(f.Args)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name, f.Name, err)
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        f.Name,
				Description: deref(f.Description),
				Arguments:   args,
				Type:        typ,
				Directives:  deprecated(f.IsDeprecated, f.DeprecationReason),
			})
		}
	case ast.Union:
		for _, member := range t.PossibleTypes {
			def.Types = append(def.Types, deref(member.Name))
		}
	case ast.Enum:
		for _, v := range t.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Name,
				Description: deref(v.Description),
				Directives:  deprecated(v.IsDeprecated, v.DeprecationReason),
			})
		}
	case ast.InputObject:
		for _, f := range t.InputFields {
			typ, err := f.Type.astType()
			if err != nil {
				return nil, fmt.Errorf("input field %s.%s: %w", t.Name, f.Name, err)
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         f.Name,
				Description:  deref(f.Description),
				Type:         typ,
				DefaultValue: rawValue(f.DefaultValue),
			})
		}
	default:
		return nil, fmt.Errorf("type %s has unknown kind %q", t.Name, t.Kind)
	}

	return def, nil
}

func argumentDefinitions(values []InputValue) (ast.ArgumentDefinitionList, error) {
	var args ast.ArgumentDefinitionList
	for _, v := range values {
		typ, err := v.Type.astType()
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", v.Name, err)
		}
		args = append(args, &ast.ArgumentDefinition{
			Name:         v.Name,
			Description:  deref(v.Description),
			Type:         typ,
			DefaultValue: rawValue(v.DefaultValue),
		})
	}
	return args, nil
}

func (r TypeRef) astType() (*ast.Type, error) {
	switch r.Kind {
	case "NON_NULL":
		if r.OfType == nil {
			return nil, errors.New("NON_NULL type without ofType")
		}
		inner, err := r.OfType.astType()
		if err != nil {
			return nil, err
		}
		inner.NonNull = true
		return inner, nil
	case "LIST":
		if r.OfType == nil {
			return nil, errors.New("LIST type without ofType")
		}
		inner, err := r.OfType.astType()
		if err != nil {
			return nil, err
		}
		return &ast.Type{Elem: inner}, nil
	default:
		if r.Name == nil || *r.Name == "" {
			return nil, fmt.Errorf("%s type reference without a name", r.Kind)
		}
		return &ast.Type{NamedType: *r.Name}, nil
	}
}

// rawValue carries a default value literal through to the formatter
// unchanged. Introspection already encodes defaults as GraphQL literals, and
// enum values are printed without quoting.
func rawValue(literal *string) *ast.Value {
	if literal == nil {
		return nil
	}
	return &ast.Value{Kind: ast.EnumValue, Raw: *literal}
}

func deprecated(isDeprecated bool, reason *string) ast.DirectiveList {
	if !isDeprecated {
		return nil
	}
	directive := &ast.Directive{Name: "deprecated"}
	if reason != nil {
		directive.Arguments = ast.ArgumentList{{
			Name:  "reason",
			Value: &ast.Value{Kind: ast.StringValue, Raw: *reason},
		}}
	}
	return ast.DirectiveList{directive}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
