package codegen

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/samwightt/gqlfunc/pkg/signature"
)

const rawMessage = "json.RawMessage"

// maxSelectionDepth bounds nesting so that fragment cycles, which only slip
// through when validation is off, cannot recurse forever.
const maxSelectionDepth = 32

var builtinScalars = map[string]string{
	"ID":      "string",
	"String":  "string",
	"Int":     "int",
	"Float":   "float64",
	"Boolean": "bool",
}

// Identifiers the generated file always declares. Function names are claimed
// first, so these get a numeric suffix when an operation takes one.
const (
	executorName      = "Executor"
	operationsDocName = "OperationsDoc"
	endpointName      = "Endpoint"
)

type structField struct {
	Name string
	Type string
	Tag  string
}

type structDecl struct {
	Name   string
	Doc    string
	Fields []structField
}

type enumConst struct {
	Name  string
	Value string
}

type enumDecl struct {
	Name      string
	Doc       string
	Constants []enumConst
}

type scalarDecl struct {
	Name   string
	Doc    string
	GoType string
}

type functionDecl struct {
	Name          string
	OperationName string
	Kind          ast.Operation
	Variables     string
	Result        string
}

// generator turns descriptors into declarations. Schema-derived
// declarations are sorted by GraphQL name; operation declarations follow
// document order.
type generator struct {
	schema    *ast.Schema
	doc       *ast.QueryDocument
	scalarMap map[string]string
	lenient   bool
	names     *namer
	warnings  []Warning

	executor      string
	operationsDoc string
	endpoint      string

	customScalars map[string]bool
	enums         map[string]bool
	inputs        map[string]bool
	goNames       map[string]string

	scalarDecls []scalarDecl
	enumDecls   []enumDecl
	inputDecls  []structDecl
	opDecls     []*structDecl
	functions   []functionDecl
}

func newGenerator(schema *ast.Schema, doc *ast.QueryDocument, scalars map[string]string, lenient bool) *generator {
	return &generator{
		schema:        schema,
		doc:           doc,
		scalarMap:     scalars,
		lenient:       lenient,
		names:         newNamer(),
		customScalars: make(map[string]bool),
		enums:         make(map[string]bool),
		inputs:        make(map[string]bool),
		goNames:       make(map[string]string),
	}
}

func (g *generator) build(fns []signature.FunctionDescriptor) error {
	ops := make([]*ast.OperationDefinition, len(fns))
	for i, fn := range fns {
		op := g.doc.Operations.ForName(fn.OperationName)
		if op == nil {
			return fmt.Errorf("operation '%s' is not defined in the operations document", fn.OperationName)
		}
		ops[i] = op

		if !g.names.claim(fn.Name) {
			return &signature.NamingConflictError{
				Name:       fn.Name,
				Operations: []string{fn.OperationName},
				Lines:      []int{lineOf(op.Position)},
			}
		}
	}

	g.executor = g.names.unique(executorName)
	g.operationsDoc = g.names.unique(operationsDocName)
	g.endpoint = g.names.unique(endpointName)

	for _, op := range ops {
		for _, v := range op.VariableDefinitions {
			g.scanType(v.Type.Name())
		}
		g.scanSelections(g.rootType(op.Operation), []ast.SelectionSet{op.SelectionSet}, 0)
	}
	g.declareSchemaTypes()

	for i, fn := range fns {
		g.declareOperation(fn, ops[i])
	}
	return nil
}

func (g *generator) rootType(kind ast.Operation) *ast.Definition {
	switch kind {
	case ast.Mutation:
		return g.schema.Mutation
	case ast.Subscription:
		return g.schema.Subscription
	default:
		return g.schema.Query
	}
}

// scanType records the schema types that need a declaration of their own.
func (g *generator) scanType(name string) {
	def := g.schema.Types[name]
	if def == nil {
		return
	}
	switch def.Kind {
	case ast.Scalar:
		if _, ok := builtinScalars[name]; !ok {
			g.customScalars[name] = true
		}
	case ast.Enum:
		g.enums[name] = true
	case ast.InputObject:
		if g.inputs[name] {
			return
		}
		g.inputs[name] = true
		for _, f := range def.Fields {
			g.scanType(f.Type.Name())
		}
	}
}

func (g *generator) scanSelections(parent *ast.Definition, sets []ast.SelectionSet, depth int) {
	if depth > maxSelectionDepth {
		return
	}
	for _, f := range g.collect(parent, sets) {
		if f.def == nil {
			continue
		}
		def := g.schema.Types[f.def.Type.Name()]
		if def == nil {
			continue
		}
		if isComposite(def) {
			g.scanSelections(def, f.sets, depth+1)
		} else {
			g.scanType(def.Name)
		}
	}
}

func (g *generator) declareSchemaTypes() {
	for _, name := range sortedKeys(g.customScalars) {
		goName := g.names.unique(exportName(name))
		g.goNames[name] = goName

		goType := g.mappedScalar(name)
		g.scalarDecls = append(g.scalarDecls, scalarDecl{
			Name:   goName,
			Doc:    describe(goName, "scalar", g.schema.Types[name]),
			GoType: goType,
		})
	}

	for _, name := range sortedKeys(g.enums) {
		def := g.schema.Types[name]
		goName := g.names.unique(exportName(name))
		g.goNames[name] = goName

		decl := enumDecl{Name: goName, Doc: describe(goName, "enum", def)}
		for _, v := range def.EnumValues {
			decl.Constants = append(decl.Constants, enumConst{
				Name:  g.names.unique(goName + exportName(v.Name)),
				Value: v.Name,
			})
		}
		g.enumDecls = append(g.enumDecls, decl)
	}

	// Input names are all allocated before any fields are typed, since
	// inputs refer to each other.
	inputNames := sortedKeys(g.inputs)
	for _, name := range inputNames {
		g.goNames[name] = g.names.unique(exportName(name))
	}
	for _, name := range inputNames {
		def := g.schema.Types[name]
		goName := g.goNames[name]
		decl := structDecl{Name: goName, Doc: describe(goName, "input", def)}
		fieldNames := newNamer()
		for _, f := range def.Fields {
			required := f.Type.NonNull && f.DefaultValue == nil
			decl.Fields = append(decl.Fields, structField{
				Name: fieldNames.unique(exportName(f.Name)),
				Type: g.inputType(f.Type, required),
				Tag:  jsonTag(f.Name, !required),
			})
		}
		g.inputDecls = append(g.inputDecls, decl)
	}
}

func (g *generator) declareOperation(fn signature.FunctionDescriptor, op *ast.OperationDefinition) {
	decl := functionDecl{
		Name:          fn.Name,
		OperationName: fn.OperationName,
		Kind:          fn.Kind,
	}

	if len(fn.Parameters) > 0 {
		decl.Variables = g.names.unique(fn.Name + "Variables")
		vars := &structDecl{
			Name: decl.Variables,
			Doc:  fmt.Sprintf("%s holds the variables of the %s %s.", decl.Variables, fn.OperationName, fn.Kind),
		}
		fieldNames := newNamer()
		for _, p := range fn.Parameters {
			vars.Fields = append(vars.Fields, structField{
				Name: fieldNames.unique(exportName(p.Name)),
				Type: g.inputType(p.Type, p.Required),
				Tag:  jsonTag(p.Name, !p.Required),
			})
		}
		g.opDecls = append(g.opDecls, vars)
	}

	decl.Result = g.names.unique(fn.Name + "Result")
	doc := fmt.Sprintf("%s is the response of the %s %s.", decl.Result, fn.OperationName, fn.Kind)
	g.objectStruct(decl.Result, doc, g.rootType(op.Operation), []ast.SelectionSet{op.SelectionSet}, 0)

	g.functions = append(g.functions, decl)
}

// objectStruct declares a struct for a selection on parent. Nested
// selections are declared right after their parent.
func (g *generator) objectStruct(name, doc string, parent *ast.Definition, sets []ast.SelectionSet, depth int) {
	decl := &structDecl{Name: name, Doc: doc}
	g.opDecls = append(g.opDecls, decl)

	fieldNames := newNamer()
	for _, f := range g.collect(parent, sets) {
		decl.Fields = append(decl.Fields, structField{
			Name: fieldNames.unique(exportName(f.key)),
			Type: g.outputType(name, parent, f, depth),
			Tag:  jsonTag(f.key, false),
		})
	}
}

func (g *generator) outputType(structName string, parent *ast.Definition, f *selectedField, depth int) string {
	if f.name == "__typename" {
		if f.optional {
			return "*string"
		}
		return "string"
	}

	if f.def == nil {
		if g.lenient {
			g.warnings = append(g.warnings, Warning{
				Message: fmt.Sprintf("field '%s' is not defined on type '%s', emitted as json.RawMessage", f.name, typeName(f.on)),
				Rule:    "UnknownField",
				Line:    lineOf(f.pos),
				Column:  columnOf(f.pos),
			})
		}
		return rawMessage
	}

	def := g.schema.Types[f.def.Type.Name()]
	var leaf string
	switch {
	case def == nil:
		leaf = rawMessage
	case isComposite(def):
		if depth >= maxSelectionDepth {
			g.warnings = append(g.warnings, Warning{
				Message: fmt.Sprintf("selection on '%s' nests deeper than %d levels, emitted as json.RawMessage", f.key, maxSelectionDepth),
				Rule:    "SelectionDepth",
				Line:    lineOf(f.pos),
				Column:  columnOf(f.pos),
			})
			leaf = rawMessage
			break
		}
		leaf = g.names.unique(structName + exportName(f.key))
		g.objectStruct(leaf, "", def, f.sets, depth+1)
	default:
		leaf = g.namedType(def.Name)
	}

	goType := wrapOutput(f.def.Type, leaf)
	if f.optional && goType[0] != '*' && goType[0] != '[' && goType != rawMessage {
		goType = "*" + goType
	}
	return goType
}

// mappedScalar looks name up in the scalar mapping. Configuration loaders
// may lowercase keys, so a case-insensitive match is accepted.
func (g *generator) mappedScalar(name string) string {
	if mapped := g.scalarMap[name]; mapped != "" {
		return mapped
	}
	if mapped := g.scalarMap[strings.ToLower(name)]; mapped != "" {
		return mapped
	}
	return rawMessage
}

// namedType maps a leaf or input type name to its Go type.
func (g *generator) namedType(name string) string {
	if goType, ok := builtinScalars[name]; ok {
		return goType
	}
	if goName, ok := g.goNames[name]; ok {
		return goName
	}
	return rawMessage
}

// inputType maps a variable or input field type. Optional values are
// pointers so that they can be left out of the request; an optional list is
// a pointer too, so an empty list is still sent.
func (g *generator) inputType(t *ast.Type, required bool) string {
	if t.Elem != nil {
		list := g.inputList(t)
		if required {
			return list
		}
		return "*" + list
	}
	leaf := g.namedType(t.NamedType)
	if required || leaf == rawMessage {
		return leaf
	}
	return "*" + leaf
}

// inputList maps a list type. Nested lists are plain slices; a nil element
// encodes as null.
func (g *generator) inputList(t *ast.Type) string {
	if t.Elem.Elem != nil {
		return "[]" + g.inputList(t.Elem)
	}
	return "[]" + g.inputType(t.Elem, t.Elem.NonNull)
}

func wrapOutput(t *ast.Type, leaf string) string {
	if t.Elem != nil {
		return "[]" + wrapOutput(t.Elem, leaf)
	}
	if t.NonNull || leaf == rawMessage {
		return leaf
	}
	return "*" + leaf
}

// selectedField is one response key of a selection set after fields,
// inline fragments and fragment spreads have been merged.
type selectedField struct {
	key  string
	name string
	def  *ast.FieldDefinition
	on   *ast.Definition
	pos  *ast.Position
	// optional is set when the field may be absent from the response: it
	// only comes from fragments on a narrower type or carries @skip/@include.
	optional bool
	sets     []ast.SelectionSet
}

func (g *generator) collect(parent *ast.Definition, sets []ast.SelectionSet) []*selectedField {
	var fields []*selectedField
	byKey := make(map[string]*selectedField)
	visiting := make(map[string]bool)

	var walk func(on *ast.Definition, set ast.SelectionSet, optional bool)
	walk = func(on *ast.Definition, set ast.SelectionSet, optional bool) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *ast.Field:
				key := sel.Alias
				if key == "" {
					key = sel.Name
				}
				fieldOptional := optional || conditional(sel.Directives)

				if f, ok := byKey[key]; ok {
					f.optional = f.optional && fieldOptional
					if len(sel.SelectionSet) > 0 {
						f.sets = append(f.sets, sel.SelectionSet)
					}
					continue
				}

				f := &selectedField{
					key:      key,
					name:     sel.Name,
					on:       on,
					pos:      sel.Position,
					optional: fieldOptional,
				}
				if on != nil && sel.Name != "__typename" {
					f.def = on.Fields.ForName(sel.Name)
				}
				if len(sel.SelectionSet) > 0 {
					f.sets = append(f.sets, sel.SelectionSet)
				}
				byKey[key] = f
				fields = append(fields, f)
			case *ast.InlineFragment:
				target, narrowed := g.narrow(on, sel.TypeCondition)
				walk(target, sel.SelectionSet, optional || narrowed || conditional(sel.Directives))
			case *ast.FragmentSpread:
				frag := g.doc.Fragments.ForName(sel.Name)
				if frag == nil || visiting[sel.Name] {
					continue
				}
				visiting[sel.Name] = true
				target, narrowed := g.narrow(on, frag.TypeCondition)
				walk(target, frag.SelectionSet, optional || narrowed || conditional(sel.Directives))
				delete(visiting, sel.Name)
			}
		}
	}

	for _, set := range sets {
		walk(parent, set, false)
	}
	return fields
}

// narrow resolves a fragment's type condition against the type it is spread
// on. narrowed reports whether the fragment may not apply to every value.
func (g *generator) narrow(on *ast.Definition, condition string) (target *ast.Definition, narrowed bool) {
	if condition == "" || (on != nil && condition == on.Name) {
		return on, false
	}
	target = g.schema.Types[condition]
	if on != nil && on.Kind == ast.Object {
		if slices.Contains(on.Interfaces, condition) {
			return on, false
		}
		if target != nil && target.Kind == ast.Union && slices.Contains(target.Types, on.Name) {
			return on, false
		}
	}
	return target, true
}

func conditional(directives ast.DirectiveList) bool {
	return directives.ForName("include") != nil || directives.ForName("skip") != nil
}

func isComposite(def *ast.Definition) bool {
	return def.Kind == ast.Object || def.Kind == ast.Interface || def.Kind == ast.Union
}

func jsonTag(name string, omitEmpty bool) string {
	if omitEmpty {
		return fmt.Sprintf("`json:\"%s,omitempty\"`", name)
	}
	return fmt.Sprintf("`json:\"%s\"`", name)
}

func describe(goName, kind string, def *ast.Definition) string {
	if def == nil {
		return ""
	}
	if def.Description != "" {
		return goName + ": " + def.Description
	}
	return fmt.Sprintf("%s is the %s %s.", goName, def.Name, kind)
}

func typeName(def *ast.Definition) string {
	if def == nil {
		return "<unknown>"
	}
	return def.Name
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lineOf(pos *ast.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Line
}

func columnOf(pos *ast.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Column
}
