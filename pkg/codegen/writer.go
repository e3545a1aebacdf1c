package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const header = "// Code generated by gqlfunc. DO NOT EDIT.\n"

func (g *generator) write(pkg, endpoint, operationsText string) []byte {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		fmt.Fprintf(&buf, format, args...)
	}

	w("%s\npackage %s\n\n", header, pkg)
	w("import (\n\t\"context\"\n\t\"encoding/json\"\n)\n\n")

	w("// %s is the GraphQL document every function in this package sends.\n", g.operationsDoc)
	w("const %s = %s\n\n", g.operationsDoc, goString(operationsText))

	w("// %s is the GraphQL endpoint operations are sent to.\n", g.endpoint)
	w("const %s = %s\n\n", g.endpoint, strconv.Quote(endpoint))

	w("// %s sends one operation of %s and returns the data member\n", g.executor, g.operationsDoc)
	w("// of the response.\n")
	w("type %s interface {\n", g.executor)
	w("\tExecute(ctx context.Context, endpoint, document, operationName string, variables any) (json.RawMessage, error)\n")
	w("}\n")

	for _, s := range g.scalarDecls {
		w("\n")
		writeComment(&buf, s.Doc)
		w("type %s = %s\n", s.Name, s.GoType)
	}

	for _, e := range g.enumDecls {
		w("\n")
		writeComment(&buf, e.Doc)
		w("type %s string\n", e.Name)
		if len(e.Constants) > 0 {
			w("\nconst (\n")
			for _, c := range e.Constants {
				w("\t%s %s = %s\n", c.Name, e.Name, strconv.Quote(c.Value))
			}
			w(")\n")
		}
	}

	for i := range g.inputDecls {
		writeStruct(&buf, &g.inputDecls[i])
	}
	for _, s := range g.opDecls {
		writeStruct(&buf, s)
	}

	for _, fn := range g.functions {
		w("\n// %s executes the %s %s.\n", fn.Name, fn.OperationName, fn.Kind)
		vars := "nil"
		if fn.Variables != "" {
			w("func %s(ctx context.Context, client %s, vars %s) (*%s, error) {\n", fn.Name, g.executor, fn.Variables, fn.Result)
			vars = "vars"
		} else {
			w("func %s(ctx context.Context, client %s) (*%s, error) {\n", fn.Name, g.executor, fn.Result)
		}
		w("\tdata, err := client.Execute(ctx, %s, %s, %s, %s)\n", g.endpoint, g.operationsDoc, strconv.Quote(fn.OperationName), vars)
		w("\tif err != nil {\n\t\treturn nil, err\n\t}\n\n")
		w("\tvar result %s\n", fn.Result)
		w("\tif err := json.Unmarshal(data, &result); err != nil {\n\t\treturn nil, err\n\t}\n")
		w("\treturn &result, nil\n}\n")
	}

	return buf.Bytes()
}

func writeStruct(buf *bytes.Buffer, s *structDecl) {
	buf.WriteString("\n")
	writeComment(buf, s.Doc)
	if len(s.Fields) == 0 {
		fmt.Fprintf(buf, "type %s struct{}\n", s.Name)
		return
	}
	fmt.Fprintf(buf, "type %s struct {\n", s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(buf, "\t%s %s %s\n", f.Name, f.Type, f.Tag)
	}
	buf.WriteString("}\n")
}

func writeComment(buf *bytes.Buffer, text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			buf.WriteString("//\n")
			continue
		}
		buf.WriteString("// " + line + "\n")
	}
}

// goString renders s as a Go string literal, preferring a raw literal so the
// embedded document stays readable.
func goString(s string) string {
	if !utf8.ValidString(s) || strings.ContainsAny(s, "`\r\x00\ufeff") {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}
