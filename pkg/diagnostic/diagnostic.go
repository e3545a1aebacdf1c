// Package diagnostic renders problems found in an operations document as
// source snippets with underlines, in the style of compiler errors.
package diagnostic

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

var (
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

func (s Severity) style() lipgloss.Style {
	if s == SeverityWarning {
		return warnStyle
	}
	return errorStyle
}

// Diagnostic is one problem at a position in a source document. Line and
// Column are 1-based; a zero Line means the position is unknown.
type Diagnostic struct {
	Severity Severity
	File     string
	Line     int
	Column   int
	// Length is the number of characters to underline.
	Length  int
	Message string
	Help    string
}

// Render renders the diagnostic against source, the full text of File:
//
//	error: Cannot query field "nme" on type "User".
//	--> operations.graphql:3:9
//	3 | query { nme }
//	  |         ^^^ Cannot query field "nme" on type "User".
//	  = help: did you mean `name`?
func (d Diagnostic) Render(source string) string {
	severity := d.Severity
	if severity == "" {
		severity = SeverityError
	}

	var b strings.Builder
	b.WriteString(severity.style().Render(string(severity)) + ": " + d.Message + "\n")

	if d.Line > 0 {
		b.WriteString(RenderLocation(d.File, d.Line, d.Column) + "\n")
		lines := strings.Split(source, "\n")
		if d.Line <= len(lines) {
			line := strings.TrimRight(lines[d.Line-1], "\r")
			b.WriteString(renderSnippet(line, d.Line, d.Column, d.Length, d.Message, severity.style()) + "\n")
		}
	}
	if d.Help != "" {
		b.WriteString("  " + helpStyle.Render("= help:") + " " + d.Help + "\n")
	}
	return b.String()
}

// RenderSnippet renders a source line with line number, gutter, and underline caret.
// Returns something like:
//
//	3 | query { user }
//	  |         ^^^^ error message here
func RenderSnippet(source string, lineNum int, column int, length int, message string) string {
	return renderSnippet(source, lineNum, column, length, message, errorStyle)
}

func renderSnippet(source string, lineNum, column, length int, message string, style lipgloss.Style) string {
	if length < 1 {
		length = 1
	}
	if column < 1 {
		column = 1
	}

	numStr := strconv.Itoa(lineNum)
	pipe := gutterStyle.Render("|")
	emptyGutter := strings.Repeat(" ", len(numStr))

	codeLine := gutterStyle.Render(numStr) + " " + pipe + " " + source

	// Tabs in the source are kept in the padding so the carets line up.
	padding := make([]rune, 0, column-1)
	for _, r := range source {
		if len(padding) == column-1 {
			break
		}
		if r != '\t' {
			r = ' '
		}
		padding = append(padding, r)
	}
	for len(padding) < column-1 {
		padding = append(padding, ' ')
	}

	underLine := emptyGutter + " " + pipe + " " + string(padding) + style.Render(strings.Repeat("^", length))
	if message != "" {
		underLine += " " + style.Render(message)
	}

	return codeLine + "\n" + underLine
}

// RenderLocation renders a location header like "--> file.graphql:3:9"
func RenderLocation(filename string, line int, column int) string {
	loc := filename + ":" + strconv.Itoa(line) + ":" + strconv.Itoa(column)
	return gutterStyle.Render("-->") + " " + loc
}
