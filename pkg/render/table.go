package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var tableStyle = lipgloss.NewStyle().PaddingRight(1)

// NewTable returns the table used by pretty output, with headers set.
func NewTable(headers ...string) *table.Table {
	return table.New().
		Width(120).
		Wrap(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			return tableStyle
		}).
		Headers(headers...)
}
