// Package termui renders the plain tables printed by the command-line tools.
package termui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a static table: a header row, a divider and data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w. Colors follow what w supports, so pipes and
// files get plain text.
func (t *Table) Render(w io.Writer) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).PaddingRight(2)
	cell := r.NewStyle().PaddingRight(2)
	muted := r.NewStyle().Foreground(lipgloss.Color("241"))

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}
	total := 0
	for i := range widths {
		widths[i] += 2 // padding
		total += widths[i]
	}

	var sb strings.Builder
	line := func(style lipgloss.Style, cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			sb.WriteString(style.Width(widths[i]).Render(c))
		}
		sb.WriteString("\n")
	}
	line(header, t.Headers)
	sb.WriteString(muted.Render(strings.Repeat("-", max(total-2, 0))) + "\n")
	for _, row := range t.Rows {
		line(cell, row)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
