package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values. Cells may already be styled.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // highlighted row, -1 for none
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// pad left-aligns s within width visible cells, truncating plain text.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width && w == len(s) {
		return s[:width]
	}
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Render returns the table as a string.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(Theme.Highlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(Theme.Value)

	headers := make([]string, 0, len(t.Columns))
	divider := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		headers = append(headers, headerStyle.Render(pad(col.Title, col.Width)))
		divider = append(divider, StyleMeta.Render(strings.Repeat("-", col.Width)))
	}
	sb.WriteString(strings.Join(headers, " ") + "\n")
	sb.WriteString(strings.Join(divider, " ") + "\n")

	for i, row := range t.Rows {
		cells := make([]string, 0, len(t.Columns))
		for j, col := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			if i == t.SelIdx {
				cells = append(cells, StyleSelected.Render(pad(val, col.Width)))
			} else {
				cells = append(cells, cellStyle.Render(pad(val, col.Width)))
			}
		}
		sb.WriteString(strings.Join(cells, " ") + "\n")
	}
	return sb.String()
}

// KeyValueBlock renders key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-20s", p[0]+":"))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(strings.TrimRight(sb.String(), "\n"))
}

// Card renders a small titled panel used by the dashboard.
func Card(title, body string, width int) string {
	content := StyleMeta.Render(title) + "\n" + body
	return StyleBorder.Width(width).Render(content)
}
