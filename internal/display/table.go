package display

import (
	"strings"
	"unicode/utf8"

	"github.com/smokyabdulrahman/salat/internal/prayer"
)

// Table renders an aligned text table with optional color support.
// Cells holding the "--:--" sentinel are dimmed outside the highlighted row.
type Table struct {
	headers []string
	rows    [][]string
	// highlightRow is the 0-based row index to highlight. -1 = none.
	highlightRow int
	highlight    func(string) string
}

// NewTable creates a new table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers:      headers,
		highlightRow: -1,
		highlight:    Accent,
	}
}

// AddRow appends a row of values.
func (t *Table) AddRow(values []string) {
	t.rows = append(t.rows, values)
}

// SetHighlightRow sets which row index (0-based) should be highlighted.
func (t *Table) SetHighlightRow(idx int) {
	t.highlightRow = idx
}

// SetHighlightStyle replaces Accent as the highlight style.
func (t *Table) SetHighlightStyle(style func(string) string) {
	t.highlight = style
}

// Render produces the formatted table string with leading indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder

	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sepParts := make([]string, len(widths))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sepParts, "  ")) + "\n")

	for i, row := range t.rows {
		if i == t.highlightRow {
			sb.WriteString("  " + t.highlight(formatRow(row, widths)) + "\n")
			continue
		}
		sb.WriteString("  " + strings.Join(cells(row, widths, Clock), "  ") + "\n")
	}

	return sb.String()
}

// cells pads each cell to its column width and applies style to it.
func cells(row []string, widths []int, style func(string) string) []string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := strings.Repeat(" ", max(0, w-utf8.RuneCountInString(cell)))
		if style != nil && prayer.IsSentinel(cell) {
			cell = style(cell)
		}
		parts[i] = cell + pad
	}
	return parts
}

// formatRow formats a row of cells using the given column widths.
func formatRow(row []string, widths []int) string {
	return strings.Join(cells(row, widths, nil), "  ")
}
