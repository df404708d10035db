// Package table prints rows of text aligned in columns.
package table

import (
	"io"
	"strings"

	"github.com/rdiffweb/rdiffbrowse/internal/ui"
)

// Table contains the data of a table to be printed.
type Table struct {
	columns []string
	rows    [][]string

	CellSeparator string
}

// New returns an empty table.
func New() *Table {
	return &Table{CellSeparator: "  "}
}

// AddColumn adds a column with the given header.
func (t *Table) AddColumn(header string) {
	t.columns = append(t.columns, header)
}

// AddRow adds a row. Missing cells are left empty, extra cells dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func pad(s string, width int) string {
	if n := width - ui.DisplayWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// Write prints the table to w: the header, a separator line, one line per
// row and a closing separator. A table without columns prints nothing.
func (t *Table) Write(w io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}

	widths := make([]int, len(t.columns))
	for i, h := range t.columns {
		widths[i] = ui.DisplayWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := ui.DisplayWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	total := 0
	for _, n := range widths {
		total += n
	}
	total += len(t.CellSeparator) * (len(widths) - 1)
	separator := strings.Repeat("-", total)

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = pad(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, t.CellSeparator), " ") + "\n"
	}

	lines := []string{line(t.columns), separator + "\n"}
	for _, row := range t.rows {
		lines = append(lines, line(row))
	}
	lines = append(lines, separator+"\n")

	for _, l := range lines {
		if _, err := io.WriteString(w, l); err != nil {
			return err
		}
	}
	return nil
}
