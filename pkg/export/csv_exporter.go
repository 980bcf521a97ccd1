// Package export renders recap tables into the downloadable formats the
// report module serves.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is the tabular form every recap shares. Column order is significant
// and rows are positional; every row must have one cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

// AddRow appends one positional row.
func (t *Table) AddRow(values ...string) {
	t.Rows = append(t.Rows, values)
}

// RenderCSV encodes the table as CSV with a header line.
func RenderCSV(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
