// Package dataset parses uploaded tabular files into header-keyed rows.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Row maps column names to raw cell text. Rows are never mutated after parsing.
type Row struct {
	values map[string]string
}

// NewRow builds a Row from a column→value mapping. The map is copied.
func NewRow(values map[string]string) Row {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Row{values: cp}
}

// Value returns the raw text for col. ok is false when the row has no cell
// for that column.
func (r Row) Value(col string) (string, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Number returns the numeric value of col, see Number.
func (r Row) Number(col string) (float64, bool) {
	v, ok := r.values[col]
	if !ok {
		return 0, false
	}
	return Number(v)
}

// Table is a parsed tabular upload. Columns are in header order and every
// row shares that column set.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is one of the table's columns.
func (t *Table) HasColumn(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Number coerces raw cell text to a finite float. Surrounding whitespace is
// ignored; blank cells, NaN and infinities are not numbers.
func Number(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// fromRecords builds a Table from a header and data records. Duplicate
// header names keep their first position; the later cell wins.
func fromRecords(name string, header []string, records [][]string) *Table {
	t := &Table{Name: name}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if !seen[h] {
			seen[h] = true
			t.Columns = append(t.Columns, h)
		}
	}

	t.Rows = make([]Row, 0, len(records))
	for _, rec := range records {
		values := make(map[string]string, len(header))
		for i, h := range header {
			if i >= len(rec) {
				break
			}
			values[h] = rec[i]
		}
		t.Rows = append(t.Rows, Row{values: values})
	}
	return t
}

// Defaults are the column selections inferred from a freshly loaded table.
type Defaults struct {
	LatColumn   string `json:"lat_column"`
	LonColumn   string `json:"lon_column"`
	KeyColumn   string `json:"key_column"`
	ValueColumn string `json:"value_column"`
}

// InferDefaults picks initial column bindings: exact "latitude"/"longitude"
// headers when present, else the first two columns by position.
func InferDefaults(columns []string) Defaults {
	if len(columns) == 0 {
		return Defaults{}
	}
	first := columns[0]
	second := first
	if len(columns) > 1 {
		second = columns[1]
	}

	d := Defaults{
		LatColumn:   first,
		LonColumn:   second,
		KeyColumn:   first,
		ValueColumn: second,
	}
	for _, c := range columns {
		switch c {
		case "latitude":
			d.LatColumn = c
		case "longitude":
			d.LonColumn = c
		}
	}
	return d
}
