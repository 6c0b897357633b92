// Package table holds the rectangular column store that the cleaning core
// operates on, plus CSV/XLSX loading and CSV writing.
package table

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind describes how a column's cells were interpreted on load.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Absent is the sentinel stored for a missing cell.
var Absent = math.NaN()

// IsAbsent reports whether v marks a missing cell.
func IsAbsent(v float64) bool { return math.IsNaN(v) }

// Column is a named sequence of values. Categorical columns store integer
// codes indexing Levels.
type Column struct {
	Name   string
	Kind   Kind
	Levels []string
	Values []float64
}

// Label renders a single cell for output. Categorical codes are rounded to the
// nearest known level so model-predicted codes stay valid labels.
func (c *Column) Label(row int) string {
	v := c.Values[row]
	if IsAbsent(v) {
		return ""
	}
	if c.Kind == KindCategorical && len(c.Levels) > 0 {
		code := int(math.Round(v))
		if code < 0 {
			code = 0
		}
		if code >= len(c.Levels) {
			code = len(c.Levels) - 1
		}
		return c.Levels[code]
	}
	return formatFloat(v)
}

// Missing returns the count of absent cells.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if IsAbsent(v) {
			n++
		}
	}
	return n
}

// Table is an ordered set of uniquely named columns sharing one row count.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// ErrNotRectangular is returned when columns disagree on row count.
var ErrNotRectangular = errors.New("table is not rectangular")

// New builds a numeric table from column-major values.
func New(names []string, values [][]float64) (*Table, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(values))
	}
	cols := make([]Column, len(names))
	for i := range names {
		cols[i] = Column{Name: names[i], Kind: KindNumeric, Values: values[i]}
	}
	return FromColumns(cols...)
}

// FromColumns builds a table from columns, copying their values.
func FromColumns(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrNotRectangular, name, len(c.Values), t.rows)
		}
		if c.Kind == "" {
			c.Kind = KindNumeric
		}
		vals := make([]float64, len(c.Values))
		copy(vals, c.Values)
		levels := append([]string(nil), c.Levels...)
		t.index[name] = len(t.cols)
		t.cols = append(t.cols, &Column{Name: name, Kind: c.Kind, Levels: levels, Values: vals})
	}
	return t, nil
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// Cols returns the column count.
func (t *Table) Cols() int { return len(t.cols) }

// Names returns column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Column returns the named column. The returned column aliases table storage.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns the column at position i. It aliases table storage.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// At returns the cell at (row, col).
func (t *Table) At(row, col int) float64 { return t.cols[col].Values[row] }

// Set writes a cell.
func (t *Table) Set(row, col int, v float64) { t.cols[col].Values[row] = v }

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows}
	for i, c := range t.cols {
		vals := make([]float64, len(c.Values))
		copy(vals, c.Values)
		out.cols = append(out.cols, &Column{
			Name:   c.Name,
			Kind:   c.Kind,
			Levels: append([]string(nil), c.Levels...),
			Values: vals,
		})
		out.index[c.Name] = i
	}
	return out
}

// SelectRows returns a new table holding the given rows in the given order.
func (t *Table) SelectRows(rows []int) *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: len(rows)}
	for i, c := range t.cols {
		vals := make([]float64, len(rows))
		for k, r := range rows {
			vals[k] = c.Values[r]
		}
		out.cols = append(out.cols, &Column{
			Name:   c.Name,
			Kind:   c.Kind,
			Levels: append([]string(nil), c.Levels...),
			Values: vals,
		})
		out.index[c.Name] = i
	}
	return out
}

// FeatureIndexes returns every column position except the excluded one.
func (t *Table) FeatureIndexes(exclude string) []int {
	out := make([]int, 0, len(t.cols))
	for i, c := range t.cols {
		if c.Name == exclude {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Matrix returns a row-major copy of the given rows and columns.
// A nil rows slice selects every row.
func (t *Table) Matrix(rows []int, cols []int) [][]float64 {
	if rows == nil {
		rows = make([]int, t.rows)
		for i := range rows {
			rows[i] = i
		}
	}
	out := make([][]float64, len(rows))
	for k, r := range rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = t.cols[c].Values[r]
		}
		out[k] = row
	}
	return out
}

// RowHasAbsent reports whether any cell in row r is absent.
func (t *Table) RowHasAbsent(r int) bool {
	for _, c := range t.cols {
		if IsAbsent(c.Values[r]) {
			return true
		}
	}
	return false
}

// HasAbsent reports whether any cell in the table is absent.
func (t *Table) HasAbsent() bool {
	for _, c := range t.cols {
		if c.Missing() > 0 {
			return true
		}
	}
	return false
}
