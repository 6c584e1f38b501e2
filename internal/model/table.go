package model

import (
	"fmt"
	"time"
)

// Table is a time-indexed set of named numeric columns. Tables are
// immutable: every transform returns a new table.
type Table struct {
	index []time.Time
	names []string
	cols  [][]float64
	pos   map[string]int
}

// NewTable copies the given index and columns into a table. Rows are stored
// in ascending time order; a descending index reverses every column.
func NewTable(index []time.Time, names []string, cols [][]float64) (Table, error) {
	if len(names) != len(cols) {
		return Table{}, fmt.Errorf("table: %d names for %d columns: %w", len(names), len(cols), ErrInvalidParameter)
	}
	idx := append([]time.Time(nil), index...)
	rev := descending(idx)
	if rev {
		reverseTimes(idx)
	}
	if err := checkAscending(idx); err != nil {
		return Table{}, fmt.Errorf("table: %w", err)
	}

	t := Table{index: idx, pos: make(map[string]int, len(names))}
	for i, name := range names {
		if name == "" {
			return Table{}, fmt.Errorf("table: empty name for column %d: %w", i, ErrInvalidParameter)
		}
		if _, dup := t.pos[name]; dup {
			return Table{}, fmt.Errorf("table: duplicate column %q: %w", name, ErrInvalidParameter)
		}
		if len(cols[i]) != len(idx) {
			return Table{}, fmt.Errorf("table: column %q has %d rows, index has %d: %w",
				name, len(cols[i]), len(idx), ErrInvalidParameter)
		}
		col := append([]float64(nil), cols[i]...)
		if rev {
			reverseFloats(col)
		}
		t.pos[name] = len(t.names)
		t.names = append(t.names, name)
		t.cols = append(t.cols, col)
	}
	return t, nil
}

// TableFromSeries joins series sharing one index into a table.
func TableFromSeries(series ...Series) (Table, error) {
	if len(series) == 0 {
		return Table{}, nil
	}
	names := make([]string, len(series))
	cols := make([][]float64, len(series))
	for i, s := range series {
		if !sameIndex(series[0].Index, s.Index) {
			return Table{}, fmt.Errorf("table: series %q index differs from %q: %w",
				s.Name, series[0].Name, ErrInvalidParameter)
		}
		names[i] = s.Name
		cols[i] = s.Values
	}
	return NewTable(series[0].Index, names, cols)
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.index) }

// Index returns the row timestamps. Callers must not modify it.
func (t Table) Index() []time.Time { return t.index }

// Columns returns the column names in order.
func (t Table) Columns() []string { return append([]string(nil), t.names...) }

// Has reports whether the table carries the named column.
func (t Table) Has(name string) bool {
	_, ok := t.pos[name]
	return ok
}

// Column returns a copy of the named column as a series.
func (t Table) Column(name string) (Series, error) {
	i, ok := t.pos[name]
	if !ok {
		return Series{}, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	return Series{
		Name:   name,
		Index:  append([]time.Time(nil), t.index...),
		Values: append([]float64(nil), t.cols[i]...),
	}, nil
}

// Value returns the value of the named column at row i.
func (t Table) Value(name string, i int) float64 {
	return t.cols[t.pos[name]][i]
}

// WithColumn returns a table with the column added at the end, or replaced
// in place when the name already exists.
func (t Table) WithColumn(name string, values []float64) (Table, error) {
	if len(values) != t.Len() {
		return Table{}, fmt.Errorf("column %q has %d rows, table has %d: %w",
			name, len(values), t.Len(), ErrInvalidParameter)
	}
	names := t.Columns()
	cols := append([][]float64(nil), t.cols...)
	if i, ok := t.pos[name]; ok {
		cols[i] = values
	} else {
		names = append(names, name)
		cols = append(cols, values)
	}
	return NewTable(t.index, names, cols)
}

// Select returns a table restricted to the named columns, in the given order.
func (t Table) Select(names ...string) (Table, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		j, ok := t.pos[name]
		if !ok {
			return Table{}, fmt.Errorf("select %q: %w", name, ErrMissingColumn)
		}
		cols[i] = t.cols[j]
	}
	return NewTable(t.index, names, cols)
}

// Rows returns the rows for which keep reports true.
func (t Table) Rows(keep func(i int) bool) Table {
	idx := make([]time.Time, 0, t.Len())
	cols := make([][]float64, len(t.cols))
	for i := range t.index {
		if !keep(i) {
			continue
		}
		idx = append(idx, t.index[i])
		for c := range t.cols {
			cols[c] = append(cols[c], t.cols[c][i])
		}
	}
	for c := range cols {
		if cols[c] == nil {
			cols[c] = []float64{}
		}
	}
	out, _ := NewTable(idx, t.names, cols)
	return out
}

// Slice returns rows [from, to).
func (t Table) Slice(from, to int) Table {
	return t.Rows(func(i int) bool { return i >= from && i < to })
}

func sameIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
