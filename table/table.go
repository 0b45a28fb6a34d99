// Package table holds the row-oriented tables passed between the exchange
// client, the normalizer and the sinks.
package table

import "fmt"

// Type is the semantic type of a column.
type Type int

const (
	String Type = iota
	Decimal
	Integer
	Timestamp
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Decimal:
		return "decimal"
	case Integer:
		return "integer"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Column is a named, typed column of a Schema.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered list of columns.
type Schema []Column

// Lookup returns the type declared for name.
func (s Schema) Lookup(name string) (Type, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return 0, false
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Row is one record. Cells line up with Table.Columns.
//
// Raw tables carry string or nil cells. Normalized tables carry string,
// decimal.Decimal, int64, time.Time or nil.
type Row []any

// Table is an ordered list of rows with an ordered column header.
type Table struct {
	Columns []string
	Rows    []Row
}

// New returns an empty table with the given columns.
func New(columns ...string) Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Table{Columns: cols, Rows: []Row{}}
}

// Len is the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of col, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Column returns every value of col in row order.
func (t Table) Column(col string) ([]any, error) {
	idx := t.Index(col)
	if idx < 0 {
		return nil, fmt.Errorf("table: no column %q", col)
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Append adds a row. The row must have one cell per column.
func (t *Table) Append(r Row) error {
	if len(r) != len(t.Columns) {
		return fmt.Errorf("table: row has %d cells, want %d", len(r), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// InsertColumn returns a copy of t with a new column at pos whose cells are
// all value.
func (t Table) InsertColumn(pos int, name string, value any) Table {
	if pos < 0 || pos > len(t.Columns) {
		pos = len(t.Columns)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, t.Columns[:pos]...)
	cols = append(cols, name)
	cols = append(cols, t.Columns[pos:]...)

	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, 0, len(r)+1)
		nr = append(nr, r[:pos]...)
		nr = append(nr, value)
		nr = append(nr, r[pos:]...)
		rows[i] = nr
	}
	return Table{Columns: cols, Rows: rows}
}

// Rename returns a copy of t with columns renamed through mapper. Columns
// missing from mapper keep their name.
func (t Table) Rename(mapper map[string]string) Table {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if n, ok := mapper[c]; ok {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	return Table{Columns: cols, Rows: t.cloneRows()}
}

// Select returns a copy of t restricted to cols, in that order.
func (t Table) Select(cols ...string) (Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return Table{}, fmt.Errorf("table: no column %q", c)
		}
	}

	out := New(cols...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(idx))
		for j, k := range idx {
			nr[j] = r[k]
		}
		out.Rows[i] = nr
	}
	return out, nil
}

// Map returns a copy of t with fn applied to every cell.
func (t Table) Map(fn func(v any) any) Table {
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(r))
		for j, v := range r {
			nr[j] = fn(v)
		}
		rows[i] = nr
	}
	return Table{Columns: append([]string(nil), t.Columns...), Rows: rows}
}

func (t Table) cloneRows() []Row {
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append(Row(nil), r...)
	}
	return rows
}
