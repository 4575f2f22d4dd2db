package join

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownColumn = errors.New("unknown column")

// Cell is one table value. A cell that is not Valid carries no value, which
// is distinct from a valid empty string.
type Cell struct {
	Value string
	Valid bool
}

// NoValue is the explicit missing-value marker.
var NoValue = Cell{}

// Text returns a valid cell holding s.
func Text(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// Raw returns the cell as a normalizer input: nil when missing.
func (c Cell) Raw() any {
	if !c.Valid {
		return nil
	}
	return c.Value
}

// MarshalJSON encodes missing cells as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts null, strings, numbers and booleans. Numbers take
// their shortest decimal form, so 10001, 10001.0 and 1.0001e4 all become
// "10001".
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*c = NoValue
	case string:
		*c = Text(t)
	case float64:
		*c = Text(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*c = Text(strconv.FormatBool(t))
	default:
		return fmt.Errorf("cell must be a scalar, got %s", data)
	}
	return nil
}

// Table is a column-named set of rows. Every row has len(Columns) cells.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of column name.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Column returns a copy of every cell in column name.
func (t Table) Column(name string) ([]Cell, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Validate checks that every row is as wide as the header and that column
// names are unique.
func (t Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", r, len(row), len(t.Columns))
		}
	}
	return nil
}

// Filter returns the rows for which keep is true. Rows are shared, not copied.
func (t Table) Filter(keep func(row []Cell) bool) Table {
	out := Table{Columns: t.Columns, Rows: make([][]Cell, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
