package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/areajoin/internal/join"
)

// LoadSQL runs query and returns the result set as a table. SQL NULL becomes
// join.NoValue; every other value is converted to text by database/sql.
func LoadSQL(ctx context.Context, db *sql.DB, query string, args ...any) (join.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return join.Table{}, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return join.Table{}, fmt.Errorf("failed to read columns: %w", err)
	}

	t := join.Table{Columns: columns, Rows: [][]join.Cell{}}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return join.Table{}, fmt.Errorf("failed to scan row %d: %w", len(t.Rows), err)
		}
		row := make([]join.Cell, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = join.Text(v.String)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return join.Table{}, fmt.Errorf("failed to iterate rows: %w", err)
	}

	if err := t.Validate(); err != nil {
		return join.Table{}, err
	}
	return t, nil
}
