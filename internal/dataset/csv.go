// Package dataset moves tables in and out of CSV files and SQL databases.
// Values are kept as text; key normalization happens in the join.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/areajoin/internal/join"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a table whose first record is the header. Empty fields stay
// valid empty strings.
func ReadCSV(r io.Reader) (join.Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return join.Table{}, fmt.Errorf("missing header row")
	}
	if err != nil {
		return join.Table{}, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := join.Table{Columns: header, Rows: [][]join.Cell{}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return join.Table{}, fmt.Errorf("failed to read record: %w", err)
		}
		row := make([]join.Cell, len(record))
		for i, v := range record {
			row[i] = join.Text(v)
		}
		t.Rows = append(t.Rows, row)
	}

	if err := t.Validate(); err != nil {
		return join.Table{}, err
	}
	return t, nil
}

// ReadCSVFile reads the CSV table at path.
func ReadCSVFile(path string) (join.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return join.Table{}, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	t, err := ReadCSV(file)
	if err != nil {
		return join.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes t with a header row. Missing cells are written as
// nullMarker.
func WriteCSV(w io.Writer, t join.Table, nullMarker string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", r, len(row), len(t.Columns))
		}
		for i, c := range row {
			if c.Valid {
				record[i] = c.Value
			} else {
				record[i] = nullMarker
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes t to path, replacing any existing file.
func WriteCSVFile(path string, t join.Table, nullMarker string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := WriteCSV(file, t, nullMarker); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}

// Rename returns t with columns renamed through aliases, e.g.
// {"raw_address": "address", "zip_code": "area"}. Rows are shared.
func Rename(t join.Table, aliases map[string]string) join.Table {
	columns := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if alias, ok := aliases[c]; ok {
			columns[i] = alias
		} else {
			columns[i] = c
		}
	}
	return join.Table{Columns: columns, Rows: t.Rows}
}

// ParseAliases parses "old=new" pairs as given on the command line.
func ParseAliases(pairs []string) (map[string]string, error) {
	aliases := make(map[string]string, len(pairs))
	for _, p := range pairs {
		from, to, ok := strings.Cut(p, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid column alias %q, want old=new", p)
		}
		aliases[from] = to
	}
	return aliases, nil
}
