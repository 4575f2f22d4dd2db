package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areajoin/internal/join"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffid, raw_address ,price\n1,\"12 Oak Ave, Apt 4\",500000\n2,,310000\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "raw_address", "price"}, tbl.Columns)
	assert.Equal(t, [][]join.Cell{
		{join.Text("1"), join.Text("12 Oak Ave, Apt 4"), join.Text("500000")},
		{join.Text("2"), join.Text(""), join.Text("310000")},
	}, tbl.Rows)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "ragged row", input: "a,b\n1,2\n3\n"},
		{name: "duplicate column", input: "a,a\n1,2\n"},
		{name: "bad quoting", input: "a,b\n\"1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("area,median_income\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"area", "median_income"}, tbl.Columns)
}

func TestWriteCSV(t *testing.T) {
	tbl := join.Table{
		Columns: []string{"zip", "matched_area", "income"},
		Rows: [][]join.Cell{
			{join.Text("10001XX"), join.Text("10001"), join.Text("85000")},
			{join.Text("99999"), join.NoValue, join.NoValue},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, "NA"))
	assert.Equal(t, "zip,matched_area,income\n10001XX,10001,85000\n99999,NA,NA\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, tbl, ""))
	assert.Equal(t, "zip,matched_area,income\n10001XX,10001,85000\n99999,,\n", buf.String())

	tbl.Rows = append(tbl.Rows, []join.Cell{join.Text("1")})
	assert.Error(t, WriteCSV(&buf, tbl, ""))
}

func TestCSVFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joined.csv")
	tbl := join.Table{
		Columns: []string{"address", "area"},
		Rows:    [][]join.Cell{{join.Text("123 Main St"), join.Text("a \"quoted\" area")}},
	}

	require.NoError(t, WriteCSVFile(path, tbl, ""))
	got, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestRename(t *testing.T) {
	tbl := join.Table{
		Columns: []string{"raw_address", "price", "zip_code"},
		Rows:    [][]join.Cell{{join.Text("1 Elm"), join.Text("1"), join.Text("10001")}},
	}

	renamed := Rename(tbl, map[string]string{"raw_address": "address", "zip_code": "area", "absent": "x"})
	assert.Equal(t, []string{"address", "price", "area"}, renamed.Columns)
	assert.Equal(t, tbl.Rows, renamed.Rows)
	assert.Equal(t, []string{"raw_address", "price", "zip_code"}, tbl.Columns)
}

func TestParseAliases(t *testing.T) {
	aliases, err := ParseAliases([]string{"raw_address=address", " zip_code = area "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"raw_address": "address", "zip_code": "area"}, aliases)

	for _, bad := range []string{"address", "=area", "zip="} {
		_, err := ParseAliases([]string{bad})
		assert.Error(t, err, bad)
	}
}
