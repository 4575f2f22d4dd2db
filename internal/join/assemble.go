package join

import (
	"fmt"
	"strconv"

	"github.com/areajoin/internal/matcher"
)

// AssembleOptions names the columns Assemble adds.
type AssembleOptions struct {
	// RightKey is the right-hand column copied into MatchedColumn.
	RightKey string
	// MatchedColumn receives the matched right-hand key, default "matched_area".
	MatchedColumn string
	// ScoreColumn, when set, receives the match score.
	ScoreColumn string
	// RightSuffix renames right-hand columns whose name is already taken,
	// default "_right".
	RightSuffix string
}

const (
	DefaultMatchedColumn = "matched_area"
	DefaultRightSuffix   = "_right"
)

func (o AssembleOptions) withDefaults() AssembleOptions {
	if o.MatchedColumn == "" {
		o.MatchedColumn = DefaultMatchedColumn
	}
	if o.RightSuffix == "" {
		o.RightSuffix = DefaultRightSuffix
	}
	return o
}

// Assemble left-outer-joins left to right using results, one per left row.
// Every left row appears once, in order. Matched rows carry the cells of the
// right row named by the result; unmatched rows carry NoValue in every added
// column.
func Assemble(left Table, results []matcher.MatchResult, right Table, opts AssembleOptions) (Table, error) {
	opts = opts.withDefaults()

	if len(results) != len(left.Rows) {
		return Table{}, fmt.Errorf("got %d match results for %d rows", len(results), len(left.Rows))
	}
	rightKey, err := right.ColumnIndex(opts.RightKey)
	if err != nil {
		return Table{}, fmt.Errorf("right key: %w", err)
	}

	columns := make([]string, 0, len(left.Columns)+len(right.Columns)+2)
	taken := make(map[string]bool)
	add := func(name string) {
		for taken[name] {
			name += opts.RightSuffix
		}
		taken[name] = true
		columns = append(columns, name)
	}
	for _, c := range left.Columns {
		add(c)
	}
	add(opts.MatchedColumn)
	if opts.ScoreColumn != "" {
		add(opts.ScoreColumn)
	}
	for _, c := range right.Columns {
		add(c)
	}

	added := len(columns) - len(left.Columns)
	rows := make([][]Cell, len(left.Rows))
	for i, l := range left.Rows {
		row := make([]Cell, len(left.Columns), len(columns))
		copy(row, l)

		r := results[i]
		if !r.Matched {
			rows[i] = append(row, make([]Cell, added)...)
			continue
		}
		if r.CandidateID < 0 || r.CandidateID >= len(right.Rows) {
			return Table{}, fmt.Errorf("row %d matched unknown right row %d", i, r.CandidateID)
		}

		match := right.Rows[r.CandidateID]
		row = append(row, match[rightKey])
		if opts.ScoreColumn != "" {
			row = append(row, Text(strconv.FormatFloat(r.Score, 'f', 2, 64)))
		}
		rows[i] = append(row, match...)
	}

	return Table{Columns: columns, Rows: rows}, nil
}
