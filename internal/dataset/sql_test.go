package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areajoin/internal/db"
	"github.com/areajoin/internal/join"
)

func TestLoadSQL(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.DB.Exec(`
		CREATE TABLE demographics (area TEXT, median_income INTEGER, school_rating REAL);
		INSERT INTO demographics VALUES ('10001', 85000, 7.5), ('94105', NULL, 9), ('60601', 64000, NULL);
	`)
	require.NoError(t, err)

	tbl, err := LoadSQL(ctx, conn.DB, "SELECT area, median_income, school_rating FROM demographics ORDER BY area")
	require.NoError(t, err)

	assert.Equal(t, []string{"area", "median_income", "school_rating"}, tbl.Columns)
	assert.Equal(t, [][]join.Cell{
		{join.Text("10001"), join.Text("85000"), join.Text("7.5")},
		{join.Text("60601"), join.Text("64000"), join.NoValue},
		{join.Text("94105"), join.NoValue, join.Text("9")},
	}, tbl.Rows)

	filtered, err := LoadSQL(ctx, conn.DB, "SELECT area FROM demographics WHERE median_income > ?", 70000)
	require.NoError(t, err)
	assert.Equal(t, [][]join.Cell{{join.Text("10001")}}, filtered.Rows)

	empty, err := LoadSQL(ctx, conn.DB, "SELECT area FROM demographics WHERE 0")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = LoadSQL(ctx, conn.DB, "SELECT nope FROM missing")
	assert.Error(t, err)
}
