package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestJoinCommandPostal(t *testing.T) {
	dir := t.TempDir()
	listings := writeFile(t, dir, "listings.csv", "id,zip_code,price\n1,10001XX,500000\n2,99999,300000\n")
	areas := writeFile(t, dir, "areas.csv", "area,median_income\n10001,85000\n94105,120000\n")

	stdout, stderr, err := run(t, "join",
		"--listings", listings, "--demographics", areas,
		"--left-key", "zip_code", "--right-key", "area",
		"--kind", "postal", "--mode", "ratio", "--threshold", "70",
		"--null-marker", "NA")
	require.NoError(t, err)

	assert.Equal(t, "id,zip_code,price,matched_area,area,median_income\n"+
		"1,10001XX,500000,10001,10001,85000\n"+
		"2,99999,300000,NA,NA,NA\n", stdout)
	assert.Contains(t, stderr, "Join Results")
	assert.Contains(t, stderr, "Match rate")
	assert.Contains(t, stderr, "50.00%")
}

func TestJoinCommandAddressPresetToFile(t *testing.T) {
	dir := t.TempDir()
	listings := writeFile(t, dir, "listings.csv", "raw_address,bedrooms\nSt. Main 123,3\nElm Road 7,2\n")
	areas := writeFile(t, dir, "areas.csv", "neighborhood,school_rating\n123 Main St,9\n456 Oak Ave,6\n")
	out := filepath.Join(dir, "joined.csv")

	_, stderr, err := run(t, "join",
		"--listings", listings, "--demographics", areas,
		"--rename-listings", "raw_address=address",
		"--left-key", "address", "--right-key", "neighborhood",
		"--preset", "address", "--score-column", "score",
		"--drop-unmatched", "--preview", "5",
		"--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "address,bedrooms,matched_area,score,neighborhood,school_rating\n"+
		"St. Main 123,3,123 Main St,100.00,123 Main St,9\n", string(data))
	assert.Contains(t, stderr, "First 1 rows")
}

func TestJoinCommandRequiresExplicitSettings(t *testing.T) {
	dir := t.TempDir()
	listings := writeFile(t, dir, "listings.csv", "zip\n10001\n")
	areas := writeFile(t, dir, "areas.csv", "area\n10001\n")

	base := []string{"join", "--listings", listings, "--demographics", areas, "--left-key", "zip", "--right-key", "area"}

	_, _, err := run(t, append(base, "--kind", "postal", "--mode", "ratio")...)
	assert.ErrorContains(t, err, "--threshold")

	_, _, err = run(t, append(base, "--kind", "postal", "--mode", "ratio", "--threshold", "120")...)
	assert.ErrorContains(t, err, "threshold")

	_, _, err = run(t, append(base, "--preset", "geo")...)
	assert.ErrorContains(t, err, "unknown preset")

	_, _, err = run(t, "join", "--listings", listings, "--left-key", "zip", "--right-key", "area", "--preset", "postal")
	assert.Error(t, err, "one of --demographics or --demographics-sql is required")
}

func TestJoinCommandFromSQLite(t *testing.T) {
	dir := t.TempDir()
	listings := writeFile(t, dir, "listings.csv", "zip\n10001XX\n60601\n")

	stdout, _, err := run(t, "join",
		"--listings", listings,
		"--demographics-sql", "SELECT '10001' AS area, 85000 AS median_income UNION ALL SELECT '94105', NULL",
		"--dsn", "sqlite://:memory:",
		"--left-key", "zip", "--right-key", "area", "--preset", "postal")
	require.NoError(t, err)
	assert.Equal(t, "zip,matched_area,area,median_income\n10001XX,10001,10001,85000\n60601,,,\n", stdout)
}

func TestScoreCommand(t *testing.T) {
	stdout, _, err := run(t, "score", "--kind", "text", "--mode", "token-sort", "St. Main 123", "123 Main St")
	require.NoError(t, err)
	assert.Contains(t, stdout, "St. Main 123")
	assert.Contains(t, stdout, "st main 123")
	assert.Contains(t, stdout, "token-sort score: 100.00")

	_, _, err = run(t, "score", "--kind", "text", "a", "b")
	assert.Error(t, err)

	_, _, err = run(t, "score", "--kind", "text", "--mode", "soundex", "a", "b")
	assert.Error(t, err)
}
