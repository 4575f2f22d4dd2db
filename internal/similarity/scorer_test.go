package similarity

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allModes = []Mode{Ratio, TokenSortRatio, Levenshtein}

var samples = []string{
	"10001", "10002", "99999", "123 main st", "st main 123", "main street",
	"a", "ab", "ba", "elm rd 4", "garçon", "x y z", "",
}

func TestRatioScores(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical zip", a: "10001", b: "10001", want: 100},
		{name: "one digit off", a: "10001", b: "10002", want: 80},
		{name: "nothing shared", a: "99999", b: "10001", want: 0},
		{name: "word order matters", a: "st main 123", b: "123 main st", want: 200.0 * 6 / 22},
		{name: "empty left", a: "", b: "10001", want: 0},
		{name: "empty right", a: "10001", b: "", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
	}

	scorer, err := New(Ratio)
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scorer.Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenSortRatioIgnoresWordOrder(t *testing.T) {
	scorer, err := New(TokenSortRatio)
	require.NoError(t, err)

	assert.Equal(t, 100.0, scorer.Score("st main 123", "123 main st"))
	assert.Equal(t, "123 main st", scorer.Prepare("st main 123"))
	assert.Equal(t, 100.0, scorer.Score("main st 123", "123 main st"))
	assert.Less(t, scorer.Score("main st 124", "123 main st"), 100.0)
	assert.Equal(t, 0.0, scorer.Score("", "123 main st"))
}

func TestLevenshteinScores(t *testing.T) {
	scorer, err := New(Levenshtein)
	require.NoError(t, err)

	assert.Equal(t, 100.0, scorer.Score("kitten", "kitten"))
	assert.InDelta(t, 100*(1-3.0/7), scorer.Score("kitten", "sitting"), 1e-9)
	assert.Equal(t, 0.0, scorer.Score("abc", "xyz"))
	assert.Equal(t, 0.0, scorer.Score("abc", ""))
}

func TestScorerProperties(t *testing.T) {
	for _, mode := range allModes {
		scorer, err := New(mode)
		require.NoError(t, err)

		t.Run(mode.String(), func(t *testing.T) {
			for _, a := range samples {
				if a != "" {
					assert.Equal(t, 100.0, scorer.Score(a, a), "identity for %q", a)
				}
				assert.Equal(t, 0.0, scorer.Score("", a), "zero on empty for %q", a)

				for _, b := range samples {
					ab := scorer.Score(a, b)
					assert.Equal(t, ab, scorer.Score(b, a), "symmetry for %q,%q", a, b)
					assert.Equal(t, ab, scorer.Score(a, b), "determinism for %q,%q", a, b)
					assert.GreaterOrEqual(t, ab, 0.0)
					assert.LessOrEqual(t, ab, 100.0)
					assert.Equal(t, ab, scorer.Compare(scorer.Prepare(a), scorer.Prepare(b)))
				}
			}
		})
	}
}

func TestBoundIsUpperLimit(t *testing.T) {
	for _, mode := range allModes {
		scorer, err := New(mode)
		require.NoError(t, err)

		for _, a := range samples {
			for _, b := range samples {
				pa, pb := scorer.Prepare(a), scorer.Prepare(b)
				bound := scorer.Bound(utf8.RuneCountInString(pa), utf8.RuneCountInString(pb))
				assert.GreaterOrEqual(t, bound, scorer.Compare(pa, pb), "%s bound for %q,%q", mode, a, b)
			}
		}
	}
}

func TestMoreOverlapNeverScoresLower(t *testing.T) {
	for _, mode := range allModes {
		scorer, err := New(mode)
		require.NoError(t, err)

		closer := scorer.Score("abcd", "abcx")
		farther := scorer.Score("abcd", "abxy")
		assert.GreaterOrEqual(t, closer, farther, mode.String())
	}

	scorer, err := New(TokenSortRatio)
	require.NoError(t, err)
	assert.GreaterOrEqual(t,
		scorer.Score("12 oak avenue", "oak avenue 12"),
		scorer.Score("12 oak avenue", "oak lane 12"))
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"ratio":            Ratio,
		"token-sort":       TokenSortRatio,
		"TOKEN_SORT_RATIO": TokenSortRatio,
		"levenshtein":      Levenshtein,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("jaro")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = New(Mode(42))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestScoreHelper(t *testing.T) {
	got, err := Score(TokenSortRatio, "st main 123", "123 main st")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
}
