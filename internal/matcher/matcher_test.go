package matcher

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areajoin/internal/similarity"
)

func mustScorer(t *testing.T, mode similarity.Mode) similarity.Scorer {
	t.Helper()
	s, err := similarity.New(mode)
	require.NoError(t, err)
	return s
}

func TestMatchOne(t *testing.T) {
	ratio := mustScorer(t, similarity.Ratio)
	tokenSort := mustScorer(t, similarity.TokenSortRatio)

	tests := []struct {
		name      string
		scorer    similarity.Scorer
		key       string
		keys      []string
		threshold float64
		want      MatchResult
	}{
		{
			name:      "exact postal code",
			scorer:    ratio,
			key:       "10001",
			keys:      []string{"94105", "10001", "60601"},
			threshold: 70,
			want:      Matched(1, 100),
		},
		{
			name:      "near postal code above threshold",
			scorer:    ratio,
			key:       "10002",
			keys:      []string{"94105", "10001"},
			threshold: 70,
			want:      Matched(1, 80),
		},
		{
			name:      "no candidate reaches threshold",
			scorer:    ratio,
			key:       "99999",
			keys:      []string{"10001", "94105", "60601"},
			threshold: 70,
			want:      Unmatched(),
		},
		{
			name:      "reordered address",
			scorer:    tokenSort,
			key:       "st main 123",
			keys:      []string{"456 oak ave", "123 main st"},
			threshold: 80,
			want:      Matched(1, 100),
		},
		{
			name:      "empty key never matches",
			scorer:    ratio,
			key:       "",
			keys:      []string{"", "10001"},
			threshold: 0,
			want:      Unmatched(),
		},
		{
			name:      "empty candidates are skipped",
			scorer:    ratio,
			key:       "10001",
			keys:      []string{"", "77777"},
			threshold: 0,
			want:      Matched(1, 0),
		},
		{
			name:      "no candidates",
			scorer:    ratio,
			key:       "10001",
			keys:      nil,
			threshold: 0,
			want:      Unmatched(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := NewIndex(tt.keys, tt.scorer)
			assert.Equal(t, tt.want, MatchOne(tt.key, idx, tt.scorer, tt.threshold))
			assert.Equal(t, tt.want, matchOne(tt.key, idx, tt.scorer, tt.threshold, true), "blocking")
		})
	}
}

func TestMatchOneThresholdBoundary(t *testing.T) {
	ratio := mustScorer(t, similarity.Ratio)
	idx := NewIndex([]string{"10001"}, ratio)

	// "10002" vs "10001" scores exactly 80
	assert.Equal(t, Matched(0, 80), MatchOne("10002", idx, ratio, 80))
	assert.Equal(t, Unmatched(), MatchOne("10002", idx, ratio, 81))
	assert.Equal(t, Unmatched(), MatchOne("10002", idx, ratio, math.Nextafter(80, 100)))
}

func TestMatchOneTieBreaksOnInsertionOrder(t *testing.T) {
	ratio := mustScorer(t, similarity.Ratio)

	// both candidates score 80 against "10000"
	idx := NewIndex([]string{"99999", "10001", "10002", "10001"}, ratio)
	assert.Equal(t, Matched(1, 80), MatchOne("10000", idx, ratio, 70))
	assert.Equal(t, Matched(1, 80), matchOne("10000", idx, ratio, 70, true))

	// duplicate keys resolve to the first one
	assert.Equal(t, Matched(1, 100), MatchOne("10001", idx, ratio, 70))
}

func TestBlockingDoesNotChangeOutcomes(t *testing.T) {
	keys := []string{
		"10001", "1000", "100011", "123 main st", "main st", "oak avenue 12",
		"12 oak ave", "", "a", "elm", "st main 123 apt 4", "9",
	}
	queries := append([]string{"10002", "main street 123", "12 oak avenue", "zzz", "b"}, keys...)

	for _, mode := range []similarity.Mode{similarity.Ratio, similarity.TokenSortRatio, similarity.Levenshtein} {
		scorer := mustScorer(t, mode)
		idx := NewIndex(keys, scorer)
		for _, threshold := range []float64{0, 30, 55.5, 70, 80, 100} {
			for _, q := range queries {
				assert.Equal(t,
					MatchOne(q, idx, scorer, threshold),
					matchOne(q, idx, scorer, threshold, true),
					"%s threshold=%v key=%q", mode, threshold, q)
			}
		}
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, ok := range []float64{0, 70, 80, 100} {
		assert.NoError(t, ValidateThreshold(ok))
	}
	for _, bad := range []float64{-1, 100.5, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, ValidateThreshold(bad), ErrInvalidThreshold, "%v", bad)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Threshold: 70})
	assert.Error(t, err)

	_, err = New(Options{Scorer: mustScorer(t, similarity.Ratio), Threshold: 170})
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = New(Options{Scorer: mustScorer(t, similarity.Ratio), Threshold: 70, Workers: -2})
	assert.Error(t, err)

	m, err := New(Options{Scorer: mustScorer(t, similarity.Ratio), Threshold: 70})
	require.NoError(t, err)
	assert.Equal(t, 70.0, m.Threshold())
	assert.Equal(t, similarity.Ratio, m.Scorer().Mode())
}

func TestMatchAllPreservesOrder(t *testing.T) {
	scorer := mustScorer(t, similarity.Ratio)
	demographics := make([]string, 50)
	for i := range demographics {
		demographics[i] = fmt.Sprintf("%05d", 10000+i*37)
	}
	listings := make([]string, 500)
	for i := range listings {
		listings[i] = demographics[(i*7)%len(demographics)]
	}
	listings[3] = ""
	listings[42] = "zzzzz"

	for _, workers := range []int{1, 3, 16} {
		m, err := New(Options{Scorer: scorer, Threshold: 70, Workers: workers, Blocking: workers%2 == 1})
		require.NoError(t, err)
		idx := m.Index(demographics)

		results, err := m.MatchAll(context.Background(), listings, idx)
		require.NoError(t, err)
		require.Len(t, results, len(listings))

		for i, key := range listings {
			assert.Equal(t, MatchOne(key, idx, scorer, 70), results[i], "row %d", i)
		}
		assert.False(t, results[3].Matched)
		assert.False(t, results[42].Matched)
	}
}

func TestMatchAllEmptyInputs(t *testing.T) {
	m, err := New(Options{Scorer: mustScorer(t, similarity.Ratio), Threshold: 70})
	require.NoError(t, err)

	results, err := m.MatchAll(context.Background(), nil, m.Index(nil))
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = m.MatchAll(context.Background(), []string{"10001", "94105"}, m.Index(nil))
	require.NoError(t, err)
	assert.Equal(t, []MatchResult{Unmatched(), Unmatched()}, results)
}

func TestMatchAllCancelled(t *testing.T) {
	m, err := New(Options{Scorer: mustScorer(t, similarity.Ratio), Threshold: 70, Workers: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.MatchAll(ctx, []string{"10001", "10002"}, m.Index([]string{"10001"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	again, err := NewMetrics(reg)
	require.NoError(t, err, "second registration reuses collectors")

	m, err := New(Options{Scorer: mustScorer(t, similarity.Ratio), Threshold: 70, Metrics: metrics})
	require.NoError(t, err)

	_, err = m.MatchAll(context.Background(), []string{"10001", "99999", "10002"}, m.Index([]string{"10001"}))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(again.outcomes.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("unmatched")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.observe(Matched(0, 100)) })
}
