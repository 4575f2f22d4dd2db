// Package matcher picks, for each left-hand key, the best scoring candidate
// that reaches an acceptance threshold.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/areajoin/internal/candidates"
	"github.com/areajoin/internal/debug"
	"github.com/areajoin/internal/similarity"
)

var ErrInvalidThreshold = errors.New("threshold must be within [0, 100]")

// MatchResult is the outcome for one left-hand key. When Matched is false
// CandidateID is -1 and Score is 0.
type MatchResult struct {
	Matched     bool    `json:"matched"`
	CandidateID int     `json:"candidate_id"`
	Score       float64 `json:"score"`
}

// Unmatched is the no-match outcome.
func Unmatched() MatchResult {
	return MatchResult{CandidateID: -1}
}

// Matched is a match against candidate id.
func Matched(id int, score float64) MatchResult {
	return MatchResult{Matched: true, CandidateID: id, Score: score}
}

// ValidateThreshold rejects thresholds outside the score scale.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > similarity.MaxScore {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

// NewIndex builds a candidate index holding keys in the form scorer compares.
func NewIndex(keys []string, scorer similarity.Scorer) *candidates.Index {
	return candidates.Build(keys, scorer.Prepare)
}

// MatchOne scores key against every candidate in idx, which must have been
// built by NewIndex with the same scorer. The highest score wins; ties go to
// the lowest candidate ID. Empty keys and empty candidates never match.
func MatchOne(key string, idx *candidates.Index, scorer similarity.Scorer, threshold float64) MatchResult {
	return matchOne(key, idx, scorer, threshold, false)
}

func matchOne(key string, idx *candidates.Index, scorer similarity.Scorer, threshold float64, blocking bool) MatchResult {
	if key == "" || idx == nil {
		return Unmatched()
	}
	q := scorer.Prepare(key)
	if q == "" {
		return Unmatched()
	}

	best, bestID := -1.0, -1
	visit := func(id int) {
		form := idx.Prepared(id)
		if form == "" {
			return
		}
		s := scorer.Compare(q, form)
		if s > best || (s == best && id < bestID) {
			best, bestID = s, id
		}
	}

	if blocking {
		lq := utf8.RuneCountInString(q)
		idx.EachWithLength(func(n int) bool {
			return n > 0 && scorer.Bound(lq, n) >= threshold
		}, visit)
	} else {
		idx.Each(visit)
	}

	if bestID >= 0 && best >= threshold {
		return Matched(bestID, best)
	}
	return Unmatched()
}

// Options configures a Matcher.
type Options struct {
	Scorer    similarity.Scorer
	Threshold float64
	// Workers bounds concurrent rows; zero means GOMAXPROCS.
	Workers int
	// Blocking skips candidates whose length rules out reaching Threshold.
	// Outcomes are identical with and without it.
	Blocking bool
	Logger   *zap.Logger
	Metrics  *Metrics
	Debug    bool
}

// Matcher runs MatchOne over many keys.
type Matcher struct {
	scorer    similarity.Scorer
	threshold float64
	workers   int
	blocking  bool
	logger    *zap.Logger
	metrics   *Metrics
	debug     bool
}

// New validates opts and returns a Matcher.
func New(opts Options) (*Matcher, error) {
	if opts.Scorer == nil {
		return nil, errors.New("matcher requires a scorer")
	}
	if err := ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative: got %d", opts.Workers)
	}

	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		scorer:    opts.Scorer,
		threshold: opts.Threshold,
		workers:   workers,
		blocking:  opts.Blocking,
		logger:    logger,
		metrics:   opts.Metrics,
		debug:     opts.Debug,
	}, nil
}

// Scorer returns the scorer the matcher compares with.
func (m *Matcher) Scorer() similarity.Scorer {
	return m.scorer
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Index builds a candidate index suitable for this matcher.
func (m *Matcher) Index(keys []string) *candidates.Index {
	return NewIndex(keys, m.scorer)
}

// Match matches a single key.
func (m *Matcher) Match(key string, idx *candidates.Index) MatchResult {
	r := matchOne(key, idx, m.scorer, m.threshold, m.blocking)
	m.metrics.observe(r)
	return r
}

// MatchAll matches every key against idx. Results line up with keys by
// position whatever order the workers finish in. Rows share nothing but the
// read-only index; ctx is checked between rows.
func (m *Matcher) MatchAll(ctx context.Context, keys []string, idx *candidates.Index) ([]MatchResult, error) {
	if idx == nil {
		idx = candidates.Build(nil, nil)
	}
	done := debug.DebugTiming(m.logger, m.debug, fmt.Sprintf("matching %d keys against %d candidates", len(keys), idx.Len()))
	defer done()

	start := time.Now()
	results := make([]MatchResult, len(keys))
	if len(keys) == 0 {
		return results, nil
	}

	chunk := len(keys) / (m.workers * 4)
	if chunk < 1 {
		chunk = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for lo := 0; lo < len(keys); lo += chunk {
		if gctx.Err() != nil {
			break
		}
		hi := min(lo+chunk, len(keys))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = m.Match(keys[i], idx)
				debug.DebugOutput(m.logger, m.debug, "row %d key=%q matched=%t candidate=%d score=%.2f",
					i, keys[i], results[i].Matched, results[i].CandidateID, results[i].Score)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("matching interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("matching interrupted: %w", err)
	}

	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	m.logger.Debug("matching complete",
		zap.Int("rows", len(keys)),
		zap.Int("candidates", idx.Len()),
		zap.Int("matched", matched),
		zap.String("mode", m.scorer.Mode().String()),
		zap.Float64("threshold", m.threshold),
		zap.Int("workers", m.workers),
		zap.Duration("took", time.Since(start)))

	return results, nil
}
