// Package join matches listing rows to area rows on an inconsistently
// formatted key and assembles the left-outer-joined table.
//
// The same engine serves postal-code and free-text address joins: the caller
// picks the normalization kind, the scorer mode and the threshold explicitly
// on every call. The package itself keeps no state between calls.
package join

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/areajoin/internal/debug"
	"github.com/areajoin/internal/matcher"
	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/similarity"
)

// Options configures one join.
type Options struct {
	LeftKey  string `json:"left_key"`
	RightKey string `json:"right_key"`

	Kind      normalize.Kind  `json:"kind"`
	Mode      similarity.Mode `json:"mode"`
	Threshold float64         `json:"threshold"`

	// Workers bounds matching goroutines; zero means GOMAXPROCS.
	Workers  int  `json:"workers"`
	Blocking bool `json:"blocking"`

	MatchedColumn string `json:"matched_column"`
	ScoreColumn   string `json:"score_column"`
	RightSuffix   string `json:"right_suffix"`
}

// PostalCodeDefaults mirrors the postal code dashboard join: masked digits
// stripped, plain ratio, accept at 70.
func PostalCodeDefaults(leftKey, rightKey string) Options {
	return Options{
		LeftKey:   leftKey,
		RightKey:  rightKey,
		Kind:      normalize.PostalCode,
		Mode:      similarity.Ratio,
		Threshold: 70,
		Blocking:  true,
	}
}

// AddressDefaults mirrors the free-text address join: token sort ratio,
// accept at 80.
func AddressDefaults(leftKey, rightKey string) Options {
	return Options{
		LeftKey:   leftKey,
		RightKey:  rightKey,
		Kind:      normalize.FreeText,
		Mode:      similarity.TokenSortRatio,
		Threshold: 80,
		Blocking:  true,
	}
}

// Validate fails fast on configuration errors.
func (o Options) Validate() error {
	var errs []error
	if o.LeftKey == "" {
		errs = append(errs, errors.New("left key column is required"))
	}
	if o.RightKey == "" {
		errs = append(errs, errors.New("right key column is required"))
	}
	if o.Kind != normalize.PostalCode && o.Kind != normalize.FreeText {
		errs = append(errs, fmt.Errorf("%w: %d", normalize.ErrUnknownKind, int(o.Kind)))
	}
	if _, err := similarity.New(o.Mode); err != nil {
		errs = append(errs, err)
	}
	if err := matcher.ValidateThreshold(o.Threshold); err != nil {
		errs = append(errs, err)
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative: got %d", o.Workers))
	}
	return errors.Join(errs...)
}

// Summary describes a finished join.
type Summary struct {
	Rows       int     `json:"rows"`
	Candidates int     `json:"candidates"`
	Matched    int     `json:"matched"`
	Unmatched  int     `json:"unmatched"`
	MeanScore  float64 `json:"mean_score"`
}

// MatchRate is the share of rows matched, in percent.
func (s Summary) MatchRate() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Rows) * 100
}

// Result is a joined table and how each row was matched.
type Result struct {
	Table   Table                 `json:"table"`
	Keys    []string              `json:"keys"`
	Matches []matcher.MatchResult `json:"matches"`
	Summary Summary               `json:"summary"`
}

type settings struct {
	logger  *zap.Logger
	metrics *matcher.Metrics
	cache   *normalize.Cache
	debug   bool
}

// JoinOption adds collaborators that do not affect the result.
type JoinOption func(*settings)

// WithLogger logs join progress to logger.
func WithLogger(logger *zap.Logger) JoinOption {
	return func(s *settings) { s.logger = logger }
}

// WithMetrics records match outcomes.
func WithMetrics(m *matcher.Metrics) JoinOption {
	return func(s *settings) { s.metrics = m }
}

// WithCache memoizes key normalization.
func WithCache(c *normalize.Cache) JoinOption {
	return func(s *settings) { s.cache = c }
}

// WithDebug enables per-row debug tracing.
func WithDebug(enabled bool) JoinOption {
	return func(s *settings) { s.debug = enabled }
}

// Join matches every listing row to at most one demographics row and returns
// the assembled table with one row per listing, in listing order.
func Join(ctx context.Context, listings, demographics Table, opts Options, extra ...JoinOption) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid join options: %w", err)
	}
	if err := listings.Validate(); err != nil {
		return nil, fmt.Errorf("listings: %w", err)
	}
	if err := demographics.Validate(); err != nil {
		return nil, fmt.Errorf("demographics: %w", err)
	}

	s := settings{logger: zap.NewNop()}
	for _, o := range extra {
		o(&s)
	}
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	debug.DebugHeader(logger, s.debug)
	defer debug.DebugFooter(logger, s.debug)
	start := time.Now()

	leftKeys, err := s.keys(listings, opts.LeftKey, opts.Kind)
	if err != nil {
		return nil, fmt.Errorf("listings: %w", err)
	}
	rightKeys, err := s.keys(demographics, opts.RightKey, opts.Kind)
	if err != nil {
		return nil, fmt.Errorf("demographics: %w", err)
	}

	scorer, err := similarity.New(opts.Mode)
	if err != nil {
		return nil, err
	}
	m, err := matcher.New(matcher.Options{
		Scorer:    scorer,
		Threshold: opts.Threshold,
		Workers:   opts.Workers,
		Blocking:  opts.Blocking,
		Logger:    logger,
		Metrics:   s.metrics,
		Debug:     s.debug,
	})
	if err != nil {
		return nil, err
	}

	idx := m.Index(rightKeys)
	debug.DebugOutput(logger, s.debug, "indexed %d candidates (%d distinct lengths)", idx.Len(), len(idx.Lengths()))

	results, err := m.MatchAll(ctx, leftKeys, idx)
	if err != nil {
		return nil, err
	}

	table, err := Assemble(listings, results, demographics, AssembleOptions{
		RightKey:      opts.RightKey,
		MatchedColumn: opts.MatchedColumn,
		ScoreColumn:   opts.ScoreColumn,
		RightSuffix:   opts.RightSuffix,
	})
	if err != nil {
		return nil, err
	}

	summary := summarize(results)
	summary.Candidates = idx.Len()

	logger.Info("join complete",
		zap.String("kind", opts.Kind.String()),
		zap.String("mode", opts.Mode.String()),
		zap.Float64("threshold", opts.Threshold),
		zap.Int("rows", summary.Rows),
		zap.Int("candidates", summary.Candidates),
		zap.Int("matched", summary.Matched),
		zap.Int("unmatched", summary.Unmatched),
		zap.Duration("took", time.Since(start)))

	return &Result{Table: table, Keys: leftKeys, Matches: results, Summary: summary}, nil
}

func (s settings) keys(t Table, column string, kind normalize.Kind) ([]string, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cells))
	for i, c := range cells {
		if s.cache != nil {
			keys[i] = s.cache.Key(c.Raw(), kind)
		} else {
			keys[i] = normalize.Key(c.Raw(), kind)
		}
	}
	return keys, nil
}

func summarize(results []matcher.MatchResult) Summary {
	s := Summary{Rows: len(results)}
	var total float64
	for _, r := range results {
		if r.Matched {
			s.Matched++
			total += r.Score
		}
	}
	s.Unmatched = s.Rows - s.Matched
	if s.Matched > 0 {
		s.MeanScore = total / float64(s.Matched)
	}
	return s
}
