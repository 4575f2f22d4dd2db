package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/areajoin/internal/join"
	"github.com/areajoin/internal/matcher"
	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/similarity"
)

// JoinHandler runs joins over tables posted as JSON
type JoinHandler struct {
	Config  *Config
	Logger  *zap.Logger
	Metrics *matcher.Metrics
	Cache   *normalize.Cache
}

// JoinRequest is the body of POST /api/join and POST /api/export
type JoinRequest struct {
	Listings     join.Table  `json:"listings"`
	Demographics join.Table  `json:"demographics"`
	Options      JoinOptions `json:"options"`
}

// JoinOptions selects how keys are compared. Kind, mode and threshold must
// all be given, either directly or through a preset.
type JoinOptions struct {
	Preset    string   `json:"preset"`
	LeftKey   string   `json:"left_key"`
	RightKey  string   `json:"right_key"`
	Kind      string   `json:"kind"`
	Mode      string   `json:"mode"`
	Threshold *float64 `json:"threshold"`

	Workers       int    `json:"workers"`
	Blocking      *bool  `json:"blocking"`
	MatchedColumn string `json:"matched_column"`
	ScoreColumn   string `json:"score_column"`
	RightSuffix   string `json:"right_suffix"`
	DropUnmatched bool   `json:"drop_unmatched"`
	NullMarker    string `json:"null_marker"`
}

// JoinResponse is the joined table with one match per row
type JoinResponse struct {
	Table   join.Table            `json:"table"`
	Matches []matcher.MatchResult `json:"matches"`
	Summary join.Summary          `json:"summary"`
}

// Join handles POST /api/join
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	req, res, err := h.run(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := JoinResponse{Table: res.Table, Matches: res.Matches, Summary: res.Summary}
	if req.Options.DropUnmatched {
		resp.Table, resp.Matches = dropUnmatched(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// run decodes the request and performs the join.
func (h *JoinHandler) run(w http.ResponseWriter, r *http.Request) (*JoinRequest, *join.Result, error) {
	if h.Config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	}

	var req JoinRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, nil, badRequest(fmt.Errorf("invalid JSON request: %w", err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, badRequest(errors.New("invalid JSON request: trailing data"))
	}

	opts, err := h.options(req.Options)
	if err != nil {
		return nil, nil, badRequest(err)
	}

	res, err := join.Join(r.Context(), req.Listings, req.Demographics, opts,
		join.WithLogger(requestLogger(h.Logger, r)),
		join.WithMetrics(h.Metrics),
		join.WithCache(h.Cache),
		join.WithDebug(h.Config.Debug))
	if err != nil {
		if r.Context().Err() != nil {
			return nil, nil, err
		}
		return nil, nil, badRequest(err)
	}
	return &req, res, nil
}

// options resolves the request options, applying a preset first when one is
// named and letting explicit fields override it.
func (h *JoinHandler) options(in JoinOptions) (join.Options, error) {
	var opts join.Options
	switch strings.ToLower(in.Preset) {
	case "":
		if in.Kind == "" || in.Mode == "" || in.Threshold == nil {
			return join.Options{}, errors.New("kind, mode and threshold are required unless a preset is given")
		}
	case "postal":
		opts = join.PostalCodeDefaults(in.LeftKey, in.RightKey)
	case "address":
		opts = join.AddressDefaults(in.LeftKey, in.RightKey)
	default:
		return join.Options{}, fmt.Errorf("unknown preset %q", in.Preset)
	}

	opts.LeftKey = in.LeftKey
	opts.RightKey = in.RightKey
	if in.Kind != "" {
		kind, err := normalize.ParseKind(in.Kind)
		if err != nil {
			return join.Options{}, err
		}
		opts.Kind = kind
	}
	if in.Mode != "" {
		mode, err := similarity.ParseMode(in.Mode)
		if err != nil {
			return join.Options{}, err
		}
		opts.Mode = mode
	}
	if in.Threshold != nil {
		opts.Threshold = *in.Threshold
	}

	opts.Workers = in.Workers
	if opts.Workers == 0 {
		opts.Workers = h.Config.Workers
	}
	opts.Blocking = h.Config.Blocking
	if in.Blocking != nil {
		opts.Blocking = *in.Blocking
	}
	opts.MatchedColumn = in.MatchedColumn
	opts.ScoreColumn = in.ScoreColumn
	opts.RightSuffix = in.RightSuffix

	return opts, opts.Validate()
}

func (h *JoinHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var bad *requestError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &bad):
		status = http.StatusBadRequest
	case r.Context().Err() != nil:
		// client went away
		status = http.StatusServiceUnavailable
	}
	requestLogger(h.Logger, r).Warn("join request failed", zap.Int("status", status), zap.Error(err))
	writeError(w, status, err)
}

// dropUnmatched keeps only rows that found an area, with their matches.
func dropUnmatched(res *join.Result) (join.Table, []matcher.MatchResult) {
	matches := make([]matcher.MatchResult, 0, len(res.Matches))
	i := 0
	table := res.Table.Filter(func([]join.Cell) bool {
		keep := res.Matches[i].Matched
		if keep {
			matches = append(matches, res.Matches[i])
		}
		i++
		return keep
	})
	return table, matches
}

type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}
