// Package similarity scores pairs of normalized keys on a 0-100 scale.
//
// Every mode is symmetric, deterministic, returns 100 for identical non-empty
// keys and 0 whenever either key is empty.
package similarity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Mode selects the scoring formula.
type Mode int

const (
	// Ratio is the Indel similarity 200*LCS/(|a|+|b|) over runes.
	Ratio Mode = iota
	// TokenSortRatio sorts whitespace separated tokens before applying Ratio.
	TokenSortRatio
	// Levenshtein is 100*(1 - distance/max(|a|,|b|)).
	Levenshtein
)

const MaxScore = 100.0

var ErrUnknownMode = errors.New("unknown scorer mode")

func (m Mode) String() string {
	switch m {
	case Ratio:
		return "ratio"
	case TokenSortRatio:
		return "token-sort"
	case Levenshtein:
		return "levenshtein"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a user-supplied name onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ratio":
		return Ratio, nil
	case "token-sort", "token_sort", "tokensort", "token-sort-ratio", "token_sort_ratio":
		return TokenSortRatio, nil
	case "levenshtein", "lev":
		return Levenshtein, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Scorer compares normalized keys.
//
// Prepare and Compare split Score so callers scoring one key against many can
// prepare each side once: Score(a, b) == Compare(Prepare(a), Prepare(b)).
// Bound(la, lb) is an upper limit on Compare for prepared keys of those rune
// lengths, which lets an index skip candidates that cannot reach a threshold.
type Scorer interface {
	Mode() Mode
	Score(a, b string) float64
	Prepare(key string) string
	Compare(a, b string) float64
	Bound(la, lb int) float64
}

// New returns the scorer for mode.
func New(mode Mode) (Scorer, error) {
	switch mode {
	case Ratio:
		return ratioScorer{}, nil
	case TokenSortRatio:
		return tokenSortScorer{}, nil
	case Levenshtein:
		return levenshteinScorer{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
}

// Score is a convenience for one-off comparisons.
func Score(mode Mode, a, b string) (float64, error) {
	s, err := New(mode)
	if err != nil {
		return 0, err
	}
	return s.Score(a, b), nil
}

type ratioScorer struct{}

func (ratioScorer) Mode() Mode                { return Ratio }
func (ratioScorer) Prepare(key string) string { return key }
func (r ratioScorer) Score(a, b string) float64 {
	return r.Compare(a, b)
}

func (ratioScorer) Compare(a, b string) float64 {
	return indelRatio([]rune(a), []rune(b))
}

func (ratioScorer) Bound(la, lb int) float64 {
	return indelBound(la, lb)
}

type tokenSortScorer struct{}

func (tokenSortScorer) Mode() Mode { return TokenSortRatio }

func (tokenSortScorer) Prepare(key string) string {
	tokens := strings.Fields(key)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func (t tokenSortScorer) Score(a, b string) float64 {
	return t.Compare(t.Prepare(a), t.Prepare(b))
}

func (tokenSortScorer) Compare(a, b string) float64 {
	return indelRatio([]rune(a), []rune(b))
}

func (tokenSortScorer) Bound(la, lb int) float64 {
	return indelBound(la, lb)
}

type levenshteinScorer struct{}

func (levenshteinScorer) Mode() Mode                { return Levenshtein }
func (levenshteinScorer) Prepare(key string) string { return key }
func (l levenshteinScorer) Score(a, b string) float64 {
	return l.Compare(a, b)
}

func (levenshteinScorer) Compare(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	return levenshteinSimilarity(levenshtein.ComputeDistance(a, b), max(la, lb))
}

func (levenshteinScorer) Bound(la, lb int) float64 {
	if la == 0 || lb == 0 {
		return 0
	}
	// distance is at least the length difference
	return levenshteinSimilarity(abs(la-lb), max(la, lb))
}

func levenshteinSimilarity(distance, longest int) float64 {
	return MaxScore * (1 - float64(distance)/float64(longest))
}

// indelRatio is 200*LCS/(|a|+|b|), i.e. one minus the normalized
// insert/delete distance.
func indelRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return ratioOf(lcsLength(a, b), len(a)+len(b))
}

func indelBound(la, lb int) float64 {
	if la == 0 || lb == 0 {
		return 0
	}
	return ratioOf(min(la, lb), la+lb)
}

func ratioOf(common, total int) float64 {
	return 2 * MaxScore * float64(common) / float64(total)
}

// lcsLength returns the length of the longest common subsequence using two
// rolling rows.
func lcsLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (m Mode) MarshalText() ([]byte, error) {
	if _, err := New(m); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
