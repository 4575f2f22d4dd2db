package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind selects how a raw join key is canonicalised.
type Kind int

const (
	// PostalCode strips the mask marker and surrounding whitespace only.
	PostalCode Kind = iota
	// FreeText folds, lower-cases, strips punctuation and collapses whitespace.
	FreeText
)

// MaskMarker is the placeholder some sources use to redact the last digits of a postal code.
const MaskMarker = "XX"

var ErrUnknownKind = errors.New("unknown normalization kind")

func (k Kind) String() string {
	switch k {
	case PostalCode:
		return "postal"
	case FreeText:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a user-supplied name onto a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postal", "postcode", "postal_code", "zip":
		return PostalCode, nil
	case "text", "freetext", "free_text", "address":
		return FreeText, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key converts a raw field into its comparison key. It never fails: nil and
// unsupported values end up as text, and missing values map to "".
func Key(raw any, kind Kind) string {
	s := rawString(raw)
	if kind == FreeText {
		return freeText(s)
	}
	return postalCode(s)
}

// Keys normalizes a column of raw values.
func Keys(raws []any, kind Kind) []string {
	out := make([]string, len(raws))
	for i, raw := range raws {
		out[i] = Key(raw, kind)
	}
	return out
}

func postalCode(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, MaskMarker, ""))
}

func freeText(s string) string {
	if folded, _, err := transform.String(foldMarks, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func rawString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		if math.IsNaN(float64(v)) {
			return ""
		}
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		// NaN is how most tabular sources spell a missing number
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != PostalCode && k != FreeText {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
