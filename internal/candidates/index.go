// Package candidates holds the right-hand keys of a join for repeated lookup.
//
// Matching a left key naively scores it against every candidate, which is
// O(n*m) over a whole join. The index also buckets candidates by the rune
// length of their prepared form so a matcher can skip lengths that cannot
// reach its threshold; that pre-filter is exact, not approximate.
package candidates

import (
	"sort"
	"unicode/utf8"
)

// Candidate is one right-hand key tagged with its row position.
type Candidate struct {
	Key string
	ID  int
}

// Index is built once per join and is read-only afterwards, so it can be
// shared by any number of matching goroutines.
type Index struct {
	candidates []Candidate
	prepared   []string
	lengths    []int         // distinct prepared lengths, ascending
	buckets    map[int][]int // prepared length -> candidate positions, insertion order
}

// Build indexes keys in order; a key's ID is its position in keys. Duplicate
// keys are kept as distinct candidates. prepare, when non-nil, is applied once
// per key to produce the form the scorer compares.
func Build(keys []string, prepare func(string) string) *Index {
	idx := &Index{
		candidates: make([]Candidate, len(keys)),
		prepared:   make([]string, len(keys)),
		buckets:    make(map[int][]int),
	}

	for i, key := range keys {
		form := key
		if prepare != nil {
			form = prepare(key)
		}
		idx.candidates[i] = Candidate{Key: key, ID: i}
		idx.prepared[i] = form

		n := utf8.RuneCountInString(form)
		if _, ok := idx.buckets[n]; !ok {
			idx.lengths = append(idx.lengths, n)
		}
		idx.buckets[n] = append(idx.buckets[n], i)
	}
	sort.Ints(idx.lengths)

	return idx
}

// Len returns the number of candidates.
func (idx *Index) Len() int {
	return len(idx.candidates)
}

// Candidates returns every candidate in insertion order.
func (idx *Index) Candidates() []Candidate {
	out := make([]Candidate, len(idx.candidates))
	copy(out, idx.candidates)
	return out
}

// Get returns the candidate with the given ID.
func (idx *Index) Get(id int) (Candidate, bool) {
	if id < 0 || id >= len(idx.candidates) {
		return Candidate{}, false
	}
	return idx.candidates[id], true
}

// Prepared returns the scorer form stored for the candidate with the given ID.
func (idx *Index) Prepared(id int) string {
	return idx.prepared[id]
}

// Lengths returns the distinct prepared rune lengths present, ascending.
func (idx *Index) Lengths() []int {
	out := make([]int, len(idx.lengths))
	copy(out, idx.lengths)
	return out
}

// Each calls fn with the ID of every candidate in insertion order.
func (idx *Index) Each(fn func(id int)) {
	for i := range idx.candidates {
		fn(i)
	}
}

// EachWithLength calls fn with the ID of every candidate whose prepared rune
// length satisfies keep. Within a length bucket IDs are visited in insertion
// order; across buckets the order is by ascending length.
func (idx *Index) EachWithLength(keep func(length int) bool, fn func(id int)) {
	for _, n := range idx.lengths {
		if !keep(n) {
			continue
		}
		for _, id := range idx.buckets[n] {
			fn(id)
		}
	}
}

// WithinLength returns candidates whose prepared rune length is in [lo, hi],
// in insertion order.
func (idx *Index) WithinLength(lo, hi int) []Candidate {
	var ids []int
	idx.EachWithLength(func(n int) bool { return n >= lo && n <= hi }, func(id int) {
		ids = append(ids, id)
	})
	sort.Ints(ids)

	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = idx.candidates[id]
	}
	return out
}
