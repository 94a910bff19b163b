// Package rewrite composes span-addressed text replacements against one
// immutable source snapshot. Replacements are applied in strictly descending
// start order so already-applied edits never shift the offsets of edits
// still pending.
package rewrite

import (
	"fmt"
	"sort"
	"strings"
)

// Replacement substitutes Text for the [Start, End) byte span of the
// snapshot it was computed from. It must never be applied to any other text.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Overlaps reports whether the two spans intersect.
func (r Replacement) Overlaps(o Replacement) bool {
	return r.Start < o.End && o.Start < r.End
}

// Merge combines replacement sets computed against the same snapshot into
// one set sorted ascending by start offset. Sets may only be merged when
// their spans are pairwise disjoint; an overlap is a composition bug in the
// caller and is reported as an error.
func Merge(sets ...[]Replacement) ([]Replacement, error) {
	var merged []Replacement
	for _, set := range sets {
		merged = append(merged, set...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	for i := 1; i < len(merged); i++ {
		if merged[i-1].Overlaps(merged[i]) {
			return nil, fmt.Errorf("overlapping replacements: [%d,%d) and [%d,%d)",
				merged[i-1].Start, merged[i-1].End, merged[i].Start, merged[i].End)
		}
	}
	return merged, nil
}

// Exclude partitions reps into those disjoint from every winner and those
// overlapping one. Passes run independently against the same snapshot, so a
// later pass may target a span an earlier pass already claimed; the earlier
// pass wins and the nested edit is dropped.
func Exclude(reps, winners []Replacement) (kept, dropped []Replacement) {
	for _, r := range reps {
		conflict := false
		for _, w := range winners {
			if r.Overlaps(w) {
				conflict = true
				break
			}
		}
		if conflict {
			dropped = append(dropped, r)
		} else {
			kept = append(kept, r)
		}
	}
	return kept, dropped
}

// Apply splices the replacements into text. It is a pure function: the
// input snapshot is never mutated and the replacements must all have been
// computed against exactly this text. Spans are validated and must be
// pairwise disjoint.
func Apply(text string, reps []Replacement) (string, error) {
	ordered := make([]Replacement, len(reps))
	copy(ordered, reps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	for i, r := range ordered {
		if r.Start < 0 || r.End > len(text) || r.Start > r.End {
			return "", fmt.Errorf("replacement span [%d,%d) outside snapshot of %d bytes", r.Start, r.End, len(text))
		}
		if i > 0 && ordered[i-1].Overlaps(r) {
			return "", fmt.Errorf("overlapping replacements: [%d,%d) and [%d,%d)",
				r.Start, r.End, ordered[i-1].Start, ordered[i-1].End)
		}
	}

	var b strings.Builder
	out := text
	for _, r := range ordered {
		b.Reset()
		b.Grow(len(out) - (r.End - r.Start) + len(r.Text))
		b.WriteString(out[:r.Start])
		b.WriteString(r.Text)
		b.WriteString(out[r.End:])
		out = b.String()
	}
	return out, nil
}
