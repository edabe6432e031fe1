package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// intRange is an inclusive [Lo, Hi] range of 32-bit code points.
type intRange struct {
	Lo, Hi int32
}

func (r intRange) String() string {
	if r.Lo == r.Hi {
		return fmt.Sprintf("%d", r.Lo)
	}
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}

func (r intRange) overlapsOrAdjacent(o intRange) bool {
	// adjacency: r ends exactly where o begins (or vice versa), with no gap.
	if r.Hi < maxInt32(r.Hi, o.Hi) && r.Hi+1 < o.Lo {
		return false
	}
	return r.Lo <= o.Hi+1 && o.Lo <= r.Hi+1
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Universe is the conceptual upper bound used when materializing the
// complement of a negated IntSet: [0, +Inf).
const Universe = int32(1<<31 - 1)

// IntSet is a set of 32-bit integers represented as a sorted list of
// disjoint, non-adjacent inclusive ranges, optionally negated. Negation is
// stored rather than immediately materialized so that repeated Invert calls
// are cheap and so that a negated set over an unbounded universe doesn't need
// to enumerate it.
//
// This is the edge-value kind used by IntFA transitions (spec: byte/codepoint
// ranges for lexing).
type IntSet struct {
	ranges   []intRange
	negated  bool
}

// NewIntSet returns an empty IntSet.
func NewIntSet() IntSet {
	return IntSet{}
}

// NewIntSetRange returns an IntSet containing exactly [lo, hi].
func NewIntSetRange(lo, hi int32) IntSet {
	s := IntSet{}
	s.Add(lo, hi)
	return s
}

// NewIntSetChar returns an IntSet containing exactly the single value v.
func NewIntSetChar(v int32) IntSet {
	return NewIntSetRange(v, v)
}

// Add merges [lo, hi] into the set, normalizing so that stored ranges stay
// disjoint and non-adjacent.
func (s *IntSet) Add(lo, hi int32) {
	if hi < lo {
		lo, hi = hi, lo
	}
	merged := intRange{Lo: lo, Hi: hi}

	out := make([]intRange, 0, len(s.ranges)+1)
	inserted := false
	for _, r := range s.ranges {
		if !inserted && merged.overlapsOrAdjacent(r) {
			if r.Lo < merged.Lo {
				merged.Lo = r.Lo
			}
			if r.Hi > merged.Hi {
				merged.Hi = r.Hi
			}
			continue
		}
		if !inserted && merged.Hi < r.Lo {
			out = append(out, merged)
			inserted = true
		}
		out = append(out, r)
	}
	if !inserted {
		out = append(out, merged)
	}

	s.ranges = coalesce(out)
}

// coalesce re-merges a list of ranges that may now touch or overlap after an
// insertion, producing the normalized disjoint/non-adjacent form.
func coalesce(rs []intRange) []intRange {
	if len(rs) < 2 {
		return rs
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Lo < rs[j].Lo })

	out := make([]intRange, 0, len(rs))
	cur := rs[0]
	for _, r := range rs[1:] {
		if cur.overlapsOrAdjacent(r) {
			if r.Lo < cur.Lo {
				cur.Lo = r.Lo
			}
			if r.Hi > cur.Hi {
				cur.Hi = r.Hi
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// AddSet merges every range of o into s.
func (s *IntSet) AddSet(o IntSet) {
	for _, r := range o.rawRanges() {
		s.Add(r.Lo, r.Hi)
	}
}

// rawRanges returns the underlying disjoint ranges regardless of negation
// (used internally by operations that need to reason about the materialized
// shape rather than the logical membership).
func (s IntSet) rawRanges() []intRange {
	return s.ranges
}

// RawRange is one disjoint inclusive range as stored internally, exposed read
// only for callers (e.g. package codec) that need to serialize the exact
// stored shape rather than test membership.
type RawRange struct {
	Lo, Hi int32
}

// RawRanges returns a copy of the set's stored disjoint ranges, ignoring
// negation, pair with Negated to reconstruct the full set.
func (s IntSet) RawRanges() []RawRange {
	out := make([]RawRange, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = RawRange{Lo: r.Lo, Hi: r.Hi}
	}
	return out
}

// Contains reports whether v is a member of the set, honoring negation.
func (s IntSet) Contains(v int32) bool {
	in := false
	lo, hi := 0, len(s.ranges)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		r := s.ranges[mid]
		if v < r.Lo {
			hi = mid - 1
		} else if v > r.Hi {
			lo = mid + 1
		} else {
			in = true
			break
		}
	}
	if s.negated {
		return !in
	}
	return in
}

// Invert toggles negation. It does not eagerly materialize the complement;
// Contains still answers correctly against the stored ranges plus the
// negation flag.
func (s IntSet) Invert() IntSet {
	return IntSet{ranges: s.ranges, negated: !s.negated}
}

// Negated reports whether the set is stored in negated form.
func (s IntSet) Negated() bool {
	return s.negated
}

// Empty reports whether the set contains no values at all (not merely that
// its range list is empty, a negated empty-range set is the universe, not
// empty).
func (s IntSet) Empty() bool {
	if s.negated {
		return false
	}
	return len(s.ranges) == 0
}

// Sample returns a representative member of the set along with true, or
// (0, false) if the set is empty. Used by equivalence-class-based subset
// construction and minimization to pick one element of a class to probe
// transitions with.
func (s IntSet) Sample() (int32, bool) {
	if s.Empty() {
		return 0, false
	}
	if !s.negated {
		return s.ranges[0].Lo, true
	}
	// negated: find the smallest non-negative value not covered by any
	// stored range.
	var v int32
	for {
		if !s.inRaw(v) {
			return v, true
		}
		// advance past the covering range
		for _, r := range s.ranges {
			if r.Lo <= v && v <= r.Hi {
				v = r.Hi + 1
				break
			}
		}
		if v > Universe {
			return 0, false
		}
	}
}

func (s IntSet) inRaw(v int32) bool {
	for _, r := range s.ranges {
		if r.Lo <= v && v <= r.Hi {
			return true
		}
	}
	return false
}

// Union returns a new IntSet that is the union of s and o. Negation is
// resolved via De Morgan's laws when either operand is negated.
func (s IntSet) Union(o IntSet) IntSet {
	if !s.negated && !o.negated {
		u := IntSet{}
		u.AddSet(s)
		u.AddSet(o)
		return u
	}
	// fall back to materializing against the bounded universe; both this
	// spec's terminals and its byte-range alphabet fit comfortably under
	// Universe.
	return materializedUnion(s, o)
}

func materializedUnion(a, b IntSet) IntSet {
	out := IntSet{}
	for v := int32(0); v <= Universe; v++ {
		if a.Contains(v) || b.Contains(v) {
			// extend current open range greedily
			if n := len(out.ranges); n > 0 && out.ranges[n-1].Hi == v-1 {
				out.ranges[n-1].Hi = v
				continue
			}
			out.ranges = append(out.ranges, intRange{Lo: v, Hi: v})
		}
		if v == Universe {
			break
		}
	}
	return out
}

// String renders the set's ranges for debugging, e.g. "[0-5,10-15]" with a
// leading "!" when negated.
func (s IntSet) String() string {
	var sb strings.Builder
	if s.negated {
		sb.WriteRune('!')
	}
	sb.WriteRune('[')
	for i, r := range s.ranges {
		sb.WriteString(r.String())
		if i+1 < len(s.ranges) {
			sb.WriteRune(',')
		}
	}
	sb.WriteRune(']')
	return sb.String()
}

// IsEpsilon is always false for an IntSet edge; epsilon transitions on an
// IntFA are represented separately, by the Epsilon flag on
// automaton.IntTransition.
func (s IntSet) IsEpsilon() bool { return false }

// Equal compares two IntSets by their normalized range list and negation
// flag.
func (s IntSet) Equal(o IntSet) bool {
	if s.negated != o.negated || len(s.ranges) != len(o.ranges) {
		return false
	}
	for i := range s.ranges {
		if s.ranges[i] != o.ranges[i] {
			return false
		}
	}
	return true
}

// boundary is an endpoint used while computing equivalence classes: a value
// at which some input set starts or ends (exclusive stop == Hi+1).
type boundary struct {
	at    int32
	opens bool // true if a range starts here, false if a range ends just before here
}

// EquivalenceClasses partitions the integer line so that every returned
// IntSet is either wholly contained in, or wholly disjoint from, every set in
// sets. This is the machinery NFA->DFA determinization uses instead of
// iterating one symbol at a time over a byte-range alphabet (spec §4.2).
func EquivalenceClasses(sets []IntSet) []IntSet {
	if len(sets) == 0 {
		return nil
	}

	// collect all boundaries contributed by the materialized (non-negated)
	// view of each set; negation only affects membership, not where the
	// boundaries of runs fall, so we materialize negated sets against the
	// shared Universe bound for boundary-finding purposes only.
	var starts, stops []int32
	for _, s := range sets {
		for _, r := range materialize(s).ranges {
			starts = append(starts, r.Lo)
			if r.Hi < Universe {
				stops = append(stops, r.Hi+1)
			}
		}
	}

	cuts := map[int32]bool{0: true}
	for _, v := range starts {
		cuts[v] = true
	}
	for _, v := range stops {
		cuts[v] = true
	}

	ordered := make([]int32, 0, len(cuts))
	for v := range cuts {
		ordered = append(ordered, v)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var classes []IntSet
	for i, lo := range ordered {
		var hi int32
		if i+1 < len(ordered) {
			hi = ordered[i+1] - 1
		} else {
			hi = Universe
		}
		if hi < lo {
			continue
		}
		classes = append(classes, NewIntSetRange(lo, hi))
	}
	return classes
}

// materialize returns the set's ranges in non-negated (positive) form,
// bounded by Universe.
func materialize(s IntSet) IntSet {
	if !s.negated {
		return IntSet{ranges: s.ranges}
	}
	out := IntSet{}
	cur := int32(0)
	for _, r := range s.ranges {
		if cur < r.Lo {
			out.Add(cur, r.Lo-1)
		}
		cur = r.Hi + 1
	}
	if cur <= Universe {
		out.Add(cur, Universe)
	}
	return out
}
