package automaton

import (
	"sort"

	"github.com/dekarrin/gbnfc/internal/util"
)

// FinalClass identifies which accepting class (if any) a DFA state belongs
// to, for the purposes of Hopcroft's initial partition. Two states with
// different FinalClass values can never be merged; "" conventionally means
// "not accepting". Multi-marker cases (IntFA coalescing's uber-DFA, spec
// §4.6, where several NFA finals can collapse into one DFA state) pass a
// joined class key such as "termA|termB" so that a conflicting merge is
// still distinguished from either terminal alone.
type FinalClass string

// View is the minimal interface Hopcroft needs to minimize a DFA: something
// that can enumerate states, report each one's final class, and answer
// transition queries over a fixed alphabet of representative input symbols.
// discreteView adapts automaton.DFA[E] to it for discrete alphabets (spec's RTN
// and GLA flavors); intfa.go adapts IntDFA to it by using one representative
// value per equivalence class as the "symbol".
type View interface {
	States() []string
	Start() string
	FinalClassOf(state string) FinalClass
	Next(state, symbol string) (string, bool)
}

// Hopcroft runs Hopcroft's DFA-minimization algorithm (spec §4.3) against
// view, using alphabet as the set of representative splitting symbols. It
// returns a partition: a map from every original state name to the name of
// its block's single chosen representative (the lexicographically first
// member of the block), which the caller uses to rebuild a smaller DFA.
//
// This single routine serves both the discrete alphabet case (RTN/GLA, where
// alphabet is the literal transition labels) and the interval alphabet case
// (IntFA, where alphabet is one sample value per global equivalence class of
// all the IntFA's transition ranges), the algorithm itself only cares about
// a finite list of probe symbols and a Next function, exactly the
// "(block, edge-symbol-sample, edge-properties)" worklist tuple the spec
// describes.
func Hopcroft(view View, alphabet []string) map[string]string {
	states := view.States()
	if len(states) == 0 {
		return map[string]string{}
	}

	// initial partition: group by final class.
	blocksByClass := map[FinalClass][]string{}
	classOf := map[string]FinalClass{}
	for _, s := range states {
		c := view.FinalClassOf(s)
		classOf[s] = c
		blocksByClass[c] = append(blocksByClass[c], s)
	}

	var partition [][]string
	blockOf := map[string]int{}
	for _, members := range blocksByClass {
		sort.Strings(members)
		idx := len(partition)
		partition = append(partition, members)
		for _, m := range members {
			blockOf[m] = idx
		}
	}

	// worklist of block indices paired with a probe symbol; start with every
	// (block, symbol) combination since we don't yet know which blocks any
	// given symbol can split.
	type workItem struct {
		block  int
		symbol string
	}
	var worklist []workItem
	for bi := range partition {
		for _, sym := range alphabet {
			worklist = append(worklist, workItem{block: bi, symbol: sym})
		}
	}

	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		if item.block >= len(partition) || partition[item.block] == nil {
			continue
		}
		splitter := partition[item.block]
		splitterSet := util.NewStringSet()
		for _, s := range splitter {
			splitterSet.Add(s)
		}

		// for every existing block, see if the splitter divides it: states
		// that transition into splitter on item.symbol vs. those that don't.
		for bi, block := range partition {
			if block == nil || len(block) < 2 {
				continue
			}
			var in, out []string
			for _, s := range block {
				dst, ok := view.Next(s, item.symbol)
				if ok && splitterSet.Has(dst) {
					in = append(in, s)
				} else {
					out = append(out, s)
				}
			}
			if len(in) == 0 || len(out) == 0 {
				continue
			}

			// split: replace block bi with `in`, append `out` as new block.
			sort.Strings(in)
			sort.Strings(out)
			partition[bi] = in
			newIdx := len(partition)
			partition = append(partition, out)
			for _, s := range in {
				blockOf[s] = bi
			}
			for _, s := range out {
				blockOf[s] = newIdx
			}

			// Hopcroft optimization: only the smaller of the two fragments
			// needs to be (re-)scheduled against the full alphabet, since the
			// larger fragment's future splits are already implied by
			// whatever else is still on the worklist referencing bi.
			smaller := newIdx
			if len(in) < len(out) {
				smaller = bi
			}
			for _, sym := range alphabet {
				worklist = append(worklist, workItem{block: smaller, symbol: sym})
			}
		}
	}

	result := map[string]string{}
	for _, block := range partition {
		if len(block) == 0 {
			continue
		}
		rep := block[0]
		for _, s := range block {
			if s < rep {
				rep = s
			}
		}
		for _, s := range block {
			result[s] = rep
		}
	}
	return result
}

// discreteView adapts a DFA[E] to the Hopcroft View interface for a discrete
// alphabet, classifying final states by their Value's string form so that
// states with different accept-markers (e.g. different matched terminal
// names, or IntFA coalescing's multi-final conflicts) are never merged.
type discreteView[E any] struct {
	dfa       DFA[E]
	classFunc func(E, bool) FinalClass
}

func (v discreteView[E]) States() []string { return v.dfa.StateNames() }
func (v discreteView[E]) Start() string    { return v.dfa.Start }
func (v discreteView[E]) FinalClassOf(s string) FinalClass {
	st := v.dfa.States[s]
	return v.classFunc(st.Value, st.Accepting)
}
func (v discreteView[E]) Next(s, sym string) (string, bool) {
	n := v.dfa.Next(s, sym)
	return n, n != ""
}

// MinimizeDFA minimizes dfa over the given discrete alphabet and rebuilds a
// new DFA keyed by block representative. classFunc maps a state's stored
// value and accepting flag to the FinalClass used for the initial partition;
// pass the same function used when the DFA was built so finals with
// different meanings (different matched terminal, different RTN transition
// prediction) never collapse together.
func MinimizeDFA[E any](dfa DFA[E], classFunc func(E, bool) FinalClass) DFA[E] {
	alphabet := dfa.alphabet()
	partition := Hopcroft(discreteView[E]{dfa: dfa, classFunc: classFunc}, alphabet)

	out := DFA[E]{States: map[string]DFAState[E]{}}
	seen := util.NewStringSet()
	for orig, rep := range partition {
		if seen.Has(rep) {
			continue
		}
		seen.Add(rep)
		origSt := dfa.States[orig]
		out.AddState(rep, origSt.Accepting)
		out.SetValue(rep, origSt.Value)
	}
	for orig, rep := range partition {
		origSt := dfa.States[orig]
		for sym, t := range origSt.Transitions {
			destRep := partition[t.Next]
			out.AddTransition(rep, sym, destRep)
		}
	}
	out.Start = partition[dfa.Start]
	return out
}

func (dfa DFA[E]) alphabet() []string {
	syms := util.NewStringSet()
	for _, s := range dfa.States {
		for sym := range s.Transitions {
			syms.Add(sym)
		}
	}
	out := syms.Elements()
	sort.Strings(out)
	return out
}
