package automaton

import (
	"fmt"
	"sort"

	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
	"github.com/dekarrin/gbnfc/internal/util"
)

// IntTransition is one edge of an interval-alphabet automaton: either an
// IntSet range (Epsilon == false) or an epsilon move (Epsilon == true, Set
// unused).
type IntTransition struct {
	Set     grammar.IntSet
	Next    string
	Epsilon bool
}

// IntNFAState is one state of an interval-alphabet NFA (used while Thompson-
// constructing a terminal's regex before determinization).
type IntNFAState struct {
	Name        string
	Transitions []IntTransition
	Accepting   bool
	// Final, when Accepting, names the terminal this state (or the DFA state
	// it collapses into) recognizes.
	Final string
}

// IntNFA is a non-deterministic automaton over byte/codepoint ranges.
type IntNFA struct {
	States map[string]*IntNFAState
	Start  string
}

func NewIntNFA() *IntNFA {
	return &IntNFA{States: map[string]*IntNFAState{}}
}

func (n *IntNFA) AddState(name string, accepting bool) {
	if _, ok := n.States[name]; ok {
		return
	}
	n.States[name] = &IntNFAState{Name: name, Accepting: accepting}
}

func (n *IntNFA) AddTransition(from string, set grammar.IntSet, to string) {
	n.States[from].Transitions = append(n.States[from].Transitions, IntTransition{Set: set, Next: to})
}

func (n *IntNFA) AddEpsilon(from, to string) {
	n.States[from].Transitions = append(n.States[from].Transitions, IntTransition{Next: to, Epsilon: true})
}

func (n *IntNFA) SetFinal(name, terminal string) {
	s := n.States[name]
	s.Accepting = true
	s.Final = terminal
}

// epsilonClosure mirrors automaton.NFA.EpsilonClosure using an explicit stack.
func (n *IntNFA) epsilonClosure(s string) util.StringSet {
	closure := util.NewStringSet()
	var stack util.Stack[string]
	stack.Push(s)
	for stack.Len() > 0 {
		cur := stack.Pop()
		if closure.Has(cur) {
			continue
		}
		closure.Add(cur)
		for _, t := range n.States[cur].Transitions {
			if t.Epsilon {
				stack.Push(t.Next)
			}
		}
	}
	return closure
}

func (n *IntNFA) epsilonClosureOfSet(x util.ISet[string]) util.StringSet {
	all := util.NewStringSet()
	for _, s := range x.Elements() {
		all.AddAll(n.epsilonClosure(s))
	}
	return all
}

// IntDFAState is a state of a deterministic interval automaton: transitions
// partition the alphabet disjointly (no two transitions' Sets overlap).
type IntDFAState struct {
	Name        string
	Transitions []IntTransition
	Accepting   bool
	// Finals holds the terminal names this state accepts: all of them, sorted
	// by name, when the DFA is built with allowMultiFinal, otherwise a single
	// one. Len > 1 signals a lexer conflict (spec §4.6): a
	// prefix that could be interpreted as more than one terminal.
	Finals []string
}

// IntDFA is a deterministic automaton over byte/codepoint ranges: the lexing
// half of the grammar's finite-automaton kernel (spec §3's IntFA flavor).
type IntDFA struct {
	States map[string]*IntDFAState
	Start  string
}

// Next returns the destination state for input value v, or "" if none.
func (d *IntDFA) Next(state string, v int32) string {
	s, ok := d.States[state]
	if !ok {
		return ""
	}
	for _, t := range s.Transitions {
		if t.Set.Contains(v) {
			return t.Next
		}
	}
	return ""
}

// ToIntDFA runs subset construction over the interval alphabet, using
// grammar.EquivalenceClasses at each step to partition the outgoing IntSet
// edges of the current NFA-state-set into classes that are each wholly
// inside or wholly outside every original edge, this is the spec §4.2
// requirement that makes byte-range determinization correct and scalable
// instead of iterating 256+ individual symbols.
//
// allowMultiFinal controls whether a DFA state that several distinct-final
// NFA states collapsed into keeps *all* their terminal names (true, used by
// IntFA coalescing's über-DFA to detect lexer conflicts, spec §4.6) or
// whether the caller instead wants ordinary per-terminal NFA-alt union
// construction to simply report a single winner (false; single-terminal
// regex compilation never has more than one final marker reachable from the
// same closure so the distinction doesn't arise there).
func ToIntDFA(nfa *IntNFA, allowMultiFinal bool) *IntDFA {
	dStart := nfa.epsilonClosure(nfa.Start)
	dStates := map[string]util.StringSet{}
	dStates[dStart.StringOrdered()] = dStart
	marked := util.NewStringSet()

	dfa := &IntDFA{States: map[string]*IntDFAState{}}

	for {
		names := util.StringSetOf(util.OrderedKeys(dStates))
		unmarked := names.Difference(marked)
		if unmarked.Len() < 1 {
			break
		}
		for _, tName := range unmarked.Elements() {
			t := dStates[tName]
			marked.Add(tName)

			newState := &IntDFAState{Name: tName}
			var finals []string
			seen := util.NewStringSet()
			for _, nm := range t.Elements() {
				ns := nfa.States[nm]
				if ns.Accepting && !seen.Has(ns.Final) {
					seen.Add(ns.Final)
					finals = append(finals, ns.Final)
				}
			}
			if len(finals) > 0 {
				newState.Accepting = true
				if allowMultiFinal {
					sort.Strings(finals)
					newState.Finals = finals
				} else {
					newState.Finals = finals[:1]
				}
			}

			// gather the edge-values fanning out of this state-set and split
			// them into equivalence classes.
			var sets []grammar.IntSet
			for _, nm := range t.Elements() {
				for _, tr := range nfa.States[nm].Transitions {
					if !tr.Epsilon {
						sets = append(sets, tr.Set)
					}
				}
			}
			classes := grammar.EquivalenceClasses(sets)

			for _, class := range classes {
				sample, ok := class.Sample()
				if !ok {
					continue
				}
				// Move: states reached by an edge whose set contains sample.
				moveTo := util.NewStringSet()
				for _, nm := range t.Elements() {
					for _, tr := range nfa.States[nm].Transitions {
						if !tr.Epsilon && tr.Set.Contains(sample) {
							moveTo.Add(tr.Next)
						}
					}
				}
				u := nfa.epsilonClosureOfSet(moveTo)
				if u.Empty() {
					continue
				}
				if !names.Has(u.StringOrdered()) {
					names.Add(u.StringOrdered())
					dStates[u.StringOrdered()] = u
				}
				newState.Transitions = append(newState.Transitions, IntTransition{Set: class, Next: u.StringOrdered()})
			}

			dfa.States[tName] = newState
			if dfa.Start == "" {
				dfa.Start = tName
			}
		}
	}
	return dfa
}

// intFAView adapts an IntDFA to the Hopcroft View interface: the alphabet is
// one representative sample per global equivalence class of every
// transition's IntSet across the whole automaton (spec §4.3/§4.2's shared
// "iterate over equivalence classes" idea), and Next probes with that sample.
type intFAView struct {
	dfa     *IntDFA
	samples map[string]int32 // symbol token -> representative value
}

func newIntFAView(dfa *IntDFA) intFAView {
	var sets []grammar.IntSet
	for _, s := range dfa.States {
		for _, t := range s.Transitions {
			sets = append(sets, t.Set)
		}
	}
	classes := grammar.EquivalenceClasses(sets)
	samples := map[string]int32{}
	for i, c := range classes {
		if v, ok := c.Sample(); ok {
			samples[fmt.Sprintf("c%d", i)] = v
		}
	}
	return intFAView{dfa: dfa, samples: samples}
}

func (v intFAView) alphabet() []string {
	out := make([]string, 0, len(v.samples))
	for k := range v.samples {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (v intFAView) States() []string {
	names := make([]string, 0, len(v.dfa.States))
	for n := range v.dfa.States {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v intFAView) Start() string { return v.dfa.Start }

func (v intFAView) FinalClassOf(state string) FinalClass {
	s := v.dfa.States[state]
	if !s.Accepting {
		return FinalClass("")
	}
	cls := ""
	for i, f := range s.Finals {
		if i > 0 {
			cls += "|"
		}
		cls += f
	}
	return FinalClass(cls)
}

func (v intFAView) Next(state, symbol string) (string, bool) {
	sample, ok := v.samples[symbol]
	if !ok {
		return "", false
	}
	n := v.dfa.Next(state, sample)
	return n, n != ""
}

// MinimizeIntFA minimizes dfa via Hopcroft's algorithm (spec §4.3), treating
// states whose Finals differ as permanently distinct.
func MinimizeIntFA(dfa *IntDFA) *IntDFA {
	view := newIntFAView(dfa)
	partition := Hopcroft(view, view.alphabet())

	out := &IntDFA{States: map[string]*IntDFAState{}}
	seen := util.NewStringSet()
	for orig, rep := range partition {
		if seen.Has(rep) {
			continue
		}
		seen.Add(rep)
		o := dfa.States[orig]
		out.States[rep] = &IntDFAState{Name: rep, Accepting: o.Accepting, Finals: append([]string(nil), o.Finals...)}
	}

	// merge transitions: for each original state's transitions, retarget to
	// the representative and then re-coalesce ranges per destination rep so
	// the minimized DFA's transitions stay non-overlapping.
	byRepAndDest := map[string]map[string]*grammar.IntSet{}
	for orig, rep := range partition {
		o := dfa.States[orig]
		if _, ok := byRepAndDest[rep]; !ok {
			byRepAndDest[rep] = map[string]*grammar.IntSet{}
		}
		for _, t := range o.Transitions {
			destRep := partition[t.Next]
			acc, ok := byRepAndDest[rep][destRep]
			if !ok {
				s := grammar.NewIntSet()
				acc = &s
				byRepAndDest[rep][destRep] = acc
			}
			acc.AddSet(t.Set)
		}
	}
	for rep, dests := range byRepAndDest {
		for destRep, set := range dests {
			out.States[rep].Transitions = append(out.States[rep].Transitions, IntTransition{Set: *set, Next: destRep})
		}
	}
	out.Start = partition[dfa.Start]
	return out
}
