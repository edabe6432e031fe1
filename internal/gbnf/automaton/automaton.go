// Package automaton holds the finite-automaton kernel shared by all three FA
// flavors the grammar compiler builds (IntFA, RTN, GLA): state/transition
// storage, NFA subset construction, and Hopcroft minimization. It is
// generalized from the teacher repo's LR(1)/LALR(1) viable-prefix automaton
// machinery (dekarrin/tunaq's internal/ictiobus/automaton), keeping the same
// map-of-states-keyed-by-name representation and the same
// epsilon-closure/subset-construction shape, but parameterized so it can
// drive determinization for discrete alphabets (terminal names, nonterminal
// references, used for RTNs) as well as IntSet-ranged alphabets (used for
// IntFAs, see intfa.go).
package automaton

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/gbnfc/internal/util"
)

// Epsilon is the reserved input value denoting an epsilon transition in the
// discrete-alphabet engine.
const Epsilon = ""

// FATransition is one edge of a discrete-alphabet automaton: an input symbol
// (empty string for epsilon) and the destination state name.
type FATransition struct {
	Input string
	Next  string
}

func (t FATransition) String() string {
	inp := t.Input
	if inp == "" {
		inp = "ε"
	}
	return fmt.Sprintf("=(%s)=> %s", inp, t.Next)
}

// DFAState is one state of a discrete-alphabet DFA, carrying an arbitrary
// value E (e.g. the set of NFA states it was born from, or a final marker).
type DFAState[E any] struct {
	Name        string
	Value       E
	Transitions map[string]FATransition
	Accepting   bool
}

func (ns DFAState[E]) String() string {
	var moves strings.Builder
	inputs := util.OrderedKeys(ns.Transitions)
	for i, input := range inputs {
		moves.WriteString(ns.Transitions[input].String())
		if i+1 < len(inputs) {
			moves.WriteString(", ")
		}
	}
	str := fmt.Sprintf("(%s [%s])", ns.Name, moves.String())
	if ns.Accepting {
		str = "(" + str + ")"
	}
	return str
}

// NFAState is one state of a discrete-alphabet NFA; unlike a DFA state it may
// have multiple transitions per input symbol (including epsilon).
type NFAState[E any] struct {
	Name        string
	Value       E
	Transitions map[string][]FATransition
	Accepting   bool
}

func (ns NFAState[E]) String() string {
	var moves strings.Builder
	inputs := util.OrderedKeys(ns.Transitions)
	for i, input := range inputs {
		var strs []string
		for _, t := range ns.Transitions[input] {
			strs = append(strs, t.String())
		}
		sort.Strings(strs)
		for tIdx, t := range strs {
			moves.WriteString(t)
			if tIdx+1 < len(strs) || i+1 < len(inputs) {
				moves.WriteString(", ")
			}
		}
	}
	str := fmt.Sprintf("(%s [%s])", ns.Name, moves.String())
	if ns.Accepting {
		str = "(" + str + ")"
	}
	return str
}

// DFA is a deterministic discrete-alphabet automaton: at most one transition
// per (state, input symbol) pair.
type DFA[E any] struct {
	States map[string]DFAState[E]
	Start  string
}

func (dfa *DFA[E]) AddState(state string, accepting bool) {
	if _, ok := dfa.States[state]; ok {
		return
	}
	if dfa.States == nil {
		dfa.States = map[string]DFAState[E]{}
	}
	dfa.States[state] = DFAState[E]{
		Name:        state,
		Transitions: map[string]FATransition{},
		Accepting:   accepting,
	}
}

func (dfa *DFA[E]) SetValue(state string, v E) {
	s, ok := dfa.States[state]
	if !ok {
		panic(fmt.Sprintf("setting value on non-existing state: %q", state))
	}
	s.Value = v
	dfa.States[state] = s
}

func (dfa DFA[E]) GetValue(state string) E {
	return dfa.States[state].Value
}

func (dfa DFA[E]) IsAccepting(state string) bool {
	s, ok := dfa.States[state]
	return ok && s.Accepting
}

func (dfa *DFA[E]) AddTransition(from, input, to string) {
	s, ok := dfa.States[from]
	if !ok {
		panic(fmt.Sprintf("add transition from non-existent state %q", from))
	}
	if _, ok := dfa.States[to]; !ok {
		panic(fmt.Sprintf("add transition to non-existent state %q", to))
	}
	s.Transitions[input] = FATransition{Input: input, Next: to}
	dfa.States[from] = s
}

// Next returns the destination of the transition on input from fromState, or
// "" if there is none.
func (dfa DFA[E]) Next(fromState, input string) string {
	s, ok := dfa.States[fromState]
	if !ok {
		return ""
	}
	t, ok := s.Transitions[input]
	if !ok {
		return ""
	}
	return t.Next
}

// StateNames returns every state name in the DFA, sorted.
func (dfa DFA[E]) StateNames() []string {
	return util.OrderedKeys(dfa.States)
}

func (dfa DFA[E]) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<START: %q, STATES:", dfa.Start))
	names := dfa.StateNames()
	for i, n := range names {
		sb.WriteString("\n\t")
		sb.WriteString(dfa.States[n].String())
		if i+1 < len(names) {
			sb.WriteRune(',')
		} else {
			sb.WriteRune('\n')
		}
	}
	sb.WriteRune('>')
	return sb.String()
}

// NFA is a non-deterministic discrete-alphabet automaton.
type NFA[E any] struct {
	States map[string]NFAState[E]
	Start  string
}

func (nfa *NFA[E]) AddState(state string, accepting bool) {
	if _, ok := nfa.States[state]; ok {
		return
	}
	if nfa.States == nil {
		nfa.States = map[string]NFAState[E]{}
	}
	nfa.States[state] = NFAState[E]{
		Name:        state,
		Transitions: map[string][]FATransition{},
		Accepting:   accepting,
	}
}

func (nfa *NFA[E]) SetValue(state string, v E) {
	s, ok := nfa.States[state]
	if !ok {
		panic(fmt.Sprintf("setting value on non-existing state: %q", state))
	}
	s.Value = v
	nfa.States[state] = s
}

func (nfa NFA[E]) GetValue(state string) E {
	return nfa.States[state].Value
}

func (nfa *NFA[E]) AddTransition(from, input, to string) {
	s, ok := nfa.States[from]
	if !ok {
		panic(fmt.Sprintf("add transition from non-existent state %q", from))
	}
	if _, ok := nfa.States[to]; !ok {
		panic(fmt.Sprintf("add transition to non-existent state %q", to))
	}
	s.Transitions[input] = append(s.Transitions[input], FATransition{Input: input, Next: to})
	nfa.States[from] = s
}

// StateNames returns every state name in the NFA, sorted.
func (nfa NFA[E]) StateNames() []string {
	return util.OrderedKeys(nfa.States)
}

// InputSymbols returns the set of all non-epsilon input symbols appearing on
// some transition.
func (nfa NFA[E]) InputSymbols() util.StringSet {
	syms := util.NewStringSet()
	for _, sName := range nfa.StateNames() {
		for a := range nfa.States[sName].Transitions {
			if a != Epsilon {
				syms.Add(a)
			}
		}
	}
	return syms
}

// EpsilonClosure gives the set of states reachable from s using zero or more
// epsilon moves. Implemented with an explicit stack (as the teacher's
// original does) rather than native recursion, both to avoid deep recursion
// on pathological grammars and to keep the visited-set bookkeeping explicit,
// the same style GLA construction's cycle detection uses.
func (nfa NFA[E]) EpsilonClosure(s string) util.StringSet {
	if _, ok := nfa.States[s]; !ok {
		return nil
	}
	closure := util.NewStringSet()
	var stack util.Stack[string]
	stack.Push(s)

	for stack.Len() > 0 {
		cur := stack.Pop()
		if closure.Has(cur) {
			continue
		}
		closure.Add(cur)
		for _, t := range nfa.States[cur].Transitions[Epsilon] {
			stack.Push(t.Next)
		}
	}
	return closure
}

// EpsilonClosureOfSet is EpsilonClosure extended over a whole set of states.
func (nfa NFA[E]) EpsilonClosureOfSet(x util.ISet[string]) util.StringSet {
	all := util.NewStringSet()
	for _, s := range x.Elements() {
		all.AddAll(nfa.EpsilonClosure(s))
	}
	return all
}

// Move returns the set of states reachable with one transition from some
// state in x on input a.
func (nfa NFA[E]) Move(x util.ISet[string], a string) util.StringSet {
	moves := util.NewStringSet()
	for _, s := range x.Elements() {
		st, ok := nfa.States[s]
		if !ok {
			continue
		}
		for _, t := range st.Transitions[a] {
			moves.Add(t.Next)
		}
	}
	return moves
}

// ToDFA runs subset construction (purple-dragon algorithm 3.20, as in the
// teacher's automaton.go) over a discrete alphabet: since every input symbol
// already names its own equivalence class (terminal names and nonterminal
// references never overlap partially, they're either the same name or a
// different one), no IntSet-style equivalence-class splitting is needed here;
// that machinery lives in intfa.go for the byte-range alphabet case. The
// resulting DFA's state values are the *set* of original NFA state values
// that collapsed into it, so callers (priority propagation, final-marker
// conflict detection) can tell when multiple accepting NFA states merged.
func (nfa NFA[E]) ToDFA() DFA[util.SVSet[E]] {
	inputSymbols := nfa.InputSymbols()
	dStart := nfa.EpsilonClosure(nfa.Start)

	dStates := map[string]util.StringSet{}
	dStates[dStart.StringOrdered()] = dStart
	marked := util.NewStringSet()

	dfa := DFA[util.SVSet[E]]{States: map[string]DFAState[util.SVSet[E]]{}}

	for {
		names := util.StringSetOf(util.OrderedKeys(dStates))
		unmarked := names.Difference(marked)
		if unmarked.Len() < 1 {
			break
		}
		for _, tName := range unmarked.Elements() {
			t := dStates[tName]
			marked.Add(tName)

			vals := util.NewSVSet[E]()
			for _, nm := range t.Elements() {
				vals.Set(nm, nfa.GetValue(nm))
			}

			newState := DFAState[util.SVSet[E]]{Name: tName, Value: vals, Transitions: map[string]FATransition{}}
			if t.Any(func(v string) bool { return nfa.States[v].Accepting }) {
				newState.Accepting = true
			}

			for _, a := range inputSymbols.Elements() {
				u := nfa.EpsilonClosureOfSet(nfa.Move(t, a))
				if u.Empty() {
					continue
				}
				if !names.Has(u.StringOrdered()) {
					names.Add(u.StringOrdered())
					dStates[u.StringOrdered()] = u
				}
				newState.Transitions[a] = FATransition{Input: a, Next: u.StringOrdered()}
			}

			dfa.States[tName] = newState
			if dfa.Start == "" {
				dfa.Start = tName
			}
		}
	}
	return dfa
}
