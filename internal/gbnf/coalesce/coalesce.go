// Package coalesce builds the über-DFA the lexer actually runs: it groups
// terminals into IntFAs such that no two terminals sharing an IntFA can
// produce a lexical conflict (spec §4.6). Placement is greedy first-fit in
// declaration order; the number of IntFAs is not minimized.
package coalesce

import (
	"fmt"
	"sort"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/dekarrin/gbnfc/internal/gbnf/automaton"
	"github.com/dekarrin/gbnfc/internal/gbnf/fe/rx"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// TermSet is an ordered group of terminal names that share one compiled
// IntFA. Backed by a tree set (rather than a plain map) so iteration order
// is deterministic, linearization and byte emission downstream need a
// stable ordering to produce reproducible artifacts (spec §4.7).
type TermSet struct {
	names *treeset.Set
}

func newTermSet() *TermSet {
	return &TermSet{names: treeset.NewWith(utils.StringComparator)}
}

// Names returns the terminal names in this set, sorted.
func (t *TermSet) Names() []string {
	out := make([]string, 0, t.names.Size())
	for _, v := range t.names.Values() {
		out = append(out, v.(string))
	}
	sort.Strings(out)
	return out
}

// Pool is the first-fit-no-conflict assignment of terminals to TermSets.
type Pool struct {
	Sets []*TermSet
	// DFAs holds the minimized, multi-final über-DFA for each entry of Sets,
	// same index.
	DFAs []*automaton.IntDFA
}

// Coalesce assigns every terminal in g, in declaration order, to TermSets
// such that no set's combined DFA ever has more than one final marker live
// at the same state (a lexical conflict, spec §4.6), placing each terminal
// in the first existing set it doesn't conflict with and opening a new set
// only when none fits. The number of sets this yields depends on that order
// and is not minimized.
func Coalesce(g *grammar.Grammar) (*Pool, error) {
	pool := &Pool{}

	for _, name := range g.TerminalNames() {
		def := g.Terminals[name]
		placed := false
		for i, set := range pool.Sets {
			candidate := append(set.Names(), name)
			dfa, err := buildUberDFA(g, candidate)
			if err != nil {
				return nil, err
			}
			if !hasConflict(dfa) {
				set.names.Add(name)
				pool.DFAs[i] = automaton.MinimizeIntFA(dfa)
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		newSet := newTermSet()
		newSet.names.Add(name)
		dfa, err := buildUberDFA(g, []string{name})
		if err != nil {
			return nil, fmt.Errorf("terminal %s: %w", name, err)
		}
		if hasConflict(dfa) {
			return nil, fmt.Errorf("terminal %s conflicts with itself (pattern %q is ambiguous)", name, def.Pattern)
		}
		pool.Sets = append(pool.Sets, newSet)
		pool.DFAs = append(pool.DFAs, automaton.MinimizeIntFA(dfa))
	}

	return pool, nil
}

// buildUberDFA compiles every named terminal's pattern into one NFA (by
// alternation over their individual Thompson fragments, via a shared
// IntNFA) and determinizes it with allowMultiFinal=true so any state that
// several terminals' accept states collapsed into keeps every terminal name
// that reaches it, the signal hasConflict checks for.
func buildUberDFA(g *grammar.Grammar, names []string) (*automaton.IntDFA, error) {
	nfa := automaton.NewIntNFA()
	entry := "uber.entry"
	nfa.AddState(entry, false)
	nfa.Start = entry

	for i, name := range names {
		def, ok := g.Terminals[name]
		if !ok {
			return nil, fmt.Errorf("undeclared terminal %q", name)
		}
		sub, err := compileFragmentInto(nfa, def.Pattern, name, i)
		if err != nil {
			return nil, fmt.Errorf("terminal %s: %w", name, err)
		}
		nfa.AddEpsilon(entry, sub)
	}

	return automaton.ToIntDFA(nfa, true), nil
}

// compileFragmentInto compiles pattern as its own single-terminal DFA (via
// package rx) and splices a copy of its transition structure into nfa under
// freshly namespaced state names, returning the spliced entry state. This
// keeps rx's parser self-contained (it always builds its own IntNFA/IntDFA
// pair) while letting coalesce combine many terminals into one über-NFA
// without re-implementing regex parsing here.
func compileFragmentInto(nfa *automaton.IntNFA, pattern, terminal string, idx int) (string, error) {
	sub, err := rx.Compile(pattern, terminal)
	if err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("t%d.", idx)
	for _, name := range sortedIntDFAStates(sub) {
		nfa.AddState(prefix+name, false)
	}
	for _, name := range sortedIntDFAStates(sub) {
		st := sub.States[name]
		if st.Accepting {
			nfa.SetFinal(prefix+name, terminal)
		}
		for _, t := range st.Transitions {
			nfa.AddTransition(prefix+name, t.Set, prefix+t.Next)
		}
	}
	return prefix + sub.Start, nil
}

func sortedIntDFAStates(d *automaton.IntDFA) []string {
	names := make([]string, 0, len(d.States))
	for n := range d.States {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// hasConflict reports whether dfa has any state whose Finals names more
// than one terminal: a prefix that could be lexed as either.
func hasConflict(dfa *automaton.IntDFA) bool {
	for _, s := range dfa.States {
		if len(s.Finals) > 1 {
			return true
		}
	}
	return false
}
