package grammar

import "fmt"

// Builder assembles an NFARTN for one rule body using Thompson-style
// fragment combinators (concatenation, alternation, repetition, optional),
// the RTN/NFA construction primitives spec §4.2/§9 call for, generalized
// from regex Thompson construction to an alphabet of terminal references and
// nonterminal references instead of just characters.
type Builder struct {
	nfa     *NFARTN
	counter int
}

// NewBuilder starts a fresh builder for the named rule.
func NewBuilder(ruleName string) *Builder {
	return &Builder{nfa: NewNFARTN(ruleName)}
}

// Fragment is a sub-automaton with a single entry and single exit state, not
// yet wired to anything else. Combinators consume fragments and produce new
// ones; the top-level caller finishes by marking the final fragment's Exit
// state as the rule's accept state.
type Fragment struct {
	Entry, Exit string
}

func (b *Builder) newState() string {
	b.counter++
	name := fmt.Sprintf("%s.s%d", b.nfa.Name, b.counter)
	b.nfa.AddState(name)
	return name
}

// Terminal produces a fragment that consumes exactly one token of the named
// terminal.
func (b *Builder) Terminal(name string, props TransitionProps) Fragment {
	entry, exit := b.newState(), b.newState()
	b.nfa.AddTerminal(entry, name, exit, props)
	return Fragment{Entry: entry, Exit: exit}
}

// Nonterminal produces a fragment that descends into the named rule.
func (b *Builder) Nonterminal(name string, props TransitionProps) Fragment {
	entry, exit := b.newState(), b.newState()
	b.nfa.AddNonterm(entry, name, exit, props)
	return Fragment{Entry: entry, Exit: exit}
}

// Empty produces a fragment that matches nothing (the empty production).
func (b *Builder) Empty() Fragment {
	s := b.newState()
	return Fragment{Entry: s, Exit: s}
}

// Concat chains fragments in sequence: a b c ...
func (b *Builder) Concat(frags ...Fragment) Fragment {
	if len(frags) == 0 {
		return b.Empty()
	}
	cur := frags[0]
	for _, next := range frags[1:] {
		b.nfa.AddEpsilon(cur.Exit, next.Entry)
		cur = Fragment{Entry: cur.Entry, Exit: next.Exit}
	}
	return cur
}

// Alt produces a fragment matching any one of frags (a | b | c ...).
func (b *Builder) Alt(frags ...Fragment) Fragment {
	if len(frags) == 0 {
		return b.Empty()
	}
	if len(frags) == 1 {
		return frags[0]
	}
	entry, exit := b.newState(), b.newState()
	for _, f := range frags {
		b.nfa.AddEpsilon(entry, f.Entry)
		b.nfa.AddEpsilon(f.Exit, exit)
	}
	return Fragment{Entry: entry, Exit: exit}
}

// Optional produces a fragment matching f zero or one times (f?).
func (b *Builder) Optional(f Fragment) Fragment {
	entry, exit := b.newState(), b.newState()
	b.nfa.AddEpsilon(entry, f.Entry)
	b.nfa.AddEpsilon(f.Exit, exit)
	b.nfa.AddEpsilon(entry, exit)
	return Fragment{Entry: entry, Exit: exit}
}

// Star produces a fragment matching f zero or more times (f*).
func (b *Builder) Star(f Fragment) Fragment {
	entry, exit := b.newState(), b.newState()
	b.nfa.AddEpsilon(entry, f.Entry)
	b.nfa.AddEpsilon(f.Exit, exit)
	b.nfa.AddEpsilon(exit, entry)
	b.nfa.AddEpsilon(entry, exit)
	return Fragment{Entry: entry, Exit: exit}
}

// Plus produces a fragment matching f one or more times (f+).
func (b *Builder) Plus(f Fragment) Fragment {
	entry, exit := b.newState(), b.newState()
	b.nfa.AddEpsilon(entry, f.Entry)
	b.nfa.AddEpsilon(f.Exit, exit)
	b.nfa.AddEpsilon(exit, entry)
	return Fragment{Entry: entry, Exit: exit}
}

// Finish marks f's exit state as the rule's single accept state, wires the
// builder's NFA start to f's entry, and runs subset construction to produce
// the deterministic RTN (spec §4.2: RTNs, unlike the NFAs used to build
// them, are determinized before the rest of the pipeline sees them).
func (b *Builder) Finish(f Fragment) *RTN {
	b.nfa.Start = f.Entry
	b.nfa.SetFinal(f.Exit)
	return b.nfa.Determinize()
}
