// Package gla builds grammar lookahead automata: LL(*) prediction DFAs that
// tell the streaming interpreter which outgoing RTN transition to take at a
// state with more than one possibility (spec §4.5, §4.5.1, the hard part
// of the compiler pipeline).
package gla

import (
	"fmt"

	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// returnFrame is one cons-list node of a Path's return stack: the RTN state
// to resume at once the nonterminal being descended into finishes, and the
// rule that state belongs to. Sharing tails across Paths (rather than
// copying slices) is what makes Path "persistent" per spec §9's value-type
// note, forking a path for an alternative just points at the same parent
// frame.
type returnFrame struct {
	rule, state string
	prev        *returnFrame
}

// HistoryKind distinguishes the three shapes a GLA path's history entry can
// take (spec glossary's GLA path definition).
type HistoryKind int

const (
	HistEnter HistoryKind = iota
	HistReturn
	HistTerm
)

// HistoryEntry is one step of a Path's recorded derivation: entering a
// nonterminal, returning from one, or consuming a terminal. IsSubparser
// marks entries that happened while inside a subparser invocation (spec
// §4.5.1's subparser-redundancy resolution strips exactly these).
type HistoryEntry struct {
	Kind        HistoryKind
	Symbol      string
	Destination string
	Priorities  map[string]int
	IsSubparser bool
}

// Path is one candidate derivation the GLA construction loop is tracking
// while it predicts which alternative a decision point should choose. It is
// an immutable value: every extension method returns a new Path rather than
// mutating the receiver, so earlier generations remain valid for sibling
// paths that share history.
type Path struct {
	// Alt identifies which original alternative (RTN transition index at the
	// decision state) this path is still defending.
	Alt int

	Rule  string
	State string

	ret *returnFrame

	// Presumed mirrors ret but for the synthetic follow-state frames the
	// construction loop conjures once a path's real return stack empties
	// (spec §4.5's "actual stack if non-empty, else any follow state"):
	// popped only after ret is exhausted, and never written to artifact
	// output, purely a lookahead-time fiction.
	presumed *returnFrame

	// subDepth counts how many pushReturn frames deep the path currently is
	// inside a subparser invocation; 0 means "not inside one". Used to tag
	// HistoryEntry.IsSubparser so resolve's subparser-redundancy pass can
	// strip those segments back out.
	subDepth int

	// History is the sequence of enter/return/term steps taken so far along
	// this path, used by priority resolution's lock-step walk and by
	// subparser-redundancy resolution's stripped-history comparison.
	History []HistoryEntry

	// EOF is true once this path has reached the end of input (its entire
	// return stack, including presumed, popped all the way out).
	EOF bool
}

// NewPath starts a path for alternative alt at a given RTN state.
func NewPath(alt int, rule, state string) Path {
	return Path{Alt: alt, Rule: rule, State: state}
}

// signature is the dedup key used for cycle detection: which RTN state
// we're at, under which return context, distinguishes "the same place
// reached twice" from genuine progress (spec §4.5's "history of visited
// signatures").
func (p Path) signature() string {
	return fmt.Sprintf("%s/%s@%p@%p", p.Rule, p.State, p.ret, p.presumed)
}

// pushReturn returns a new Path whose return stack has one more frame: used
// when a path descends into a nonterminal and must remember where to come
// back to. isSubparser marks the edge being taken as an @allow self-loop
// invocation; subDepth tracks nesting so history entries recorded anywhere
// underneath it (including the invocation itself) can be tagged and later
// stripped.
func (p Path) pushReturn(toRule, atState string, isSubparser bool) Path {
	np := p
	np.ret = &returnFrame{rule: p.Rule, state: atState, prev: p.ret}
	np.Rule = toRule
	if isSubparser || p.subDepth > 0 {
		np.subDepth = p.subDepth + 1
	}
	np.History = np.appendHistory(HistEnter, toRule, atState, nil)
	return np
}

// jumpInto returns a new Path positioned at atState of toRule without
// pushing a return frame: the tail-recursion elimination case, where the
// caller's return point is final with no transitions left.
func (p Path) jumpInto(toRule, atState string) Path {
	np := p
	np.Rule = toRule
	np.State = atState
	np.History = np.appendHistory(HistEnter, toRule, atState, nil)
	return np
}

// pushPresumed mirrors pushReturn but onto the presumed stack, used once a
// path's real return stack has been exhausted and the construction loop
// substitutes a follow state instead (spec §4.5).
func (p Path) pushPresumed(toRule, atState string) Path {
	np := p
	np.presumed = &returnFrame{rule: p.Rule, state: atState, prev: p.presumed}
	np.Rule = toRule
	return np
}

// popReturn returns a new Path that has returned from the current rule to
// the top frame of the return stack (preferring the real stack, falling
// back to the presumed one, per spec §4.5), or (Path{}, false) if both are
// empty (meaning the path has exhausted input entirely).
func (p Path) popReturn() (Path, bool) {
	np := p
	if p.ret != nil {
		np.Rule = p.ret.rule
		np.State = p.ret.state
		np.ret = p.ret.prev
		if np.subDepth > 0 {
			np.subDepth--
		}
		np.History = np.appendHistory(HistReturn, np.Rule, np.State, nil)
		return np, true
	}
	if p.presumed != nil {
		np.Rule = p.presumed.rule
		np.State = p.presumed.state
		np.presumed = p.presumed.prev
		np.History = np.appendHistory(HistReturn, np.Rule, np.State, nil)
		return np, true
	}
	return Path{}, false
}

// consume returns a new Path with term appended to its history and State
// advanced to next.
func (p Path) consume(term, next string, priorities map[string]int) Path {
	np := p
	np.State = next
	np.History = np.appendHistory(HistTerm, term, next, priorities)
	return np
}

func (p Path) appendHistory(kind HistoryKind, symbol, dest string, priorities map[string]int) []HistoryEntry {
	hist := make([]HistoryEntry, len(p.History)+1)
	copy(hist, p.History)
	hist[len(p.History)] = HistoryEntry{
		Kind:        kind,
		Symbol:      symbol,
		Destination: dest,
		Priorities:  priorities,
		IsSubparser: p.subDepth > 0,
	}
	return hist
}

// strippedHistory returns p.History with every subparser-tagged entry
// removed, the comparison key subparser-redundancy resolution uses to tell
// "the same derivation, modulo which subparser inserted itself" (spec
// §4.5.1).
func (p Path) strippedHistory() string {
	var sb []byte
	for _, h := range p.History {
		if h.IsSubparser {
			continue
		}
		sb = append(sb, fmt.Sprintf("%d:%s>%s|", h.Kind, h.Symbol, h.Destination)...)
	}
	return string(sb)
}

// firstSubparserIndex returns the index of the earliest subparser-tagged
// history entry, or -1 if the path never invoked one.
func (p Path) firstSubparserIndex() int {
	for i, h := range p.History {
		if h.IsSubparser {
			return i
		}
	}
	return -1
}

// priorityOf returns the priority-class->rank map attached to the RTN
// transition that originated this path's history, for use by ambiguity
// resolution; callers look it up directly on the RTN rather than storing it
// on Path, since Path only needs to carry enough to replay a derivation.
func priorityOf(g *grammar.Grammar, rule, state string, alt int) map[string]int {
	rtn := g.Rules[rule]
	st := rtn.States[state]
	if alt < len(st.Transitions) {
		return st.Transitions[alt].Props.Priorities
	}
	return nil
}
