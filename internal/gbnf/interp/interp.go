// Package interp drives a loaded grammar over an input byte stream: the
// streaming push-down interpreter of spec.md §4.9, operating on the
// IntFA/RTN/GLA frame triple over a codec.LoadedGrammar.
package interp

import (
	"fmt"
	"sync/atomic"

	"github.com/dekarrin/gbnfc/internal/gbnf/codec"
	"github.com/dekarrin/gbnfc/internal/gbnf/gbnferr"
)

// Status is the suspension result of Parse, mirroring spec §5's
// ok/eof/cancelled trichotomy. Go idiom splits the fourth case (a genuine
// parse failure) into a separate error return rather than folding it into
// this enum.
type Status int

const (
	StatusOK Status = iota
	StatusEOF
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEOF:
		return "eof"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Callbacks are invoked in input order as the interpreter fires events (spec
// §4.9's rule-start/rule-end/terminal-matched triple).
type Callbacks struct {
	RuleStart func(ps *ParseState, rule string)
	RuleEnd   func(ps *ParseState, rule string)
	Terminal  func(ps *ParseState, terminal string, offset, length int)
}

// BoundGrammar pairs a loaded grammar with client callbacks and the name->
// index lookups the interpreter needs at every step (spec §6.4's
// bind_grammar).
type BoundGrammar struct {
	Grammar   *codec.LoadedGrammar
	Callbacks Callbacks

	ruleIdx   map[string]int
	termIntFA map[string]int
}

// Bind resolves a loaded grammar's string-keyed cross references into the
// index lookups the interpreter needs, and attaches client callbacks.
func Bind(g *codec.LoadedGrammar, cb Callbacks) *BoundGrammar {
	b := &BoundGrammar{
		Grammar:   g,
		Callbacks: cb,
		ruleIdx:   make(map[string]int, len(g.Rules)),
		termIntFA: make(map[string]int, len(g.Terminals)),
	}
	for i, r := range g.Rules {
		b.ruleIdx[r.Name] = i
	}
	for _, t := range g.Terminals {
		b.termIntFA[t.Name] = t.IntFAIdx
	}
	return b
}

type frameKind int

const (
	frameRTN frameKind = iota
	frameGLA
)

// frame is the tagged-variant runtime frame of spec §3: an RTN frame tracks
// a position within one rule invocation, a GLA frame tracks an in-progress
// lookahead decision sitting on top of the RTN frame it will resolve back
// into.
type frame struct {
	Kind        frameKind
	RuleIdx     int
	StateIdx    int
	GLAIdx      int
	GLAState    int
	EntryOffset int

	// Suppressed marks a frame entered through an @allow self-loop (or
	// nested under one): its rule-start/rule-end/terminal callbacks never
	// fire, since the subparser ran purely for its side effect of consuming
	// input (spec §3, §8 scenario 6). Inherited by every frame pushed while
	// it's on top.
	Suppressed bool
}

type bufferedTerminal struct {
	Name   string
	Offset int
	Length int
}

// ParseState is one in-progress parse: a byte offset, a frame stack, a
// bounded buffer of terminals lexed for an in-progress GLA decision but not
// yet replayed to the RTN side, and a reference to the bound grammar (spec
// §3's Parse state).
//
// Known limitation: lexing does not persist partial-match IntFA state across
// separate Parse calls, a terminal must fully appear within the bytes
// handed to a single Parse call, or that call suspends and the caller must
// re-supply the same unconsumed prefix next time (not just new bytes
// appended after it). A production interpreter would carry the in-progress
// IntFA state in ParseState itself; tracked here as a scope simplification.
type ParseState struct {
	bound    *BoundGrammar
	offset   int
	stack    []frame
	tokenBuf []bufferedTerminal
	cancel   int32
}

// Alloc creates a new ParseState positioned at b's start rule.
func Alloc(b *BoundGrammar) (*ParseState, error) {
	ri, ok := b.ruleIdx[b.Grammar.StartRule]
	if !ok {
		return nil, fmt.Errorf("interp: start rule %q not found in loaded grammar", b.Grammar.StartRule)
	}
	ps := &ParseState{bound: b}
	ps.stack = append(ps.stack, frame{Kind: frameRTN, RuleIdx: ri, StateIdx: b.Grammar.Rules[ri].StartState})
	ps.fireRuleStart(b.Grammar.Rules[ri].Name, false)
	return ps, nil
}

// Dup deep-copies the frame stack and token buffer, sharing the bound
// grammar (spec §5's "explicitly copyable" parse state).
func (ps *ParseState) Dup() *ParseState {
	cp := &ParseState{
		bound:    ps.bound,
		offset:   ps.offset,
		stack:    append([]frame(nil), ps.stack...),
		tokenBuf: append([]bufferedTerminal(nil), ps.tokenBuf...),
	}
	return cp
}

// Cancel requests cancellation; the interpreter observes it at the next
// instruction boundary (spec §5).
func (ps *ParseState) Cancel() {
	atomic.StoreInt32(&ps.cancel, 1)
}

func (ps *ParseState) cancelled() bool {
	return atomic.LoadInt32(&ps.cancel) != 0
}

func (ps *ParseState) fireRuleStart(rule string, suppressed bool) {
	if !suppressed && ps.bound.Callbacks.RuleStart != nil {
		ps.bound.Callbacks.RuleStart(ps, rule)
	}
}

func (ps *ParseState) fireRuleEnd(rule string, suppressed bool) {
	if !suppressed && ps.bound.Callbacks.RuleEnd != nil {
		ps.bound.Callbacks.RuleEnd(ps, rule)
	}
}

func (ps *ParseState) fireTerminal(name string, offset, length int, suppressed bool) {
	if !suppressed && ps.bound.Callbacks.Terminal != nil {
		ps.bound.Callbacks.Terminal(ps, name, offset, length)
	}
}

// Parse feeds buf to the interpreter, driving frames until buf is exhausted,
// EOF handling is invoked separately via Finish, or cancellation is observed.
// It returns the status and the number of bytes of buf actually consumed.
func (ps *ParseState) Parse(buf []byte) (Status, int, error) {
	pos := 0
	for {
		if ps.cancelled() {
			return StatusCancelled, pos, nil
		}
		if len(ps.stack) == 0 {
			return StatusOK, pos, nil
		}

		top := &ps.stack[len(ps.stack)-1]
		switch top.Kind {
		case frameGLA:
			status, newPos, progressed, err := ps.stepGLA(top, buf, pos)
			if err != nil || status != StatusOK {
				return status, newPos, err
			}
			pos = newPos
			if !progressed {
				return StatusOK, pos, nil
			}
		case frameRTN:
			status, newPos, progressed, err := ps.stepRTN(top, buf, pos)
			if err != nil || status != StatusOK {
				return status, newPos, err
			}
			pos = newPos
			if !progressed {
				return StatusOK, pos, nil
			}
		}
	}
}

// stepRTN advances top by exactly one decision or terminal match. The bool
// result reports whether it did so (false means buf ran out mid-match and
// Parse must suspend, returning control to the caller).
func (ps *ParseState) stepRTN(top *frame, buf []byte, pos int) (Status, int, bool, error) {
	rule := ps.bound.Grammar.Rules[top.RuleIdx]
	st := rule.States[top.StateIdx]

	if st.Final && len(st.Transitions) == 0 {
		ps.fireRuleEnd(rule.Name, top.Suppressed)
		ps.stack = ps.stack[:len(ps.stack)-1]
		return StatusOK, pos, true, nil
	}

	if len(st.Transitions) >= 2 {
		glaIdx := st.Transitions[0].GLAIdx
		if glaIdx < 0 {
			return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("rule %s: ambiguous state with no lookahead automaton", rule.Name)}
		}
		gla := ps.bound.Grammar.GLAs[glaIdx]
		ps.stack = append(ps.stack, frame{Kind: frameGLA, GLAIdx: glaIdx, GLAState: gla.StartState, EntryOffset: ps.offset})
		return StatusOK, pos, true, nil
	}

	t := st.Transitions[0]
	if t.Kind == 1 {
		calleeIdx, ok := ps.bound.ruleIdx[t.Name]
		if !ok {
			return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("undefined rule %q", t.Name)}
		}
		childSuppressed := top.Suppressed || t.IsSubparser
		top.StateIdx = t.ToState
		ps.stack = append(ps.stack, frame{Kind: frameRTN, RuleIdx: calleeIdx, StateIdx: ps.bound.Grammar.Rules[calleeIdx].StartState, EntryOffset: ps.offset, Suppressed: childSuppressed})
		ps.fireRuleStart(t.Name, childSuppressed)
		return StatusOK, pos, true, nil
	}

	intfaIdx, ok := ps.bound.termIntFA[t.Name]
	if !ok {
		return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("undefined terminal %q", t.Name)}
	}
	name, length, matched, needMore := lexNext(ps.bound.Grammar.IntFAs[intfaIdx], buf, pos)
	if needMore {
		return StatusOK, pos, false, nil
	}
	if !matched || name != t.Name {
		return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("expected terminal %q", t.Name)}
	}
	ps.fireTerminal(name, ps.offset, length, top.Suppressed)
	ps.offset += length
	top.StateIdx = t.ToState
	return StatusOK, pos + length, true, nil
}

// stepGLA advances a lookahead decision by one terminal. The bool result
// mirrors stepRTN's: false means buf ran out and Parse must suspend.
func (ps *ParseState) stepGLA(top *frame, buf []byte, pos int) (Status, int, bool, error) {
	gla := ps.bound.Grammar.GLAs[top.GLAIdx]
	st := gla.States[top.GLAState]

	intfaIdx, ok := ps.glaIntFA(gla, st)
	if !ok {
		return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: "lookahead state has no resolvable terminal alphabet"}
	}
	name, length, matched, needMore := lexNext(ps.bound.Grammar.IntFAs[intfaIdx], buf, pos)
	if needMore {
		return StatusOK, pos, false, nil
	}
	if !matched {
		return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: "no lookahead transition for input"}
	}

	ps.tokenBuf = append(ps.tokenBuf, bufferedTerminal{Name: name, Offset: ps.offset, Length: length})
	ps.offset += length
	pos += length

	nextState, found := -1, false
	for _, t := range st.Transitions {
		if !t.EOF && t.Terminal == name {
			nextState, found = t.ToState, true
			break
		}
	}
	if !found {
		return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("unexpected terminal %q during lookahead", name)}
	}
	top.GLAState = nextState

	nst := gla.States[nextState]
	if nst.Accepting {
		ps.stack = ps.stack[:len(ps.stack)-1]
		if len(ps.stack) == 0 {
			return StatusOK, pos, false, &gbnferr.ParseError{Offset: ps.offset, Message: "lookahead resolved with no enclosing rule frame"}
		}
		rtnTop := &ps.stack[len(ps.stack)-1]
		if err := ps.commitAlt(rtnTop, nst.PredictedAlt); err != nil {
			return StatusOK, pos, false, err
		}
	}
	return StatusOK, pos, true, nil
}

// glaIntFA picks the coalesced lexer covering st's outgoing terminals,
// looking up whichever terminal the first non-EOF transition names. All
// terminals live on a single GLA state share one term-set by construction
// (package coalesce groups an entire decision's alphabet together), so any
// one of them resolves the same IntFA index.
func (ps *ParseState) glaIntFA(gla codec.GLARecord, st codec.GLAStateRecord) (int, bool) {
	for _, t := range st.Transitions {
		if t.EOF {
			continue
		}
		if idx, ok := ps.bound.termIntFA[t.Terminal]; ok {
			return idx, true
		}
	}
	return 0, false
}

// commitAlt replays the terminal(s) buffered while a GLA was deciding into
// the enclosing RTN frame, then takes the winning transition.
func (ps *ParseState) commitAlt(rtnTop *frame, alt int) error {
	rule := ps.bound.Grammar.Rules[rtnTop.RuleIdx]
	st := rule.States[rtnTop.StateIdx]
	if alt < 0 || alt >= len(st.Transitions) {
		return &gbnferr.ParseError{Offset: ps.offset, Message: "lookahead predicted an out-of-range alternative"}
	}
	t := st.Transitions[alt]

	if t.Kind == 1 {
		calleeIdx, ok := ps.bound.ruleIdx[t.Name]
		if !ok {
			return &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("undefined rule %q", t.Name)}
		}
		childSuppressed := rtnTop.Suppressed || t.IsSubparser
		rtnTop.StateIdx = t.ToState
		ps.stack = append(ps.stack, frame{Kind: frameRTN, RuleIdx: calleeIdx, StateIdx: ps.bound.Grammar.Rules[calleeIdx].StartState, EntryOffset: ps.offset, Suppressed: childSuppressed})
		ps.fireRuleStart(t.Name, childSuppressed)
		return nil
	}

	if len(ps.tokenBuf) == 0 {
		return &gbnferr.ParseError{Offset: ps.offset, Message: "lookahead committed with no buffered terminal to replay"}
	}
	bt := ps.tokenBuf[0]
	ps.tokenBuf = ps.tokenBuf[1:]
	ps.fireTerminal(bt.Name, bt.Offset, bt.Length, rtnTop.Suppressed)
	rtnTop.StateIdx = t.ToState
	return nil
}

// Finish performs end-of-input finalization (spec §4.9): every remaining
// frame must be acceptable as EOF, innermost first.
func (ps *ParseState) Finish() error {
	for len(ps.stack) > 0 {
		top := &ps.stack[len(ps.stack)-1]
		switch top.Kind {
		case frameGLA:
			gla := ps.bound.Grammar.GLAs[top.GLAIdx]
			st := gla.States[top.GLAState]
			eofState, hasEOF := -1, false
			for _, t := range st.Transitions {
				if t.EOF {
					eofState, hasEOF = t.ToState, true
					break
				}
			}
			if !hasEOF {
				return &gbnferr.ParseError{Offset: ps.offset, Message: "incomplete input: lookahead has no EOF transition"}
			}
			nst := gla.States[eofState]
			if !nst.Accepting {
				return &gbnferr.ParseError{Offset: ps.offset, Message: "incomplete input: lookahead did not resolve at EOF"}
			}
			ps.stack = ps.stack[:len(ps.stack)-1]
			if len(ps.stack) == 0 {
				return &gbnferr.ParseError{Offset: ps.offset, Message: "lookahead resolved at EOF with no enclosing rule frame"}
			}
			rtnTop := &ps.stack[len(ps.stack)-1]
			if err := ps.commitAlt(rtnTop, nst.PredictedAlt); err != nil {
				return err
			}
		case frameRTN:
			rule := ps.bound.Grammar.Rules[top.RuleIdx]
			st := rule.States[top.StateIdx]
			if !st.Final {
				return &gbnferr.ParseError{Offset: ps.offset, Message: fmt.Sprintf("incomplete input: rule %s not in a final state", rule.Name)}
			}
			if len(st.Transitions) == 0 {
				ps.fireRuleEnd(rule.Name, top.Suppressed)
				ps.stack = ps.stack[:len(ps.stack)-1]
				continue
			}
			// final with outgoing transitions: acceptable to stop here too,
			// since the rule may end without taking them.
			ps.fireRuleEnd(rule.Name, top.Suppressed)
			ps.stack = ps.stack[:len(ps.stack)-1]
		}
	}
	return nil
}
