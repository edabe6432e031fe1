package codec

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dekarrin/gbnfc/internal/gbnf/automaton"
	"github.com/dekarrin/gbnfc/internal/gbnf/bitcode"
	"github.com/dekarrin/gbnfc/internal/gbnf/coalesce"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// Block IDs used by this artifact format (spec §6.1, §6.2). BlockInfoBlockID
// (0) is reserved by package bitcode itself.
const (
	StringsBlockID = iota + 1
	IntFAsBlockID
	RTNsBlockID
	GLAsBlockID
)

// Record codes within the STRINGS block: one string per record, in table
// order, so the reader can preallocate and index by position.
const stringEntryRecordCode = 0

// buildIDStringIndex is the fixed string-table position of the artifact's
// build ID, interned immediately after the start symbol (index 0) so Load
// can recover it without a dedicated record kind.
const buildIDStringIndex = 1

// Record codes within the INTFAS block.
const (
	intfaHeaderRecordCode = iota
	intfaStateRecordCode
	intfaTransitionRecordCode
	intfaFinalRecordCode
)

// Record codes within the RTNS block.
const (
	rtnHeaderRecordCode = iota
	rtnStateRecordCode
	rtnTransitionRecordCode
)

// Record codes within the GLAS block.
const (
	glaHeaderRecordCode = iota
	glaStateRecordCode
	glaTransitionRecordCode
)

// stringTable interns strings in first-use order, the order they're emitted
// to the STRINGS block and later indexed back out of by the loader.
type stringTable struct {
	index map[string]int
	order []string
}

func newStringTable() *stringTable {
	return &stringTable{index: map[string]int{}}
}

func (t *stringTable) intern(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.order)
	t.index[s] = i
	t.order = append(t.order, s)
	return i
}

// Emit linearizes a compiled grammar, its coalesced lexer pool, and its
// per-decision GLAs into one byte artifact (spec §4.7, §6.2). glas is keyed
// by "rule/state" (the same pair gla.Build is called with).
func Emit(g *grammar.Grammar, pool *coalesce.Pool, glas map[string]*automaton.DFA[int]) ([]byte, error) {
	strs := newStringTable()
	strs.intern(g.Start)
	// buildID always lands at buildIDStringIndex since it's interned
	// immediately after the start symbol and is itself unique (a fresh UUID
	// can't collide with a prior string-table entry).
	strs.intern(uuid.New().String())

	for _, name := range g.TerminalNames() {
		strs.intern(name)
	}

	ruleNames := g.RuleNames()
	for _, rn := range ruleNames {
		strs.intern(rn)
		rtn := g.Rules[rn]
		for _, sn := range rtn.StateNames() {
			st := rtn.States[sn]
			for _, t := range st.Transitions {
				if t.Kind == grammar.EdgeTerminal || t.Kind == grammar.EdgeNonterm {
					strs.intern(t.Name)
				}
				if t.Props.HasSlot {
					strs.intern(t.Props.SlotName)
				}
			}
		}
	}

	glaKeys := make([]string, 0, len(glas))
	for k := range glas {
		glaKeys = append(glaKeys, k)
	}
	sort.Strings(glaKeys)
	glaIdx := map[string]int{}
	for i, k := range glaKeys {
		glaIdx[k] = i
	}

	w := bitcode.NewWriter()

	w.EnterSubblock(StringsBlockID, 6)
	for _, s := range strs.order {
		if err := w.String(stringEntryRecordCode, s); err != nil {
			return nil, fmt.Errorf("codec: emitting string table: %w", err)
		}
	}
	w.EndBlock()

	w.EnterSubblock(IntFAsBlockID, 6)
	w.UnabbrevRecord(intfaHeaderRecordCode, []uint64{uint64(len(pool.DFAs))})
	for _, dfa := range pool.DFAs {
		if err := emitIntDFA(w, dfa); err != nil {
			return nil, err
		}
	}
	w.EndBlock()

	w.EnterSubblock(RTNsBlockID, 6)
	w.UnabbrevRecord(rtnHeaderRecordCode, []uint64{uint64(len(ruleNames))})
	for _, rn := range ruleNames {
		if err := emitRTN(w, strs, g, rn, glaIdx); err != nil {
			return nil, err
		}
	}
	w.EndBlock()

	w.EnterSubblock(GLAsBlockID, 6)
	w.UnabbrevRecord(glaHeaderRecordCode, []uint64{uint64(len(glaKeys))})
	for _, key := range glaKeys {
		if err := emitGLA(w, strs, glas[key]); err != nil {
			return nil, err
		}
	}
	w.EndBlock()

	return w.Bytes(), nil
}

func sortedIntDFAStateNames(d *automaton.IntDFA) []string {
	out := make([]string, 0, len(d.States))
	for n := range d.States {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// emitIntDFA writes one coalesced lexer DFA: a header giving its state count
// and start index, then one STATE record per state and one TRANSITION record
// per edge, states numbered by their position in sorted name order.
func emitIntDFA(w *bitcode.Writer, d *automaton.IntDFA) error {
	names := sortedIntDFAStateNames(d)
	numOf := map[string]int{}
	for i, n := range names {
		numOf[n] = i
	}
	w.UnabbrevRecord(intfaHeaderRecordCode, []uint64{uint64(len(names)), uint64(numOf[d.Start])})
	for i, n := range names {
		st := d.States[n]
		accepting := uint64(0)
		if st.Accepting {
			accepting = 1
		}
		w.UnabbrevRecord(intfaStateRecordCode, []uint64{uint64(i), accepting, uint64(len(st.Transitions))})
		for _, t := range st.Transitions {
			values := []uint64{uint64(numOf[t.Next])}
			neg := uint64(0)
			if t.Set.Negated() {
				neg = 1
			}
			ranges := t.Set.RawRanges()
			values = append(values, neg, uint64(len(ranges)))
			for _, r := range ranges {
				values = append(values, uint64(uint32(r.Lo)), uint64(uint32(r.Hi)))
			}
			w.UnabbrevRecord(intfaTransitionRecordCode, values)
		}
		for _, f := range st.Finals {
			if err := w.String(intfaFinalRecordCode, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitRTN writes one rule's recursive transition network. Each transition
// records its kind, the string-table index of its terminal/nonterm name, the
// destination state's index, slot info, and (when more than one alternative
// competes at this state) the GLA index the interpreter must consult first.
func emitRTN(w *bitcode.Writer, strs *stringTable, g *grammar.Grammar, ruleName string, glaIdx map[string]int) error {
	rtn := g.Rules[ruleName]
	names := rtn.StateNames()
	numOf := map[string]int{}
	for i, n := range names {
		numOf[n] = i
	}
	startNum := numOf[rtn.Start]
	w.UnabbrevRecord(rtnHeaderRecordCode, []uint64{uint64(strs.intern(ruleName)), uint64(len(names)), uint64(startNum)})

	for i, n := range names {
		st := rtn.States[n]
		final := uint64(0)
		if st.Final {
			final = 1
		}
		w.UnabbrevRecord(rtnStateRecordCode, []uint64{uint64(i), final, uint64(len(st.Transitions))})

		gi, needsGLA := -1, len(st.Transitions) >= 2
		if needsGLA {
			if idx, ok := glaIdx[ruleName+"/"+n]; ok {
				gi = idx
			}
		}

		for _, t := range st.Transitions {
			kind := uint64(0)
			if t.Kind == grammar.EdgeNonterm {
				kind = 1
			}
			hasSlot := uint64(0)
			slotName := 0
			if t.Props.HasSlot {
				hasSlot = 1
				slotName = strs.intern(t.Props.SlotName)
			}
			glaField := uint64(0)
			if gi >= 0 {
				glaField = uint64(gi + 1) // +1 so 0 means "no GLA"
			}
			isSubparser := uint64(0)
			if t.Props.IsSubparser {
				isSubparser = 1
			}
			values := []uint64{
				kind,
				uint64(strs.intern(t.Name)),
				uint64(numOf[t.To]),
				uint64(t.Props.SlotIndex),
				hasSlot,
				uint64(slotName),
				glaField,
				isSubparser,
			}
			w.UnabbrevRecord(rtnTransitionRecordCode, values)
		}
	}
	return nil
}

// emitGLA writes one lookahead-prediction DFA: states numbered in sorted name
// order, each accepting state's winning alternative recorded directly on its
// STATE record, each edge keyed by terminal name (or the EOF marker).
func emitGLA(w *bitcode.Writer, strs *stringTable, g *automaton.DFA[int]) error {
	names := make([]string, 0, len(g.States))
	for n := range g.States {
		names = append(names, n)
	}
	sort.Strings(names)
	numOf := map[string]int{}
	for i, n := range names {
		numOf[n] = i
	}
	w.UnabbrevRecord(glaHeaderRecordCode, []uint64{uint64(len(names)), uint64(numOf[g.Start])})

	for i, n := range names {
		st := g.States[n]
		accepting := uint64(0)
		alt := uint64(0)
		if st.Accepting {
			accepting = 1
			alt = uint64(st.Value)
		}
		w.UnabbrevRecord(glaStateRecordCode, []uint64{uint64(i), accepting, alt, uint64(len(st.Transitions))})
		for term, t := range st.Transitions {
			isEOF := uint64(0)
			if term == glaEOFSentinel {
				isEOF = 1
			}
			w.UnabbrevRecord(glaTransitionRecordCode, []uint64{isEOF, uint64(strs.intern(term)), uint64(numOf[t.Next])})
		}
	}
	return nil
}

// glaEOFSentinel mirrors gla.EOFSymbol; duplicated as a constant here rather
// than imported so this file only depends on the string value, not on
// gla's construction-internals package.
const glaEOFSentinel = "\x00EOF"
