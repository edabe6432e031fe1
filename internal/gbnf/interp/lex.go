package interp

import "github.com/dekarrin/gbnfc/internal/gbnf/codec"

// lexNext runs dfa from its start state over buf[pos:], implementing
// longest-match lexing (spec §4.9): it keeps advancing while a byte has a
// matching transition, and at the first byte with none, falls back to the
// most recent accepting state reached. If buf runs out before a non-matching
// byte is seen, it reports needMore so the caller can suspend for more
// input (spec §5's suspension points).
func lexNext(dfa codec.IntFARecord, buf []byte, pos int) (name string, length int, matched bool, needMore bool) {
	state := dfa.StartState
	lastAcceptPos := -1
	lastAcceptName := ""

	i := pos
	for {
		st := dfa.States[state]
		if st.Accepting && len(st.Finals) > 0 {
			lastAcceptPos = i
			lastAcceptName = st.Finals[0]
			if len(st.Transitions) == 0 {
				// Final with no outgoing transitions: no longer match is
				// possible, fire immediately (spec §4.9's short-circuit).
				return lastAcceptName, lastAcceptPos - pos, true, false
			}
		}
		if i >= len(buf) {
			return "", 0, false, true
		}
		next, ok := matchByte(st, buf[i])
		if !ok {
			break
		}
		state = next
		i++
	}

	if lastAcceptPos >= pos {
		return lastAcceptName, lastAcceptPos - pos, true, false
	}
	return "", 0, false, false
}

func matchByte(st codec.IntFAStateRecord, b byte) (int, bool) {
	for _, t := range st.Transitions {
		if rangesContain(t.Ranges, int32(b)) != t.Negated {
			return t.ToState, true
		}
	}
	return 0, false
}

func rangesContain(ranges []codec.IntRangeRecord, v int32) bool {
	for _, r := range ranges {
		if v >= r.Lo && v <= r.Hi {
			return true
		}
	}
	return false
}
