package automaton

import (
	"testing"

	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
	"github.com/stretchr/testify/assert"
)

// buildDigitNFA builds a tiny NFA recognizing one ASCII digit '0'-'9'.
func buildDigitNFA(final string) *IntNFA {
	nfa := NewIntNFA()
	nfa.AddState("start", false)
	nfa.AddState("end", false)
	nfa.Start = "start"
	nfa.AddTransition("start", grammar.NewIntSetRange('0', '9'), "end")
	nfa.SetFinal("end", final)
	return nfa
}

func Test_ToIntDFA_singleTerminal(t *testing.T) {
	assert := assert.New(t)

	nfa := buildDigitNFA("DIGIT")
	dfa := ToIntDFA(nfa, false)

	next := dfa.Next(dfa.Start, '5')
	if assert.NotEmpty(next) {
		st := dfa.States[next]
		assert.True(st.Accepting)
		assert.Equal([]string{"DIGIT"}, st.Finals)
	}
	assert.Empty(dfa.Next(dfa.Start, 'a'))
}

func Test_ToIntDFA_allowMultiFinal_detectsConflict(t *testing.T) {
	assert := assert.New(t)

	// two NFAs whose accepting states collapse into the same DFA state via a
	// shared start, simulating two terminals matching the same input.
	nfa := NewIntNFA()
	nfa.AddState("start", false)
	nfa.AddState("acceptA", false)
	nfa.AddState("acceptB", false)
	nfa.Start = "start"
	nfa.AddTransition("start", grammar.NewIntSetRange('a', 'a'), "acceptA")
	nfa.AddTransition("start", grammar.NewIntSetRange('a', 'a'), "acceptB")
	nfa.SetFinal("acceptA", "TERM_A")
	nfa.SetFinal("acceptB", "TERM_B")

	dfa := ToIntDFA(nfa, true)
	next := dfa.Next(dfa.Start, 'a')
	if assert.NotEmpty(next) {
		st := dfa.States[next]
		assert.Len(st.Finals, 2)
		assert.Contains(st.Finals, "TERM_A")
		assert.Contains(st.Finals, "TERM_B")
	}
}

func Test_MinimizeIntFA_collapsesEquivalentStates(t *testing.T) {
	assert := assert.New(t)

	// two digit-recognizing NFAs unioned via epsilon from a shared start
	// produce redundant states that minimization should collapse.
	nfa := NewIntNFA()
	nfa.AddState("start", false)
	nfa.AddState("p1", false)
	nfa.AddState("p2", false)
	nfa.AddState("end1", false)
	nfa.AddState("end2", false)
	nfa.Start = "start"
	nfa.AddEpsilon("start", "p1")
	nfa.AddEpsilon("start", "p2")
	nfa.AddTransition("p1", grammar.NewIntSetRange('0', '9'), "end1")
	nfa.AddTransition("p2", grammar.NewIntSetRange('0', '9'), "end2")
	nfa.SetFinal("end1", "DIGIT")
	nfa.SetFinal("end2", "DIGIT")

	dfa := ToIntDFA(nfa, false)
	before := len(dfa.States)

	min := MinimizeIntFA(dfa)
	assert.LessOrEqual(len(min.States), before)

	next := min.Next(min.Start, '3')
	if assert.NotEmpty(next) {
		assert.True(min.States[next].Accepting)
	}
}
