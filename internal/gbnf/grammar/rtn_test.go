package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_RTN_IsTrivial(t *testing.T) {
	testCases := []struct {
		name   string
		build  func() (*RTN, string)
		expect bool
	}{
		{
			name: "final leaf with no transitions",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", true)
				return r, "s0"
			},
			expect: true,
		},
		{
			name: "single nonterm transition",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", false)
				r.AddState("s1", true)
				r.AddNontermTransition("s0", "Bar", "s1", TransitionProps{})
				return r, "s0"
			},
			expect: true,
		},
		{
			name: "single terminal transition is not trivial",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", false)
				r.AddState("s1", true)
				r.AddTerminalTransition("s0", "ID", "s1", TransitionProps{})
				return r, "s0"
			},
			expect: false,
		},
		{
			name: "two transitions is not trivial",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", false)
				r.AddState("s1", true)
				r.AddState("s2", true)
				r.AddTerminalTransition("s0", "ID", "s1", TransitionProps{})
				r.AddTerminalTransition("s0", "NUM", "s2", TransitionProps{})
				return r, "s0"
			},
			expect: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			r, state := tc.build()
			assert.Equal(tc.expect, r.IsTrivial(state))
		})
	}
}

func Test_RTN_NeedsLookahead(t *testing.T) {
	testCases := []struct {
		name   string
		build  func() (*RTN, string)
		expect bool
	}{
		{
			name: "single transition, non-final",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", false)
				r.AddState("s1", true)
				r.AddTerminalTransition("s0", "ID", "s1", TransitionProps{})
				return r, "s0"
			},
			expect: false,
		},
		{
			name: "final with an outgoing transition",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", true)
				r.AddState("s1", true)
				r.AddTerminalTransition("s0", "ID", "s1", TransitionProps{})
				return r, "s0"
			},
			expect: true,
		},
		{
			name: "two outgoing transitions",
			build: func() (*RTN, string) {
				r := NewRTN("Foo")
				r.AddState("s0", false)
				r.AddState("s1", true)
				r.AddState("s2", true)
				r.AddTerminalTransition("s0", "ID", "s1", TransitionProps{})
				r.AddTerminalTransition("s0", "NUM", "s2", TransitionProps{})
				return r, "s0"
			},
			expect: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			r, state := tc.build()
			assert.Equal(tc.expect, r.NeedsLookahead(state))
		})
	}
}

func Test_NFARTN_Determinize_mergesEpsilonPaths(t *testing.T) {
	assert := assert.New(t)

	// Start --eps--> p1 --ID--> accept
	//       --eps--> p2 --ID--> accept
	// should determinize to a single state reading ID once.
	nfa := NewNFARTN("Foo")
	nfa.AddState("start")
	nfa.AddState("p1")
	nfa.AddState("p2")
	nfa.AddState("accept")
	nfa.Start = "start"
	nfa.AddEpsilon("start", "p1")
	nfa.AddEpsilon("start", "p2")
	nfa.AddTerminal("p1", "ID", "accept", TransitionProps{})
	nfa.AddTerminal("p2", "ID", "accept", TransitionProps{})
	nfa.SetFinal("accept")

	rtn := nfa.Determinize()

	startState := rtn.States[rtn.Start]
	assert.Len(startState.Transitions, 1)
	assert.Equal(EdgeTerminal, startState.Transitions[0].Kind)
	assert.Equal("ID", startState.Transitions[0].Name)

	nextName := startState.Transitions[0].To
	assert.True(rtn.States[nextName].Final)
}
