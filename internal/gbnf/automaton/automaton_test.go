package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DFA_AddTransition_and_Next(t *testing.T) {
	assert := assert.New(t)

	dfa := &DFA[int]{}
	dfa.AddState("s0", false)
	dfa.AddState("s1", true)
	dfa.Start = "s0"
	dfa.AddTransition("s0", "a", "s1")

	assert.Equal("s1", dfa.Next("s0", "a"))
	assert.Equal("", dfa.Next("s0", "b"))
	assert.Equal("", dfa.Next("nonexistent", "a"))
	assert.True(dfa.IsAccepting("s1"))
	assert.False(dfa.IsAccepting("s0"))
}

func Test_DFA_AddTransition_panicsOnMissingState(t *testing.T) {
	dfa := &DFA[int]{}
	dfa.AddState("s0", false)

	assert.Panics(t, func() {
		dfa.AddTransition("s0", "a", "missing")
	})
	assert.Panics(t, func() {
		dfa.AddTransition("missing", "a", "s0")
	})
}

func Test_NFA_EpsilonClosure(t *testing.T) {
	assert := assert.New(t)

	nfa := &NFA[int]{}
	nfa.AddState("s0", false)
	nfa.AddState("s1", false)
	nfa.AddState("s2", true)
	nfa.Start = "s0"
	nfa.AddTransition("s0", Epsilon, "s1")
	nfa.AddTransition("s1", Epsilon, "s2")
	nfa.AddTransition("s0", "a", "s2")

	closure := nfa.EpsilonClosure("s0")
	assert.True(closure.Has("s0"))
	assert.True(closure.Has("s1"))
	assert.True(closure.Has("s2"))
	assert.Equal(3, closure.Len())
}

func Test_NFA_ToDFA_mergesEquivalentPaths(t *testing.T) {
	assert := assert.New(t)

	// two paths both reading "a" then reaching an accepting state should
	// collapse into a single DFA path.
	nfa := &NFA[int]{}
	nfa.AddState("start", false)
	nfa.AddState("p1", false)
	nfa.AddState("p2", false)
	nfa.AddState("accept1", true)
	nfa.AddState("accept2", true)
	nfa.Start = "start"
	nfa.AddTransition("start", Epsilon, "p1")
	nfa.AddTransition("start", Epsilon, "p2")
	nfa.AddTransition("p1", "a", "accept1")
	nfa.AddTransition("p2", "a", "accept2")

	dfa := nfa.ToDFA()

	assert.True(dfa.IsAccepting(dfa.Start) == false)
	next := dfa.Next(dfa.Start, "a")
	if assert.NotEmpty(next) {
		assert.True(dfa.IsAccepting(next))
	}
}

func Test_DFA_StateNames_sorted(t *testing.T) {
	assert := assert.New(t)

	dfa := &DFA[int]{}
	dfa.AddState("zeta", false)
	dfa.AddState("alpha", false)
	dfa.AddState("mu", false)

	assert.Equal([]string{"alpha", "mu", "zeta"}, dfa.StateNames())
}
