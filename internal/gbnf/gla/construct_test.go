package gla

import (
	"testing"

	"github.com/dekarrin/gbnfc/internal/gbnf/fe"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
	"github.com/stretchr/testify/assert"
)

func buildTestGrammar(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	g, err := fe.Parse(src, "test.gbnf")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return g
}

func Test_Build_predictsOnFirstTerminal(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start s;
		NUM : /[0-9]+/;
		STR : /"[a-z]*"/;
		s -> a | b;
		a -> NUM;
		b -> STR;
	`
	g := buildTestGrammar(t, src)

	rtn := g.Rules["s"]
	dfa, err := Build(g, "s", rtn.Start, MaxDepth)
	if !assert.NoError(err) {
		return
	}

	predNum, ok := Predict(dfa, []string{"NUM"})
	assert.True(ok)
	predStr, okStr := Predict(dfa, []string{"STR"})
	assert.True(okStr)
	assert.NotEqual(predNum, predStr)
}

func Test_Build_predictsOnDeeperLookahead(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start s;
		ID : /[a-z]+/;
		NUM : /[0-9]+/;
		STR : /"[a-z]*"/;
		s -> a | b;
		a -> ID NUM;
		b -> ID STR;
	`
	g := buildTestGrammar(t, src)

	rtn := g.Rules["s"]
	dfa, err := Build(g, "s", rtn.Start, MaxDepth)
	if !assert.NoError(err) {
		return
	}

	predA, okA := Predict(dfa, []string{"ID", "NUM"})
	predB, okB := Predict(dfa, []string{"ID", "STR"})
	assert.True(okA)
	assert.True(okB)
	assert.NotEqual(predA, predB)
}

func Test_Build_unreachableAlternative_isError(t *testing.T) {
	assert := assert.New(t)

	g := grammar.NewGrammar()
	g.Start = "s"
	g.AddTerminal(grammar.TerminalDef{Name: "X"})

	a := grammar.NewRTN("a")
	a.AddState("a0", false)
	a.AddState("a1", true)
	a.AddTerminalTransition("a0", "X", "a1", grammar.TransitionProps{})
	a.Start = "a0"
	g.AddRule("a", a)

	b := grammar.NewRTN("b")
	b.AddState("b0", false)
	b.AddState("b1", true)
	b.AddTerminalTransition("b0", "X", "b1", grammar.TransitionProps{})
	b.Start = "b0"
	g.AddRule("b", b)

	s := grammar.NewRTN("s")
	s.AddState("s0", false)
	s.AddState("s1", true)
	s.AddNontermTransition("s0", "a", "s1", grammar.TransitionProps{Priorities: map[string]int{"default": 0}})
	s.AddNontermTransition("s0", "b", "s1", grammar.TransitionProps{Priorities: map[string]int{"default": 1}})
	s.Start = "s0"
	g.AddRule("s", s)

	_, err := Build(g, "s", "s0", MaxDepth)
	assert.Error(err)
}

func Test_Predict_ranOutOfLookahead(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start s;
		NUM : /[0-9]+/;
		STR : /"[a-z]*"/;
		s -> a | b;
		a -> NUM;
		b -> STR;
	`
	g := buildTestGrammar(t, src)

	rtn := g.Rules["s"]
	dfa, err := Build(g, "s", rtn.Start, MaxDepth)
	if !assert.NoError(err) {
		return
	}

	_, ok := Predict(dfa, nil)
	assert.False(ok)
}
