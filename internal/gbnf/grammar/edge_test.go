package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_EdgeValue_MatchesInput(t *testing.T) {
	assert := assert.New(t)

	term := TerminalEdge{Terminal: "ID"}
	assert.True(term.MatchesInput("ID"))
	assert.False(term.MatchesInput("NUM"))

	nt := NonTermEdge{Rule: "Expr"}
	assert.False(nt.MatchesInput("Expr"))

	eof := TermOrEOFEdge{EOF: true}
	assert.True(eof.MatchesInput(""))
	assert.False(eof.MatchesInput("ID"))

	tok := TermOrEOFEdge{Terminal: "ID"}
	assert.True(tok.MatchesInput("ID"))
	assert.False(tok.MatchesInput(""))

	eps := EpsilonEdge{}
	assert.True(eps.IsEpsilon())
	assert.False(term.IsEpsilon())
}

func Test_EdgeValue_Equal(t *testing.T) {
	assert := assert.New(t)

	a := TerminalEdge{Terminal: "ID"}
	b := TerminalEdge{Terminal: "ID"}
	c := TerminalEdge{Terminal: "NUM"}
	assert.True(a.Equal(b))
	assert.False(a.Equal(c))
	assert.False(a.Equal(NonTermEdge{Rule: "ID"}))

	iv1 := IntervalEdge{Set: NewIntSetRange(0, 10)}
	iv2 := IntervalEdge{Set: NewIntSetRange(0, 10)}
	iv3 := IntervalEdge{Set: NewIntSetRange(0, 5)}
	assert.True(iv1.Equal(iv2))
	assert.False(iv1.Equal(iv3))
}
