package runtime

import (
	"bytes"
	"testing"

	"github.com/dekarrin/gbnfc/internal/gbnf/compiler"
	"github.com/dekarrin/gbnfc/internal/gbnf/interp"
	"github.com/stretchr/testify/assert"
)

func compileGrammar(t *testing.T, src string) *Grammar {
	t.Helper()
	data, err := compiler.Compile(src, "test.gbnf", compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	g, err := LoadGrammar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return g
}

func Test_LoadGrammar_BindAllocParse_endToEnd(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	g := compileGrammar(t, src)

	var terms []string
	bound := Bind(g, Callbacks{
		Terminal: func(ps *interp.ParseState, term string, offset, length int) {
			terms = append(terms, term)
		},
	})

	ps, err := AllocParseState(bound)
	if !assert.NoError(err) {
		return
	}

	status, n, err := ps.Parse([]byte("a+b"))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(StatusOK, status)
	assert.Equal(3, n)

	assert.NoError(FinishParse(ps))
	assert.Equal([]string{"ID", "PLUS", "ID"}, terms)
}

func Test_DupParseState_isIndependent(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	g := compileGrammar(t, src)
	bound := Bind(g, Callbacks{})

	ps, err := AllocParseState(bound)
	if !assert.NoError(err) {
		return
	}
	_, _, err = ps.Parse([]byte("a"))
	if !assert.NoError(err) {
		return
	}

	dup := DupParseState(ps)
	assert.NotSame(ps, dup)

	_, _, err = ps.Parse([]byte("+b"))
	if !assert.NoError(err) {
		return
	}
	assert.NoError(FinishParse(ps))

	_, _, err = dup.Parse([]byte("+c"))
	assert.NoError(err)
}

func Test_ParseState_Cancel_stopsParse(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	g := compileGrammar(t, src)
	bound := Bind(g, Callbacks{})

	ps, err := AllocParseState(bound)
	if !assert.NoError(err) {
		return
	}
	ps.Cancel()

	status, _, err := ps.Parse([]byte("a+b"))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(StatusCancelled, status)
}
