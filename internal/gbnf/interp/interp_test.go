package interp

import (
	"bytes"
	"testing"

	"github.com/dekarrin/gbnfc/internal/gbnf/codec"
	"github.com/dekarrin/gbnfc/internal/gbnf/compiler"
	"github.com/stretchr/testify/assert"
)

func loadCompiled(t *testing.T, src string) *codec.LoadedGrammar {
	t.Helper()
	artifact, err := compiler.Compile(src, "test.gbnf", compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	lg, err := codec.Load(bytes.NewReader(artifact))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return lg
}

func Test_Parse_simpleSequence_firesCallbacksInOrder(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	lg := loadCompiled(t, src)

	var events []string
	cb := Callbacks{
		RuleStart: func(ps *ParseState, rule string) { events = append(events, "start:"+rule) },
		RuleEnd:   func(ps *ParseState, rule string) { events = append(events, "end:"+rule) },
		Terminal: func(ps *ParseState, term string, offset, length int) {
			events = append(events, "term:"+term)
		},
	}
	b := Bind(lg, cb)

	ps, err := Alloc(b)
	if !assert.NoError(err) {
		return
	}

	status, n, err := ps.Parse([]byte("a+b"))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(StatusOK, status)
	assert.Equal(3, n)

	if !assert.NoError(ps.Finish()) {
		return
	}

	assert.Equal([]string{
		"start:expr", "term:ID", "term:PLUS", "term:ID", "end:expr",
	}, events)
}

func Test_Parse_suspendsOnPartialInput(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	lg := loadCompiled(t, src)
	b := Bind(lg, Callbacks{})

	ps, err := Alloc(b)
	if !assert.NoError(err) {
		return
	}

	status, n, err := ps.Parse([]byte("a"))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(StatusOK, status)
	assert.Equal(0, n)
}

func Test_Parse_mismatchedTerminal_isError(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	lg := loadCompiled(t, src)
	b := Bind(lg, Callbacks{})

	ps, err := Alloc(b)
	if !assert.NoError(err) {
		return
	}

	_, _, err = ps.Parse([]byte("a-b"))
	assert.Error(err)
}

func Test_Parse_cancel_stopsBeforeNextInstruction(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	lg := loadCompiled(t, src)
	b := Bind(lg, Callbacks{})

	ps, err := Alloc(b)
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

func Test_Parse_decidesBetweenAlternativesViaGLA(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start s;
		NUM : /[0-9]+/;
		STR : /"[a-z]*"/;
		s -> a | b;
		a -> NUM;
		b -> STR;
	`
	lg := loadCompiled(t, src)

	var terms []string
	cb := Callbacks{
		Terminal: func(ps *ParseState, term string, offset, length int) {
			terms = append(terms, term)
		},
	}
	b := Bind(lg, cb)

	ps, err := Alloc(b)
	if !assert.NoError(err) {
		return
	}
	_, _, err = ps.Parse([]byte("42"))
	if !assert.NoError(err) {
		return
	}
	if !assert.NoError(ps.Finish()) {
		return
	}
	assert.Equal([]string{"NUM"}, terms)
}

func Test_Parse_allowSubparser_suppressesCallbacks(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		@allow ws -> expr;
		ID : /[a-z]+/;
		WS : / /;
		ws -> WS;
		expr -> ID*;
	`
	lg := loadCompiled(t, src)

	var events []string
	cb := Callbacks{
		RuleStart: func(ps *ParseState, rule string) { events = append(events, "start:"+rule) },
		RuleEnd:   func(ps *ParseState, rule string) { events = append(events, "end:"+rule) },
		Terminal: func(ps *ParseState, term string, offset, length int) {
			events = append(events, "term:"+term)
		},
	}
	b := Bind(lg, cb)

	ps, err := Alloc(b)
	if !assert.NoError(err) {
		return
	}

	status, n, err := ps.Parse([]byte("foo bar"))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(StatusOK, status)
	assert.Equal(7, n)

	if !assert.NoError(ps.Finish()) {
		return
	}

	// the whitespace between "foo" and "bar" is consumed by the ws
	// subparser's self-loop, but none of its callbacks are visible: only
	// the two real ID terminals and expr's own start/end show up.
	assert.Equal([]string{
		"start:expr", "term:ID", "term:ID", "end:expr",
	}, events)
}

func Test_Dup_copiesIndependentState(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	lg := loadCompiled(t, src)
	b := Bind(lg, Callbacks{})

	ps, err := Alloc(b)
	if !assert.NoError(err) {
		return
	}
	_, _, err = ps.Parse([]byte("a"))
	if !assert.NoError(err) {
		return
	}

	cp := ps.Dup()
	_, _, err = ps.Parse([]byte("+b"))
	if !assert.NoError(err) {
		return
	}
	if !assert.NoError(ps.Finish()) {
		return
	}

	// cp is unaffected by continuing to drive ps further.
	_, _, err = cp.Parse([]byte("+c"))
	assert.NoError(err)
}
