package compiler

import (
	"bytes"
	"testing"

	"github.com/dekarrin/gbnfc/internal/gbnf/codec"
	"github.com/dekarrin/gbnfc/internal/gbnf/gla"
	"github.com/stretchr/testify/assert"
)

func Test_Compile_producesLoadableArtifact(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		ID : /[a-z]+/;
		PLUS : /\+/;
		expr -> ID PLUS ID;
	`
	data, err := Compile(src, "test.gbnf", DefaultOptions())
	if !assert.NoError(err) {
		return
	}

	lg, err := codec.Load(bytes.NewReader(data))
	if !assert.NoError(err) {
		return
	}
	assert.Equal("expr", lg.StartRule)
}

func Test_Compile_invalidGrammar_isError(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr;
		expr -> Missing;
	`
	_, err := Compile(src, "test.gbnf", DefaultOptions())
	assert.Error(err)
}

func Test_Compile_syntaxError_isError(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start expr
		ID : /a/;
		expr -> ID;
	`
	_, err := Compile(src, "test.gbnf", DefaultOptions())
	assert.Error(err)
}

func Test_Compile_includesGLAForAmbiguousState(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start s;
		NUM : /[0-9]+/;
		STR : /"[a-z]*"/;
		s -> a | b;
		a -> NUM;
		b -> STR;
	`
	data, err := Compile(src, "test.gbnf", DefaultOptions())
	if !assert.NoError(err) {
		return
	}

	lg, err := codec.Load(bytes.NewReader(data))
	if !assert.NoError(err) {
		return
	}
	if !assert.Len(lg.GLAs, 1) {
		return
	}
}

func Test_Compile_leftRecursion_isError(t *testing.T) {
	assert := assert.New(t)

	src := `
		@start e;
		PLUS : /\+/;
		NUM : /[0-9]+/;
		e -> e PLUS NUM | NUM;
	`
	_, err := Compile(src, "test.gbnf", DefaultOptions())
	assert.Error(err)
}

func Test_DefaultOptions_matchesGLAMaxDepth(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(gla.MaxDepth, DefaultOptions().MaxLookaheadDepth)
}
