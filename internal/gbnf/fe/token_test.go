package fe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Lexer_Next_punctuation(t *testing.T) {
	assert := assert.New(t)

	l := NewLexer("-> | ; : . = ? * + / ( ) , @ -", "test")
	var kinds []TokenKind
	for {
		tok, err := l.Next()
		if !assert.NoError(err) {
			return
		}
		if tok.Kind == TokEOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}

	assert.Equal([]TokenKind{
		TokArrow, TokPipe, TokSemi, TokColon, TokDot, TokEquals,
		TokQuestion, TokStar, TokPlus, TokSlash, TokLParen, TokRParen,
		TokComma, TokAt, TokMinus,
	}, kinds)
}

func Test_Lexer_Next_identVsTerminal(t *testing.T) {
	assert := assert.New(t)

	l := NewLexer("expr ID Num_2 ALL_CAPS", "test")

	tok, err := l.Next()
	assert.NoError(err)
	assert.Equal(TokIdent, tok.Kind)
	assert.Equal("expr", tok.Text)

	tok, err = l.Next()
	assert.NoError(err)
	assert.Equal(TokTerminalName, tok.Kind)
	assert.Equal("ID", tok.Text)

	tok, err = l.Next()
	assert.NoError(err)
	assert.Equal(TokIdent, tok.Kind)
	assert.Equal("Num_2", tok.Text)

	tok, err = l.Next()
	assert.NoError(err)
	assert.Equal(TokTerminalName, tok.Kind)
	assert.Equal("ALL_CAPS", tok.Text)
}

func Test_Lexer_Next_stringLiteral(t *testing.T) {
	assert := assert.New(t)

	l := NewLexer(`"hello \"world\""`, "test")
	tok, err := l.Next()
	assert.NoError(err)
	assert.Equal(TokString, tok.Kind)
	assert.Equal(`hello "world"`, tok.Text)
}

func Test_Lexer_Next_skipsComments(t *testing.T) {
	assert := assert.New(t)

	l := NewLexer("// a line comment\nID /* block\ncomment */ NUM", "test")

	tok, err := l.Next()
	assert.NoError(err)
	assert.Equal(TokTerminalName, tok.Kind)
	assert.Equal("ID", tok.Text)

	tok, err = l.Next()
	assert.NoError(err)
	assert.Equal(TokTerminalName, tok.Kind)
	assert.Equal("NUM", tok.Text)
}

func Test_Lexer_Next_unexpectedSymbolErrors(t *testing.T) {
	assert := assert.New(t)

	l := NewLexer("#", "test")
	_, err := l.Next()
	assert.Error(err)
}

func Test_Lexer_Next_tracksLineAndCol(t *testing.T) {
	assert := assert.New(t)

	l := NewLexer("ID\nNUM", "test")
	tok, err := l.Next()
	assert.NoError(err)
	assert.Equal(1, tok.Pos.Line)

	tok, err = l.Next()
	assert.NoError(err)
	assert.Equal(2, tok.Pos.Line)
}
