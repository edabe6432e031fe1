// Package gbnferr holds the typed error values raised across the grammar
// compiler: syntax errors from the front end, well-formedness errors from
// grammar assembly, and artifact errors from the bitcode loader.
package gbnferr

import "fmt"

// Position locates a token or byte in source text.
type Position struct {
	Line, Col int
	Source    string
}

func (p Position) String() string {
	if p.Source == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.Source, p.Line, p.Col)
}

// SyntaxError is a front-end parse failure: an unexpected symbol or token,
// an unterminated literal, an unknown directive, or a redefinition with a
// conflicting type (spec §4.1). Undefined references are reported by
// grammar.Validate as plain errors, not as a SyntaxError, and the front end
// reports no error for a named group or for a separator after a `?`
// quantifier.
type SyntaxError struct {
	Pos     Position
	Token   string
	Message string
}

// NewSyntaxErrorFromToken builds a SyntaxError anchored at tok's position.
func NewSyntaxErrorFromToken(msg string, pos Position, tok string) *SyntaxError {
	return &SyntaxError{Pos: pos, Token: tok, Message: msg}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// FullMessage renders a one-line diagnostic including the offending token.
func (e *SyntaxError) FullMessage() string {
	return fmt.Sprintf("syntax error at %s: %s (near %q)", e.Pos, e.Message, e.Token)
}

// GrammarError reports a structural problem discovered after parsing: an
// @allow directive naming an undeclared rule, left recursion, a rule with no
// non-recursive alternative, or an alternative that GLA construction finds
// unreachable because a higher-priority alternative dominates it.
type GrammarError struct {
	Rule    string
	Message string
}

func (e *GrammarError) Error() string {
	if e.Rule == "" {
		return e.Message
	}
	return fmt.Sprintf("rule %q: %s", e.Rule, e.Message)
}

// ArtifactErrorKind enumerates the distinct ways a serialized bitcode
// artifact can fail to load (spec §7).
type ArtifactErrorKind int

const (
	ArtifactBadMagic ArtifactErrorKind = iota
	ArtifactTruncated
	ArtifactOutOfRange
	ArtifactCorruptAbbrev
)

func (k ArtifactErrorKind) String() string {
	switch k {
	case ArtifactBadMagic:
		return "bad magic"
	case ArtifactTruncated:
		return "truncated stream"
	case ArtifactOutOfRange:
		return "out-of-range value"
	case ArtifactCorruptAbbrev:
		return "corrupt abbreviation"
	default:
		return "unknown artifact error"
	}
}

// ArtifactError wraps a bitcode-loading failure along with the byte offset
// it was detected at, for diagnostics.
type ArtifactError struct {
	Kind   ArtifactErrorKind
	Offset int64
	Detail string
}

func NewArtifactError(kind ArtifactErrorKind, offset int64, detail string) *ArtifactError {
	return &ArtifactError{Kind: kind, Offset: offset, Detail: detail}
}

func (e *ArtifactError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("artifact error at offset %d: %s", e.Offset, e.Kind)
	}
	return fmt.Sprintf("artifact error at offset %d: %s: %s", e.Offset, e.Kind, e.Detail)
}

// ParseError reports a streaming-interpreter failure at runtime: an
// unexpected token, an exhausted GLA prediction, or incomplete input at
// finish. A cancellation is reported through the parse status, not as a
// ParseError.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}
