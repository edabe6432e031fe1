// Package runtime is the public surface a host application embeds against:
// load a compiled grammar artifact, bind callbacks to it, and drive parse
// states over input bytes (spec.md §6.4). It is a thin re-export over
// internal/gbnf/codec (loading) and internal/gbnf/interp (execution); no
// algorithm lives here.
package runtime

import (
	"io"

	"github.com/dekarrin/gbnfc/internal/gbnf/codec"
	"github.com/dekarrin/gbnfc/internal/gbnf/interp"
)

// Status mirrors interp.Status: the suspension result of Parse.
type Status = interp.Status

const (
	StatusOK        = interp.StatusOK
	StatusEOF       = interp.StatusEOF
	StatusCancelled = interp.StatusCancelled
)

// Callbacks mirrors interp.Callbacks: the client hooks invoked as the
// interpreter fires rule-start, rule-end, and terminal-matched events.
type Callbacks = interp.Callbacks

// Grammar is a loaded, immutable, shareable compiled artifact.
type Grammar struct {
	loaded *codec.LoadedGrammar
}

// LoadGrammar reads a compiled artifact from r (spec §6.4's load_grammar).
func LoadGrammar(r io.Reader) (*Grammar, error) {
	lg, err := codec.Load(r)
	if err != nil {
		return nil, err
	}
	return &Grammar{loaded: lg}, nil
}

// BoundGrammar pairs a loaded Grammar with client callbacks, ready to
// allocate parse states from.
type BoundGrammar struct {
	bound *interp.BoundGrammar
}

// Bind attaches callbacks to a loaded grammar (spec §6.4's bind_grammar).
func Bind(g *Grammar, cb Callbacks) *BoundGrammar {
	return &BoundGrammar{bound: interp.Bind(g.loaded, cb)}
}

// ParseState is one in-progress, resumable, explicitly copyable parse.
type ParseState struct {
	ps *interp.ParseState
}

// AllocParseState creates a new ParseState positioned at b's start rule
// (spec §6.4's alloc_parse_state).
func AllocParseState(b *BoundGrammar) (*ParseState, error) {
	ps, err := interp.Alloc(b.bound)
	if err != nil {
		return nil, err
	}
	return &ParseState{ps: ps}, nil
}

// Parse feeds buf to the interpreter (spec §6.4's parse).
func (s *ParseState) Parse(buf []byte) (Status, int, error) {
	return s.ps.Parse(buf)
}

// FinishParse performs end-of-input finalization (spec §6.4's finish_parse).
func FinishParse(s *ParseState) error {
	return s.ps.Finish()
}

// DupParseState deep-copies s's frame stack and token buffer, sharing the
// bound grammar (spec §6.4's dup_parse_state).
func DupParseState(s *ParseState) *ParseState {
	return &ParseState{ps: s.ps.Dup()}
}

// Cancel requests cancellation of an in-progress parse at the next
// instruction boundary.
func (s *ParseState) Cancel() {
	s.ps.Cancel()
}
