package fe

import (
	"fmt"

	"github.com/dekarrin/gbnfc/internal/gbnf/fe/rx"
	"github.com/dekarrin/gbnfc/internal/gbnf/gbnferr"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// Parser is the hand-written recursive-descent front end for the grammar
// DSL: `@start`/`@allow` directives, `TERMINAL : /regex/ ;` declarations,
// and `rule -> derivation ( "|" derivation )* ;` productions. Grounded in
// the teacher's fishi bootstrap (internal/ictiobus/fishi.go), which is also
// hand-written recursive descent before the teacher's later stages
// self-host against their own grammar.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek *Token
}

// Parse reads src (named sourceName for diagnostics) and returns the
// assembled, determinized Grammar.
func Parse(src, sourceName string) (*grammar.Grammar, error) {
	p := &Parser{lex: NewLexer(src, sourceName)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	g := grammar.NewGrammar()

	for p.cur.Kind != TokEOF {
		switch {
		case p.cur.Kind == TokAt:
			if err := p.parseDirective(g); err != nil {
				return nil, err
			}
		case p.cur.Kind == TokTerminalName:
			if err := p.parseTerminal(g); err != nil {
				return nil, err
			}
		case p.cur.Kind == TokIdent:
			name, b, frag, err := p.parseRule()
			if err != nil {
				return nil, err
			}
			rtn := b.Finish(frag)
			g.AddRule(name, rtn)
		default:
			return nil, gbnferr.NewSyntaxErrorFromToken("expected terminal, rule, or directive", p.cur.Pos, p.cur.Text)
		}
	}

	return g, nil
}

func (p *Parser) advance() error {
	if p.peek != nil {
		p.cur = *p.peek
		p.peek = nil
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if p.cur.Kind != k {
		return Token{}, gbnferr.NewSyntaxErrorFromToken(fmt.Sprintf("expected %s, got %s", k, p.cur.Kind), p.cur.Pos, p.cur.Text)
	}
	t := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// parseDirective handles `@start name ;` and `@allow name -> n1, n2 ;`, the
// latter declaring name a subparser whose self-loop closure begins at n1 and
// stops expanding past any of n2, n3, ... (spec §3, §8 scenario 6).
func (p *Parser) parseDirective(g *grammar.Grammar) error {
	if _, err := p.expect(TokAt); err != nil {
		return err
	}
	kw, err := p.expect(TokIdent)
	if err != nil {
		return err
	}
	switch kw.Text {
	case "start":
		name, err := p.expect(TokIdent)
		if err != nil {
			return err
		}
		g.Start = name.Text
		_, err = p.expect(TokSemi)
		return err
	case "allow":
		from, err := p.expect(TokIdent)
		if err != nil {
			return err
		}
		if _, err := p.expect(TokArrow); err != nil {
			return err
		}
		var targets []string
		for {
			target, err := p.expect(TokIdent)
			if err != nil {
				return err
			}
			targets = append(targets, target.Text)
			if p.cur.Kind != TokComma {
				break
			}
			if err := p.advance(); err != nil {
				return err
			}
		}
		if len(targets) == 0 {
			return gbnferr.NewSyntaxErrorFromToken("@allow requires at least a start rule", kw.Pos, kw.Text)
		}
		g.AllowSubparser(from.Text, targets[0], targets[1:]...)
		_, err = p.expect(TokSemi)
		return err
	default:
		return gbnferr.NewSyntaxErrorFromToken("unknown directive", kw.Pos, kw.Text)
	}
}

// parseTerminal handles `TERMINAL_NAME : /regex/ ;`.
func (p *Parser) parseTerminal(g *grammar.Grammar) error {
	name, err := p.expect(TokTerminalName)
	if err != nil {
		return err
	}
	if _, ok := g.Terminals[name.Text]; ok {
		return gbnferr.NewSyntaxErrorFromToken("redefinition of terminal with conflicting type", name.Pos, name.Text)
	}
	if _, err := p.expect(TokColon); err != nil {
		return err
	}
	if _, err := p.expect(TokSlash); err != nil {
		return err
	}

	pattern, err := p.scanRegexBody()
	if err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}

	g.AddTerminal(grammar.TerminalDef{Name: name.Text, Pattern: pattern})
	_, err = p.expect(TokSemi)
	return err
}

// scanRegexBody reads raw bytes directly from the lexer up to (not
// including) the closing `/`. InRegex stays set for the whole scan, and the
// scan stops at the first `/` in the pattern, escaped or not.
func (p *Parser) scanRegexBody() (string, error) {
	p.lex.InRegex = true
	defer func() { p.lex.InRegex = false }()

	start := p.lex.pos
	for {
		if p.lex.pos >= len(p.lex.src) {
			return "", gbnferr.NewSyntaxErrorFromToken("unterminated regex literal", p.lex.position(), "")
		}
		if p.lex.peekByte() == '/' {
			break
		}
		p.lex.advance()
	}
	body := p.lex.src[start:p.lex.pos]
	p.lex.advance() // consume closing '/'
	return body, nil
}

// parseRule handles `name -> derivation ( "|" derivation )* ;` and returns
// the assembled, not-yet-determinized fragment along with the builder that
// owns it.
func (p *Parser) parseRule() (string, *grammar.Builder, grammar.Fragment, error) {
	name, err := p.expect(TokIdent)
	if err != nil {
		return "", nil, grammar.Fragment{}, err
	}
	if _, err := p.expect(TokArrow); err != nil {
		return "", nil, grammar.Fragment{}, err
	}

	b := grammar.NewBuilder(name.Text)
	var alts []grammar.Fragment
	rank := 0
	for {
		frag, priorities, err := p.parseDerivation(b, rank)
		if err != nil {
			return "", nil, grammar.Fragment{}, err
		}
		_ = priorities
		alts = append(alts, frag)
		rank++
		if p.cur.Kind != TokPipe {
			break
		}
		if err := p.advance(); err != nil {
			return "", nil, grammar.Fragment{}, err
		}
	}
	if _, err := p.expect(TokSemi); err != nil {
		return "", nil, grammar.Fragment{}, err
	}
	return name.Text, b, b.Alt(alts...), nil
}

// parseDerivation reads one `|`-separated alternative: a sequence of terms,
// optionally followed by `/` and a rank. The rank must be an identifier
// token made only of digits; identifiers never start with a digit, so a `/`
// after a derivation always ends in a syntax error. Both callers discard the
// returned priority map, so no priority reaches the RTN from here.
func (p *Parser) parseDerivation(b *grammar.Builder, defaultRank int) (grammar.Fragment, map[string]int, error) {
	var frags []grammar.Fragment
	for p.cur.Kind == TokIdent || p.cur.Kind == TokTerminalName || p.cur.Kind == TokString || p.cur.Kind == TokLParen || p.cur.Kind == TokDot {
		f, err := p.parseTerm(b)
		if err != nil {
			return grammar.Fragment{}, nil, err
		}
		frags = append(frags, f)
	}

	rank := defaultRank
	if p.cur.Kind == TokSlash {
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, nil, err
		}
		tok, err := p.expect(TokIdent)
		if err != nil {
			return grammar.Fragment{}, nil, err
		}
		n := 0
		for _, c := range tok.Text {
			if c < '0' || c > '9' {
				return grammar.Fragment{}, nil, gbnferr.NewSyntaxErrorFromToken("expected integer priority", tok.Pos, tok.Text)
			}
			n = n*10 + int(c-'0')
		}
		rank = n
	}
	priorities := map[string]int{"default": rank}
	return b.Concat(frags...), priorities, nil
}

// parseTerm reads one named/quantified/grouped/referenced derivation term.
func (p *Parser) parseTerm(b *grammar.Builder) (grammar.Fragment, error) {
	slot := ""
	hasSlot := false
	if p.cur.Kind == TokDot {
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		nameTok, err := p.expect(TokIdent)
		if err != nil {
			return grammar.Fragment{}, err
		}
		if _, err := p.expect(TokEquals); err != nil {
			return grammar.Fragment{}, err
		}
		slot = nameTok.Text
		hasSlot = true
	}

	atom, err := p.parseAtom(b, grammar.TransitionProps{SlotName: slot, HasSlot: hasSlot})
	if err != nil {
		return grammar.Fragment{}, err
	}

	switch p.cur.Kind {
	case TokQuestion:
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Optional(atom), nil
	case TokStar:
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		if err := p.consumeOptionalSeparator(); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Star(atom), nil
	case TokPlus:
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		if err := p.consumeOptionalSeparator(); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Plus(atom), nil
	}
	return atom, nil
}

// consumeOptionalSeparator reads a `("sep")` clause following `*`/`+`, if
// present. The grammar doesn't yet thread separator tokens into the RTN
// (that needs a second pass once RTN/GLA wiring for separated-repeat
// exists); for now it is accepted syntactically and discarded, same as the
// teacher's fishi bootstrap accepting directives its early stages don't yet
// act on.
func (p *Parser) consumeOptionalSeparator() error {
	if p.cur.Kind != TokLParen {
		return nil
	}
	if err := p.advance(); err != nil {
		return err
	}
	if _, err := p.expect(TokString); err != nil {
		return err
	}
	_, err := p.expect(TokRParen)
	return err
}

func (p *Parser) parseAtom(b *grammar.Builder, props grammar.TransitionProps) (grammar.Fragment, error) {
	switch p.cur.Kind {
	case TokTerminalName:
		t := p.cur
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Terminal(t.Text, props), nil
	case TokString:
		t := p.cur
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Terminal(t.Text, props), nil
	case TokIdent:
		t := p.cur
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Nonterminal(t.Text, props), nil
	case TokLParen:
		if err := p.advance(); err != nil {
			return grammar.Fragment{}, err
		}
		var alts []grammar.Fragment
		for {
			f, _, err := p.parseDerivation(b, len(alts))
			if err != nil {
				return grammar.Fragment{}, err
			}
			alts = append(alts, f)
			if p.cur.Kind != TokPipe {
				break
			}
			if err := p.advance(); err != nil {
				return grammar.Fragment{}, err
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return grammar.Fragment{}, err
		}
		return b.Alt(alts...), nil
	}
	return grammar.Fragment{}, gbnferr.NewSyntaxErrorFromToken("expected term", p.cur.Pos, p.cur.Text)
}

// CompileTerminals compiles every terminal's regex pattern into a minimized
// IntDFA and returns them keyed by terminal name. It builds no unioned lexer
// and detects no conflicts between terminals; package coalesce does that
// (spec §4.6). This is used directly for grammars whose terminal set is small
// enough that lexer conflicts aren't a practical concern, or for tests.
func CompileTerminals(g *grammar.Grammar) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, name := range g.TerminalNames() {
		def := g.Terminals[name]
		dfa, err := rx.Compile(def.Pattern, name)
		if err != nil {
			return nil, fmt.Errorf("terminal %s: %w", name, err)
		}
		out[name] = dfa
	}
	return out, nil
}
