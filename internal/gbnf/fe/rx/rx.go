// Package rx is the regex sub-parser fe's terminal declarations hand off to:
// Compile reads a pattern body, builds an IntSet-labeled Thompson
// construction (automaton.IntNFA) internally, and returns it determinized
// and minimized as an *automaton.IntDFA. Package coalesce combines the
// per-terminal results (spec §4.2).
package rx

import (
	"fmt"

	"github.com/dekarrin/gbnfc/internal/gbnf/automaton"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// Builder assembles IntNFA fragments for one regex pattern.
type Builder struct {
	nfa     *automaton.IntNFA
	counter int
}

func NewBuilder() *Builder {
	return &Builder{nfa: automaton.NewIntNFA()}
}

// Fragment is a single-entry, single-exit sub-automaton not yet wired to
// anything else.
type Fragment struct {
	Entry, Exit string
}

func (b *Builder) newState() string {
	b.counter++
	name := fmt.Sprintf("rx.s%d", b.counter)
	b.nfa.AddState(name, false)
	return name
}

// Parser consumes a pattern string (the text between the `/` delimiters,
// already unescaped of the delimiter itself) and produces a Fragment.
type Parser struct {
	b       *Builder
	pattern string
	pos     int
}

// Compile parses pattern and returns the minimized IntDFA recognizing it,
// labeled as the given terminal's sole final marker.
func Compile(pattern, terminal string) (*automaton.IntDFA, error) {
	b := NewBuilder()
	p := &Parser{b: b, pattern: pattern}
	frag, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.pattern) {
		return nil, fmt.Errorf("unexpected %q at position %d in pattern %q", p.pattern[p.pos], p.pos, pattern)
	}
	b.nfa.Start = frag.Entry
	b.nfa.SetFinal(frag.Exit, terminal)
	dfa := automaton.ToIntDFA(b.nfa, false)
	return automaton.MinimizeIntFA(dfa), nil
}

func (p *Parser) peek() (byte, bool) {
	if p.pos >= len(p.pattern) {
		return 0, false
	}
	return p.pattern[p.pos], true
}

func (p *Parser) parseAlt() (Fragment, error) {
	first, err := p.parseConcat()
	if err != nil {
		return Fragment{}, err
	}
	frags := []Fragment{first}
	for {
		c, ok := p.peek()
		if !ok || c != '|' {
			break
		}
		p.pos++
		next, err := p.parseConcat()
		if err != nil {
			return Fragment{}, err
		}
		frags = append(frags, next)
	}
	if len(frags) == 1 {
		return frags[0], nil
	}
	entry, exit := p.b.newState(), p.b.newState()
	for _, f := range frags {
		p.b.nfa.AddEpsilon(entry, f.Entry)
		p.b.nfa.AddEpsilon(f.Exit, exit)
	}
	return Fragment{Entry: entry, Exit: exit}, nil
}

func (p *Parser) parseConcat() (Fragment, error) {
	var frags []Fragment
	for {
		c, ok := p.peek()
		if !ok || c == '|' || c == ')' {
			break
		}
		f, err := p.parseQuant()
		if err != nil {
			return Fragment{}, err
		}
		frags = append(frags, f)
	}
	if len(frags) == 0 {
		s := p.b.newState()
		return Fragment{Entry: s, Exit: s}, nil
	}
	cur := frags[0]
	for _, next := range frags[1:] {
		p.b.nfa.AddEpsilon(cur.Exit, next.Entry)
		cur = Fragment{Entry: cur.Entry, Exit: next.Exit}
	}
	return cur, nil
}

func (p *Parser) parseQuant() (Fragment, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return Fragment{}, err
	}
	c, ok := p.peek()
	if !ok {
		return atom, nil
	}
	switch c {
	case '*':
		p.pos++
		return p.star(atom), nil
	case '+':
		p.pos++
		return p.plus(atom), nil
	case '?':
		p.pos++
		return p.optional(atom), nil
	}
	return atom, nil
}

func (p *Parser) star(f Fragment) Fragment {
	entry, exit := p.b.newState(), p.b.newState()
	p.b.nfa.AddEpsilon(entry, f.Entry)
	p.b.nfa.AddEpsilon(f.Exit, exit)
	p.b.nfa.AddEpsilon(exit, entry)
	p.b.nfa.AddEpsilon(entry, exit)
	return Fragment{Entry: entry, Exit: exit}
}

func (p *Parser) plus(f Fragment) Fragment {
	entry, exit := p.b.newState(), p.b.newState()
	p.b.nfa.AddEpsilon(entry, f.Entry)
	p.b.nfa.AddEpsilon(f.Exit, exit)
	p.b.nfa.AddEpsilon(exit, entry)
	return Fragment{Entry: entry, Exit: exit}
}

func (p *Parser) optional(f Fragment) Fragment {
	entry, exit := p.b.newState(), p.b.newState()
	p.b.nfa.AddEpsilon(entry, f.Entry)
	p.b.nfa.AddEpsilon(f.Exit, exit)
	p.b.nfa.AddEpsilon(entry, exit)
	return Fragment{Entry: entry, Exit: exit}
}

func (p *Parser) parseAtom() (Fragment, error) {
	c, ok := p.peek()
	if !ok {
		return Fragment{}, fmt.Errorf("unexpected end of pattern")
	}
	switch c {
	case '(':
		p.pos++
		f, err := p.parseAlt()
		if err != nil {
			return Fragment{}, err
		}
		if cc, ok := p.peek(); !ok || cc != ')' {
			return Fragment{}, fmt.Errorf("expected ) at position %d", p.pos)
		}
		p.pos++
		return f, nil
	case '[':
		return p.parseClass()
	case '.':
		p.pos++
		entry, exit := p.b.newState(), p.b.newState()
		p.b.nfa.AddTransition(entry, grammar.NewIntSetRange(0, grammar.Universe), exit)
		return Fragment{Entry: entry, Exit: exit}, nil
	case '\\':
		p.pos++
		return p.literalNext()
	default:
		return p.literalNext()
	}
}

func (p *Parser) literalNext() (Fragment, error) {
	c, ok := p.peek()
	if !ok {
		return Fragment{}, fmt.Errorf("unexpected end of pattern")
	}
	p.pos++
	entry, exit := p.b.newState(), p.b.newState()
	p.b.nfa.AddTransition(entry, grammar.NewIntSetChar(int32(c)), exit)
	return Fragment{Entry: entry, Exit: exit}, nil
}

// parseClass reads a `[...]` character class, including a leading `^` for
// negation and `a-z`-style ranges.
func (p *Parser) parseClass() (Fragment, error) {
	p.pos++ // consume '['
	set := grammar.NewIntSet()
	negate := false
	if c, ok := p.peek(); ok && c == '^' {
		negate = true
		p.pos++
	}
	first := true
	for {
		c, ok := p.peek()
		if !ok {
			return Fragment{}, fmt.Errorf("unterminated character class")
		}
		if c == ']' && !first {
			p.pos++
			break
		}
		first = false
		lo := c
		p.pos++
		if lo == '\\' {
			lo2, ok := p.peek()
			if !ok {
				return Fragment{}, fmt.Errorf("unterminated escape in character class")
			}
			lo = lo2
			p.pos++
		}
		hi := lo
		if nc, ok := p.peek(); ok && nc == '-' && p.pos+1 < len(p.pattern) && p.pattern[p.pos+1] != ']' {
			p.pos++ // consume '-'
			hc, _ := p.peek()
			p.pos++
			hi = hc
		}
		set.Add(int32(lo), int32(hi))
	}
	if negate {
		set = set.Invert()
	}
	entry, exit := p.b.newState(), p.b.newState()
	p.b.nfa.AddTransition(entry, set, exit)
	return Fragment{Entry: entry, Exit: exit}, nil
}
