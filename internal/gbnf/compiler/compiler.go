// Package compiler drives the full compile phase end to end: grammar source
// text in, a byte artifact out (spec.md §2's "compile phase"). It is the
// glue cmd/gbnfc's compile subcommand calls; every actual algorithm lives in
// the packages it sequences (fe, grammar, gla, coalesce, codec).
package compiler

import (
	"fmt"

	"github.com/dekarrin/gbnfc/internal/gbnf/automaton"
	"github.com/dekarrin/gbnfc/internal/gbnf/coalesce"
	"github.com/dekarrin/gbnfc/internal/gbnf/codec"
	"github.com/dekarrin/gbnfc/internal/gbnf/fe"
	"github.com/dekarrin/gbnfc/internal/gbnf/gla"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// Options tunes the compile pipeline (spec.md's AMBIENT STACK TOML-loaded
// CompileOptions, see cmd/gbnfc).
type Options struct {
	MaxLookaheadDepth int
}

// DefaultOptions mirrors gla.MaxDepth unless overridden.
func DefaultOptions() Options {
	return Options{MaxLookaheadDepth: gla.MaxDepth}
}

// Compile parses src (named sourceName for diagnostics), runs the full
// compile pipeline, and returns the serialized artifact bytes.
func Compile(src, sourceName string, opts Options) ([]byte, error) {
	g, err := fe.Parse(src, sourceName)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if err := g.InjectAllowSelfLoops(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	for _, name := range g.RuleNames() {
		grammar.PropagatePriorities(g.Rules[name])
	}

	maxDepth := opts.MaxLookaheadDepth
	if maxDepth <= 0 {
		maxDepth = gla.MaxDepth
	}

	glas := map[string]*automaton.DFA[int]{}
	for _, name := range g.RuleNames() {
		rtn := g.Rules[name]
		for _, stateName := range rtn.StateNames() {
			if !rtn.NeedsLookahead(stateName) {
				continue
			}
			built, err := gla.Build(g, name, stateName, maxDepth)
			if err != nil {
				return nil, fmt.Errorf("rule %s state %s: %w", name, stateName, err)
			}
			glas[name+"/"+stateName] = built
		}
	}

	pool, err := coalesce.Coalesce(g)
	if err != nil {
		return nil, fmt.Errorf("coalesce: %w", err)
	}

	out, err := codec.Emit(g, pool, glas)
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	return out, nil
}
