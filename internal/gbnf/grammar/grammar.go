package grammar

import (
	"fmt"

	"github.com/dekarrin/gbnfc/internal/gbnf/gbnferr"
	"github.com/dekarrin/gbnfc/internal/util"
)

// TerminalDef is how a terminal is recognized: either a literal IntFA
// pattern compiled from a regex-like expression, or (for the synthetic EOF
// and error-recovery markers) no pattern at all.
type TerminalDef struct {
	Name    string
	Pattern string // the source regex text, kept for diagnostics/bitcode emission
	Class   string // the priority class this terminal's rule belongs to, if any
}

// Grammar is the fully parsed, not-yet-compiled grammar: an ordered set of
// rules (nonterminal name -> not-yet-determinized NFA fragment count is
// tracked by the fe package; by the time a Grammar reaches this package's
// consumers its Rules already hold determinized RTNs), its terminal
// definitions, the designated start symbol, and @allow subparser-closure
// declarations (spec §3, §8 scenario 6).
//
// This mirrors the shape of the teacher's internal/tunascript Grammar type
// (ordered nonterminal map + explicit start symbol) generalized from BNF
// productions to RTNs.
type Grammar struct {
	Rules     map[string]*RTN
	ruleOrder []string

	Terminals     map[string]TerminalDef
	terminalOrder []string

Start string

	// Allows holds every @allow directive in declaration order: a subparser
	// name, the rule where its self-loop closure begins, and the rules that
	// bound how far that closure spreads (spec §3's allow-directive tuple,
	// §8 scenario 6).
	Allows []AllowDirective
}

// AllowDirective records one `@allow subparser -> start, end1, end2;`
// declaration: subparser is the nonterminal invoked as a self-loop for its
// side effect (whitespace, comments), Start is the rule SubparserClosure
// begins walking from, and End bounds the walk, the closure includes an End
// rule itself but does not expand past it.
type AllowDirective struct {
	Subparser string
	Start     string
	End       util.StringSet
}

// NewGrammar returns an empty Grammar ready to be populated by the fe
// package's parser.
func NewGrammar() *Grammar {
	return &Grammar{
		Rules:     map[string]*RTN{},
		Terminals: map[string]TerminalDef{},
	}
}

// AddRule registers rtn under name, preserving first-seen declaration order
// (used when the compiler needs deterministic iteration for diagnostics or
// bitcode emission).
func (g *Grammar) AddRule(name string, rtn *RTN) {
	if _, ok := g.Rules[name]; !ok {
		g.ruleOrder = append(g.ruleOrder, name)
	}
	g.Rules[name] = rtn
}

// AddTerminal registers a terminal definition, preserving declaration order.
func (g *Grammar) AddTerminal(def TerminalDef) {
	if _, ok := g.Terminals[def.Name]; !ok {
		g.terminalOrder = append(g.terminalOrder, def.Name)
	}
	g.Terminals[def.Name] = def
}

// RuleNames returns nonterminal names in declaration order.
func (g *Grammar) RuleNames() []string {
	return append([]string(nil), g.ruleOrder...)
}

// TerminalNames returns terminal names in declaration order.
func (g *Grammar) TerminalNames() []string {
	return append([]string(nil), g.terminalOrder...)
}

// AllowSubparser records an @allow directive: subparser declares itself
// enterable as a self-loop everywhere in the closure of rules reachable from
// start, stopping expansion at (but still including) any rule named in end.
func (g *Grammar) AllowSubparser(subparser, start string, end ...string) {
	d := AllowDirective{Subparser: subparser, Start: start}
	if len(end) > 0 {
		d.End = util.NewStringSet()
		for _, e := range end {
			d.End.Add(e)
		}
	}
	g.Allows = append(g.Allows, d)
}

// SubparserClosure computes the set of rules a single @allow directive's
// self-loop must be injected into: every rule reachable from d.Start by
// nonterminal reference, not expanding past a rule named in d.End (spec §3,
// §8 scenario 6).
func (g *Grammar) SubparserClosure(d AllowDirective) util.StringSet {
	graph := g.buildCallGraph()
	closure := util.NewStringSet()
	var stack util.Stack[string]
	stack.Push(d.Start)
	for stack.Len() > 0 {
		cur := stack.Pop()
		if closure.Has(cur) {
			continue
		}
		closure.Add(cur)
		if d.End.Has(cur) {
			continue
		}
		for _, next := range graph[cur].Elements() {
			stack.Push(next)
		}
	}
	return closure
}

// InjectAllowSelfLoops adds, for every @allow directive, a nonterminal
// self-loop transition invoking the subparser to each state of each rule in
// that directive's closure (spec §3, §8 scenario 6). Must run before
// PropagatePriorities and GLA construction so the injected edges are seen by
// both.
func (g *Grammar) InjectAllowSelfLoops() error {
	for _, d := range g.Allows {
		if _, ok := g.Rules[d.Subparser]; !ok {
			return &gbnferr.GrammarError{Rule: d.Subparser, Message: "@allow names an undeclared subparser rule"}
		}
		if _, ok := g.Rules[d.Start]; !ok {
			return &gbnferr.GrammarError{Rule: d.Start, Message: "@allow names an undeclared start rule"}
		}
		closure := g.SubparserClosure(d)
		for _, ruleName := range closure.Elements() {
			rtn := g.Rules[ruleName]
			for _, stateName := range rtn.StateNames() {
				rtn.AddNontermTransition(stateName, d.Subparser, stateName, TransitionProps{IsSubparser: true})
			}
		}
	}
	return nil
}

// buildCallGraph returns, for every rule, the set of rules it can reference
// directly from any of its states.
func (g *Grammar) buildCallGraph() map[string]util.StringSet {
	graph := map[string]util.StringSet{}
	for _, name := range g.ruleOrder {
		set := util.NewStringSet()
		rtn := g.Rules[name]
		for _, sn := range rtn.StateNames() {
			for _, t := range rtn.States[sn].Transitions {
				if t.Kind == EdgeNonterm {
					set.Add(t.Name)
				}
			}
		}
		graph[name] = set
	}
	return graph
}

// callClosure computes, for every rule in graph, the set of rules
// transitively reachable from it (a rule is in its own closure only if some
// cycle leads back to it).
func callClosure(graph map[string]util.StringSet) map[string]util.StringSet {
	closure := map[string]util.StringSet{}
	for name := range graph {
		seen := util.NewStringSet()
		var stack util.Stack[string]
		for _, c := range graph[name].Elements() {
			stack.Push(c)
		}
		for stack.Len() > 0 {
			cur := stack.Pop()
			if seen.Has(cur) {
				continue
			}
			seen.Add(cur)
			for _, next := range graph[cur].Elements() {
				stack.Push(next)
			}
		}
		closure[name] = seen
	}
	return closure
}

// CheckLeftRecursion performs the spec §4.5 global pre-pass: a depth-first
// descent from each rule's start state along leading nonterminal edges that
// must never re-enter a rule already in the current chain.
func (g *Grammar) CheckLeftRecursion() error {
	for _, name := range g.ruleOrder {
		if err := g.checkLeftRecursion(name, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grammar) checkLeftRecursion(name string, chain map[string]bool) error {
	if chain[name] {
		return &gbnferr.GrammarError{Rule: name, Message: "left recursion"}
	}
	chain[name] = true
	rtn := g.Rules[name]
	st := rtn.States[rtn.Start]
	for _, t := range st.Transitions {
		if t.Kind != EdgeNonterm {
			continue
		}
		if err := g.checkLeftRecursion(t.Name, chain); err != nil {
			return err
		}
	}
	delete(chain, name)
	return nil
}

// CheckNonRecursiveAlternative verifies that every rule has at least one path
// from its start state to a final state that does not, directly or
// transitively, require re-entering the rule itself (spec §4.5).
func (g *Grammar) CheckNonRecursiveAlternative() error {
	graph := g.buildCallGraph()
	closure := callClosure(graph)
	for _, name := range g.ruleOrder {
		if !g.hasNonRecursivePath(name, closure) {
			return &gbnferr.GrammarError{Rule: name, Message: "no non-recursive alternative"}
		}
	}
	return nil
}

// hasNonRecursivePath walks rule's own RTN from its start state, refusing any
// nonterminal edge whose target rule (rule itself, or one whose closure
// contains rule) would eventually require re-entering rule.
func (g *Grammar) hasNonRecursivePath(rule string, closure map[string]util.StringSet) bool {
	rtn := g.Rules[rule]
	visited := util.NewStringSet()
	var dfs func(state string) bool
	dfs = func(state string) bool {
		if visited.Has(state) {
			return false
		}
		visited.Add(state)
		st := rtn.States[state]
		if st.Final {
			return true
		}
		for _, t := range st.Transitions {
			if t.Kind == EdgeNonterm {
				if t.Name == rule || closure[t.Name].Has(rule) {
					continue
				}
			}
			if dfs(t.To) {
				return true
			}
		}
		return false
	}
	return dfs(rtn.Start)
}

// Validate checks well-formedness: the start symbol exists, every
// nonterminal/terminal reference names a declared symbol, every rule has a
// non-left-recursive and a non-recursive derivation (spec §4.5, §7).
func (g *Grammar) Validate() error {
	if g.Start == "" {
		return fmt.Errorf("grammar has no start symbol")
	}
	if _, ok := g.Rules[g.Start]; !ok {
		return fmt.Errorf("start symbol %q is not a declared rule", g.Start)
	}
	for _, name := range g.ruleOrder {
		rtn := g.Rules[name]
		for _, stateName := range rtn.StateNames() {
			for _, t := range rtn.States[stateName].Transitions {
				switch t.Kind {
				case EdgeNonterm:
					if _, ok := g.Rules[t.Name]; !ok {
						return fmt.Errorf("rule %q references undeclared nonterminal %q", name, t.Name)
					}
				case EdgeTerminal:
					if _, ok := g.Terminals[t.Name]; !ok {
						return fmt.Errorf("rule %q references undeclared terminal %q", name, t.Name)
					}
				}
			}
		}
	}
	if err := g.CheckLeftRecursion(); err != nil {
		return err
	}
	if err := g.CheckNonRecursiveAlternative(); err != nil {
		return err
	}
	return nil
}
