package gla

import (
	"fmt"
	"sort"

	"github.com/emirpasic/gods/queue/linkedlistqueue"

	"github.com/dekarrin/gbnfc/internal/gbnf/automaton"
	"github.com/dekarrin/gbnfc/internal/gbnf/gbnferr"
	"github.com/dekarrin/gbnfc/internal/gbnf/grammar"
)

// EOFSymbol is the synthetic terminal name a GLA transitions on when a path
// exhausts its return stack entirely (end of input reached while still
// predicting). It's distinct from automaton.Epsilon ("") so the discrete FA
// kernel never confuses "no more input" with "no transition yet".
const EOFSymbol = "\x00EOF"

// MaxDepth bounds how many terminals a path may consume while the
// construction loop looks for a decision, matching spec §4.5's fixed-k
// termination heuristic when the grammar doesn't resolve sooner. Grammars
// whose ambiguity genuinely needs unbounded lookahead hit this and report a
// nonregular-lookahead error instead of looping forever (spec's inherited
// policy, carried into SPEC_FULL's Open Questions decision). It is the
// default; compiler.Options.MaxLookaheadDepth can override it per compile.
const MaxDepth = 64

// generation is one step of the construction loop: the set of still-live
// candidate paths reaching the GLA state currently being built.
type generation struct {
	paths []Path
}

// followState is one entry of the global follow set: an RTN state whose
// incoming edge is a reference to the rule it's keyed by (spec §4.5's
// global pre-pass), or the synthetic EOF state following the start rule.
type followState struct {
	rule, state string
	isEOF       bool
}

// computeFollowStates returns, for every rule name, the set of RTN states a
// path should presume it could return to once that rule's derivation ends
// with nothing left on its real return stack. The start rule also follows
// into a synthetic EOF marker.
func computeFollowStates(g *grammar.Grammar) map[string][]followState {
	follow := map[string][]followState{}
	for _, name := range g.RuleNames() {
		rtn := g.Rules[name]
		for _, sn := range rtn.StateNames() {
			for _, t := range rtn.States[sn].Transitions {
				if t.Kind == grammar.EdgeNonterm {
					follow[t.Name] = append(follow[t.Name], followState{rule: name, state: t.To})
				}
			}
		}
	}
	follow[g.Start] = append(follow[g.Start], followState{isEOF: true})
	return follow
}

// Build constructs the GLA that predicts which outgoing transition of
// rtn.States[state] to take, given g for cross-rule descent. Build seeds one
// path per outgoing transition of the state, in transition order, and explores terminal-by-terminal until every
// terminal-keyed branch narrows to a single alternative or hits EOF.
// maxDepth overrides MaxDepth (compiler.Options.MaxLookaheadDepth, spec §9).
func Build(g *grammar.Grammar, ruleName, state string, maxDepth int) (*automaton.DFA[int], error) {
	rtn := g.Rules[ruleName]
	st := rtn.States[state]
	if len(st.Transitions) == 0 {
		return nil, fmt.Errorf("state %s/%s has nothing to predict between", ruleName, state)
	}
	if maxDepth <= 0 {
		maxDepth = MaxDepth
	}

	follow := computeFollowStates(g)

	var seeds []Path
	for i, t := range st.Transitions {
		switch t.Kind {
		case grammar.EdgeTerminal:
			seeds = append(seeds, NewPath(i, ruleName, state))
		case grammar.EdgeNonterm:
			seeds = append(seeds, NewPath(i, ruleName, state))
		}
	}

	dfa := &automaton.DFA[int]{}
	seen := map[string]string{} // generation signature -> already-built state name
	counter := 0

	type workItem struct {
		name  string
		gen   generation
		depth int
	}

	nameFor := func(gen generation) (string, bool) {
		sig := genSignature(gen)
		if name, ok := seen[sig]; ok {
			return name, true
		}
		counter++
		name := fmt.Sprintf("gla.%s.%s.%d", ruleName, state, counter)
		seen[sig] = name
		return name, false
	}

	// The per-state worklist (spec §4.5's "state construction loop") is
	// backed by gods' linked-list queue rather than a one-off slice, since
	// this loop is central enough to the compiler's cost budget to want a
	// real queue implementation instead of re-deriving one.
	queue := linkedlistqueue.New()

	startName, _ := nameFor(generation{paths: seeds})
	dfa.AddState(startName, false)
	dfa.Start = startName
	queue.Enqueue(workItem{name: startName, gen: generation{paths: seeds}, depth: 0})

	for !queue.Empty() {
		raw, _ := queue.Dequeue()
		item := raw.(workItem)

		if winner, ok := resolve(g, ruleName, state, item.gen.paths); ok {
			dfa.SetValue(item.name, winner)
			s := dfa.States[item.name]
			s.Accepting = true
			dfa.States[item.name] = s
			continue
		}

		if item.depth >= maxDepth {
			return nil, fmt.Errorf("rule %q state %q: lookahead did not converge within %d terminals (nonregular lookahead)", ruleName, state, maxDepth)
		}

		byTerm := map[string][]Path{}
		for _, p := range item.gen.paths {
			results, err := stepOne(g, ruleName, state, p, follow)
			if err != nil {
				return nil, err
			}
			for _, r := range results {
				key := r.term
				if r.isEOF {
					key = EOFSymbol
				}
				byTerm[key] = append(byTerm[key], r.path)
			}
		}

		var terms []string
		for k := range byTerm {
			terms = append(terms, k)
		}
		sort.Strings(terms)

		for _, term := range terms {
			childGen := generation{paths: byTerm[term]}
			childName, existed := nameFor(childGen)
			if !existed {
				dfa.AddState(childName, false)
				queue.Enqueue(workItem{name: childName, gen: childGen, depth: item.depth + 1})
			}
			dfa.AddTransition(item.name, term, childName)
		}
	}

	minimized := automaton.MinimizeDFA(*dfa, func(v int, accepting bool) automaton.FinalClass {
		if !accepting {
			return automaton.FinalClass("")
		}
		return automaton.FinalClass(fmt.Sprintf("alt%d", v))
	})

	result := removeExcessStates(minimized)

	if err := checkAllAlternativesReachable(ruleName, state, len(seeds), result); err != nil {
		return nil, err
	}

	return &result, nil
}

// removeExcessStates collapses any GLA state from which every reachable
// final state predicts the same alternative into an immediate final state
// for that alternative (spec §4.5's post-construction optimization): once a
// path has committed, chasing the remaining terminals to the same answer is
// wasted work for the interpreter.
func removeExcessStates(d automaton.DFA[int]) automaton.DFA[int] {
	reachableAlts := map[string]map[int]bool{}
	visiting := map[string]bool{}

	var compute func(name string) map[int]bool
	compute = func(name string) map[int]bool {
		if v, ok := reachableAlts[name]; ok {
			return v
		}
		if visiting[name] {
			return map[int]bool{}
		}
		visiting[name] = true
		set := map[int]bool{}
		st := d.States[name]
		if st.Accepting {
			set[st.Value] = true
		}
		for _, t := range st.Transitions {
			for a := range compute(t.Next) {
				set[a] = true
			}
		}
		delete(visiting, name)
		reachableAlts[name] = set
		return set
	}

	for name := range d.States {
		compute(name)
	}

	for name, st := range d.States {
		alts := reachableAlts[name]
		if len(alts) != 1 || st.Accepting {
			continue
		}
		var only int
		for a := range alts {
			only = a
		}
		st.Accepting = true
		st.Value = only
		st.Transitions = map[string]automaton.FATransition{}
		d.States[name] = st
	}
	return d
}

// checkAllAlternativesReachable performs spec §4.5's final scan: if any of
// the decision's original alternatives never appears as a final state's
// predicted value anywhere in the built GLA, that alternative can never be
// taken (spec §7, §8 scenario 4).
func checkAllAlternativesReachable(ruleName, state string, numAlts int, d automaton.DFA[int]) error {
	reached := map[int]bool{}
	for _, st := range d.States {
		if st.Accepting {
			reached[st.Value] = true
		}
	}
	for i := 0; i < numAlts; i++ {
		if !reached[i] {
			return &gbnferr.GrammarError{Rule: ruleName, Message: fmt.Sprintf("state %q: alternative %d is unreachable (dominated by a higher-priority alternative)", state, i)}
		}
	}
	return nil
}

// genSignature dedupes generations so structurally identical branches of the
// exploration collapse onto the same GLA state instead of being rebuilt
// (and so genuinely cyclic grammars terminate instead of recursing forever).
func genSignature(gen generation) string {
	sigs := make([]string, len(gen.paths))
	for i, p := range gen.paths {
		sigs[i] = fmt.Sprintf("%d:%s", p.Alt, p.signature())
	}
	sort.Strings(sigs)
	s := ""
	for _, sg := range sigs {
		s += sg + "|"
	}
	return s
}

// stepResult is one outcome of advancing a single Path by one terminal: the
// follow-set fallback (spec §4.5) can fork one incoming path into several,
// one per presumed continuation, so stepOne returns a slice rather than a
// single result.
type stepResult struct {
	term  string
	path  Path
	isEOF bool
}

// stepOne advances p by exactly one consumed terminal, descending through
// nonterminal calls and popping finished rules as needed, per decisionRule/
// decisionState (p's seed point) and the global follow set. It returns one
// result per terminal-or-EOF branch reachable from p.
func stepOne(g *grammar.Grammar, decisionRule, decisionState string, p Path, follow map[string][]followState) ([]stepResult, error) {
	atDecision := p.Rule == decisionRule && p.State == decisionState && p.ret == nil && p.presumed == nil && len(p.History) == 0
	return stepLoop(g, p, atDecision, follow)
}

func stepLoop(g *grammar.Grammar, p Path, atDecision bool, follow map[string][]followState) ([]stepResult, error) {
	for {
		rtn := g.Rules[p.Rule]
		st, ok := rtn.States[p.State]
		if !ok {
			return nil, fmt.Errorf("gla: unknown state %s/%s", p.Rule, p.State)
		}

		// The very first step out of the seed state must follow p.Alt's own
		// transition, not whichever nonterminal edge happens to come first,
		// otherwise every alternative's path would collapse onto the same
		// branch and the construction could never actually distinguish them.
		if atDecision {
			atDecision = false
			t := st.Transitions[p.Alt]
			switch t.Kind {
			case grammar.EdgeTerminal:
				return []stepResult{{term: t.Name, path: p.consume(t.Name, t.To, t.Props.Priorities)}}, nil
			case grammar.EdgeNonterm:
				calleeStart := g.Rules[t.Name].Start
				if rtn.IsTrivial(t.To) {
					p = p.jumpInto(t.Name, calleeStart)
				} else {
					p = p.pushReturn(t.Name, t.To, t.Props.IsSubparser)
					p.State = calleeStart
				}
				continue
			}
		}

		if len(st.Transitions) == 0 {
			if st.Final {
				popped, ok := p.popReturn()
				if ok {
					p = popped
					continue
				}
				// Both the real and presumed return stacks are exhausted:
				// fall back to the global follow set (spec §4.5) instead of
				// immediately declaring EOF, forking one branch per follow
				// state so lookahead can see past this rule's boundary.
				fs := follow[p.Rule]
				if len(fs) == 0 {
					p.EOF = true
					return []stepResult{{isEOF: true, path: p}}, nil
				}
				var results []stepResult
				for _, f := range fs {
					if f.isEOF {
						eof := p
						eof.EOF = true
						results = append(results, stepResult{isEOF: true, path: eof})
						continue
					}
					branch := p.pushPresumed(f.rule, f.state)
					sub, err := stepLoop(g, branch, false, follow)
					if err != nil {
						return nil, err
					}
					results = append(results, sub...)
				}
				return results, nil
			}
			return nil, fmt.Errorf("gla: dead end at %s/%s", p.Rule, p.State)
		}

		// Tail-recursion elimination (spec §4.5): when the only way forward
		// is a single nonterminal edge whose return point is itself final
		// with no further transitions, skip pushing a return frame and walk
		// straight into the callee, since there is nothing left to do after
		// it returns anyway.
		if len(st.Transitions) == 1 && st.Transitions[0].Kind == grammar.EdgeNonterm {
			t := st.Transitions[0]
			calleeStart := g.Rules[t.Name].Start
			if rtn.IsTrivial(t.To) {
				p = p.jumpInto(t.Name, calleeStart)
			} else {
				p = p.pushReturn(t.Name, t.To, t.Props.IsSubparser)
				p.State = calleeStart
			}
			continue
		}

		// At most one terminal transition is expected once a path is past
		// its seed decision (grammar is otherwise deterministic along a
		// single alt's derivation); take it.
		for _, t := range st.Transitions {
			if t.Kind == grammar.EdgeTerminal {
				return []stepResult{{term: t.Name, path: p.consume(t.Name, t.To, t.Props.Priorities)}}, nil
			}
		}

		// multiple nonterminal alternatives inside a single alt's own
		// derivation: descend into the first and let its own internal
		// determinism (it's still a single RTN, deterministic per state)
		// carry it forward, true ambiguity here would have already been
		// resolved when that nested rule's own decision states were built.
		t := st.Transitions[0]
		p = p.pushReturn(t.Name, t.To, t.Props.IsSubparser)
		p.State = g.Rules[t.Name].Start
	}
}

// resolve checks whether every remaining path agrees on the same
// alternative, and if not, tries priority-based then subparser-redundancy
// disambiguation (spec §4.5.1). It returns (alt, true) when a single winner
// is established, or (0, false) when the generation must keep exploring.
func resolve(g *grammar.Grammar, decisionRule, decisionState string, paths []Path) (int, bool) {
	alts := map[int]bool{}
	for _, p := range paths {
		alts[p.Alt] = true
	}
	if len(alts) == 1 {
		for a := range alts {
			return a, true
		}
	}
	if len(alts) == 0 {
		return 0, false
	}

	// priority resolution is attempted at every generation, not only once
	// the depth cap is reached: if the live alts' priority maps name a
	// dominating alternative, it wins immediately.
	var candidates []map[string]int
	var altOrder []int
	for a := range alts {
		altOrder = append(altOrder, a)
	}
	sort.Ints(altOrder)
	for _, a := range altOrder {
		candidates = append(candidates, priorityOf(g, decisionRule, decisionState, a))
	}
	if winner := grammar.ResolveAmbiguity(candidates); winner >= 0 {
		return altOrder[winner], true
	}

	// Subparser-redundancy resolution (spec §4.5.1): strip subparser
	// invocation segments out of each path's history; paths that come out
	// identical are the same derivation modulo which one invoked a
	// subparser to get there, and only the path whose subparser ran
	// earliest is kept.
	bestByKey := map[string]Path{}
	for _, p := range paths {
		key := p.strippedHistory()
		cur, ok := bestByKey[key]
		if !ok {
			bestByKey[key] = p
			continue
		}
		pi, ci := p.firstSubparserIndex(), cur.firstSubparserIndex()
		if pi >= 0 && (ci < 0 || pi < ci) {
			bestByKey[key] = p
		}
	}
	survivingAlts := map[int]bool{}
	for _, p := range bestByKey {
		survivingAlts[p.Alt] = true
	}
	if len(survivingAlts) == 1 {
		for a := range survivingAlts {
			return a, true
		}
	}
	return 0, false
}
