package gla

import "github.com/dekarrin/gbnfc/internal/gbnf/automaton"

// GLA is a grammar lookahead automaton: a deterministic automaton over
// terminal names (plus the synthetic EOFSymbol) whose accepting states carry
// the index of the RTN transition they predict (spec §3's GLA flavor).
type GLA = automaton.DFA[int]

// Predict walks g starting at its Start state, consuming terminals from
// lookahead until an accepting state is reached, and returns the predicted
// RTN transition index. It returns (0, false) if lookahead runs out (more
// terminals than were supplied) without reaching a decision, or if a
// terminal has neither its own edge nor an EOF edge.
func Predict(g *GLA, lookahead []string) (int, bool) {
	state := g.Start
	if g.IsAccepting(state) {
		return g.GetValue(state), true
	}
	for _, term := range lookahead {
		next := g.Next(state, term)
		if next == "" {
			next = g.Next(state, EOFSymbol)
			if next == "" {
				return 0, false
			}
		}
		state = next
		if g.IsAccepting(state) {
			return g.GetValue(state), true
		}
	}
	return 0, false
}
