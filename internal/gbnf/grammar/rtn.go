package grammar

import (
	"fmt"
	"sort"

	"github.com/dekarrin/gbnfc/internal/util"
)

// TransitionProps carries the metadata an RTN transition needs beyond its
// destination: the named-slot index used by tree-building callbacks, the
// slot's name, and a priority-class -> rank map used for disambiguation
// (spec §3, §4.4). GLA final states reuse the zero value (GLAs don't have
// slots) but still thread a Priorities map through ambiguity resolution.
type TransitionProps struct {
	SlotIndex  int
	SlotName   string
	Priorities map[string]int
	HasSlot    bool

	// IsSubparser marks an edge injected by an @allow directive's self-loop
	// (spec §3, §8 scenario 6): a nonterminal edge back into the same state
	// that invokes another rule purely for its side effect of consuming
	// input (whitespace, comments), never surfaced to the host callbacks.
	IsSubparser bool
}

// RTNEdgeKind distinguishes the three edge-value kinds an RTN transition can
// carry (spec §3's tagged variant note, §9).
type RTNEdgeKind int

const (
	EdgeEpsilon RTNEdgeKind = iota
	EdgeTerminal
	EdgeNonterm
)

// RTNTransition is one outgoing edge of an RTN state.
type RTNTransition struct {
	Kind  RTNEdgeKind
	Name  string // terminal name or referenced rule name; unused for epsilon
	To    string
	Props TransitionProps
}

func (t RTNTransition) key() string {
	switch t.Kind {
	case EdgeTerminal:
		return "t:" + t.Name
	case EdgeNonterm:
		return "n:" + t.Name
	default:
		return ""
	}
}

// RTNState is one state of a recursive transition network.
type RTNState struct {
	Name        string
	Transitions []RTNTransition
	Final       bool
	// Priorities holds the priority-class -> rank map attached to this state
	// when it is final (spec §3's "final flag + priority info").
	Priorities map[string]int
}

// RTN is a deterministic automaton for a single nonterminal: edges reference
// terminal names, other nonterminal names, or (pre-determinization) epsilon.
type RTN struct {
	Name   string
	States map[string]*RTNState
	Start  string
}

func NewRTN(name string) *RTN {
	return &RTN{Name: name, States: map[string]*RTNState{}}
}

func (r *RTN) AddState(name string, final bool) {
	if _, ok := r.States[name]; ok {
		return
	}
	r.States[name] = &RTNState{Name: name, Final: final}
}

func (r *RTN) AddTerminalTransition(from, terminal, to string, props TransitionProps) {
	r.States[from].Transitions = append(r.States[from].Transitions, RTNTransition{Kind: EdgeTerminal, Name: terminal, To: to, Props: props})
}

func (r *RTN) AddNontermTransition(from, rule, to string, props TransitionProps) {
	r.States[from].Transitions = append(r.States[from].Transitions, RTNTransition{Kind: EdgeNonterm, Name: rule, To: to, Props: props})
}

// StateNames returns every state name, sorted.
func (r *RTN) StateNames() []string {
	return util.OrderedKeys(r.States)
}

// IsTrivial reports whether state needs no lookahead at all: it is either a
// final leaf (final, no outgoing transitions) or has exactly one outgoing
// transition and that transition is to a nonterminal (spec §4.7's "trivial"
// linearization variant).
func (r *RTN) IsTrivial(state string) bool {
	s := r.States[state]
	if s.Final && len(s.Transitions) == 0 {
		return true
	}
	return len(s.Transitions) == 1 && s.Transitions[0].Kind == EdgeNonterm
}

// NeedsLookahead reports whether state is "non-trivial" per spec §4.5: it
// has two or more outgoing transitions, has a nonterminal edge that could be
// ambiguous with a terminal edge (approximated conservatively here as "more
// than one transition kind present"), or is final with outgoing transitions.
func (r *RTN) NeedsLookahead(state string) bool {
	s := r.States[state]
	if len(s.Transitions) >= 2 {
		return true
	}
	if s.Final && len(s.Transitions) > 0 {
		return true
	}
	return false
}

// nfaRTNState is a state of the pre-determinization Thompson-constructed NFA
// for a rule body: transitions may include epsilon and may fan out more than
// once per symbol.
type nfaRTNState struct {
	name        string
	transitions []RTNTransition
	final       bool
}

// NFARTN is the Thompson-construction product for one rule's derivation,
// prior to NFA->DFA determinization (spec §4.2, §9's "RTN/NFA construction
// primitives").
type NFARTN struct {
	Name   string
	States map[string]*nfaRTNState
	Start  string
	Accept string
}

func NewNFARTN(name string) *NFARTN {
	return &NFARTN{Name: name, States: map[string]*nfaRTNState{}}
}

func (n *NFARTN) AddState(name string) {
	if _, ok := n.States[name]; ok {
		return
	}
	n.States[name] = &nfaRTNState{name: name}
}

// SetFinal marks name as an accepting state of the NFA (the rule can end
// there). Thompson construction calls this on the fragment's accept state
// once the whole rule body has been assembled.
func (n *NFARTN) SetFinal(name string) {
	n.States[name].final = true
}

func (n *NFARTN) AddEpsilon(from, to string) {
	n.States[from].transitions = append(n.States[from].transitions, RTNTransition{Kind: EdgeEpsilon, To: to})
}

func (n *NFARTN) AddTerminal(from, terminal, to string, props TransitionProps) {
	n.States[from].transitions = append(n.States[from].transitions, RTNTransition{Kind: EdgeTerminal, Name: terminal, To: to, Props: props})
}

func (n *NFARTN) AddNonterm(from, rule, to string, props TransitionProps) {
	n.States[from].transitions = append(n.States[from].transitions, RTNTransition{Kind: EdgeNonterm, Name: rule, To: to, Props: props})
}

func (n *NFARTN) epsilonClosure(s string) util.StringSet {
	closure := util.NewStringSet()
	var stack util.Stack[string]
	stack.Push(s)
	for stack.Len() > 0 {
		cur := stack.Pop()
		if closure.Has(cur) {
			continue
		}
		closure.Add(cur)
		for _, t := range n.States[cur].transitions {
			if t.Kind == EdgeEpsilon {
				stack.Push(t.To)
			}
		}
	}
	return closure
}

// Determinize runs NFA->DFA subset construction over the RTN's discrete
// edge alphabet (terminal names and nonterminal references never partially
// overlap the way byte ranges do, so no equivalence-class splitting step is
// needed here, see automaton.go's ToDFA doc comment for the general case
// this specializes). Transition properties are carried by picking the first
// NFA transition encountered for a given (state-set, edge-key) bucket.
// Priority propagation (priority.go) runs afterwards, on the determinized
// RTN (spec §4.4).
func (n *NFARTN) Determinize() *RTN {
	dStart := n.epsilonClosure(n.Start)
	dStates := map[string]util.StringSet{}
	dStates[dStart.StringOrdered()] = dStart
	marked := util.NewStringSet()

	rtn := NewRTN(n.Name)

	type bucket struct {
		trans RTNTransition
	}

	for {
		names := util.StringSetOf(util.OrderedKeys(dStates))
		unmarked := names.Difference(marked)
		if unmarked.Len() < 1 {
			break
		}
		for _, tName := range unmarked.Elements() {
			t := dStates[tName]
			marked.Add(tName)

			final := false
			var priorities map[string]int
			for _, nm := range t.Elements() {
				if n.States[nm].final {
					final = true
				}
			}

			rtn.AddState(tName, final)
			rtn.States[tName].Priorities = priorities

			buckets := map[string]bucket{}
			var order []string
			for _, nm := range t.Elements() {
				for _, tr := range n.States[nm].transitions {
					if tr.Kind == EdgeEpsilon {
						continue
					}
					key := tr.key()
					if _, ok := buckets[key]; !ok {
						buckets[key] = bucket{trans: tr}
						order = append(order, key)
					}
				}
			}
			sort.Strings(order)

			for _, key := range order {
				b := buckets[key]
				moveTo := util.NewStringSet()
				for _, nm := range t.Elements() {
					for _, tr := range n.States[nm].transitions {
						if tr.Kind != EdgeEpsilon && tr.key() == key {
							moveTo.Add(tr.To)
						}
					}
				}
				u := util.NewStringSet()
				for _, s := range moveTo.Elements() {
					u.AddAll(n.epsilonClosure(s))
				}
				if u.Empty() {
					continue
				}
				if !names.Has(u.StringOrdered()) {
					names.Add(u.StringOrdered())
					dStates[u.StringOrdered()] = u
				}
				switch b.trans.Kind {
				case EdgeTerminal:
					rtn.AddTerminalTransition(tName, b.trans.Name, u.StringOrdered(), b.trans.Props)
				case EdgeNonterm:
					rtn.AddNontermTransition(tName, b.trans.Name, u.StringOrdered(), b.trans.Props)
				}
			}

			if rtn.Start == "" {
				rtn.Start = tName
			}
		}
	}
	return rtn
}

// String renders an RTN for debugging.
func (r *RTN) String() string {
	s := fmt.Sprintf("RTN %s (start=%s)", r.Name, r.Start)
	return s
}
