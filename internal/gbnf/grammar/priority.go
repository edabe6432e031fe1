package grammar

// PropagatePriorities pushes each transition's declared priority-class/rank
// information forward along the RTN so that it is visible wherever ambiguity
// later needs resolving, at accepting states (stored in RTNState.Priorities)
// and at every transition reachable only through edges that didn't carry
// their own priority info (spec §4.4).
//
// A transition's own Priorities map, if non-empty, always wins for that edge;
// propagation only fills in gaps for transitions and final states that
// didn't get explicit priority annotations in the source grammar, inheriting
// whatever was in effect at the state they're attached to.
func PropagatePriorities(rtn *RTN) {
	inherited := map[string]map[string]int{}
	visited := map[string]bool{}

	var walk func(state string, carry map[string]int)
	walk = func(state string, carry map[string]int) {
		if visited[state] {
			return
		}
		visited[state] = true

		merged := mergePriorities(carry, inherited[state])
		inherited[state] = merged

		s := rtn.States[state]
		if s.Final {
			s.Priorities = mergePriorities(s.Priorities, merged)
		}

		for i := range s.Transitions {
			t := &s.Transitions[i]
			if len(t.Props.Priorities) == 0 {
				t.Props.Priorities = merged
			}
			nextCarry := mergePriorities(merged, t.Props.Priorities)
			walk(t.To, nextCarry)
		}
	}

	walk(rtn.Start, nil)
}

// mergePriorities combines two priority-class->rank maps, preferring b's
// rank on a class present in both (b is the more specific / nearer source).
func mergePriorities(a, b map[string]int) map[string]int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := map[string]int{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// ResolveAmbiguity picks the winning priority class among candidates
// (transitions or final markers competing at the same GLA decision point),
// per spec §4.5's priority-based ambiguity resolution: lower rank wins
// within a shared class; candidates with no overlapping class are left
// ambiguous (caller falls back to subparser-redundancy resolution or reports
// an error).
//
// candidates is a list of per-alternative priority maps; the return value is
// the index of the winner, or -1 if no single map dominates all the others on
// some shared class.
func ResolveAmbiguity(candidates []map[string]int) int {
	best := -1
	for i, c := range candidates {
		dominates := true
		for j, o := range candidates {
			if i == j {
				continue
			}
			if !dominatesOn(c, o) {
				dominates = false
				break
			}
		}
		if dominates {
			if best != -1 {
				return -1 // more than one candidate dominates; truly ambiguous
			}
			best = i
		}
	}
	return best
}

// dominatesOn reports whether a beats o: they share at least one priority
// class and a's rank is lower (higher priority) on every class they share.
func dominatesOn(a, o map[string]int) bool {
	shared := false
	for class, rankA := range a {
		rankO, ok := o[class]
		if !ok {
			continue
		}
		shared = true
		if rankA > rankO {
			return false
		}
	}
	return shared
}
