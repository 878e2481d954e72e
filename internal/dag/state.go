package dag

// State is the runtime state of one task within a run.
type State string

const (
	StatePending        State = "pending"
	StateRunning        State = "running"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
	StateUpstreamFailed State = "upstream_failed"
)

// IsTerminal reports whether the state is final for a run.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateUpstreamFailed:
		return true
	default:
		return false
	}
}

// runState tracks one execution of a graph. It is owned by the executor's
// dispatch loop and never touched by task goroutines.
type runState struct {
	g      *Graph
	states []State
}

func newRunState(g *Graph) *runState {
	states := make([]State, g.Len())
	for i := range states {
		states[i] = StatePending
	}
	return &runState{g: g, states: states}
}

// ready returns pending tasks whose upstream tasks all succeeded, in
// declaration order.
func (r *runState) ready() []int {
	var out []int
	for i, st := range r.states {
		if st != StatePending {
			continue
		}
		ok := true
		for _, p := range r.g.in[i] {
			if r.states[p] != StateSucceeded {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// failAndPropagate marks i failed and every pending transitive descendant
// upstream_failed. It returns the newly marked descendants.
func (r *runState) failAndPropagate(i int) []int {
	r.states[i] = StateFailed

	var marked []int
	visited := make([]bool, len(r.states))
	visited[i] = true
	queue := append([]int(nil), r.g.out[i]...)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if visited[u] {
			continue
		}
		visited[u] = true

		if r.states[u] == StatePending {
			r.states[u] = StateUpstreamFailed
			marked = append(marked, u)
		}
		queue = append(queue, r.g.out[u]...)
	}
	return marked
}
