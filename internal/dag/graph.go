package dag

import (
	"container/heap"
	"context"
)

// Task is a named unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Edge declares that From must succeed before To starts.
type Edge struct {
	From string
	To   string
}

type edgeIndex struct {
	from int
	to   int
}

// Graph is an immutable, validated DAG. Nodes keep their declaration order,
// which is also the tie-breaker for every ordering the graph reports.
//
// It is safe for concurrent read access.
type Graph struct {
	tasks  []Task
	byName map[string]int
	edges  []edgeIndex
	out    [][]int
	in     [][]int
	indeg  []int
}

// New builds and validates a Graph.
//
// Validation rejects:
//   - an empty task list
//   - empty or duplicate task names, or a task without a Run func
//   - edges referencing unknown tasks
//   - duplicate edges and self-loops
//   - any cycle
func New(tasks []Task, edges []Edge) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, invalidGraph("no tasks")
	}

	byName := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if t.Name == "" {
			return nil, invalidGraph("task name is required")
		}
		if t.Run == nil {
			return nil, invalidTask(t.Name, "no run func")
		}
		if _, exists := byName[t.Name]; exists {
			return nil, invalidTask(t.Name, "duplicate task name")
		}
		byName[t.Name] = i
	}

	g := &Graph{
		tasks:  append([]Task(nil), tasks...),
		byName: byName,
		out:    make([][]int, len(tasks)),
		in:     make([][]int, len(tasks)),
		indeg:  make([]int, len(tasks)),
	}

	seen := make(map[edgeIndex]struct{}, len(edges))
	for _, e := range edges {
		from, okFrom := byName[e.From]
		to, okTo := byName[e.To]
		if !okFrom {
			return nil, invalidEdge(e, "unknown task %q", e.From)
		}
		if !okTo {
			return nil, invalidEdge(e, "unknown task %q", e.To)
		}
		if from == to {
			return nil, invalidEdge(e, "self-loop")
		}

		pair := edgeIndex{from: from, to: to}
		if _, exists := seen[pair]; exists {
			return nil, invalidEdge(e, "duplicate edge")
		}
		seen[pair] = struct{}{}

		g.edges = append(g.edges, pair)
		g.out[from] = append(g.out[from], to)
		g.in[to] = append(g.in[to], from)
		g.indeg[to]++
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.tasks) }

// Tasks returns the tasks in declaration order.
func (g *Graph) Tasks() []Task {
	return append([]Task(nil), g.tasks...)
}

// Task returns the task called name.
func (g *Graph) Task(name string) (Task, bool) {
	i, ok := g.byName[name]
	if !ok {
		return Task{}, false
	}
	return g.tasks[i], true
}

// Edges returns the edges in declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Edge{From: g.tasks[e.from].Name, To: g.tasks[e.to].Name})
	}
	return out
}

// Upstream returns the direct dependencies of name.
func (g *Graph) Upstream(name string) []string {
	i, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.names(g.in[i])
}

// Downstream returns the direct dependents of name.
func (g *Graph) Downstream(name string) []string {
	i, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.names(g.out[i])
}

// TopologicalOrder returns a deterministic topological ordering of task names.
func (g *Graph) TopologicalOrder() []string {
	return g.names(g.topoOrder())
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.tasks[i].Name)
	}
	return out
}

// validateAcyclic runs Kahn's algorithm; leftover nodes mean a cycle.
func (g *Graph) validateAcyclic() error {
	if len(g.topoOrder()) == len(g.tasks) {
		return nil
	}
	return cycleError(g.findCycle())
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder returns node indices in topological order, lowest index first
// among ready nodes.
func (g *Graph) topoOrder() []int {
	indeg := append([]int(nil), g.indeg...)

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.out[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as task names, first node repeated at the end.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.tasks))
	parent := make([]int, len(g.tasks))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.out[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.tasks {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.tasks[cycle[i]].Name)
	}
	return out
}
