package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph = errors.New("invalid task graph")
	ErrCycleFound   = errors.New("cycle detected")
)

// GraphError describes why New rejected a graph. At most one of Task, Edge
// and Cycle is set, pointing at the offending part of the graph.
type GraphError struct {
	Err    error
	Task   string
	Edge   *Edge
	Cycle  []string
	Reason string
}

func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())

	switch {
	case len(e.Cycle) > 0:
		b.WriteString(": " + strings.Join(e.Cycle, " -> "))
	case e.Edge != nil:
		fmt.Fprintf(&b, ": edge %s -> %s", e.Edge.From, e.Edge.To)
	case e.Task != "":
		fmt.Fprintf(&b, ": task %q", e.Task)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

func (e *GraphError) Unwrap() error { return e.Err }

func invalidGraph(reason string) error {
	return &GraphError{Err: ErrInvalidGraph, Reason: reason}
}

func invalidTask(name, reason string) error {
	return &GraphError{Err: ErrInvalidGraph, Task: name, Reason: reason}
}

func invalidEdge(e Edge, format string, args ...any) error {
	return &GraphError{Err: ErrInvalidGraph, Edge: &e, Reason: fmt.Sprintf(format, args...)}
}

// cycleError reports path, which starts and ends at the same task.
func cycleError(path []string) error {
	return &GraphError{Err: ErrCycleFound, Cycle: path}
}
