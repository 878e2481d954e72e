package dag

import "gopkg.in/yaml.v3"

// NodeView is the printable form of one task.
type NodeView struct {
	Name     string   `yaml:"name" json:"name"`
	Upstream []string `yaml:"upstream,omitempty" json:"upstream,omitempty"`
}

// View is the printable form of a graph.
type View struct {
	Nodes []NodeView `yaml:"nodes" json:"nodes"`
	Order []string   `yaml:"order" json:"order"`
}

// Describe returns the graph's nodes with their dependencies, in
// declaration order, plus the topological order the executor follows.
func (g *Graph) Describe() View {
	v := View{
		Nodes: make([]NodeView, 0, g.Len()),
		Order: g.TopologicalOrder(),
	}
	for _, t := range g.tasks {
		v.Nodes = append(v.Nodes, NodeView{Name: t.Name, Upstream: g.Upstream(t.Name)})
	}
	return v
}

// YAML renders Describe as a YAML document.
func (g *Graph) YAML() ([]byte, error) {
	return yaml.Marshal(g.Describe())
}
