package flow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// GraphDef is the YAML declaration of a graph's topology. Handlers and
// edge conditions are Go functions resolved by name at bind time, so
// the definition stays statically checkable while the shape of a
// pipeline remains data.
type GraphDef struct {
	Graph       string    `yaml:"graph"`
	Description string    `yaml:"description,omitempty"`
	Nodes       []NodeDef `yaml:"nodes"`
	Edges       []EdgeDef `yaml:"edges"`
	Start       string    `yaml:"start"`
	Done        string    `yaml:"done"`
}

// NodeDef declares a node in the graph.
type NodeDef struct {
	Name string `yaml:"name"`
}

// EdgeDef declares an edge. Condition names a predicate in the
// Registry; empty means unconditional.
type EdgeDef struct {
	ID        string `yaml:"id"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Loop      bool   `yaml:"loop,omitempty"`
	MaxLoops  int    `yaml:"max_loops,omitempty"`
	Condition string `yaml:"condition,omitempty"`
}

// Registry resolves a GraphDef's names to Go functions.
type Registry[S any] struct {
	Nodes      map[string]Handler[S]
	Conditions map[string]Predicate[S]
}

// LoadDef parses a YAML graph definition.
func LoadDef(data []byte) (*GraphDef, error) {
	var def GraphDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse graph YAML: %w", err)
	}
	return &def, nil
}

// Validate checks referential integrity of the definition: unique node
// names and edge IDs, the start node declared, and every edge endpoint
// resolving to a node or the done pseudo-node.
func (def *GraphDef) Validate() error {
	if def.Graph == "" {
		return fmt.Errorf("graph name is required")
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	if def.Start == "" {
		return fmt.Errorf("start node is required")
	}
	if def.Done == "" {
		return fmt.Errorf("done node is required")
	}

	nodeSet := make(map[string]bool, len(def.Nodes))
	for _, n := range def.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node name is required")
		}
		if nodeSet[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		nodeSet[n.Name] = true
	}
	if !nodeSet[def.Start] {
		return fmt.Errorf("start node %q not found in node list", def.Start)
	}

	edgeIDs := make(map[string]bool, len(def.Edges))
	for _, e := range def.Edges {
		if e.ID == "" {
			return fmt.Errorf("edge id is required")
		}
		if edgeIDs[e.ID] {
			return fmt.Errorf("duplicate edge id %q", e.ID)
		}
		edgeIDs[e.ID] = true

		if !nodeSet[e.From] {
			return fmt.Errorf("edge %s references unknown source node %q", e.ID, e.From)
		}
		if e.To != def.Done && !nodeSet[e.To] {
			return fmt.Errorf("edge %s references unknown target node %q", e.ID, e.To)
		}
	}
	return nil
}

// Bind resolves a validated definition against a registry and returns a
// runnable graph. Every declared node must have a handler; every named
// condition must have a predicate.
func Bind[S any](def *GraphDef, reg Registry[S], opts ...Option[S]) (*Graph[S], error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("graph %s: %w", def.Graph, err)
	}

	handlers := make(map[string]Handler[S], len(def.Nodes))
	for _, n := range def.Nodes {
		h, ok := reg.Nodes[n.Name]
		if !ok {
			return nil, fmt.Errorf("graph %s: no handler registered for node %q", def.Graph, n.Name)
		}
		handlers[n.Name] = h
	}

	edges := make([]Edge[S], 0, len(def.Edges))
	for _, e := range def.Edges {
		var when Predicate[S]
		if e.Condition != "" {
			p, ok := reg.Conditions[e.Condition]
			if !ok {
				return nil, fmt.Errorf("graph %s: edge %s names unknown condition %q", def.Graph, e.ID, e.Condition)
			}
			when = p
		}
		to := e.To
		if to == def.Done {
			to = End
		}
		edges = append(edges, Edge[S]{
			ID:       e.ID,
			From:     e.From,
			To:       to,
			Loop:     e.Loop,
			MaxLoops: e.MaxLoops,
			When:     when,
		})
	}

	return New(def.Graph, def.Start, handlers, edges, opts...)
}
