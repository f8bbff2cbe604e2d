// Package graph holds the directed dependency graph built from the unit
// registry, plus its JSON serialization.
//
// Unlike a build DAG, this graph is allowed to contain cycles: a role may
// (legitimately or erroneously) depend on a unit that depends back on it.
// The graph records edges exactly as declared and never rejects cycles.
package graph

import (
	"errors"
	"slices"

	"github.com/ops-tooling/rolegraph/pkg/ansible"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with
	// the same ID already exists. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist. This indicates corruption.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")
)

// Metadata stores graph-level key-value pairs (run ID, instance URL,
// applied filters). Never nil after New.
type Metadata map[string]any

// Node is a vertex in the dependency graph: a discovered unit, or a
// placeholder for a dependency name that never resolved.
type Node struct {
	ID          string       `json:"id"`
	Kind        ansible.Kind `json:"kind"`
	Project     string       `json:"project,omitempty"` // owning project path; empty for placeholders
	Group       string       `json:"group,omitempty"`
	WebURL      string       `json:"web_url,omitempty"`
	SSHURL      string       `json:"ssh_url,omitempty"`
	Description string       `json:"description,omitempty"`
	Platforms   []string     `json:"platforms,omitempty"`
	Tags        []string     `json:"tags,omitempty"`     // galaxy_tags from the role meta
	GitTags     []string     `json:"git_tags,omitempty"` // git tags of the owning repository
}

// IsPlaceholder reports whether the node stands in for a dependency that
// was never discovered (unknown or external).
func (n Node) IsPlaceholder() bool {
	return n.Kind == ansible.KindUnknown || n.Kind == ansible.KindExternal
}

// Edge is a directed connection from a dependent unit to the node
// satisfying one of its dependency references.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the full node and edge set. It is built once, after all
// projects are scanned, and is immutable by convention afterwards.
//
// Graph is not safe for concurrent mutation without external
// synchronization; the builder constructs it single-threaded after the
// scan barrier.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
	meta     Metadata
}

// New creates an empty graph with optional metadata (nil allowed).
func New(meta Metadata) *Graph {
	if meta == nil {
		meta = Metadata{}
	}
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map. Never nil.
func (g *Graph) Meta() Metadata { return g.meta }

// AddNode adds a node. Returns ErrInvalidNodeID for an empty ID or
// ErrDuplicateNodeID if the ID is already present.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	node := &n
	g.nodes[node.ID] = node
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Duplicate edges between the same pair are collapsed.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(g.outgoing[e.From], e.To) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
	return nil
}

// Node returns the node with the given ID, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by ID for deterministic iteration.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Children returns the IDs of the nodes this node depends on.
// The returned slice is a read-only view.
func (g *Graph) Children(id string) []string { return g.outgoing[id] }

// Parents returns the IDs of the nodes depending on this node.
// The returned slice is a read-only view.
func (g *Graph) Parents(id string) []string { return g.incoming[id] }

// Validate checks that every edge connects existing nodes.
// Cycles are legal and deliberately not checked.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return ErrInvalidEdgeEndpoint
		}
		if _, ok := g.nodes[e.To]; !ok {
			return ErrInvalidEdgeEndpoint
		}
	}
	return nil
}

// Resolved returns the view of the graph restricted to discovered units:
// placeholder nodes are dropped, along with every edge touching one.
func (g *Graph) Resolved() *Graph {
	out := New(g.meta)
	for _, n := range g.Nodes() {
		if n.IsPlaceholder() {
			continue
		}
		_ = out.AddNode(*n)
	}
	for _, e := range g.edges {
		// AddEdge rejects edges whose endpoint was dropped.
		_ = out.AddEdge(e)
	}
	return out
}
