// Package report turns a dependency graph into its output artifacts: a
// Graphviz DOT file, rendered SVG/PNG images, and browsable HTML tables.
package report

import (
	"bytes"
	"fmt"

	"github.com/ops-tooling/rolegraph/pkg/ansible"
	"github.com/ops-tooling/rolegraph/pkg/graph"
)

// fillColors maps node kinds to their fill color in rendered graphs.
// Red and yellow flag the two placeholder kinds so gaps in the inventory
// stand out at a glance.
var fillColors = map[ansible.Kind]string{
	ansible.KindRole:     "lightblue",
	ansible.KindPlaybook: "limegreen",
	ansible.KindUnknown:  "red",
	ansible.KindExternal: "yellow",
}

// DOTOptions configures DOT serialization.
type DOTOptions struct {
	// Title is the graph label rendered below the drawing. Empty omits it.
	Title string
	// IncludeUnknown keeps placeholder nodes in the output. When false the
	// resolved view is rendered instead.
	IncludeUnknown bool
}

// ToDOT serializes a graph to Graphviz DOT. Nodes are emitted sorted by
// ID and edges in insertion order, so output is deterministic for a given
// graph. Node URLs link back to the owning GitLab project when known.
func ToDOT(g *graph.Graph, opts DOTOptions) string {
	if !opts.IncludeUnknown {
		g = g.Resolved()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph rolegraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12];\n")
	buf.WriteString("  ranksep=1.0;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=b;\n", opts.Title)
	}
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [fillcolor=%s", n.ID, fillColor(n.Kind))
		if n.WebURL != "" {
			fmt.Fprintf(&buf, ", URL=%q", n.WebURL)
		}
		if n.Description != "" {
			fmt.Fprintf(&buf, ", tooltip=%q", n.Description)
		}
		buf.WriteString("];\n")
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fillColor(k ansible.Kind) string {
	if c, ok := fillColors[k]; ok {
		return c
	}
	return "white"
}
