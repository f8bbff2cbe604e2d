package graph

import (
	"github.com/ops-tooling/rolegraph/pkg/ansible"
)

// BuildOptions configures graph construction.
type BuildOptions struct {
	// InstanceHost is the GitLab host (e.g. "gitlab.example.com") used to
	// decide whether an unresolved dependency with a src is external to
	// the instance rather than merely unknown.
	InstanceHost string
	// Meta is attached to the graph (run ID, scan parameters).
	Meta Metadata
}

// Build converts a frozen registry into the dependency graph.
//
// Every registered unit becomes one node. Every dependency reference
// becomes one edge: to the registered unit of that name when it exists,
// otherwise to a placeholder node created once per distinct missing name.
// The registry must be complete before Build runs; the scanner enforces
// the barrier.
func Build(reg *ansible.Registry, opts BuildOptions) *Graph {
	g := New(opts.Meta)

	units := reg.Units()
	for _, u := range units {
		_ = g.AddNode(Node{
			ID:          u.Name,
			Kind:        u.Kind,
			Project:     u.Origin.ProjectPath,
			Group:       u.Origin.Group,
			WebURL:      u.Origin.WebURL,
			SSHURL:      u.Origin.SSHURL,
			Description: u.Galaxy.Description,
			Platforms:   u.Galaxy.Platforms,
			Tags:        u.Galaxy.Tags,
			GitTags:     u.GitTags,
		})
	}

	for _, u := range units {
		for _, dep := range u.Dependencies {
			target := dep.Name
			if _, resolved := reg.Lookup(target); !resolved {
				kind := ansible.KindUnknown
				if !dep.SameInstance(opts.InstanceHost) {
					kind = ansible.KindExternal
				}
				// Created once per distinct missing name; AddNode is a
				// no-op (duplicate error ignored) on later references.
				_ = g.AddNode(Node{ID: target, Kind: kind})
			}
			_ = g.AddEdge(Edge{From: u.Name, To: target})
		}
	}

	return g
}
