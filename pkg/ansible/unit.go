// Package ansible models the Ansible content discovered in scanned
// projects: reusable roles, top-level playbooks, and the dependency
// declarations between them.
//
// Raw YAML from project files is converted into typed values
// ([Unit], [Dependency], [GalaxyInfo]) at the parsing boundary, so the rest
// of the pipeline never touches untyped mappings. Malformed input is
// confined to that boundary: parsers return errors, they never panic.
package ansible

// Kind identifies what a unit (or graph placeholder) represents.
type Kind string

const (
	// KindRole is a reusable role with the standard directory layout.
	KindRole Kind = "role"
	// KindPlaybook is a top-level play entry point.
	KindPlaybook Kind = "playbook"
	// KindExternal marks a dependency sourced outside the scanned
	// instance (e.g. Ansible Galaxy). Only used for graph placeholders.
	KindExternal Kind = "external"
	// KindUnknown marks a dependency name that never resolved to a
	// discovered unit. Only used for graph placeholders.
	KindUnknown Kind = "unknown"
)

// Origin identifies the project a unit was discovered in.
type Origin struct {
	ProjectID   int    `json:"project_id"`
	ProjectPath string `json:"project_path"` // namespace-qualified, e.g. "infra/common"
	Group       string `json:"group,omitempty"`
	WebURL      string `json:"web_url,omitempty"`
	SSHURL      string `json:"ssh_url,omitempty"` // clone URL shown in reports
}

// Dependency is a single declared reference to another role.
// Resolution is by Name only; Src and Version are carried for reporting
// but never evaluated.
type Dependency struct {
	Name    string `json:"name"`
	Src     string `json:"src,omitempty"`
	Version string `json:"version,omitempty"`
}

// GalaxyInfo holds the descriptive metadata a role declares under
// galaxy_info in its meta file. All fields are optional.
type GalaxyInfo struct {
	Description string   `json:"description,omitempty"`
	Platforms   []string `json:"platforms,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Unit is a discovered role or playbook. Units are value-like: they are
// written once into the registry and never mutated afterwards.
type Unit struct {
	Kind         Kind         `json:"kind"`
	Name         string       `json:"name"`
	Path         string       `json:"path"` // in-project path of the defining file or directory
	Origin       Origin       `json:"origin"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Galaxy       GalaxyInfo   `json:"galaxy,omitempty"`
	GitTags      []string     `json:"git_tags,omitempty"` // tags of the owning repository
}
