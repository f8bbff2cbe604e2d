package ansible

import (
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layout is the file listing of a single project, reduced to what the
// classification rules need. Only blob (file) paths are recorded.
type Layout struct {
	files map[string]bool
}

// NewLayout builds a Layout from a project's blob paths.
func NewLayout(paths []string) *Layout {
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		files[p] = true
	}
	return &Layout{files: files}
}

// Has reports whether the project contains the given file.
func (l *Layout) Has(file string) bool { return l.files[file] }

// Candidate is a potential unit produced by a classification rule.
// Playbook candidates still need their content inspected (see
// [IsPlaybook]) before they become units.
type Candidate struct {
	Kind Kind
	Name string
	Path string // defining file (tasks/main.yml for roles, the .yml for playbooks)
}

// Rule recognizes one project shape. Rules are pure functions over the
// Layout so each heuristic can be tested in isolation.
type Rule struct {
	Name   string
	Detect func(l *Layout, projectName string) []Candidate
}

// Rules is the classification rule table, applied in order. The rules are
// not mutually exclusive: a project may contain several roles and several
// playbooks at once.
var Rules = []Rule{
	{
		// roles/<name>/tasks/main.yml identifies each embedded role.
		Name:   "multi-role",
		Detect: detectMultiRole,
	},
	{
		// tasks/main.yml at the project root: the whole project is one
		// role, named after the project.
		Name:   "single-role",
		Detect: detectSingleRole,
	},
	{
		// Top-level *.yml / *.yaml files are playbook candidates; content
		// inspection decides whether they actually contain plays.
		Name:   "playbook",
		Detect: detectPlaybooks,
	},
}

func detectMultiRole(l *Layout, _ string) []Candidate {
	var out []Candidate
	for f := range l.files {
		rest, ok := strings.CutPrefix(f, "roles/")
		if !ok {
			continue
		}
		name, tail, ok := strings.Cut(rest, "/")
		if !ok || name == "" || tail != "tasks/main.yml" {
			continue
		}
		out = append(out, Candidate{Kind: KindRole, Name: name, Path: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func detectSingleRole(l *Layout, projectName string) []Candidate {
	if !l.Has("tasks/main.yml") {
		return nil
	}
	return []Candidate{{Kind: KindRole, Name: projectName, Path: "tasks/main.yml"}}
}

func detectPlaybooks(l *Layout, _ string) []Candidate {
	var out []Candidate
	for f := range l.files {
		if strings.Contains(f, "/") {
			continue
		}
		ext := path.Ext(f)
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		// requirements.yml at top level is a dependency declaration,
		// not a play entry point.
		if f == "requirements.yml" {
			continue
		}
		out = append(out, Candidate{Kind: KindPlaybook, Name: f, Path: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Classify applies the rule table to a project layout and returns all
// candidates. Playbook candidates must still pass [IsPlaybook].
func Classify(l *Layout, projectName string) []Candidate {
	var out []Candidate
	for _, r := range Rules {
		out = append(out, r.Detect(l, projectName)...)
	}
	return out
}

// play mirrors the keys that distinguish a play from arbitrary YAML.
// Hosts and ImportPlaybook decode as any: Ansible accepts both scalar and
// list forms (hosts: web, hosts: [web, db]) and only the key's presence
// matters here.
type play struct {
	Hosts          any   `yaml:"hosts"`
	ImportPlaybook any   `yaml:"import_playbook"`
	Roles          []any `yaml:"roles"`
}

// IsPlaybook reports whether content parses as a playbook: a sequence of
// mappings where at least one entry carries a hosts, roles, or
// import_playbook key. Malformed YAML returns false with the parse error
// so callers can log and continue (local recovery, not fatal).
func IsPlaybook(content []byte) (bool, error) {
	var plays []play
	if err := yaml.Unmarshal(content, &plays); err != nil {
		return false, err
	}
	for _, p := range plays {
		if p.Hosts != nil || p.ImportPlaybook != nil || len(p.Roles) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// PlaybookDependencies extracts the role references declared by the plays
// in content. Role list entries may be plain names or mappings with a
// role/name key.
func PlaybookDependencies(content []byte) ([]Dependency, error) {
	var plays []play
	if err := yaml.Unmarshal(content, &plays); err != nil {
		return nil, err
	}

	var deps []Dependency
	seen := make(map[string]bool)
	for _, p := range plays {
		for _, r := range p.Roles {
			d, ok := decodeRoleRef(r)
			if !ok || seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			deps = append(deps, d)
		}
	}
	return deps, nil
}

// decodeRoleRef converts one entry of a play's roles list into a
// Dependency. Entries are either scalars ("common") or mappings
// ({role: common, tags: [...]}).
func decodeRoleRef(v any) (Dependency, bool) {
	switch ref := v.(type) {
	case string:
		if ref == "" {
			return Dependency{}, false
		}
		return Dependency{Name: ref}, true
	case map[string]any:
		for _, key := range []string{"role", "name"} {
			if name, ok := ref[key].(string); ok && name != "" {
				return Dependency{Name: name}, true
			}
		}
	}
	return Dependency{}, false
}
