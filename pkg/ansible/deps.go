package ansible

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known file locations consulted by the dependency extractor.
const (
	MetaFile             = "meta/main.yml"
	RequirementsFile     = "requirements.yml"
	RoleRequirementsFile = "roles/requirements.yml"
)

// Meta is the parsed content of a role's meta/main.yml.
type Meta struct {
	Galaxy       GalaxyInfo
	Dependencies []Dependency
}

// rawMeta mirrors the YAML structure of meta/main.yml. Dependencies and
// platform entries come in several shapes, so they decode into any first.
type rawMeta struct {
	GalaxyInfo struct {
		Description string `yaml:"description"`
		GalaxyTags  []string `yaml:"galaxy_tags"`
		Platforms   []struct {
			Name string `yaml:"name"`
		} `yaml:"platforms"`
	} `yaml:"galaxy_info"`
	Dependencies []any `yaml:"dependencies"`
}

// ParseMeta parses a role's meta/main.yml. A missing dependencies list is
// not an error: it yields an empty slice. Returns an error for YAML that
// does not parse or does not form a mapping (e.g. a symlink checked in as
// a plain string).
func ParseMeta(content []byte) (*Meta, error) {
	var raw rawMeta
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}

	m := &Meta{
		Galaxy: GalaxyInfo{
			Description: raw.GalaxyInfo.Description,
			Tags:        raw.GalaxyInfo.GalaxyTags,
		},
	}
	for _, p := range raw.GalaxyInfo.Platforms {
		if p.Name != "" {
			m.Galaxy.Platforms = append(m.Galaxy.Platforms, p.Name)
		}
	}
	for _, entry := range raw.Dependencies {
		if d, ok := decodeDependency(entry); ok {
			m.Dependencies = append(m.Dependencies, d)
		}
	}
	return m, nil
}

// rawRequirements covers both requirements.yml forms: a bare list of
// entries, or a mapping with a roles key (collections are ignored).
type rawRequirements struct {
	Roles []any `yaml:"roles"`
}

// ParseRequirements parses a requirements.yml in either of its two forms.
// Entries may be plain role names or mappings with name/role/src/version
// keys. Include directives are not followed and are skipped.
func ParseRequirements(content []byte) ([]Dependency, error) {
	var entries []any
	if err := yaml.Unmarshal(content, &entries); err != nil {
		// Not a bare list; try the roles-keyed mapping form.
		var keyed rawRequirements
		if err2 := yaml.Unmarshal(content, &keyed); err2 != nil {
			return nil, fmt.Errorf("parse requirements: %w", err)
		}
		entries = keyed.Roles
	}

	var deps []Dependency
	for _, entry := range entries {
		if d, ok := decodeDependency(entry); ok {
			deps = append(deps, d)
		}
	}
	return deps, nil
}

// decodeDependency converts one dependency entry into a Dependency.
// Accepted shapes:
//
//	- common
//	- role: common
//	- { name: fw, src: "git@gitlab.example.com:infra/fw.git", version: v2 }
//	- src: https://galaxy.ansible.com/...
//
// Entries with an include key are skipped (includes are not followed).
func decodeDependency(v any) (Dependency, bool) {
	switch entry := v.(type) {
	case string:
		if entry == "" {
			return Dependency{}, false
		}
		return Dependency{Name: entry}, true
	case map[string]any:
		if _, isInclude := entry["include"]; isInclude {
			return Dependency{}, false
		}
		var d Dependency
		for _, key := range []string{"role", "name"} {
			if name, ok := entry[key].(string); ok && name != "" {
				d.Name = name
				break
			}
		}
		if src, ok := entry["src"].(string); ok {
			d.Src = src
			if d.Name == "" {
				d.Name = nameFromSrc(src)
			}
		}
		switch ver := entry["version"].(type) {
		case string:
			d.Version = ver
		case int, float64:
			d.Version = fmt.Sprintf("%v", ver)
		}
		return d, d.Name != ""
	}
	return Dependency{}, false
}

// nameFromSrc derives a role name from a source URL when the entry has no
// explicit name: the last path segment with any .git suffix removed.
func nameFromSrc(src string) string {
	s := strings.TrimSuffix(src, ".git")
	if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s[i:], "/") {
		// scp-like git URL with no path part after the colon
		s = s[i+1:]
	}
	return path.Base(strings.ReplaceAll(s, ":", "/"))
}

// SameInstance reports whether the dependency's source (if any) points at
// the given GitLab host, meaning it should resolve within the scanned
// population. Dependencies without a src are always same-instance.
func (d Dependency) SameInstance(host string) bool {
	if d.Src == "" {
		return true
	}
	if host == "" {
		return false
	}
	return strings.Contains(d.Src, host)
}
