package gitlab

// Project describes a project as returned by the GitLab projects API.
// Only the fields the scanner needs are decoded.
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
	WebURL            string `json:"web_url"`
	SSHURLToRepo      string `json:"ssh_url_to_repo"`
	Archived          bool   `json:"archived"`
}

// Group returns the namespace part of the project path, or "" for
// projects at the instance root.
func (p Project) Group() string {
	for i := len(p.PathWithNamespace) - 1; i >= 0; i-- {
		if p.PathWithNamespace[i] == '/' {
			return p.PathWithNamespace[:i]
		}
	}
	return ""
}

// Tag is a git tag as returned by the repository tags API. Only the name
// is decoded; the inventory reports which versions exist, not their
// contents.
type Tag struct {
	Name string `json:"name"`
}

// TreeEntry is a single file or directory in a repository tree listing.
type TreeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
}

// IsBlob reports whether the entry is a regular file.
func (e TreeEntry) IsBlob() bool { return e.Type == "blob" }
