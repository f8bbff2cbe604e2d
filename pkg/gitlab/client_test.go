package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ops-tooling/rolegraph/pkg/cache"
	rgerrors "github.com/ops-tooling/rolegraph/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, Token: "test-token"})
	return c, srv
}

func TestListProjectsPagination(t *testing.T) {
	// 150 projects across two pages.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("PRIVATE-TOKEN"); got != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var projects []Project
		start := (page - 1) * perPage
		for i := start; i < start+perPage && i < 150; i++ {
			projects = append(projects, Project{
				ID:                i + 1,
				Name:              fmt.Sprintf("proj-%d", i+1),
				PathWithNamespace: fmt.Sprintf("infra/proj-%d", i+1),
				DefaultBranch:     "main",
			})
		}
		json.NewEncoder(w).Encode(projects)
	})

	c, _ := newTestClient(t, mux)
	projects, err := c.ListProjects(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 150 {
		t.Errorf("projects = %d, want 150", len(projects))
	}
	if projects[0].PathWithNamespace != "infra/proj-1" {
		t.Errorf("first project = %q", projects[0].PathWithNamespace)
	}
}

func TestListProjectsFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			json.NewEncoder(w).Encode([]Project{})
			return
		}
		json.NewEncoder(w).Encode([]Project{
			{ID: 1, PathWithNamespace: "infra/common"},
			{ID: 2, PathWithNamespace: "apps/web"},
			{ID: 3, PathWithNamespace: "infra/base"},
		})
	})

	c, _ := newTestClient(t, mux)

	tests := []struct {
		name    string
		filters []string
		want    int
	}{
		{"NoFilter", nil, 3},
		{"Prefix", []string{"infra/"}, 2},
		{"LeadingSlashStripped", []string{"/infra/"}, 2},
		{"MultipleFilters", []string{"apps/", "infra/base"}, 2},
		{"NoMatch", []string{"ops/"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ListProjects(context.Background(), tt.filters)
			if err != nil {
				t.Fatalf("ListProjects: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("projects = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestListProjectsAuthFailure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.ListProjects(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !rgerrors.Is(err, rgerrors.ErrCodeUnauthorized) {
		t.Errorf("error code = %s, want UNAUTHORIZED", rgerrors.GetCode(err))
	}
}

func TestGetTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/7/repository/tree", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("recursive") != "true" {
			t.Error("expected recursive=true")
		}
		if r.URL.Query().Get("ref") != "main" {
			t.Errorf("ref = %q, want main", r.URL.Query().Get("ref"))
		}
		if r.URL.Query().Get("page") != "1" {
			json.NewEncoder(w).Encode([]TreeEntry{})
			return
		}
		json.NewEncoder(w).Encode([]TreeEntry{
			{Path: "roles", Type: "tree", Name: "roles"},
			{Path: "roles/nginx/tasks/main.yml", Type: "blob", Name: "main.yml"},
		})
	})

	c, _ := newTestClient(t, mux)
	entries, err := c.GetTree(context.Background(), 7, "main")
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].IsBlob() {
		t.Error("roles should not be a blob")
	}
	if !entries[1].IsBlob() {
		t.Error("main.yml should be a blob")
	}
}

func TestListTags(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/7/repository/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			json.NewEncoder(w).Encode([]Tag{})
			return
		}
		json.NewEncoder(w).Encode([]Tag{
			{Name: "v1.1.0"},
			{Name: "v1.0.0"},
		})
	})

	c, _ := newTestClient(t, mux)
	tags, err := c.ListTags(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "v1.1.0" || tags[1] != "v1.0.0" {
		t.Errorf("tags = %v", tags)
	}
}

func TestListTagsEmptyRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/8/repository/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Tag{})
	})

	c, _ := newTestClient(t, mux)
	tags, err := c.ListTags(context.Background(), 8)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("tags = %v, want none", tags)
	}
}

func TestFetchRawFile(t *testing.T) {
	const content = "---\ndependencies: []\n"
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/7/repository/files/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, content)
	})

	c, _ := newTestClient(t, mux)
	data, err := c.FetchRawFile(context.Background(), 7, "roles/nginx/meta/main.yml", "main")
	if err != nil {
		t.Fatalf("FetchRawFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestFetchRawFileNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.FetchRawFile(context.Background(), 7, "meta/main.yml", "")
	if !rgerrors.Is(err, rgerrors.ErrCodeFileNotFound) {
		t.Errorf("error code = %s, want FILE_NOT_FOUND", rgerrors.GetCode(err))
	}
}

func TestGetCachedUsesCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	c := NewClient(Options{BaseURL: srv.URL, Cache: fc, CacheTTL: time.Hour})

	for range 3 {
		if _, err := c.FetchRawFile(context.Background(), 1, "site.yml", ""); err != nil {
			t.Fatalf("FetchRawFile: %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached)", hits)
	}
}

func TestProjectGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"infra/common", "infra"},
		{"a/b/c", "a/b"},
		{"standalone", ""},
	}
	for _, tt := range tests {
		if got := (Project{PathWithNamespace: tt.path}).Group(); got != tt.want {
			t.Errorf("Group(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
