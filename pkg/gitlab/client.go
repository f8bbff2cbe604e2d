// Package gitlab implements the GitLab REST v4 client used to enumerate
// projects and fetch repository content.
//
// The client paginates transparently: callers see flat slices regardless of
// how many pages the API returned. Responses are cached through a
// [cache.Cache] backend so repeated scans of a large instance don't hammer
// the API. All methods are safe for concurrent use.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ops-tooling/rolegraph/pkg/cache"
	rgerrors "github.com/ops-tooling/rolegraph/pkg/errors"
	"github.com/ops-tooling/rolegraph/pkg/httputil"
)

const perPage = 100

// Options configures a Client.
type Options struct {
	// BaseURL is the GitLab instance URL, e.g. "https://gitlab.example.com".
	BaseURL string
	// Token is a personal access token sent as PRIVATE-TOKEN.
	// Empty means unauthenticated (public projects only).
	Token string
	// Cache receives raw response bodies keyed by request URL.
	// Nil disables caching.
	Cache cache.Cache
	// CacheTTL is how long responses stay cached (default 24h).
	CacheTTL time.Duration
	// Refresh bypasses the cache for all requests.
	Refresh bool
}

// Client talks to a single GitLab instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	refresh bool
}

// NewClient creates a Client for the given instance.
func NewClient(opts Options) *Client {
	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   c,
		ttl:     ttl,
		refresh: opts.Refresh,
	}
}

// BaseURL returns the configured instance URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ListProjects retrieves every project visible to the token, traversing all
// result pages. If filters is non-empty, only projects whose
// path_with_namespace starts with one of the filters are returned.
//
// A transport or authentication failure is returned as-is: a partial
// project population would make dependency resolution unsound, so callers
// treat any error here as fatal.
func (c *Client) ListProjects(ctx context.Context, filters []string) ([]Project, error) {
	var all []Project
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/api/v4/projects?per_page=%d&page=%d&order_by=id&sort=asc", c.baseURL, perPage, page)

		var projects []Project
		if err := c.getJSON(ctx, u, &projects); err != nil {
			return nil, fmt.Errorf("list projects page %d: %w", page, err)
		}
		if len(projects) == 0 {
			break
		}
		all = append(all, projects...)
		if len(projects) < perPage {
			break
		}
	}

	if len(filters) == 0 {
		return all, nil
	}

	var filtered []Project
	for _, p := range all {
		if matchesFilter(p.PathWithNamespace, filters) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// matchesFilter reports whether path starts with any of the filters.
// Leading slashes on filters are ignored.
func matchesFilter(path string, filters []string) bool {
	for _, f := range filters {
		if strings.HasPrefix(path, strings.TrimPrefix(f, "/")) {
			return true
		}
	}
	return false
}

// GetTree retrieves the recursive file tree of a project at the given ref,
// traversing all result pages. An empty ref uses the server default.
func (c *Client) GetTree(ctx context.Context, projectID int, ref string) ([]TreeEntry, error) {
	var all []TreeEntry
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/api/v4/projects/%d/repository/tree?recursive=true&per_page=%d&page=%d",
			c.baseURL, projectID, perPage, page)
		if ref != "" {
			u += "&ref=" + url.QueryEscape(ref)
		}

		var entries []TreeEntry
		if err := c.getJSON(ctx, u, &entries); err != nil {
			return nil, fmt.Errorf("tree for project %d: %w", projectID, err)
		}
		if len(entries) == 0 {
			break
		}
		all = append(all, entries...)
		if len(entries) < perPage {
			break
		}
	}
	return all, nil
}

// ListTags retrieves the names of all git tags of a project, traversing
// all result pages. Projects without a repository yield an empty list.
func (c *Client) ListTags(ctx context.Context, projectID int) ([]string, error) {
	var all []string
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/api/v4/projects/%d/repository/tags?per_page=%d&page=%d",
			c.baseURL, projectID, perPage, page)

		var tags []Tag
		if err := c.getJSON(ctx, u, &tags); err != nil {
			return nil, fmt.Errorf("tags for project %d: %w", projectID, err)
		}
		if len(tags) == 0 {
			break
		}
		for _, t := range tags {
			all = append(all, t.Name)
		}
		if len(tags) < perPage {
			break
		}
	}
	return all, nil
}

// FetchRawFile retrieves the raw content of a file at the given ref.
// Returns an error with code FILE_NOT_FOUND if the path does not exist.
func (c *Client) FetchRawFile(ctx context.Context, projectID int, path, ref string) ([]byte, error) {
	u := fmt.Sprintf("%s/api/v4/projects/%d/repository/files/%s/raw",
		c.baseURL, projectID, url.PathEscape(path))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	data, err := c.getCached(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("file %s in project %d: %w", path, projectID, err)
	}
	return data, nil
}

// getJSON fetches u (through the cache) and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	data, err := c.getCached(ctx, u)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// getCached returns the response body for u, consulting the cache first
// and retrying transient failures with backoff.
func (c *Client) getCached(ctx context.Context, u string) ([]byte, error) {
	key := "gitlab:" + u
	if !c.refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			return data, nil
		}
	}

	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = c.doRequest(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(ctx, key, data, c.ttl)
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, httputil.Retryable(rgerrors.Wrap(rgerrors.ErrCodeNetwork, err, "GET %s", u))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized:
		return rgerrors.New(rgerrors.ErrCodeUnauthorized, "authentication failed (check token)")
	case code == http.StatusForbidden:
		return rgerrors.New(rgerrors.ErrCodeForbidden, "access denied")
	case code == http.StatusNotFound:
		return rgerrors.New(rgerrors.ErrCodeFileNotFound, "not found")
	case code == http.StatusTooManyRequests:
		return httputil.Retryable(rgerrors.New(rgerrors.ErrCodeRateLimited, "rate limited"))
	case code >= 500:
		return httputil.Retryable(rgerrors.New(rgerrors.ErrCodeNetwork, "server error: status %d", code))
	default:
		return rgerrors.New(rgerrors.ErrCodeNetwork, "unexpected status %d", code)
	}
}
