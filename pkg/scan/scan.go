// Package scan drives the discovery pipeline: enumerate projects, classify
// their file trees, extract dependency declarations, and accumulate the
// unit registry.
//
// Projects are fetched and classified concurrently by a bounded worker
// pool. Registration happens after all workers have joined, in enumeration
// order, so collision handling (last-wins) stays deterministic for an
// unchanged population. The registry handed back is complete: callers may
// build the graph from it immediately.
package scan

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/ops-tooling/rolegraph/pkg/ansible"
	rgerrors "github.com/ops-tooling/rolegraph/pkg/errors"
	"github.com/ops-tooling/rolegraph/pkg/gitlab"
)

const defaultWorkers = 8

// Source is the remote project source the scanner reads from.
// *gitlab.Client implements it; tests substitute fakes.
type Source interface {
	ListProjects(ctx context.Context, filters []string) ([]gitlab.Project, error)
	GetTree(ctx context.Context, projectID int, ref string) ([]gitlab.TreeEntry, error)
	FetchRawFile(ctx context.Context, projectID int, path, ref string) ([]byte, error)
	ListTags(ctx context.Context, projectID int) ([]string, error)
}

// Options configures a scan.
type Options struct {
	// Filters restricts the population to projects whose path starts with
	// one of the given prefixes. Empty means all visible projects.
	Filters []string
	// Workers bounds concurrent project fetches (default 8).
	Workers int
	// IncludeArchived scans archived projects too (default: skipped).
	IncludeArchived bool
	// Infof and Warnf receive progress and recoverable-problem messages.
	// Either may be nil.
	Infof func(format string, args ...any)
	Warnf func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Infof == nil {
		opts.Infof = func(string, ...any) {}
	}
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	return opts
}

// Stats summarizes a completed scan.
type Stats struct {
	Projects  int // projects inspected
	Skipped   int // archived projects skipped
	Roles     int
	Playbooks int
}

// Run executes the full discovery pass and returns the frozen registry.
//
// Enumeration or transport failures are fatal: a partial inventory cannot
// distinguish "unknown" from "not fetched yet", so no registry is returned
// on error. Malformed file content inside a project is recovered locally
// (warned and skipped) and never fails the run.
func Run(ctx context.Context, src Source, opts Options) (*ansible.Registry, Stats, error) {
	opts = opts.withDefaults()
	var stats Stats

	projects, err := src.ListProjects(ctx, opts.Filters)
	if err != nil {
		return nil, stats, fmt.Errorf("enumerate projects: %w", err)
	}

	var active []gitlab.Project
	for _, p := range projects {
		if p.Archived && !opts.IncludeArchived {
			opts.Infof("skip %s: archived", p.PathWithNamespace)
			stats.Skipped++
			continue
		}
		active = append(active, p)
	}
	stats.Projects = len(active)

	units, err := scanAll(ctx, src, active, opts)
	if err != nil {
		return nil, stats, err
	}

	// Registration happens here, after the join barrier, in enumeration
	// order: the graph builder must never observe a partial registry.
	reg := ansible.NewRegistry(opts.Warnf)
	for _, u := range units {
		switch u.Kind {
		case ansible.KindRole:
			stats.Roles++
		case ansible.KindPlaybook:
			stats.Playbooks++
		}
		reg.Register(u)
	}
	return reg, stats, nil
}

// scanAll classifies projects concurrently, preserving enumeration order
// in the returned unit list.
func scanAll(ctx context.Context, src Source, projects []gitlab.Project, opts Options) ([]*ansible.Unit, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]*ansible.Unit, len(projects))
	sem := make(chan struct{}, opts.Workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, p := range projects {
		wg.Add(1)
		go func(idx int, project gitlab.Project) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			units, err := scanProject(ctx, src, project, opts)
			if err != nil {
				mu.Lock()
				if firstErr == nil && !errors.Is(err, context.Canceled) {
					firstErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			results[idx] = units
		}(i, p)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var units []*ansible.Unit
	for _, r := range results {
		units = append(units, r...)
	}
	return units, nil
}

// scanProject classifies one project and extracts its units.
// Returns a fatal error only for transport/auth failures; projects with no
// recognizable content (or no repository at all) yield zero units.
func scanProject(ctx context.Context, src Source, project gitlab.Project, opts Options) ([]*ansible.Unit, error) {
	tree, err := src.GetTree(ctx, project.ID, project.DefaultBranch)
	if err != nil {
		if rgerrors.Is(err, rgerrors.ErrCodeFileNotFound) {
			// Empty repository.
			opts.Infof("skip %s: no repository tree", project.PathWithNamespace)
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", project.PathWithNamespace, err)
	}

	var blobs []string
	for _, e := range tree {
		if e.IsBlob() {
			blobs = append(blobs, e.Path)
		}
	}
	layout := ansible.NewLayout(blobs)

	origin := ansible.Origin{
		ProjectID:   project.ID,
		ProjectPath: project.PathWithNamespace,
		Group:       project.Group(),
		WebURL:      project.WebURL,
		SSHURL:      project.SSHURLToRepo,
	}

	var units []*ansible.Unit
	for _, c := range ansible.Classify(layout, project.Name) {
		var u *ansible.Unit
		var err error
		switch c.Kind {
		case ansible.KindRole:
			u, err = buildRole(ctx, src, project, layout, c, opts)
		case ansible.KindPlaybook:
			u, err = buildPlaybook(ctx, src, project, layout, c, opts)
		}
		if err != nil {
			return nil, err
		}
		if u != nil {
			u.Origin = origin
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return nil, nil
	}

	// Tags are per project, fetched once and shared by its units.
	tags, err := src.ListTags(ctx, project.ID)
	if err != nil {
		if !rgerrors.Is(err, rgerrors.ErrCodeFileNotFound) {
			return nil, fmt.Errorf("tags for %s: %w", project.PathWithNamespace, err)
		}
		tags = nil
	}
	for _, u := range units {
		u.GitTags = tags
	}
	return units, nil
}

// buildRole turns a role candidate into a unit, reading its meta file for
// dependencies and galaxy metadata when present. A malformed meta file is
// recovered locally: the role is kept with zero dependencies.
func buildRole(ctx context.Context, src Source, project gitlab.Project, layout *ansible.Layout, c ansible.Candidate, opts Options) (*ansible.Unit, error) {
	u := &ansible.Unit{Kind: ansible.KindRole, Name: c.Name, Path: c.Path}

	metaPath := roleMetaPath(c.Path)
	if layout.Has(metaPath) {
		content, err := fetchContent(ctx, src, project, metaPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			meta, perr := ansible.ParseMeta(content)
			if perr != nil {
				opts.Warnf("%s: %s: %v", project.PathWithNamespace, metaPath, perr)
			} else {
				u.Dependencies = meta.Dependencies
				u.Galaxy = meta.Galaxy
			}
		}
	}

	// Single-role projects may carry cross-repository requirements at the
	// project root.
	if c.Path == "tasks/main.yml" && layout.Has(ansible.RequirementsFile) {
		deps, err := fetchRequirements(ctx, src, project, ansible.RequirementsFile, opts)
		if err != nil {
			return nil, err
		}
		u.Dependencies = mergeDeps(u.Dependencies, deps)
	}

	return u, nil
}

// buildPlaybook inspects a playbook candidate's content. Files that don't
// parse as plays (variable files, malformed YAML) yield no unit.
func buildPlaybook(ctx context.Context, src Source, project gitlab.Project, layout *ansible.Layout, c ansible.Candidate, opts Options) (*ansible.Unit, error) {
	content, err := fetchContent(ctx, src, project, c.Path)
	if err != nil || content == nil {
		return nil, err
	}

	ok, perr := ansible.IsPlaybook(content)
	if perr != nil {
		opts.Warnf("%s: %s: %v", project.PathWithNamespace, c.Path, perr)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	deps, _ := ansible.PlaybookDependencies(content)
	for _, reqPath := range []string{ansible.RoleRequirementsFile, ansible.RequirementsFile} {
		if !layout.Has(reqPath) {
			continue
		}
		more, err := fetchRequirements(ctx, src, project, reqPath, opts)
		if err != nil {
			return nil, err
		}
		deps = mergeDeps(deps, more)
	}

	return &ansible.Unit{
		Kind:         ansible.KindPlaybook,
		Name:         c.Name,
		Path:         c.Path,
		Dependencies: deps,
	}, nil
}

// fetchRequirements reads and parses a requirements file, recovering
// locally from malformed content.
func fetchRequirements(ctx context.Context, src Source, project gitlab.Project, reqPath string, opts Options) ([]ansible.Dependency, error) {
	content, err := fetchContent(ctx, src, project, reqPath)
	if err != nil || content == nil {
		return nil, err
	}
	deps, perr := ansible.ParseRequirements(content)
	if perr != nil {
		opts.Warnf("%s: %s: %v", project.PathWithNamespace, reqPath, perr)
		return nil, nil
	}
	return deps, nil
}

// fetchContent retrieves a file, mapping "not found" to nil content
// (races between tree listing and fetch are possible on busy instances).
func fetchContent(ctx context.Context, src Source, project gitlab.Project, filePath string) ([]byte, error) {
	content, err := src.FetchRawFile(ctx, project.ID, filePath, project.DefaultBranch)
	if err != nil {
		if rgerrors.Is(err, rgerrors.ErrCodeFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch %s from %s: %w", filePath, project.PathWithNamespace, err)
	}
	return content, nil
}

// roleMetaPath maps a role's tasks/main.yml path to its meta/main.yml.
func roleMetaPath(tasksPath string) string {
	roleDir := path.Dir(path.Dir(tasksPath)) // strip tasks/main.yml
	if roleDir == "." {
		return ansible.MetaFile
	}
	return strings.TrimSuffix(roleDir, "/") + "/" + ansible.MetaFile
}

// mergeDeps appends extras to deps, dropping duplicates by name.
func mergeDeps(deps, extras []ansible.Dependency) []ansible.Dependency {
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		seen[d.Name] = true
	}
	for _, d := range extras {
		if !seen[d.Name] {
			seen[d.Name] = true
			deps = append(deps, d)
		}
	}
	return deps
}
