package cli

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ops-tooling/rolegraph/pkg/errors"
	"github.com/ops-tooling/rolegraph/pkg/gitlab"
	"github.com/ops-tooling/rolegraph/pkg/graph"
	"github.com/ops-tooling/rolegraph/pkg/report"
	"github.com/ops-tooling/rolegraph/pkg/scan"
)

// scanOptions collects the scan command's flag values.
type scanOptions struct {
	url             string
	token           string
	filters         []string
	output          string
	title           string
	image           string
	workers         int
	includeArchived bool
	cacheBackend    string
	refresh         bool
	graphOnly       bool
	showUnknown     bool
}

// newScanCmd creates the scan command: the full pipeline from project
// enumeration to written artifacts.
func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a GitLab instance and generate the dependency reports",
		Long: `Scan enumerates all visible projects on a GitLab instance, recognizes
Ansible roles and playbooks, extracts their dependency declarations, and
writes the dependency graph plus its report artifacts.

Outputs (relative to --output, default "roles"):

  roles.json               the graph, reloadable with 'rolegraph report'
  roles.gv                 Graphviz DOT, including unresolved dependencies
  roles.html               inventory table, discovered units only
  roles_incl_unknown.html  inventory table including unresolved dependencies
  roles.svg                rendered graph image (see --image)

API responses are cached (see --cache-backend); use --refresh to bypass
the cache for this run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "GitLab instance URL (or ROLEGRAPH_URL / config file)")
	cmd.Flags().StringVar(&opts.token, "token", "", "GitLab API token (or ROLEGRAPH_TOKEN / config file)")
	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil, "restrict to projects under a path prefix (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "roles", "output path prefix for all artifacts")
	cmd.Flags().StringVar(&opts.title, "title", "Ansible role inventory", "title for graph and HTML reports")
	cmd.Flags().StringVar(&opts.image, "image", "svg", "graph image format: svg, png or none")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent project fetches (default 8)")
	cmd.Flags().BoolVar(&opts.includeArchived, "include-archived", false, "scan archived projects too")
	cmd.Flags().StringVar(&opts.cacheBackend, "cache-backend", "", "cache backend: file, redis or none (default from config)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the response cache")
	cmd.Flags().BoolVar(&opts.graphOnly, "graph-only", false, "write only the graph JSON, skip report artifacts")
	cmd.Flags().BoolVar(&opts.showUnknown, "show-unknown", false, "include unresolved dependencies in the primary HTML page")

	return cmd
}

func runScan(ctx context.Context, opts scanOptions) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.url != "" {
		cfg.GitLab.URL = opts.url
	}
	if opts.token != "" {
		cfg.GitLab.Token = opts.token
	}
	if cfg.GitLab.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no GitLab URL configured (use --url, %s or the config file)", envURL)
	}
	if cfg.GitLab.Token == "" {
		printWarning("No API token configured; only public projects will be visible")
	}

	ttl, err := cfg.cacheTTL()
	if err != nil {
		return err
	}
	httpCache, err := cfg.openCache(ctx, opts.cacheBackend)
	if err != nil {
		return err
	}
	defer httpCache.Close()

	client := gitlab.NewClient(gitlab.Options{
		BaseURL:  cfg.GitLab.URL,
		Token:    cfg.GitLab.Token,
		Cache:    httpCache,
		CacheTTL: ttl,
		Refresh:  opts.refresh,
	})

	prog := newProgress(logger)
	spin := newSpinner(ctx, fmt.Sprintf("Scanning %s...", cfg.GitLab.URL))
	spin.Start()

	reg, stats, err := scan.Run(ctx, client, scan.Options{
		Filters:         opts.filters,
		Workers:         opts.workers,
		IncludeArchived: opts.includeArchived,
		Infof:           logger.Debugf,
		Warnf:           logger.Warnf,
	})
	if err != nil {
		spin.StopWithError("Scan failed")
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Scanned %d projects: %d roles, %d playbooks",
		stats.Projects, stats.Roles, stats.Playbooks))

	g := graph.Build(reg, graph.BuildOptions{
		InstanceHost: instanceHost(cfg.GitLab.URL),
		Meta: graph.Metadata{
			"run_id":       uuid.NewString(),
			"instance":     cfg.GitLab.URL,
			"filters":      opts.filters,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})

	graphPath := opts.output + ".json"
	if err := graph.WriteFile(g, graphPath); err != nil {
		return err
	}

	printSuccess("Graph written")
	printStats(g.NodeCount(), g.EdgeCount(), countPlaceholders(g))
	printFile(graphPath)

	if opts.graphOnly {
		return nil
	}
	return writeReports(ctx, g, reportParams{
		prefix:      opts.output,
		title:       opts.title,
		image:       opts.image,
		showUnknown: opts.showUnknown,
	})
}

// reportParams is the artifact configuration shared by scan and report.
type reportParams struct {
	prefix      string
	title       string
	image       string
	showUnknown bool
}

func writeReports(ctx context.Context, g *graph.Graph, p reportParams) error {
	arts, err := report.WriteAll(ctx, g, report.WriteOptions{
		Prefix:      p.prefix,
		Title:       p.title,
		Image:       report.ImageFormat(p.image),
		ShowUnknown: p.showUnknown,
	})
	if err != nil {
		return err
	}

	printSuccess("Reports written")
	for _, path := range []string{arts.DOT, arts.HTML, arts.HTMLFull, arts.Image} {
		if path != "" {
			printFile(path)
		}
	}
	return nil
}

// instanceHost extracts the host part of the instance URL for deciding
// whether unresolved dependency sources are external.
func instanceHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func countPlaceholders(g *graph.Graph) int {
	n := 0
	for _, node := range g.Nodes() {
		if node.IsPlaceholder() {
			n++
		}
	}
	return n
}
