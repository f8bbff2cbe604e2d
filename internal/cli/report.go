package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ops-tooling/rolegraph/pkg/graph"
)

// newReportCmd creates the report command: regenerate artifacts from a
// previously scanned graph without touching the GitLab API.
func newReportCmd() *cobra.Command {
	var (
		output      string
		title       string
		image       string
		showUnknown bool
	)

	cmd := &cobra.Command{
		Use:   "report <graph.json>",
		Short: "Regenerate report artifacts from a saved graph",
		Long: `Report reads a graph JSON file produced by 'rolegraph scan' and rewrites
the DOT, HTML and image artifacts. Use it to re-render with a different
title or image format without rescanning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}

			prefix := output
			if prefix == "" {
				prefix = strings.TrimSuffix(args[0], ".json")
			}

			prog := newProgress(loggerFromContext(cmd.Context()))
			err = writeReports(cmd.Context(), g, reportParams{
				prefix:      prefix,
				title:       title,
				image:       image,
				showUnknown: showUnknown,
			})
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Rendered %d nodes, %d edges", g.NodeCount(), g.EdgeCount()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path prefix (default: input path without .json)")
	cmd.Flags().StringVar(&title, "title", "Ansible role inventory", "title for graph and HTML reports")
	cmd.Flags().StringVar(&image, "image", "svg", "graph image format: svg, png or none")
	cmd.Flags().BoolVar(&showUnknown, "show-unknown", false, "include unresolved dependencies in the primary HTML page")

	return cmd
}
