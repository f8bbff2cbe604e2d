package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ops-tooling/rolegraph/pkg/buildinfo"
)

// Execute runs the rolegraph CLI and returns an error if any command
// fails. The logger is configured from the --verbose flag and attached to
// the context, where all commands retrieve it via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:   "rolegraph",
		Short: "rolegraph maps Ansible roles and playbooks across a GitLab instance",
		Long: `rolegraph scans every project on a GitLab instance, recognizes Ansible
roles and playbooks, extracts their declared dependencies, and renders the
resulting dependency graph as DOT, HTML and image reports.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newScanCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}
