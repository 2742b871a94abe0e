// Package cli implements the joinplan command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/syssam/joinplan/config"
)

// Version is the build version, set with -ldflags "-X".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string
}

// NewRootCommand creates the root command for the joinplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "joinplan",
		Short: "Plan SQL for GraphQL queries",
		Long: `joinplan compiles a GraphQL query against an annotated schema into the
SQL AST and the object shape used to rebuild nested results from flat rows.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log planner debug output to stderr")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", config.DefaultFilename, "configuration file")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// logger writes text logs to w. Verbose enables debug records.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), "joinplan "+Version+"\n")
			return err
		},
	}
}
