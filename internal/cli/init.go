package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/config"
	"github.com/syssam/joinplan/dialect"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Schema       []string
	Dialect      string
	Minify       bool
	ColumnNaming string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or update the configuration file",
		Long: `Write the configuration file named by --config. Settings already in the
file are kept; schema patterns are added once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Schema, "schema", "s", nil, "schema file or glob, relative to the configuration file (repeatable)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect ("+strings.Join(dialect.Names(), "|")+")")
	cmd.Flags().BoolVar(&opts.Minify, "minify", false, "shorten every generated alias")
	cmd.Flags().StringVar(&opts.ColumnNaming, "column-naming", "", "default column naming (field|snake)")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	for _, pattern := range opts.Schema {
		cfg.AddSchemaPath(pattern)
	}
	if opts.Dialect != "" {
		cfg.Dialect = opts.Dialect
	}
	if cmd.Flags().Changed("minify") {
		cfg.Minify = opts.Minify
	}
	if opts.ColumnNaming != "" {
		cfg.ColumnNaming = opts.ColumnNaming
	}
	if _, ok := dialect.Lookup(cfg.Dialect); cfg.Dialect != "" && !ok {
		return joinplan.NewConfigError("Dialect", cfg.Dialect, "unknown dialect, expected one of "+strings.Join(dialect.Names(), ", "))
	}
	if _, err := cfg.Options(); err != nil {
		return err
	}
	if err := config.Save(opts.Config, cfg); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Config)
	return err
}
