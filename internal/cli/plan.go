package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/config"
	"github.com/syssam/joinplan/dialect"
	"github.com/syssam/joinplan/planner"
	"github.com/syssam/joinplan/schema"
	"github.com/syssam/joinplan/shape"
	"github.com/syssam/joinplan/sqlast"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Schema    []string // SDL files added to the configured ones
	Query     string   // query document file
	Operation string
	Field     string // response key of the root field to plan
	Dialect   string
	Minify    bool
	Vars      string // JSON object of variable values
}

// PlanResult is the printed outcome of the plan command.
type PlanResult struct {
	AST     map[string]any               `json:"ast"`
	Shape   *shape.Shape                 `json:"shape"`
	Notices []joinplan.DeprecationNotice `json:"notices,omitempty"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the SQL AST and shape of a query",
		Long: `Validate a query against the schema, plan its root field and print the
SQL AST together with the object shape as indented JSON.

Schema files come from the configuration file and from --schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Schema, "schema", "s", nil, "schema SDL file (repeatable)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document file")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name, required when the document has several")
	cmd.Flags().StringVar(&opts.Field, "field", "", "root field response key, required when the operation selects several")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect ("+strings.Join(dialect.Names(), "|")+"), overrides the configuration")
	cmd.Flags().BoolVar(&opts.Minify, "minify", false, "shorten every generated alias")
	cmd.Flags().StringVar(&opts.Vars, "vars", "", "variable values as a JSON object")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runPlan(cmd *cobra.Command, opts *PlanOptions) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	popts, err := cfg.Options()
	if err != nil {
		return err
	}
	if opts.Dialect != "" {
		popts = append(popts, planner.WithDialect(opts.Dialect))
	}
	if cmd.Flags().Changed("minify") {
		popts = append(popts, planner.WithMinify(opts.Minify))
	}
	popts = append(popts, planner.WithLogger(opts.logger(cmd.ErrOrStderr())))

	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	for _, name := range opts.Schema {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		sources = append(sources, &ast.Source{Name: name, Input: string(data)})
	}
	if len(sources) == 0 {
		return fmt.Errorf("no schema files, pass --schema or configure %s", config.DefaultFilename)
	}
	s, src, err := schema.Load(nil, sources...)
	if err != nil {
		return err
	}

	query, err := os.ReadFile(opts.Query)
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	doc, errs := gqlparser.LoadQuery(src, string(query))
	if len(errs) > 0 {
		return fmt.Errorf("validate query: %w", errs)
	}
	vars, err := parseVars(opts.Vars)
	if err != nil {
		return err
	}
	req, err := planner.RequestFromDocument(s, doc, opts.Operation, vars)
	if err != nil {
		return err
	}
	if req, err = selectField(req, opts.Field); err != nil {
		return err
	}

	plan, err := planner.Compile(cmd.Context(), s, req, popts...)
	if err != nil {
		return err
	}
	sh, err := shape.Define(plan.AST)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(PlanResult{
		AST:     sqlast.Dump(plan.AST),
		Shape:   sh,
		Notices: plan.Notices,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func parseVars(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("parse --vars: %w", err)
	}
	return vars, nil
}

// selectField narrows req to the root field answering to key. An empty key
// leaves req untouched.
func selectField(req planner.Request, key string) (planner.Request, error) {
	if key == "" {
		return req, nil
	}
	for _, f := range req.Fields {
		if f.Alias == key || (f.Alias == "" && f.Name == key) {
			req.Fields = []*ast.Field{f}
			return req, nil
		}
	}
	return req, fmt.Errorf("operation selects no root field %q", key)
}
