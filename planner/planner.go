// Package planner compiles a GraphQL field selection into a SQL AST.
//
// Compile walks the selection tree against a schema annotated with
// relational metadata. It resolves join strategies, unwraps Relay
// connections, buckets union and interface fragments per concrete type,
// allocates aliases and finally merges scattered column dependencies so each
// scope fetches them once.
//
// Compilation is pure and synchronous. Every call owns its alias namespace,
// so independent calls may run concurrently (see CompileAll).
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/alias"
	"github.com/syssam/joinplan/schema"
	"github.com/syssam/joinplan/sqlast"
)

// Request is the query input of one compilation: the root field being
// resolved and the query-global data needed to walk it.
type Request struct {
	// Fields are the field nodes of the resolved root field. Exactly one is required.
	Fields []*ast.Field
	// ParentType is the type declaring the root field, e.g. "Query".
	ParentType string
	Fragments  ast.FragmentDefinitionList
	// Variables are the resolved variable values of the operation.
	Variables map[string]any
}

// Plan is the result of a compilation.
type Plan struct {
	// AST is the root relation, a *sqlast.Table or *sqlast.Union.
	AST sqlast.Node
	// Notices lists the legacy settings the plan relied on.
	Notices []joinplan.DeprecationNotice
}

// compilation threads the query-global state through every recursive
// planning call. It is owned by a single Compile call.
type compilation struct {
	ctx       context.Context
	schema    *schema.Schema
	fragments ast.FragmentDefinitionList
	variables map[string]any
	ns        *alias.Namespace
	opts      *Options
	log       *slog.Logger
	notices   []joinplan.DeprecationNotice
}

// Compile plans the root field of req. ctx is the request-scoped value
// handed to every table, ordering, sort-key and filter function.
func Compile(ctx context.Context, s *schema.Schema, req Request, opts ...Option) (*Plan, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(req.Fields) != 1 {
		return nil, joinplan.NewSchemaMappingError(req.ParentType, "", fmt.Sprintf("got %d field nodes", len(req.Fields)), joinplan.ErrRootFieldCount)
	}
	parent, ok := s.Type(req.ParentType)
	if !ok {
		return nil, joinplan.NewSchemaMappingError(req.ParentType, "", "", joinplan.ErrUnknownType)
	}
	c := &compilation{
		ctx:       ctx,
		schema:    s,
		fragments: req.Fragments,
		variables: req.Variables,
		ns:        alias.New(o.minify(), o.Dialect.MaxIdentifier),
		opts:      o,
		log:       o.Logger,
	}
	root := req.Fields[0]
	node, err := c.populate(root, parent, nil, 0, "")
	if err != nil {
		return nil, err
	}
	rel, ok := sqlast.AsRelation(node)
	if !ok {
		return nil, joinplan.NewSchemaMappingError(parent.Name, root.Name, "", joinplan.ErrRootNotTable)
	}
	c.log.Debug("compiled sql ast",
		"field", root.Name,
		"table", rel.Name,
		"dialect", o.Dialect.Name,
		"minify", o.minify(),
	)
	return &Plan{
		AST:     Prune(node, c.ns, c.log),
		Notices: c.notices,
	}, nil
}

// CompileAll compiles independent requests concurrently. Each request gets
// its own namespace; plans are returned in request order.
func CompileAll(ctx context.Context, s *schema.Schema, reqs []Request, opts ...Option) ([]*Plan, error) {
	plans := make([]*Plan, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := Compile(gctx, s, req, opts...)
			if err != nil {
				return err
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// RequestFromDocument builds a request for the root selection of a query
// operation. An empty operation name selects the only operation.
func RequestFromDocument(s *schema.Schema, doc *ast.QueryDocument, operation string, variables map[string]any) (Request, error) {
	var op *ast.OperationDefinition
	if operation == "" {
		if len(doc.Operations) != 1 {
			return Request{}, fmt.Errorf("document has %d operations, name one", len(doc.Operations))
		}
		op = doc.Operations[0]
	} else if op = doc.Operations.ForName(operation); op == nil {
		return Request{}, fmt.Errorf("operation %q not found", operation)
	}
	if op.Operation != ast.Query {
		return Request{}, fmt.Errorf("operation %q is a %s, only queries are planned", op.Name, op.Operation)
	}
	query, ok := s.Query()
	if !ok {
		return Request{}, fmt.Errorf("schema has no query type")
	}
	req := Request{
		ParentType: query.Name,
		Fragments:  doc.Fragments,
		Variables:  variables,
	}
	for _, sel := range op.SelectionSet {
		if f, ok := sel.(*ast.Field); ok {
			req.Fields = append(req.Fields, f)
		}
	}
	return req, nil
}

// notice records and logs a deprecation notice.
func (c *compilation) notice(n joinplan.DeprecationNotice, typeName, fieldName string) {
	c.notices = append(c.notices, n)
	c.log.Warn("deprecated configuration",
		"feature", n.Feature,
		"message", n.Message,
		"type", typeName,
		"field", fieldName,
	)
}

// fragment returns the named fragment definition.
func (c *compilation) fragment(typeName, name string) (*ast.FragmentDefinition, error) {
	f := c.fragments.ForName(name)
	if f == nil {
		return nil, joinplan.NewSchemaMappingError(typeName, "", "fragment "+name, joinplan.ErrUnknownFragment)
	}
	return f, nil
}
