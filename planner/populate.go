package planner

import (
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/alias"
	"github.com/syssam/joinplan/schema"
	"github.com/syssam/joinplan/sqlast"
)

// introspectionPrefix starts every GraphQL meta field (__typename, __schema).
const introspectionPrefix = "__"

// fieldInput is a field selection resolved against its declaring type.
type fieldInput struct {
	key    string // response key
	field  *schema.Field
	parent *schema.Type
	typ    *schema.Type
	args   map[string]any
	// selections is the effective selection set, with Relay wrappers removed.
	selections ast.SelectionSet
	grabMany   bool
	paginate   bool
	prior      sqlast.Node
	depth      int
}

// populate plans a single field selection. prior is the node already planned
// for the same response key in the enclosing scope, if any; a relation found
// there is extended instead of planned twice. deferredFrom names the abstract
// type a bucketed selection was narrowed from.
func (c *compilation) populate(sel *ast.Field, parent *schema.Type, prior sqlast.Node, depth int, deferredFrom string) (sqlast.Node, error) {
	key := responseKey(sel)
	if strings.HasPrefix(sel.Name, introspectionPrefix) {
		return &sqlast.Noop{Header: sqlast.Header{FieldName: key}}, nil
	}
	field, ok := parent.Field(sel.Name)
	if !ok {
		return nil, joinplan.NewSchemaMappingError(parent.Name, sel.Name, "", joinplan.ErrUnknownField)
	}
	ann := field.SQL
	if ann.IgnoreAll {
		return &sqlast.Noop{Header: sqlast.Header{FieldName: key}}, nil
	}
	args, err := c.args(sel.Arguments)
	if err != nil {
		return nil, joinplan.NewSchemaMappingError(parent.Name, sel.Name, "", err)
	}

	in := fieldInput{
		key:        key,
		field:      field,
		parent:     parent,
		args:       args,
		selections: sel.SelectionSet,
		prior:      prior,
		depth:      depth,
	}
	ref := schema.StripNonNull(field.Type)
	if l, ok := ref.(schema.List); ok {
		ref = schema.StripNonNull(l.Of)
		in.grabMany = true
	}
	typ, known := c.schema.Type(schema.NamedType(ref))
	switch {
	case known && typ.IsConnection():
		in.grabMany = true
		in.paginate = ann.Paginate
		if typ, in.selections, err = c.stripConnection(typ, sel.SelectionSet); err != nil {
			if joinplan.IsSchemaMappingError(err) {
				return nil, err
			}
			return nil, joinplan.NewSchemaMappingError(parent.Name, sel.Name, err.Error(), joinplan.ErrNotConnection)
		}
	case ann.Paginate:
		return nil, joinplan.NewSchemaMappingError(parent.Name, sel.Name, "type "+schema.NamedType(ref), joinplan.ErrNotConnection)
	}
	in.typ = typ

	if known && typ.IsTable() && !ann.IgnoreTable {
		if depth >= 1 {
			if err := checkJoinStrategy(parent, field); err != nil {
				return nil, err
			}
		}
		return c.planTable(in)
	}

	switch {
	case ann.Expr != nil:
		return &sqlast.Expression{
			Header: sqlast.Header{FieldName: key, As: c.ns.Generate(alias.Column, aliasBase(key, parent, deferredFrom))},
			Expr:   ann.Expr,
			Args:   args,
		}, nil
	case ann.Column != "" || !ann.Resolver:
		name := ann.Column
		if name == "" {
			name = c.opts.ColumnNaming.column(field.Name)
		}
		return &sqlast.Column{
			Header: sqlast.Header{FieldName: key, As: c.ns.Generate(alias.Column, aliasBase(key, parent, deferredFrom))},
			Name:   name,
		}, nil
	case len(ann.Deps) > 0:
		deps := make([]sqlast.Dep, 0, len(ann.Deps))
		for name, column := range ann.Deps {
			deps = append(deps, sqlast.Dep{Name: name, Column: column})
		}
		slices.SortFunc(deps, func(a, b sqlast.Dep) int { return strings.Compare(a.Name, b.Name) })
		return &sqlast.ColumnDeps{Header: sqlast.Header{FieldName: key}, Deps: deps}, nil
	default:
		return &sqlast.Noop{Header: sqlast.Header{FieldName: key}}, nil
	}
}

// checkJoinStrategy requires a nested table field to declare exactly one of
// a direct join, a batch or a junction.
func checkJoinStrategy(parent *schema.Type, field *schema.Field) error {
	ann := field.SQL
	junction, _ := ann.ResolveJunction()
	n := 0
	for _, set := range []bool{ann.Join != nil, ann.Batch != nil, junction != nil} {
		if set {
			n++
		}
	}
	switch n {
	case 0:
		return joinplan.NewSchemaMappingError(parent.Name, field.Name, "", joinplan.ErrMissingJoin)
	case 1:
		return nil
	default:
		return joinplan.NewSchemaMappingError(parent.Name, field.Name, "", joinplan.ErrAmbiguousJoin)
	}
}

// responseKey returns the output name of a selected field.
func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// aliasBase disambiguates fields planned in a concrete-type bucket from
// same-named fields of sibling types.
func aliasBase(key string, parent *schema.Type, deferredFrom string) string {
	if deferredFrom == "" {
		return key
	}
	return key + "@" + parent.Name
}
