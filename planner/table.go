package planner

import (
	"slices"
	"strings"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/alias"
	"github.com/syssam/joinplan/schema"
	"github.com/syssam/joinplan/sqlast"
)

// totalColumn is the synthetic row-count column of offset pagination.
const totalColumn = "$total"

// planTable plans a table-mapped field. Bookkeeping columns (junction key,
// unique key, always-fetch columns, the legacy type hint and pagination
// columns) follow the selected children.
func (c *compilation) planTable(in fieldInput) (sqlast.Node, error) {
	if in.prior != nil {
		if _, ok := sqlast.AsRelation(in.prior); ok {
			return c.extendRelation(in)
		}
	}
	ann := in.field.SQL
	rel := sqlast.Relation{
		Header:   sqlast.Header{FieldName: in.key},
		Name:     in.typ.SQL.Table,
		Args:     in.args,
		Paginate: in.paginate,
		Where:    ann.Where,
		GrabMany: in.grabMany,
	}
	if in.typ.SQL.TableFunc != nil {
		rel.Name = in.typ.SQL.TableFunc(c.ctx, in.args)
	}
	rel.As = c.ns.Generate(alias.Table, in.key)

	switch {
	case ann.OrderByFunc != nil:
		rel.OrderBy = ann.OrderByFunc(c.ctx, in.args)
	case len(ann.OrderBy) > 0:
		rel.OrderBy = slices.Clone(ann.OrderBy)
	}
	if rel.Paginate {
		sk, err := c.sortKey(in, len(rel.OrderBy) > 0)
		if err != nil {
			return nil, err
		}
		rel.SortKey = sk
	}

	var extra []sqlast.Node
	switch junction, legacy := ann.ResolveJunction(); {
	case ann.Join != nil:
		rel.Join = ann.Join
	case junction != nil:
		if legacy {
			c.notice(joinplan.NoticeJoinTable, in.parent.Name, in.field.Name)
		}
		j, key, err := c.junction(in, junction)
		if err != nil {
			return nil, err
		}
		rel.Junction = j
		if key != nil {
			extra = append(extra, key)
		}
	case ann.Batch != nil:
		rel.Batch = &sqlast.Batch{
			ThisKey:   c.column(ann.Batch.ThisKey),
			ParentKey: c.column(ann.Batch.ParentKey),
		}
	}

	if len(in.typ.SQL.UniqueKey) == 0 {
		return nil, joinplan.NewSchemaMappingError(in.typ.Name, "", "table "+rel.Name, joinplan.ErrMissingUniqueKey)
	}
	extra = append(extra, c.key(in.typ.SQL.UniqueKey, ""))
	for _, name := range in.typ.SQL.AlwaysFetch {
		extra = append(extra, c.column(name))
	}
	if in.typ.SQL.TypeHint != "" && in.typ.IsAbstract() {
		c.notice(joinplan.NoticeTypeHint, in.typ.Name, "")
		extra = append(extra, c.column(in.typ.SQL.TypeHint))
	}
	if rel.Paginate {
		extra = append(extra, c.paginationColumns(&rel)...)
	}

	if in.typ.IsAbstract() {
		scope := &unionScope{}
		if err := c.selectUnion(scope, in.selections, in.typ, in.depth, ""); err != nil {
			return nil, err
		}
		rel.Children = append(scope.children, extra...)
		return &sqlast.Union{Relation: rel, TypedChildren: scope.buckets}, nil
	}
	children, err := c.selectObject(nil, in.selections, in.typ, in.depth, "")
	if err != nil {
		return nil, err
	}
	rel.Children = append(children, extra...)
	return &sqlast.Table{Relation: rel}, nil
}

// extendRelation adds the selections of a repeated field to the relation
// planned for its first occurrence. The first occurrence's header, arguments
// and join metadata are kept.
func (c *compilation) extendRelation(in fieldInput) (sqlast.Node, error) {
	switch prior := in.prior.(type) {
	case *sqlast.Union:
		u := *prior
		scope := &unionScope{children: slices.Clone(prior.Children), buckets: cloneBuckets(prior.TypedChildren)}
		if err := c.selectUnion(scope, in.selections, in.typ, in.depth, ""); err != nil {
			return nil, err
		}
		u.Children, u.TypedChildren = scope.children, scope.buckets
		return &u, nil
	case *sqlast.Table:
		t := *prior
		children, err := c.selectObject(slices.Clone(prior.Children), in.selections, in.typ, in.depth, "")
		if err != nil {
			return nil, err
		}
		t.Children = children
		return &t, nil
	}
	return in.prior, nil
}

// junction plans a many-to-many relation. On the batch path it also returns
// the junction key child, read from the junction alias.
func (c *compilation) junction(in fieldInput, j *schema.Junction) (*sqlast.Junction, sqlast.Node, error) {
	if j.Joins == nil && j.Batch == nil {
		return nil, nil, joinplan.NewSchemaMappingError(in.parent.Name, in.field.Name, "junction "+j.Table, joinplan.ErrMissingJunctionJoin)
	}
	out := &sqlast.Junction{
		Table: j.Table,
		As:    c.ns.Generate(alias.Table, j.Table),
		Joins: j.Joins,
	}
	if j.Joins != nil {
		return out, nil, nil
	}
	if len(j.Key) == 0 {
		return nil, nil, joinplan.NewSchemaMappingError(in.parent.Name, in.field.Name, "junction "+j.Table, joinplan.ErrMissingUniqueKey)
	}
	key := c.key(j.Key, out.As)
	thisKey := c.column(j.Batch.ThisKey)
	thisKey.FromOtherTable = out.As
	out.Batch = &sqlast.JunctionBatch{
		ThisKey:   thisKey,
		ParentKey: c.column(j.Batch.ParentKey),
		Join:      j.Batch.Join,
	}
	return out, key, nil
}

// sortKey resolves the keyset pagination key of a paginated field. With no
// sort key configured an ordering is required instead.
func (c *compilation) sortKey(in fieldInput, ordered bool) (*schema.SortKey, error) {
	ann := in.field.SQL
	var sk *schema.SortKey
	switch {
	case ann.SortKeyFunc != nil:
		sk = ann.SortKeyFunc(c.ctx, in.args)
		if sk == nil {
			return nil, joinplan.NewSchemaMappingError(in.parent.Name, in.field.Name, "sort key function returned nil", joinplan.ErrInvalidSortKey)
		}
	case ann.SortKey != nil:
		sk = &schema.SortKey{Order: ann.SortKey.Order, Key: slices.Clone(ann.SortKey.Key)}
	case ordered:
		return nil, nil
	default:
		return nil, joinplan.NewSchemaMappingError(in.parent.Name, in.field.Name, "", joinplan.ErrMissingSortKey)
	}
	if len(sk.Key) == 0 || sk.Order == "" {
		return nil, joinplan.NewSchemaMappingError(in.parent.Name, in.field.Name, "", joinplan.ErrInvalidSortKey)
	}
	return sk, nil
}

// paginationColumns returns the columns a paginated relation needs: its sort
// key columns, or the total row count for ordered offset paging.
func (c *compilation) paginationColumns(rel *sqlast.Relation) []sqlast.Node {
	var from string
	if rel.Junction != nil {
		from = rel.Junction.As
	}
	var cols []sqlast.Node
	switch {
	case rel.SortKey != nil:
		for _, name := range rel.SortKey.Key {
			col := c.column(name)
			col.FromOtherTable = from
			cols = append(cols, col)
		}
	case len(rel.OrderBy) > 0:
		col := c.column(totalColumn)
		col.FromOtherTable = from
		cols = append(cols, col)
	}
	return cols
}

// column returns a bookkeeping column whose field name is the column itself.
func (c *compilation) column(name string) *sqlast.Column {
	return &sqlast.Column{
		Header: sqlast.Header{FieldName: name, As: c.ns.Generate(alias.Column, name)},
		Name:   name,
	}
}

// key returns the child selecting a unique key. Compound keys become a
// Composite named after the first three characters of each column.
func (c *compilation) key(columns []string, from string) sqlast.Node {
	if len(columns) == 1 {
		col := c.column(columns[0])
		col.FromOtherTable = from
		return col
	}
	parts := make([]string, len(columns))
	for i, name := range columns {
		parts[i] = name[:min(3, len(name))]
	}
	name := strings.Join(parts, "#")
	return &sqlast.Composite{
		Header:         sqlast.Header{FieldName: name, As: c.ns.Generate(alias.Column, name)},
		Names:          slices.Clone(columns),
		FromOtherTable: from,
	}
}

func cloneBuckets(buckets []sqlast.Bucket) []sqlast.Bucket {
	out := make([]sqlast.Bucket, len(buckets))
	for i, b := range buckets {
		out[i] = sqlast.Bucket{TypeName: b.TypeName, Children: slices.Clone(b.Children)}
	}
	return out
}
