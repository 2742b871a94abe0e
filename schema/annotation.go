package schema

import "context"

// Dynamic metadata builders. The planner forwards them untouched to the SQL
// renderer or calls them with the parsed field arguments and the request
// context.
type (
	// TableFunc computes a table name from field arguments.
	TableFunc func(ctx context.Context, args map[string]any) string

	// JoinFunc builds the join condition between two table aliases.
	JoinFunc func(ctx context.Context, parentAlias, childAlias string, args map[string]any) string

	// ExprFunc builds a raw SQL expression evaluated against a table alias.
	ExprFunc func(ctx context.Context, tableAlias string, args map[string]any) string

	// WhereFunc builds a row filter evaluated against a table alias.
	WhereFunc func(ctx context.Context, tableAlias string, args map[string]any) string

	// OrderByFunc computes an ordering from field arguments.
	OrderByFunc func(ctx context.Context, args map[string]any) []OrderTerm

	// SortKeyFunc computes a keyset pagination sort key from field arguments.
	SortKeyFunc func(ctx context.Context, args map[string]any) *SortKey
)

// Direction is an ordering direction.
type Direction string

// Ordering directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderTerm orders by one column.
type OrderTerm struct {
	Column    string
	Direction Direction
}

// SortKey is a keyset pagination key. Both fields are required.
type SortKey struct {
	Order Direction
	Key   []string
}

// Batch resolves a relation with a secondary keyed fetch instead of a join.
type Batch struct {
	// ThisKey is the column on the child table.
	ThisKey string
	// ParentKey is the column on the parent table.
	ParentKey string
}

// JunctionJoins are the two explicit joins of a many-to-many relation.
type JunctionJoins struct {
	// ToJunction joins the parent table to the junction table.
	ToJunction JoinFunc
	// FromJunction joins the junction table to the child table.
	FromJunction JoinFunc
}

// JunctionBatch batches a many-to-many relation: the junction is joined to
// the child table and grouped on ThisKey (a junction column) against
// ParentKey (a parent column).
type JunctionBatch struct {
	ThisKey   string
	ParentKey string
	Join      JoinFunc
}

// Junction describes a many-to-many relation through a bridge table.
// Exactly one of Joins or Batch must be set.
type Junction struct {
	Table string
	// Key is the junction's own unique key, fetched on the batch path.
	Key   []string
	Joins *JunctionJoins
	Batch *JunctionBatch
}

// TypeAnnotation holds the relational settings of an object, interface or
// union type.
type TypeAnnotation struct {
	// Table is the SQL table the type maps to.
	Table string
	// TableFunc computes the table name per request. Takes precedence over Table.
	TableFunc TableFunc
	// UniqueKey identifies a row. More than one column makes a composite key.
	UniqueKey []string
	// AlwaysFetch lists columns fetched whether selected or not.
	AlwaysFetch []string
	// TypeHint is the legacy discriminator column of union and interface types.
	// Deprecated: use AlwaysFetch.
	TypeHint string

	// Fields holds per-field settings keyed by field name.
	Fields map[string]FieldAnnotation
}

// FieldAnnotation holds the relational settings of one field.
type FieldAnnotation struct {
	// Column is the SQL column; defaults to the field name.
	Column string
	// Expr computes the field from a raw SQL expression.
	Expr ExprFunc
	// Deps maps internal names to the columns a computed field needs.
	Deps map[string]string
	// Resolver marks a field with a custom value resolver.
	Resolver bool

	// Join joins a table-mapped child directly.
	Join JoinFunc
	// Batch resolves a table-mapped child with a keyed secondary fetch.
	Batch *Batch
	// Junction resolves a many-to-many child.
	Junction *Junction
	// JoinTable is the legacy name of Junction.
	// Deprecated: use Junction.
	JoinTable *Junction
	// Where filters the rows of a table-mapped child.
	Where WhereFunc

	OrderBy     []OrderTerm
	OrderByFunc OrderByFunc
	SortKey     *SortKey
	SortKeyFunc SortKeyFunc
	// Paginate enables Relay pagination on a connection-typed field.
	Paginate bool

	// IgnoreAll skips the field entirely.
	IgnoreAll bool
	// IgnoreTable stops a table-mapped field from being joined.
	IgnoreTable bool
}

// Annotations maps GraphQL type names to their relational settings.
type Annotations map[string]TypeAnnotation

// ResolveJunction returns the configured junction and whether it came from
// the legacy JoinTable setting.
func (f FieldAnnotation) ResolveJunction() (*Junction, bool) {
	if f.Junction != nil {
		return f.Junction, false
	}
	if f.JoinTable != nil {
		return f.JoinTable, true
	}
	return nil, false
}

// merge overlays the non-zero settings of o onto a.
func (a TypeAnnotation) merge(o TypeAnnotation) TypeAnnotation {
	if o.Table != "" {
		a.Table = o.Table
	}
	if o.TableFunc != nil {
		a.TableFunc = o.TableFunc
	}
	if len(o.UniqueKey) > 0 {
		a.UniqueKey = o.UniqueKey
	}
	if len(o.AlwaysFetch) > 0 {
		a.AlwaysFetch = o.AlwaysFetch
	}
	if o.TypeHint != "" {
		a.TypeHint = o.TypeHint
	}
	return a
}

func (a FieldAnnotation) merge(o FieldAnnotation) FieldAnnotation {
	if o.Column != "" {
		a.Column = o.Column
	}
	if o.Expr != nil {
		a.Expr = o.Expr
	}
	if len(o.Deps) > 0 {
		a.Deps = o.Deps
	}
	a.Resolver = a.Resolver || o.Resolver
	if o.Join != nil {
		a.Join = o.Join
	}
	if o.Batch != nil {
		a.Batch = o.Batch
	}
	if o.Junction != nil {
		a.Junction = o.Junction
	}
	if o.JoinTable != nil {
		a.JoinTable = o.JoinTable
	}
	if o.Where != nil {
		a.Where = o.Where
	}
	if len(o.OrderBy) > 0 {
		a.OrderBy = o.OrderBy
	}
	if o.OrderByFunc != nil {
		a.OrderByFunc = o.OrderByFunc
	}
	if o.SortKey != nil {
		a.SortKey = o.SortKey
	}
	if o.SortKeyFunc != nil {
		a.SortKeyFunc = o.SortKeyFunc
	}
	a.Paginate = a.Paginate || o.Paginate
	a.IgnoreAll = a.IgnoreAll || o.IgnoreAll
	a.IgnoreTable = a.IgnoreTable || o.IgnoreTable
	return a
}
