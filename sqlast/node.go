// Package sqlast defines the SQL AST produced by the planner: the tables,
// joins and columns a query needs, independent of any SQL dialect.
//
// The node set is closed. Consumers dispatch with a Visitor, so adding a
// variant breaks every consumer at compile time until it handles it.
//
// Nodes are built once by the planner and then treated as immutable; passes
// such as dependency pruning return new trees.
package sqlast

import "github.com/syssam/joinplan/schema"

// Node is one of Table, Union, Column, Composite, Expression, ColumnDeps or Noop.
type Node interface {
	// Head returns the shared header.
	Head() Header
	// Accept dispatches to the visitor method of the concrete variant.
	Accept(Visitor)
	node()
}

// Visitor handles every node variant.
type Visitor interface {
	VisitTable(*Table)
	VisitUnion(*Union)
	VisitColumn(*Column)
	VisitComposite(*Composite)
	VisitExpression(*Expression)
	VisitColumnDeps(*ColumnDeps)
	VisitNoop(*Noop)
}

// Header is carried by every node.
type Header struct {
	// FieldName is the GraphQL output name.
	FieldName string
	// As is the generated alias.
	As string
}

// Head implements Node.
func (h Header) Head() Header { return h }

func (Header) node() {}

// Batch is the key pair of a relation resolved by a secondary keyed fetch.
type Batch struct {
	// ThisKey is the column on the child table.
	ThisKey *Column
	// ParentKey is the column on the parent table.
	ParentKey *Column
}

// JunctionBatch is the batch key pair of a many-to-many relation. ThisKey
// is sourced from the junction alias.
type JunctionBatch struct {
	ThisKey   *Column
	ParentKey *Column
	Join      schema.JoinFunc
}

// Junction is the bridge table of a many-to-many relation.
type Junction struct {
	Table string
	As    string
	Joins *schema.JunctionJoins
	Batch *JunctionBatch
}

// Relation holds what Table and Union share.
type Relation struct {
	Header
	// Name is the SQL table name.
	Name string
	Args map[string]any
	// Children is ordered and may hold duplicates until pruned.
	Children []Node
	OrderBy  []schema.OrderTerm
	SortKey  *schema.SortKey
	Paginate bool
	Where    schema.WhereFunc
	// At most one of Join, Junction and Batch is set. Root relations have none.
	Join     schema.JoinFunc
	Junction *Junction
	Batch    *Batch
	// GrabMany marks a list-valued field; rows are grouped into one value.
	GrabMany bool
}

// BatchParentKey returns the parent key of a batched relation, either a
// plain batch or a junction batch.
func (r *Relation) BatchParentKey() (*Column, bool) {
	switch {
	case r.Batch != nil:
		return r.Batch.ParentKey, true
	case r.Junction != nil && r.Junction.Batch != nil:
		return r.Junction.Batch.ParentKey, true
	}
	return nil, false
}

// Table is a joined or selected relation.
type Table struct {
	Relation
}

// Bucket holds the children selected for one concrete type of a union.
type Bucket struct {
	TypeName string
	Children []Node
}

// Union is a polymorphic relation: fields selected per concrete type live
// in TypedChildren, ordered by first selection.
type Union struct {
	Relation
	TypedChildren []Bucket
}

// Bucket returns the children of the named concrete type.
func (u *Union) Bucket(typeName string) ([]Node, bool) {
	for _, b := range u.TypedChildren {
		if b.TypeName == typeName {
			return b.Children, true
		}
	}
	return nil, false
}

// Column is a scalar selection.
type Column struct {
	Header
	// Name is the SQL column.
	Name string
	// FromOtherTable names the alias the column is read from when it is not
	// the enclosing table, e.g. a junction table.
	FromOtherTable string
}

// Composite selects a compound key.
type Composite struct {
	Header
	Names []string
	// FromOtherTable has the same meaning as on Column.
	FromOtherTable string
}

// Expression is a computed SQL expression.
type Expression struct {
	Header
	Expr schema.ExprFunc
	// Args are the parsed field arguments the builder is called with.
	Args map[string]any
}

// Dep is one extra column a computed field needs.
type Dep struct {
	// Name is the internal name the resolver reads.
	Name string
	// Column is the SQL column.
	Column string
	// As is assigned by the dependency pruner.
	As string
}

// ColumnDeps lists extra columns that no output field addresses directly.
type ColumnDeps struct {
	Header
	Deps []Dep
}

// Noop contributes nothing to the query.
type Noop struct {
	Header
}

func (n *Table) Accept(v Visitor)      { v.VisitTable(n) }
func (n *Union) Accept(v Visitor)      { v.VisitUnion(n) }
func (n *Column) Accept(v Visitor)     { v.VisitColumn(n) }
func (n *Composite) Accept(v Visitor)  { v.VisitComposite(n) }
func (n *Expression) Accept(v Visitor) { v.VisitExpression(n) }
func (n *ColumnDeps) Accept(v Visitor) { v.VisitColumnDeps(n) }
func (n *Noop) Accept(v Visitor)       { v.VisitNoop(n) }

// AsRelation returns the relation of a Table or Union node.
func AsRelation(n Node) (*Relation, bool) {
	switch n := n.(type) {
	case *Table:
		return &n.Relation, true
	case *Union:
		return &n.Relation, true
	}
	return nil, false
}
