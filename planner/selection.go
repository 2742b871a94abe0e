package planner

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/schema"
	"github.com/syssam/joinplan/sqlast"
)

// selectObject plans the selections of an object type into children and
// returns the extended list. A field whose response key matches a relation
// already in the list is merged into it rather than planned again. Fragments
// apply when they narrow to typ itself or to an interface it implements.
func (c *compilation) selectObject(children []sqlast.Node, sels ast.SelectionSet, typ *schema.Type, depth int, deferredFrom string) ([]sqlast.Node, error) {
	for _, sel := range sels {
		switch sel := sel.(type) {
		case *ast.Field:
			var err error
			if children, err = c.selectField(children, sel, typ, depth, deferredFrom); err != nil {
				return nil, err
			}
		case *ast.InlineFragment:
			if !narrows(typ, sel.TypeCondition) {
				continue
			}
			var err error
			if children, err = c.selectObject(children, sel.SelectionSet, typ, depth, deferredFrom); err != nil {
				return nil, err
			}
		case *ast.FragmentSpread:
			def, err := c.spreadDefinition(typ.Name, sel)
			if err != nil {
				return nil, err
			}
			if !narrows(typ, def.TypeCondition) {
				continue
			}
			if children, err = c.selectObject(children, def.SelectionSet, typ, depth, deferredFrom); err != nil {
				return nil, err
			}
		default:
			return nil, joinplan.NewSchemaMappingError(typ.Name, "", fmt.Sprintf("%T", sel), joinplan.ErrUnsupportedSelection)
		}
	}
	return children, nil
}

// selectField plans one field with lookup-or-create semantics.
func (c *compilation) selectField(children []sqlast.Node, f *ast.Field, parent *schema.Type, depth int, deferredFrom string) ([]sqlast.Node, error) {
	i := findRelation(children, responseKey(f))
	var prior sqlast.Node
	if i >= 0 {
		prior = children[i]
	}
	n, err := c.populate(f, parent, prior, depth+1, deferredFrom)
	if err != nil {
		return nil, err
	}
	if i >= 0 {
		children[i] = n
		return children, nil
	}
	return append(children, n), nil
}

// findRelation returns the index of the Table or Union child planned for key.
func findRelation(children []sqlast.Node, key string) int {
	for i, n := range children {
		if r, ok := sqlast.AsRelation(n); ok && r.FieldName == key {
			return i
		}
	}
	return -1
}

// narrows reports whether a fragment type condition applies to typ.
func narrows(typ *schema.Type, cond string) bool {
	return cond == "" || cond == typ.Name || typ.Implements(cond)
}

// unionScope collects the children of a union or interface relation.
type unionScope struct {
	children []sqlast.Node
	buckets  []sqlast.Bucket
}

func (u *unionScope) bucket(typeName string) int {
	for i, b := range u.buckets {
		if b.TypeName == typeName {
			return i
		}
	}
	u.buckets = append(u.buckets, sqlast.Bucket{TypeName: typeName})
	return len(u.buckets) - 1
}

// selectUnion plans the selections of a union or interface type. Fields
// selected on the abstract type are shared; fragments narrowing to a concrete
// type fill that type's bucket, and fragments narrowing to another abstract
// type are bucketed the same way.
func (c *compilation) selectUnion(u *unionScope, sels ast.SelectionSet, typ *schema.Type, depth int, deferredFrom string) error {
	for _, sel := range sels {
		switch sel := sel.(type) {
		case *ast.Field:
			children, err := c.selectField(u.children, sel, typ, depth, deferredFrom)
			if err != nil {
				return err
			}
			u.children = children
		case *ast.InlineFragment:
			if err := c.narrowUnion(u, sel.TypeCondition, sel.SelectionSet, typ, depth, deferredFrom); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			def, err := c.spreadDefinition(typ.Name, sel)
			if err != nil {
				return err
			}
			if err := c.narrowUnion(u, def.TypeCondition, def.SelectionSet, typ, depth, deferredFrom); err != nil {
				return err
			}
		default:
			return joinplan.NewSchemaMappingError(typ.Name, "", fmt.Sprintf("%T", sel), joinplan.ErrUnsupportedSelection)
		}
	}
	return nil
}

func (c *compilation) narrowUnion(u *unionScope, cond string, sels ast.SelectionSet, typ *schema.Type, depth int, deferredFrom string) error {
	if cond == "" || cond == typ.Name {
		return c.selectUnion(u, sels, typ, depth, deferredFrom)
	}
	target, ok := c.schema.Type(cond)
	if !ok {
		return joinplan.NewSchemaMappingError(cond, "", "type condition", joinplan.ErrUnknownType)
	}
	if target.IsAbstract() {
		return c.selectUnion(u, sels, target, depth, deferredFrom)
	}
	i := u.bucket(target.Name)
	children, err := c.selectObject(u.buckets[i].Children, sels, target, depth, typ.Name)
	if err != nil {
		return err
	}
	u.buckets[i].Children = children
	return nil
}
