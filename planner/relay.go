package planner

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/schema"
)

// stripConnection unwraps a Relay connection selection. It returns the node
// type and the merged sub-selections of every edges { node } selection; the
// pageInfo and cursor selections are dropped.
func (c *compilation) stripConnection(conn *schema.Type, sels ast.SelectionSet) (*schema.Type, ast.SelectionSet, error) {
	node, err := c.schema.ConnectionNode(conn)
	if err != nil {
		return nil, nil, err
	}
	edgesField, _ := conn.Field(schema.FieldEdges)
	edgeType := schema.NamedType(edgesField.Type)

	edges, err := c.flatten(sels, conn.Name)
	if err != nil {
		return nil, nil, err
	}
	var out ast.SelectionSet
	for _, e := range edges {
		if e.Name != schema.FieldEdges {
			continue
		}
		nodes, err := c.flatten(e.SelectionSet, edgeType)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range nodes {
			if n.Name == schema.FieldNode {
				out = append(out, n.SelectionSet...)
			}
		}
	}
	return node, out, nil
}

// flatten resolves the fragments of a selection set that apply to typeName
// and returns the fields in selection order.
func (c *compilation) flatten(sels ast.SelectionSet, typeName string) ([]*ast.Field, error) {
	var fields []*ast.Field
	for _, sel := range sels {
		switch sel := sel.(type) {
		case *ast.Field:
			fields = append(fields, sel)
		case *ast.InlineFragment:
			if !appliesTo(sel.TypeCondition, typeName) {
				continue
			}
			inner, err := c.flatten(sel.SelectionSet, typeName)
			if err != nil {
				return nil, err
			}
			fields = append(fields, inner...)
		case *ast.FragmentSpread:
			def, err := c.spreadDefinition(typeName, sel)
			if err != nil {
				return nil, err
			}
			if !appliesTo(def.TypeCondition, typeName) {
				continue
			}
			inner, err := c.flatten(def.SelectionSet, typeName)
			if err != nil {
				return nil, err
			}
			fields = append(fields, inner...)
		default:
			return nil, joinplan.NewSchemaMappingError(typeName, "", fmt.Sprintf("%T", sel), joinplan.ErrUnsupportedSelection)
		}
	}
	return fields, nil
}

func appliesTo(cond, typeName string) bool {
	return cond == "" || cond == typeName
}

// spreadDefinition returns the definition of a fragment spread. Validated
// documents link it already; otherwise it is looked up by name.
func (c *compilation) spreadDefinition(typeName string, s *ast.FragmentSpread) (*ast.FragmentDefinition, error) {
	if s.Definition != nil {
		return s.Definition, nil
	}
	return c.fragment(typeName, s.Name)
}
