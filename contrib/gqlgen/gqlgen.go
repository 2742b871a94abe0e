// Package gqlgen plans queries from inside gqlgen resolvers.
//
//	func (r *queryResolver) User(ctx context.Context, id int) (*model.User, error) {
//		plan, err := gqlgen.Compile(ctx, r.schema)
//		if err != nil {
//			return nil, err
//		}
//		// render plan.AST, execute, materialize with shape.Define(plan.AST)
//	}
package gqlgen

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/joinplan/planner"
	"github.com/syssam/joinplan/schema"
)

// Errors returned when the context does not come from a gqlgen resolver.
var (
	ErrNoOperation = errors.New("joinplan/gqlgen: context carries no operation")
	ErrNoField     = errors.New("joinplan/gqlgen: context carries no field")
)

// RequestFromContext builds a planner request for the field being resolved.
// The operation's fragments and variables are read from the operation
// context.
func RequestFromContext(ctx context.Context) (planner.Request, error) {
	if !graphql.HasOperationContext(ctx) {
		return planner.Request{}, ErrNoOperation
	}
	oc := graphql.GetOperationContext(ctx)
	fc := graphql.GetFieldContext(ctx)
	if fc == nil || fc.Field.Field == nil {
		return planner.Request{}, ErrNoField
	}
	req := planner.Request{
		Fields:     []*ast.Field{fc.Field.Field},
		ParentType: fc.Object,
		Variables:  oc.Variables,
	}
	if oc.Doc != nil {
		req.Fragments = oc.Doc.Fragments
	}
	return req, nil
}

// Compile plans the field being resolved.
func Compile(ctx context.Context, s *schema.Schema, opts ...planner.Option) (*planner.Plan, error) {
	req, err := RequestFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return planner.Compile(ctx, s, req, opts...)
}
