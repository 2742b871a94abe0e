package planner

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
)

// args parses field arguments into plain Go values. The result is never nil
// so it can be handed to builder functions directly.
func (c *compilation) args(list ast.ArgumentList) (map[string]any, error) {
	out := make(map[string]any, len(list))
	for _, arg := range list {
		v, err := c.value(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		out[arg.Name] = v
	}
	return out, nil
}

// value converts a literal. Int literals become int64 and Float literals
// float64; variables resolve against the request variables.
func (c *compilation) value(v *ast.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case ast.Variable:
		return c.variables[v.Raw], nil
	case ast.IntValue:
		return strconv.ParseInt(v.Raw, 10, 64)
	case ast.FloatValue:
		return strconv.ParseFloat(v.Raw, 64)
	case ast.BooleanValue:
		return strconv.ParseBool(v.Raw)
	case ast.NullValue:
		return nil, nil
	case ast.ListValue:
		list := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			item, err := c.value(child.Value)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case ast.ObjectValue:
		obj := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			item, err := c.value(child.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", child.Name, err)
			}
			obj[child.Name] = item
		}
		return obj, nil
	default:
		// String, block string and enum literals.
		return v.Raw, nil
	}
}
