package schema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// DirectiveSource declares the SDL directives that carry static relational
// settings. Load prepends it to the user's sources.
const DirectiveSource = `
directive @sqlTable(name: String!, uniqueKey: [String!]!, alwaysFetch: [String!], typeHint: String) on OBJECT | INTERFACE | UNION
directive @sqlColumn(name: String!) on FIELD_DEFINITION
directive @sqlDeps(names: [String!]!) on FIELD_DEFINITION
directive @sqlBatch(thisKey: String!, parentKey: String!) on FIELD_DEFINITION
directive @sqlPaginate on FIELD_DEFINITION
directive @sortKey(order: String!, key: [String!]!) on FIELD_DEFINITION
directive @orderBy(column: String!, direction: String) on FIELD_DEFINITION
directive @jmIgnoreAll on FIELD_DEFINITION
directive @jmIgnoreTable on FIELD_DEFINITION
directive @resolver on FIELD_DEFINITION
`

// Directive names.
const (
	DirectiveTable       = "sqlTable"
	DirectiveColumn      = "sqlColumn"
	DirectiveDeps        = "sqlDeps"
	DirectiveBatch       = "sqlBatch"
	DirectivePaginate    = "sqlPaginate"
	DirectiveSortKey     = "sortKey"
	DirectiveOrderBy     = "orderBy"
	DirectiveIgnoreAll   = "jmIgnoreAll"
	DirectiveIgnoreTable = "jmIgnoreTable"
	DirectiveResolver    = "resolver"
)

func typeDirectives(def *ast.Definition) (TypeAnnotation, error) {
	var a TypeAnnotation
	d := def.Directives.ForName(DirectiveTable)
	if d == nil {
		return a, nil
	}
	var err error
	if a.Table, err = argString(d, "name"); err != nil {
		return a, directiveError(def.Name, "", d, err)
	}
	if a.UniqueKey, err = argStrings(d, "uniqueKey"); err != nil {
		return a, directiveError(def.Name, "", d, err)
	}
	if a.AlwaysFetch, err = argStrings(d, "alwaysFetch"); err != nil {
		return a, directiveError(def.Name, "", d, err)
	}
	if a.TypeHint, err = argString(d, "typeHint"); err != nil {
		return a, directiveError(def.Name, "", d, err)
	}
	return a, nil
}

func fieldDirectives(typeName string, fd *ast.FieldDefinition) (FieldAnnotation, error) {
	var (
		a   FieldAnnotation
		err error
	)
	for _, d := range fd.Directives {
		switch d.Name {
		case DirectiveColumn:
			a.Column, err = argString(d, "name")
		case DirectiveDeps:
			var names []string
			if names, err = argStrings(d, "names"); err == nil {
				a.Deps = make(map[string]string, len(names))
				for _, n := range names {
					a.Deps[n] = n
				}
			}
		case DirectiveBatch:
			b := &Batch{}
			if b.ThisKey, err = argString(d, "thisKey"); err == nil {
				b.ParentKey, err = argString(d, "parentKey")
			}
			a.Batch = b
		case DirectivePaginate:
			a.Paginate = true
		case DirectiveSortKey:
			k := &SortKey{}
			var order string
			if order, err = argString(d, "order"); err == nil {
				k.Order = Direction(strings.ToUpper(order))
				k.Key, err = argStrings(d, "key")
			}
			a.SortKey = k
		case DirectiveOrderBy:
			term := OrderTerm{Direction: Asc}
			var dir string
			if term.Column, err = argString(d, "column"); err == nil {
				dir, err = argString(d, "direction")
				if dir != "" {
					term.Direction = Direction(strings.ToUpper(dir))
				}
			}
			a.OrderBy = []OrderTerm{term}
		case DirectiveIgnoreAll:
			a.IgnoreAll = true
		case DirectiveIgnoreTable:
			a.IgnoreTable = true
		case DirectiveResolver:
			a.Resolver = true
		}
		if err != nil {
			return a, directiveError(typeName, fd.Name, d, err)
		}
	}
	return a, nil
}

func directiveError(typeName, fieldName string, d *ast.Directive, err error) error {
	if fieldName != "" {
		return fmt.Errorf("directive @%s on %s.%s: %w", d.Name, typeName, fieldName, err)
	}
	return fmt.Errorf("directive @%s on %s: %w", d.Name, typeName, err)
}

func argValue(d *ast.Directive, name string) (any, error) {
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return nil, nil
	}
	return arg.Value.Value(nil)
}

func argString(d *ast.Directive, name string) (string, error) {
	v, err := argValue(d, name)
	if err != nil || v == nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	return s, nil
}

// argStrings accepts a list of strings or a single string, following input
// list coercion.
func argStrings(d *ast.Directive, name string) ([]string, error) {
	v, err := argValue(d, name)
	if err != nil || v == nil {
		return nil, err
	}
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("argument %q must hold strings, got %T", name, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %q must be a list of strings, got %T", name, v)
	}
}
