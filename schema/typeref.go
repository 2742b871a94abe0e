package schema

import "github.com/vektah/gqlparser/v2/ast"

// TypeRef is the declared type of a field: a named type optionally wrapped
// in List and NonNull. The set of implementations is closed.
type TypeRef interface {
	String() string
	typeRef()
}

// Named references a type by name.
type Named struct {
	Name string
}

// List wraps an element type.
type List struct {
	Of TypeRef
}

// NonNull wraps a nullable type.
type NonNull struct {
	Of TypeRef
}

func (Named) typeRef()   {}
func (List) typeRef()    {}
func (NonNull) typeRef() {}

func (t Named) String() string   { return t.Name }
func (t List) String() string    { return "[" + t.Of.String() + "]" }
func (t NonNull) String() string { return t.Of.String() + "!" }

// RefFromAST converts a gqlparser type reference.
func RefFromAST(t *ast.Type) TypeRef {
	if t == nil {
		return nil
	}
	var ref TypeRef
	if t.Elem != nil {
		ref = List{Of: RefFromAST(t.Elem)}
	} else {
		ref = Named{Name: t.NamedType}
	}
	if t.NonNull {
		ref = NonNull{Of: ref}
	}
	return ref
}

// StripNonNull removes one NonNull wrapper, if present.
func StripNonNull(t TypeRef) TypeRef {
	if nn, ok := t.(NonNull); ok {
		return nn.Of
	}
	return t
}

// NamedType returns the name of the innermost named type.
func NamedType(t TypeRef) string {
	for {
		switch v := t.(type) {
		case Named:
			return v.Name
		case List:
			t = v.Of
		case NonNull:
			t = v.Of
		default:
			return ""
		}
	}
}
