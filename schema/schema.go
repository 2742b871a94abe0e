package schema

import (
	"fmt"
	"slices"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Kind is the kind of a named type.
type Kind int

// Type kinds.
const (
	Scalar Kind = iota
	Object
	Interface
	Union
	Enum
	InputObject
)

var kindNames = [...]string{"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Relay connection field names.
const (
	FieldEdges    = "edges"
	FieldNode     = "node"
	FieldPageInfo = "pageInfo"
)

// Type is a named type of the schema.
type Type struct {
	Name string
	Kind Kind
	// Fields is nil for scalars, enums and unions.
	Fields map[string]*Field
	// Interfaces lists the interfaces an object or interface implements.
	Interfaces []string
	// PossibleTypes lists the concrete types of a union or interface.
	PossibleTypes []string
	SQL           TypeAnnotation
}

// Field is a field of an object or interface type.
type Field struct {
	Name string
	Type TypeRef
	SQL  FieldAnnotation
}

// Field returns the named field.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.Fields[name]
	return f, ok
}

// IsAbstract reports whether the type is a union or an interface.
func (t *Type) IsAbstract() bool {
	return t.Kind == Union || t.Kind == Interface
}

// IsComposite reports whether the type carries a selection set.
func (t *Type) IsComposite() bool {
	return t.Kind == Object || t.IsAbstract()
}

// IsTable reports whether the type maps to a SQL table.
func (t *Type) IsTable() bool {
	return t.IsComposite() && (t.SQL.Table != "" || t.SQL.TableFunc != nil)
}

// Implements reports whether the type declares the named interface.
func (t *Type) Implements(iface string) bool {
	return slices.Contains(t.Interfaces, iface)
}

// IsConnection reports whether the type is shaped like a Relay connection.
func (t *Type) IsConnection() bool {
	if t.Kind != Object {
		return false
	}
	_, edges := t.Fields[FieldEdges]
	_, pageInfo := t.Fields[FieldPageInfo]
	return edges && pageInfo
}

// Schema is a type system with relational metadata.
type Schema struct {
	types map[string]*Type
	query string
}

// New builds a schema from already constructed types. query names the root
// query type and may be empty.
func New(query string, types ...*Type) *Schema {
	s := &Schema{types: make(map[string]*Type, len(types)), query: query}
	for _, t := range types {
		s.types[t.Name] = t
	}
	return s
}

// Type returns the named type.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Query returns the root query type, if any.
func (s *Schema) Query() (*Type, bool) {
	if s.query == "" {
		return nil, false
	}
	return s.Type(s.query)
}

// ConnectionNode returns the node type of a Relay connection: the named type
// of edges.node.
func (s *Schema) ConnectionNode(conn *Type) (*Type, error) {
	edges, ok := conn.Field(FieldEdges)
	if !ok {
		return nil, fmt.Errorf("type %s has no %q field", conn.Name, FieldEdges)
	}
	edge, ok := s.Type(NamedType(edges.Type))
	if !ok {
		return nil, fmt.Errorf("type %s is not declared", NamedType(edges.Type))
	}
	node, ok := edge.Field(FieldNode)
	if !ok {
		return nil, fmt.Errorf("type %s has no %q field", edge.Name, FieldNode)
	}
	t, ok := s.Type(NamedType(node.Type))
	if !ok {
		return nil, fmt.Errorf("type %s is not declared", NamedType(node.Type))
	}
	return t, nil
}

// Load parses SDL sources with gqlparser, prepending DirectiveSource, and
// converts the result. The parsed gqlparser schema is returned as well so
// queries can be validated against it.
func Load(anns Annotations, sources ...*ast.Source) (*Schema, *ast.Schema, error) {
	all := make([]*ast.Source, 0, len(sources)+1)
	all = append(all, &ast.Source{Name: "joinplan_directives.graphql", Input: DirectiveSource, BuiltIn: true})
	all = append(all, sources...)
	src, err := gqlparser.LoadSchema(all...)
	if err != nil {
		return nil, nil, fmt.Errorf("load schema: %w", err)
	}
	s, err := FromAST(src, anns)
	if err != nil {
		return nil, nil, err
	}
	return s, src, nil
}

// FromAST converts a gqlparser schema. Relational settings are read from SDL
// directives first and then overlaid with anns.
func FromAST(src *ast.Schema, anns Annotations) (*Schema, error) {
	s := &Schema{types: make(map[string]*Type, len(src.Types))}
	if src.Query != nil {
		s.query = src.Query.Name
	}
	for name, def := range src.Types {
		t := &Type{
			Name:       name,
			Kind:       kindOf(def.Kind),
			Interfaces: slices.Clone(def.Interfaces),
		}
		if t.IsAbstract() {
			for _, p := range src.GetPossibleTypes(def) {
				t.PossibleTypes = append(t.PossibleTypes, p.Name)
			}
		}
		ta, err := typeDirectives(def)
		if err != nil {
			return nil, err
		}
		ann := anns[name]
		t.SQL = ta.merge(ann)
		t.SQL.Fields = nil

		if def.Kind == ast.Object || def.Kind == ast.Interface {
			t.Fields = make(map[string]*Field, len(def.Fields))
			for _, fd := range def.Fields {
				fa, err := fieldDirectives(name, fd)
				if err != nil {
					return nil, err
				}
				t.Fields[fd.Name] = &Field{
					Name: fd.Name,
					Type: RefFromAST(fd.Type),
					SQL:  fa.merge(ann.Fields[fd.Name]),
				}
			}
		}
		s.types[name] = t
	}
	for name := range anns {
		if _, ok := s.types[name]; !ok {
			return nil, fmt.Errorf("annotated type %s is not declared in schema", name)
		}
	}
	return s, nil
}

func kindOf(k ast.DefinitionKind) Kind {
	switch k {
	case ast.Object:
		return Object
	case ast.Interface:
		return Interface
	case ast.Union:
		return Union
	case ast.Enum:
		return Enum
	case ast.InputObject:
		return InputObject
	default:
		return Scalar
	}
}
