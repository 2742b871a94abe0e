// Package shape compiles the object shape of a planned SQL AST: the mapping
// from output field names to the column aliases, or nested shapes, a row
// materializer reads to rebuild the nested GraphQL result from flat rows.
//
// Aliases of nested relations are prefixed with the aliases of every
// enclosing non-root relation joined by "__", the flat column naming a SQL
// renderer emits for joined tables. Fields planned for one concrete type of
// a union carry an "@Type" suffix. A relation resolved by batch loading maps
// to the alias of its parent-side key; the materializer attaches the nested
// value after the secondary fetch.
package shape

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/sqlast"
)

// Separator joins the alias of a nested relation to the aliases inside it.
const Separator = "__"

// Shape describes one object of the result.
type Shape struct {
	// Fields is ordered by first appearance in the tree.
	Fields []Entry
	// Many marks a list: the shape describes one element, and rows are
	// grouped by the relation's unique key.
	Many bool
}

// Entry maps an output field to a column alias or a nested shape. Exactly
// one of Alias and Sub is set.
type Entry struct {
	Key   string
	Alias string
	Sub   *Shape
}

// Lookup returns the entry for key.
func (s *Shape) Lookup(key string) (Entry, bool) {
	for _, e := range s.Fields {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Define compiles the shape of root, which must be a Table or Union.
func Define(root sqlast.Node) (*Shape, error) {
	if root == nil {
		return nil, joinplan.NewSchemaMappingError("", "", "nil shape root", joinplan.ErrRootNotTable)
	}
	if _, ok := sqlast.AsRelation(root); !ok {
		return nil, joinplan.NewSchemaMappingError("", root.Head().FieldName, "shape root", joinplan.ErrRootNotTable)
	}
	return define(root, ""), nil
}

// define builds the shape of a relation whose own aliases are read with prefix.
func define(n sqlast.Node, prefix string) *Shape {
	b := &builder{index: make(map[string]int)}
	switch n := n.(type) {
	case *sqlast.Table:
		b.shape.Many = n.GrabMany
		b.add(n.Children, prefix, "")
	case *sqlast.Union:
		b.shape.Many = n.GrabMany
		b.add(n.Children, prefix, "")
		for _, bucket := range n.TypedChildren {
			b.add(bucket.Children, prefix, "@"+bucket.TypeName)
		}
	}
	return &b.shape
}

type builder struct {
	shape Shape
	index map[string]int
}

// set records an entry. A repeated key keeps its position and takes the
// later value.
func (b *builder) set(e Entry) {
	if i, ok := b.index[e.Key]; ok {
		b.shape.Fields[i] = e
		return
	}
	b.index[e.Key] = len(b.shape.Fields)
	b.shape.Fields = append(b.shape.Fields, e)
}

func (b *builder) add(children []sqlast.Node, prefix, suffix string) {
	v := &childVisitor{b: b, prefix: prefix, suffix: suffix}
	for _, child := range children {
		child.Accept(v)
	}
}

// childVisitor adds the entries of one child to the enclosing shape.
type childVisitor struct {
	b      *builder
	prefix string
	suffix string
}

func (v *childVisitor) scalar(h sqlast.Header) {
	v.b.set(Entry{Key: h.FieldName + v.suffix, Alias: v.prefix + h.As})
}

func (v *childVisitor) relation(n sqlast.Node, r *sqlast.Relation) {
	if key, ok := r.BatchParentKey(); ok {
		v.b.set(Entry{Key: key.FieldName + v.suffix, Alias: v.prefix + key.As})
		return
	}
	v.b.set(Entry{Key: r.FieldName + v.suffix, Sub: define(n, v.prefix+r.As+Separator)})
}

func (v *childVisitor) VisitTable(n *sqlast.Table)           { v.relation(n, &n.Relation) }
func (v *childVisitor) VisitUnion(n *sqlast.Union)           { v.relation(n, &n.Relation) }
func (v *childVisitor) VisitColumn(n *sqlast.Column)         { v.scalar(n.Header) }
func (v *childVisitor) VisitComposite(n *sqlast.Composite)   { v.scalar(n.Header) }
func (v *childVisitor) VisitExpression(n *sqlast.Expression) { v.scalar(n.Header) }
func (v *childVisitor) VisitNoop(*sqlast.Noop)               {}

func (v *childVisitor) VisitColumnDeps(n *sqlast.ColumnDeps) {
	for _, d := range n.Deps {
		v.b.set(Entry{Key: d.Name + v.suffix, Alias: v.prefix + d.As})
	}
}

// MarshalJSON encodes the shape as an object with keys in field order,
// wrapped in a one-element array when Many is set.
func (s *Shape) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Shape) writeJSON(buf *bytes.Buffer) error {
	if s.Many {
		buf.WriteByte('[')
	}
	buf.WriteByte('{')
	for i, e := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if e.Sub != nil {
			if err := e.Sub.writeJSON(buf); err != nil {
				return err
			}
			continue
		}
		alias, err := json.Marshal(e.Alias)
		if err != nil {
			return err
		}
		buf.Write(alias)
	}
	buf.WriteByte('}')
	if s.Many {
		buf.WriteByte(']')
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder with the structure of
// MarshalJSON.
func (s *Shape) EncodeMsgpack(enc *msgpack.Encoder) error {
	if s.Many {
		if err := enc.EncodeArrayLen(1); err != nil {
			return err
		}
	}
	if err := enc.EncodeMapLen(len(s.Fields)); err != nil {
		return err
	}
	for _, e := range s.Fields {
		if err := enc.EncodeString(e.Key); err != nil {
			return err
		}
		if e.Sub != nil {
			if err := e.Sub.EncodeMsgpack(enc); err != nil {
				return err
			}
			continue
		}
		if err := enc.EncodeString(e.Alias); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ json.Marshaler        = (*Shape)(nil)
	_ msgpack.CustomEncoder = (*Shape)(nil)
)
