package sqlast

// Dump converts a tree into plain maps and slices for printing. Builder
// functions are reported only by presence.
func Dump(n Node) map[string]any {
	d := &dumper{}
	n.Accept(d)
	return d.out
}

type dumper struct {
	out map[string]any
}

func dumpList(nodes []Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Dump(n))
	}
	return out
}

func dumpColumn(c *Column) map[string]any {
	if c == nil {
		return nil
	}
	m := map[string]any{"fieldName": c.FieldName, "as": c.As, "name": c.Name}
	if c.FromOtherTable != "" {
		m["fromOtherTable"] = c.FromOtherTable
	}
	return m
}

func (d *dumper) relation(kind string, r *Relation) {
	m := map[string]any{
		"type":      kind,
		"fieldName": r.FieldName,
		"as":        r.As,
		"name":      r.Name,
		"grabMany":  r.GrabMany,
		"children":  dumpList(r.Children),
	}
	if len(r.Args) > 0 {
		m["args"] = r.Args
	}
	if len(r.OrderBy) > 0 {
		terms := make([]any, 0, len(r.OrderBy))
		for _, t := range r.OrderBy {
			terms = append(terms, map[string]any{"column": t.Column, "direction": string(t.Direction)})
		}
		m["orderBy"] = terms
	}
	if r.SortKey != nil {
		m["sortKey"] = map[string]any{"order": string(r.SortKey.Order), "key": r.SortKey.Key}
	}
	if r.Paginate {
		m["paginate"] = true
	}
	if r.Where != nil {
		m["where"] = true
	}
	if r.Join != nil {
		m["sqlJoin"] = true
	}
	if r.Batch != nil {
		m["sqlBatch"] = map[string]any{
			"thisKey":   dumpColumn(r.Batch.ThisKey),
			"parentKey": dumpColumn(r.Batch.ParentKey),
		}
	}
	if j := r.Junction; j != nil {
		jm := map[string]any{"table": j.Table, "as": j.As}
		if j.Joins != nil {
			jm["sqlJoins"] = true
		}
		if j.Batch != nil {
			jm["batch"] = map[string]any{
				"thisKey":   dumpColumn(j.Batch.ThisKey),
				"parentKey": dumpColumn(j.Batch.ParentKey),
			}
		}
		m["junction"] = jm
	}
	d.out = m
}

func (d *dumper) VisitTable(n *Table) { d.relation("table", &n.Relation) }

func (d *dumper) VisitUnion(n *Union) {
	d.relation("union", &n.Relation)
	typed := make(map[string]any, len(n.TypedChildren))
	for _, b := range n.TypedChildren {
		typed[b.TypeName] = dumpList(b.Children)
	}
	d.out["typedChildren"] = typed
}

func (d *dumper) VisitColumn(n *Column) {
	d.out = dumpColumn(n)
	d.out["type"] = "column"
}

func (d *dumper) VisitComposite(n *Composite) {
	d.out = map[string]any{"type": "composite", "fieldName": n.FieldName, "as": n.As, "name": n.Names}
	if n.FromOtherTable != "" {
		d.out["fromOtherTable"] = n.FromOtherTable
	}
}

func (d *dumper) VisitExpression(n *Expression) {
	d.out = map[string]any{"type": "expression", "fieldName": n.FieldName, "as": n.As}
}

func (d *dumper) VisitColumnDeps(n *ColumnDeps) {
	names := make(map[string]any, len(n.Deps))
	for _, dep := range n.Deps {
		names[dep.Name] = map[string]any{"column": dep.Column, "as": dep.As}
	}
	d.out = map[string]any{"type": "columnDeps", "names": names}
}

func (d *dumper) VisitNoop(*Noop) {
	d.out = map[string]any{"type": "noop"}
}
