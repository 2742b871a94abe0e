package planner

import (
	"log/slog"

	"github.com/syssam/joinplan/alias"
	"github.com/syssam/joinplan/sqlast"
)

// Prune merges the ColumnDeps children of every scope into one, recursively.
// A scope is the children of a Table or Union and each typed bucket of a
// Union. Every scope ends with exactly one ColumnDeps, empty or not, whose
// dependencies are aliased from ns. When two declarations map the same
// internal name to different columns, the first declared wins.
//
// The input tree is not modified.
func Prune(n sqlast.Node, ns *alias.Namespace, log *slog.Logger) sqlast.Node {
	p := &pruner{ns: ns, log: log}
	n.Accept(p)
	return p.out
}

type pruner struct {
	ns  *alias.Namespace
	log *slog.Logger
	out sqlast.Node
}

func (p *pruner) VisitTable(n *sqlast.Table) {
	t := *n
	t.Children = p.scope(n.Name, n.Children)
	p.out = &t
}

func (p *pruner) VisitUnion(n *sqlast.Union) {
	u := *n
	u.Children = p.scope(n.Name, n.Children)
	u.TypedChildren = make([]sqlast.Bucket, len(n.TypedChildren))
	for i, b := range n.TypedChildren {
		u.TypedChildren[i] = sqlast.Bucket{TypeName: b.TypeName, Children: p.scope(n.Name+"@"+b.TypeName, b.Children)}
	}
	p.out = &u
}

func (p *pruner) VisitColumn(n *sqlast.Column)         { p.out = n }
func (p *pruner) VisitComposite(n *sqlast.Composite)   { p.out = n }
func (p *pruner) VisitExpression(n *sqlast.Expression) { p.out = n }
func (p *pruner) VisitColumnDeps(n *sqlast.ColumnDeps) { p.out = n }
func (p *pruner) VisitNoop(n *sqlast.Noop)             { p.out = n }

func (p *pruner) scope(name string, children []sqlast.Node) []sqlast.Node {
	out := make([]sqlast.Node, 0, len(children)+1)
	var (
		deps []sqlast.Dep
		seen = make(map[string]int)
	)
	for _, child := range children {
		cd, ok := child.(*sqlast.ColumnDeps)
		if !ok {
			if _, rel := sqlast.AsRelation(child); rel {
				child = Prune(child, p.ns, p.log)
			}
			out = append(out, child)
			continue
		}
		for _, d := range cd.Deps {
			i, dup := seen[d.Name]
			if !dup {
				seen[d.Name] = len(deps)
				deps = append(deps, sqlast.Dep{Name: d.Name, Column: d.Column})
				continue
			}
			if deps[i].Column != d.Column {
				p.log.Warn("conflicting column dependency",
					"scope", name,
					"name", d.Name,
					"kept", deps[i].Column,
					"dropped", d.Column,
				)
			}
		}
	}
	for i := range deps {
		deps[i].As = p.ns.Generate(alias.Column, deps[i].Name)
	}
	return append(out, &sqlast.ColumnDeps{Deps: deps})
}
