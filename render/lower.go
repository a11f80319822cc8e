// Copyright 2024 The ClickGraph Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package render

import (
	"fmt"
	"sort"

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// Lower walks the analyzed, optimized plan tree and produces the render
// fragment spec §4.8 describes. ctx must be the Context the analyzer/
// optimizer passes finished with (alias bindings resolved to a single
// label/type), since Lower does not itself do schema inference.
func Lower(n plan.Node, ctx *plan.Context, cat *catalog.Catalog) (Fragment, error) {
	r := &resolver{ctx: ctx, cat: cat}
	// A WITH boundary's wildcard-forwarded variables ("WITH a, ...") are
	// referenced by every clause after it, including the outermost RETURN
	// list, which renders before lowerBody ever reaches the With node that
	// introduces them. Mark them up front so every resolveProperty call
	// sees the same flattened CTE-column convention (see expandWildcard).
	markForwardedAliases(n, r)
	return lowerTop(n, r)
}

func markForwardedAliases(n plan.Node, r *resolver) {
	if n == nil {
		return
	}
	if w, ok := n.(*plan.With); ok {
		for _, p := range w.Projections {
			if p.Wildcard {
				r.markCTEAlias(p.Var)
			}
		}
	}
	for _, c := range n.Children() {
		markForwardedAliases(c, r)
	}
}

func lowerTop(n plan.Node, r *resolver) (Fragment, error) {
	switch v := n.(type) {
	case *plan.Union:
		left, err := lowerTop(v.Left, r)
		if err != nil {
			return nil, err
		}
		right, err := lowerTop(v.Right, r)
		if err != nil {
			return nil, err
		}
		branches := append(asBranches(left), asBranches(right)...)
		alignUnionBranches(branches)
		return &UnionFragment{Branches: branches}, nil
	case *plan.Empty:
		return &SelectFragment{empty: true}, nil
	case *plan.Project:
		frag, err := lowerProject(v, r)
		if err != nil {
			return nil, err
		}
		if frag.From.Table == "" && len(frag.CTEs) == 0 {
			return &ScalarFragment{Columns: frag.Columns}, nil
		}
		return frag, nil
	default:
		return nil, cgqerrors.Internal("render: plan root must be Project/Union/Empty, got %T", n)
	}
}

func asBranches(f Fragment) []*SelectFragment {
	switch v := f.(type) {
	case *SelectFragment:
		return []*SelectFragment{v}
	case *UnionFragment:
		return v.Branches
	default:
		return nil
	}
}

func lowerProject(v *plan.Project, r *resolver) (*SelectFragment, error) {
	frag := &SelectFragment{Distinct: v.Distinct}
	cols, err := renderProjections(v.Projections, r)
	if err != nil {
		return nil, err
	}
	frag.Columns = cols
	if err := lowerBody(v.Child, r, frag); err != nil {
		return nil, err
	}
	return frag, nil
}

// lowerBody walks down a query's clause chain beneath its top-level
// Project/With, accumulating FROM/JOIN/WHERE/GROUP BY/HAVING/ORDER BY/
// LIMIT/SKIP onto frag as it descends, bottom-up: a Join's own JoinFragment
// is appended to frag.Joins only after its Child has been lowered (so FROM
// and earlier joins land first, matching the order the analyzer built them
// in).
func lowerBody(n plan.Node, r *resolver, frag *SelectFragment) error {
	switch v := n.(type) {
	case *plan.TableScan:
		table, err := scanTable(v.Entity, v.IsRel, r.cat)
		if err != nil {
			return err
		}
		frag.From = TableRef{Table: table, Alias: v.Entity.Alias}
		return nil
	case *plan.Join:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		jf, err := lowerJoin(v.Joined, v.Condition, v.Kind, r)
		if err != nil {
			return err
		}
		frag.Joins = append(frag.Joins, jf)
		return nil
	case *plan.ChainedJoin:
		if err := lowerBody(v.Base, r, frag); err != nil {
			return err
		}
		for _, j := range v.Children_ {
			jf, err := lowerJoin(j.Joined, j.Condition, j.Kind, r)
			if err != nil {
				return err
			}
			frag.Joins = append(frag.Joins, jf)
		}
		return nil
	case *plan.GraphRel:
		// Left untouched by InferGraphJoins: a variable-length or
		// shortestPath pattern that lowers straight to a recursive CTE
		// (spec §4.5.4, §4.8).
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		if err := lowerVariableLengthRel(v, r, frag); err != nil {
			return err
		}
		// Conjuncts PushDownFilters relocated onto this GraphRel.
		pred, err := renderExpr(v.WherePredicate, r)
		if err != nil {
			return err
		}
		if pred != "" {
			frag.Where = append(frag.Where, pred)
		}
		return nil
	case *plan.Filter:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		pred, err := renderExpr(v.Predicate, r)
		if err != nil {
			return err
		}
		if pred != "" {
			frag.Where = append(frag.Where, pred)
		}
		return nil
	case *plan.GroupBy:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		for _, k := range v.Keys {
			rendered, err := renderExpr(k, r)
			if err != nil {
				return err
			}
			frag.GroupBy = append(frag.GroupBy, rendered)
		}
		return nil
	case *plan.Having:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		rendered, err := renderExpr(v.Predicate, r)
		if err != nil {
			return err
		}
		frag.Having = rendered
		return nil
	case *plan.OrderBy:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		for _, t := range v.Keys {
			rendered, err := renderExpr(t.Expr, r)
			if err != nil {
				return err
			}
			if t.Descending {
				rendered += " DESC"
			}
			frag.OrderBy = append(frag.OrderBy, rendered)
		}
		return nil
	case *plan.Skip:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		rendered, err := renderExpr(v.N, r)
		if err != nil {
			return err
		}
		frag.Skip = rendered
		return nil
	case *plan.Limit:
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		rendered, err := renderExpr(v.N, r)
		if err != nil {
			return err
		}
		frag.Limit = rendered
		return nil
	case *plan.Unwind:
		// ARRAY JOIN is the dialect's native unrolling construct; modelled
		// as an unconditional join against an exploded source, same shape
		// as any other JoinFragment (spec §3.3 "Unwind unrolls a list-typed
		// expression into rows").
		if err := lowerBody(v.Child, r, frag); err != nil {
			return err
		}
		src, err := renderExpr(v.Source, r)
		if err != nil {
			return err
		}
		frag.Joins = append(frag.Joins, JoinFragment{Kind: "ARRAY", Table: src, Alias: v.OutAlias})
		return nil
	case *plan.With:
		return lowerWith(v, r, frag)
	case *plan.Empty:
		frag.empty = true
		return nil
	default:
		return cgqerrors.Internal("render: unexpected node %T in query body", n)
	}
}

// lowerWith renders v.Child as its own nested Select, wraps it in a CTE, and
// terminates the outer recursion by pointing frag.From at that CTE (spec
// §4.8 "With becomes a CTE whose body is the rendered child"). Lower
// pre-marks every alias this With forwards by wildcard as CTE-bound (so
// references above the With resolve against the CTE's flattened columns);
// while building the CTE's own body below, those same aliases must still
// resolve against their real backing table, so lowerWith un-marks them for
// the duration of that one computation.
func lowerWith(v *plan.With, r *resolver, frag *SelectFragment) error {
	forwarded := make([]string, 0, len(v.Projections))
	for _, p := range v.Projections {
		if p.Wildcard {
			forwarded = append(forwarded, p.Var)
			delete(r.cteAliases, p.Var)
		}
	}
	inner := &SelectFragment{}
	for _, p := range v.Projections {
		cols, err := renderProjections([]ast.Projection{p}, r)
		if err != nil {
			return err
		}
		// A forwarded node/relationship's columns are named "alias_prop",
		// the names resolveProperty reads them back by above this With.
		if b, ok := r.ctx.Aliases[p.Var]; ok && p.Wildcard && (b.EntityKind == plan.KindNode || b.EntityKind == plan.KindRelationship) {
			for i := range cols {
				cols[i].Alias = p.Var + "_" + cols[i].Alias
			}
		}
		inner.Columns = append(inner.Columns, cols...)
	}
	if err := lowerBody(v.Child, r, inner); err != nil {
		return err
	}
	for _, alias := range forwarded {
		r.markCTEAlias(alias)
	}
	if v.PostFilter != nil {
		rendered, err := renderExpr(v.PostFilter, r)
		if err != nil {
			return err
		}
		if v.PostFilterIsHaving {
			inner.Having = rendered
		} else {
			frag.Where = append(frag.Where, rendered)
		}
	}

	name := r.ctx.Names.Fresh("with")
	frag.CTEs = append(frag.CTEs, inner.CTEs...)
	inner.CTEs = nil
	frag.CTEs = append(frag.CTEs, CTE{Name: name, Select: inner})
	if frag.From.Table == "" {
		frag.From = TableRef{Table: name, Alias: name}
	} else {
		frag.Joins = append(frag.Joins, JoinFragment{Kind: "INNER", Table: name, Alias: name})
	}
	return nil
}

func lowerJoin(ref plan.JoinRef, cond ast.Expression, kind plan.JoinKind, r *resolver) (JoinFragment, error) {
	table, err := joinTable(ref, r.cat)
	if err != nil {
		return JoinFragment{}, err
	}
	on, err := renderExpr(cond, r)
	if err != nil {
		return JoinFragment{}, err
	}
	k := "INNER"
	if kind == plan.Left {
		k = "LEFT"
	}
	return JoinFragment{Kind: k, Table: table, Alias: ref.Alias, On: on}, nil
}

func scanTable(e plan.Entity, isRel bool, cat *catalog.Catalog) (string, error) {
	if len(e.Labels) != 1 {
		return "", cgqerrors.Internal("render: scan alias %q has %d candidate labels, expected exactly 1 after analysis", e.Alias, len(e.Labels))
	}
	return labelTable(e.Labels[0], isRel, cat)
}

func joinTable(ref plan.JoinRef, cat *catalog.Catalog) (string, error) {
	if len(ref.Labels) != 1 {
		return "", cgqerrors.Internal("render: joined alias %q has %d candidate labels/types, expected exactly 1 after analysis", ref.Alias, len(ref.Labels))
	}
	return labelTable(ref.Labels[0], ref.IsRel, cat)
}

func labelTable(label string, isRel bool, cat *catalog.Catalog) (string, error) {
	if isRel {
		rel, err := cat.Relationship(label)
		if err != nil {
			return "", err
		}
		return qualifiedTable(rel.Database, rel.Table), nil
	}
	node, err := cat.Node(label)
	if err != nil {
		return "", err
	}
	return qualifiedTable(node.Database, node.Table), nil
}

func qualifiedTable(db, table string) string {
	if db == "" {
		return table
	}
	return fmt.Sprintf("%s.%s", db, table)
}

// renderProjections renders a WITH/RETURN projection list. A wildcard
// projection ("RETURN n") expands to every property the resolved label
// declares (spec §4.3, §4.7 "wildcards ... set required_props = all").
func renderProjections(projs []ast.Projection, r *resolver) ([]Column, error) {
	var out []Column
	for _, p := range projs {
		if p.Wildcard {
			cols, err := expandWildcard(p.Var, r)
			if err != nil {
				return nil, err
			}
			out = append(out, cols...)
			continue
		}
		expr, err := renderExpr(p.Expr, r)
		if err != nil {
			return nil, err
		}
		alias := p.Alias
		if alias == "" {
			if pa, ok := p.Expr.(*ast.PropertyAccess); ok {
				alias = pa.Prop
			} else if vr, ok := p.Expr.(*ast.VarRef); ok {
				alias = vr.Name
			}
		}
		out = append(out, Column{Expr: expr, Alias: alias})
	}
	return out, nil
}

func expandWildcard(alias string, r *resolver) ([]Column, error) {
	binding, ok := r.ctx.Aliases[alias]
	if !ok {
		return nil, cgqerrors.Internal("render: wildcard alias %q has no binding", alias)
	}
	var props map[string]catalog.PropertyValue
	switch binding.EntityKind {
	case plan.KindNode:
		n, err := r.cat.Node(binding.LabelOrType)
		if err != nil {
			return nil, err
		}
		props = n.Properties
	case plan.KindRelationship:
		rel, err := r.cat.Relationship(binding.LabelOrType)
		if err != nil {
			return nil, err
		}
		props = rel.Properties
	default:
		return []Column{{Expr: quoteIdent(alias), Alias: alias}}, nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Column, 0, len(names))
	for _, name := range names {
		expr, err := renderExpr(&ast.PropertyAccess{Var: alias, Prop: name}, r)
		if err != nil {
			return nil, err
		}
		colAlias := name
		if r.cteAliases[alias] {
			colAlias = alias + "_" + name
		}
		out = append(out, Column{Expr: expr, Alias: colAlias})
	}
	return out, nil
}
