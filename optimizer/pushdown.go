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

package optimizer

import (
	"github.com/genezhang/clickgraph/analyzer"
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/plan"
)

// PushDownFilters relocates a Filter whose predicate references exactly one
// alias onto the GraphRel or Join that introduces that alias, removing the
// standalone Filter (spec §4.6.1). A predicate touching more than one alias
// is never a subset of a single GraphRel's introduced aliases, so it is left
// where the analyzer put it.
func PushDownFilters(n plan.Node) plan.Node {
	switch v := n.(type) {
	case *plan.Filter:
		child := PushDownFilters(v.Child)
		aliases := analyzer.AliasesOf(v.Predicate)
		if len(aliases) == 1 {
			var alias string
			for a := range aliases {
				alias = a
			}
			if pushed, ok := pushOnto(child, alias, v.Predicate); ok {
				return pushed
			}
		}
		return &plan.Filter{Child: child, Predicate: v.Predicate}
	case *plan.GraphRel:
		v2 := *v
		v2.Child = PushDownFilters(v.Child)
		return &v2
	case *plan.Join:
		v2 := *v
		v2.Child = PushDownFilters(v.Child)
		return &v2
	case *plan.ChainedJoin:
		v2 := *v
		v2.Base = PushDownFilters(v.Base)
		return &v2
	case *plan.Project:
		return &plan.Project{Child: PushDownFilters(v.Child), Projections: v.Projections, Distinct: v.Distinct}
	case *plan.With:
		v2 := *v
		v2.Child = PushDownFilters(v.Child)
		return &v2
	case *plan.GroupBy:
		v2 := *v
		v2.Child = PushDownFilters(v.Child)
		return &v2
	case *plan.Having:
		return &plan.Having{Child: PushDownFilters(v.Child), Predicate: v.Predicate}
	case *plan.OrderBy:
		v2 := *v
		v2.Child = PushDownFilters(v.Child)
		return &v2
	case *plan.Skip:
		return &plan.Skip{Child: PushDownFilters(v.Child), N: v.N}
	case *plan.Limit:
		return &plan.Limit{Child: PushDownFilters(v.Child), N: v.N}
	case *plan.Unwind:
		v2 := *v
		v2.Child = PushDownFilters(v.Child)
		return &v2
	case *plan.Union:
		return &plan.Union{Left: PushDownFilters(v.Left), Right: PushDownFilters(v.Right)}
	default:
		return n
	}
}

// pushOnto searches n for the GraphRel or Join that introduces alias and ANDs
// pred into its where_predicate/condition. A GraphRel also takes a predicate
// on its left alias when the scan beneath it introduces that alias. It
// reports ok=false (leaving n untouched by the caller) if no such node is
// found, e.g. alias is introduced further up the tree than n, or n is a
// TableScan leaf.
func pushOnto(n plan.Node, alias string, pred ast.Expression) (plan.Node, bool) {
	switch v := n.(type) {
	case *plan.GraphRel:
		if v.RightAlias == alias {
			v2 := *v
			v2.WherePredicate = andExpr(v2.WherePredicate, pred)
			return &v2, true
		}
		child, ok := pushOnto(v.Child, alias, pred)
		if !ok {
			if v.LeftAlias != alias {
				return n, false
			}
			v2 := *v
			v2.WherePredicate = andExpr(v2.WherePredicate, pred)
			return &v2, true
		}
		v2 := *v
		v2.Child = child
		return &v2, true
	case *plan.Join:
		if v.Joined.Alias == alias {
			v2 := *v
			v2.Condition = andExpr(v2.Condition, pred)
			return &v2, true
		}
		child, ok := pushOnto(v.Child, alias, pred)
		if !ok {
			return n, false
		}
		v2 := *v
		v2.Child = child
		return &v2, true
	case *plan.ChainedJoin:
		for i, j := range v.Children_ {
			if j.Joined.Alias == alias {
				v2 := *v
				children := append([]*plan.Join(nil), v.Children_...)
				j2 := *j
				j2.Condition = andExpr(j2.Condition, pred)
				children[i] = &j2
				v2.Children_ = children
				return &v2, true
			}
		}
		base, ok := pushOnto(v.Base, alias, pred)
		if !ok {
			return n, false
		}
		v2 := *v
		v2.Base = base
		return &v2, true
	case *plan.Filter:
		child, ok := pushOnto(v.Child, alias, pred)
		if !ok {
			return n, false
		}
		return &plan.Filter{Child: child, Predicate: v.Predicate}, true
	default:
		return n, false
	}
}

func andExpr(a, b ast.Expression) ast.Expression {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &ast.BinaryOp{Op: "AND", Left: a, Right: b}
}
