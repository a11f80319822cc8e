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

package analyzer

import (
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/plan"
)

// SplitConjuncts rewrites every plan.Filter in n whose predicate is a
// top-level conjunction into a chain of single-conjunct Filters (spec
// §4.4.2: "split AND-conjunctions into their conjuncts; each conjunct is
// retained with a set of aliases it constrains"). Downstream passes
// (graph-join inference's schema-filter injection, the optimizer's
// pushdown) work at per-conjunct granularity, which this pass sets up by
// restructuring the tree rather than by attaching side-tables keyed on node
// identity.
func SplitConjuncts(n plan.Node) plan.Node {
	switch v := n.(type) {
	case *plan.Filter:
		child := SplitConjuncts(v.Child)
		conjuncts := conjunctsOf(v.Predicate)
		out := child
		for _, c := range conjuncts {
			out = &plan.Filter{Child: out, Predicate: c}
		}
		return out
	case *plan.GraphRel:
		v2 := *v
		v2.Child = SplitConjuncts(v.Child)
		return &v2
	case *plan.Join:
		v2 := *v
		v2.Child = SplitConjuncts(v.Child)
		return &v2
	case *plan.Project:
		return &plan.Project{Child: SplitConjuncts(v.Child), Projections: v.Projections, Distinct: v.Distinct}
	case *plan.With:
		v2 := *v
		v2.Child = SplitConjuncts(v.Child)
		return &v2
	case *plan.GroupBy:
		v2 := *v
		v2.Child = SplitConjuncts(v.Child)
		return &v2
	case *plan.Having:
		return &plan.Having{Child: SplitConjuncts(v.Child), Predicate: v.Predicate}
	case *plan.OrderBy:
		v2 := *v
		v2.Child = SplitConjuncts(v.Child)
		return &v2
	case *plan.Skip:
		return &plan.Skip{Child: SplitConjuncts(v.Child), N: v.N}
	case *plan.Limit:
		return &plan.Limit{Child: SplitConjuncts(v.Child), N: v.N}
	case *plan.Unwind:
		v2 := *v
		v2.Child = SplitConjuncts(v.Child)
		return &v2
	case *plan.Union:
		return &plan.Union{Left: SplitConjuncts(v.Left), Right: SplitConjuncts(v.Right)}
	default:
		return n
	}
}

func conjunctsOf(e ast.Expression) []ast.Expression {
	if b, ok := e.(*ast.BinaryOp); ok && b.Op == "AND" {
		return append(conjunctsOf(b.Left), conjunctsOf(b.Right)...)
	}
	return []ast.Expression{e}
}

// AliasesOf returns the set of aliases a predicate references, used by the
// optimizer's filter-pushdown pass (spec §4.6.1) to decide whether a
// conjunct can be relocated onto a GraphRel's WherePredicate.
func AliasesOf(e ast.Expression) map[string]bool {
	out := map[string]bool{}
	collectAliases(e, out)
	return out
}

func collectAliases(e ast.Expression, out map[string]bool) {
	switch v := e.(type) {
	case nil:
	case *ast.PropertyAccess:
		out[v.Var] = true
	case *ast.VarRef:
		out[v.Name] = true
	case *ast.BinaryOp:
		collectAliases(v.Left, out)
		collectAliases(v.Right, out)
	case *ast.UnaryOp:
		collectAliases(v.Operand, out)
	case *ast.IsNull:
		collectAliases(v.Operand, out)
	case *ast.FuncCall:
		for _, a := range v.Args {
			collectAliases(a, out)
		}
	case *ast.ListLiteral:
		for _, it := range v.Items {
			collectAliases(it, out)
		}
	case *ast.CaseExpr:
		collectAliases(v.Operand, out)
		for _, w := range v.Whens {
			collectAliases(w.Cond, out)
			collectAliases(w.Then, out)
		}
		collectAliases(v.Else, out)
	}
}

// isEqualityOn reports whether e is "alias.prop = <literal-or-param>" (in
// either operand order), returning the compared property name. Used by
// anchor selection (spec §4.5.2 tier 1: "an explicit equality filter on an
// identity column").
func isEqualityOn(e ast.Expression, alias string) (prop string, ok bool) {
	b, isBin := e.(*ast.BinaryOp)
	if !isBin || b.Op != "=" {
		return "", false
	}
	if pa, ok := b.Left.(*ast.PropertyAccess); ok && pa.Var == alias && isConstant(b.Right) {
		return pa.Prop, true
	}
	if pa, ok := b.Right.(*ast.PropertyAccess); ok && pa.Var == alias && isConstant(b.Left) {
		return pa.Prop, true
	}
	return "", false
}

func isConstant(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Literal, *ast.ParamRef:
		return true
	default:
		return false
	}
}
