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

// Package analyzer implements the analyzer passes of spec §4.4, run in a
// fixed order by Run (analyzer.go). Each pass is a pure function from
// (plan.Node, *plan.Context) to a replacement (plan.Node, *plan.Context):
// no pass mutates its input in place (spec §9 REDESIGN FLAGS).
package analyzer

import (
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// InferSchema assigns each untyped alias its candidate label/type set
// pruned by the properties the plan actually references for it
// (spec §4.4.1). Aliases that already carry a single fixed label (from an
// explicit MATCH label) pass through unchanged. If pruning empties an
// alias's candidate set, the plan branch that scans it is replaced with
// plan.Empty (spec §3.3 "Empty").
func InferSchema(n plan.Node, ctx *plan.Context, cat *catalog.Catalog) (plan.Node, *plan.Context, error) {
	// A WHERE/HAVING predicate narrows an alias's candidate set just as much
	// as a RETURN/WITH projection does (spec §4.4.1's "properties the plan
	// actually references"), but builder.Build only tracks projection
	// references into ctx.PropsNeeded. Fold in the predicates' own
	// alias.prop references here so a filter like "WHERE n.age > 18" prunes
	// candidates the same way "RETURN n.age" would.
	for alias, props := range collectPredicateProps(n) {
		for prop := range props {
			ctx = ctx.RequireProperty(alias, prop)
		}
	}

	for alias, binding := range ctx.Aliases {
		if binding.EntityKind != plan.KindNode || len(binding.Candidates) <= 1 {
			if len(binding.Candidates) == 1 {
				b := binding
				b.LabelOrType = binding.Candidates[0]
				ctx = ctx.BindAlias(alias, b)
			}
			continue
		}
		required := ctx.RequiredProperties(alias)
		if len(required) == 0 && !ctx.NeedsAllProperties(alias) {
			continue // nothing references this alias's properties; leave candidates open
		}
		var pruned []string
		for _, label := range binding.Candidates {
			ok := true
			for _, prop := range required {
				if !cat.HasProperty(label, prop) {
					ok = false
					break
				}
			}
			if ok {
				pruned = append(pruned, label)
			}
		}
		if len(pruned) > 1 && len(required) > 0 {
			// spec §4.2/§7 AmbiguousProperty: the pattern is untyped and more
			// than one candidate label still declares every property
			// referenced for alias, so none of them can be singled out.
			return nil, nil, cgqerrors.New(cgqerrors.KindAmbiguousProperty,
				cgqerrors.ErrAmbiguousProperty.New(required[0], pruned), nil)
		}
		b := binding
		b.Candidates = pruned
		if len(pruned) == 1 {
			b.LabelOrType = pruned[0]
		}
		ctx = ctx.BindAlias(alias, b)
		if len(pruned) == 0 {
			n = replaceAliasBranchWithEmpty(n, alias)
		}
	}
	return n, ctx, nil
}

// replaceAliasBranchWithEmpty walks n looking for the TableScan/GraphRel
// endpoint that introduces alias and replaces that position with plan.Empty,
// then propagates Empty upward through nodes whose semantics guarantee zero
// rows follow from a zero-row child (spec §4.4.1, §8.3 "UNION ALL ... one
// branch cannot match any label reduces to the other branch").
func replaceAliasBranchWithEmpty(n plan.Node, alias string) plan.Node {
	switch v := n.(type) {
	case *plan.TableScan:
		if v.Entity.Alias == alias {
			return &plan.Empty{}
		}
		return v
	case *plan.GraphRel:
		if v.RightAlias == alias {
			return &plan.Empty{}
		}
		newChild := replaceAliasBranchWithEmpty(v.Child, alias)
		if _, ok := newChild.(*plan.Empty); ok && !v.Optional {
			return &plan.Empty{}
		}
		v2 := *v
		v2.Child = newChild
		return &v2
	case *plan.Filter:
		newChild := replaceAliasBranchWithEmpty(v.Child, alias)
		if _, ok := newChild.(*plan.Empty); ok {
			return &plan.Empty{}
		}
		return &plan.Filter{Child: newChild, Predicate: v.Predicate}
	case *plan.Join:
		newChild := replaceAliasBranchWithEmpty(v.Child, alias)
		if _, ok := newChild.(*plan.Empty); ok && v.Kind == plan.Inner {
			return &plan.Empty{}
		}
		v2 := *v
		v2.Child = newChild
		return &v2
	case *plan.Project:
		newChild := replaceAliasBranchWithEmpty(v.Child, alias)
		return &plan.Project{Child: newChild, Projections: v.Projections, Distinct: v.Distinct}
	case *plan.With:
		newChild := replaceAliasBranchWithEmpty(v.Child, alias)
		v2 := *v
		v2.Child = newChild
		return &v2
	case *plan.Union:
		left := replaceAliasBranchWithEmpty(v.Left, alias)
		right := replaceAliasBranchWithEmpty(v.Right, alias)
		if _, ok := left.(*plan.Empty); ok {
			return right
		}
		if _, ok := right.(*plan.Empty); ok {
			return left
		}
		return &plan.Union{Left: left, Right: right}
	default:
		return n
	}
}

// collectPredicateProps walks every filter-bearing node and every
// ORDER BY/SKIP/LIMIT node in the plan and returns the alias.prop
// references found in their expressions, keyed by alias. It does not descend into projection lists: those are already
// tracked into ctx.PropsNeeded by the builder (spec §4.3).
func collectPredicateProps(n plan.Node) map[string]map[string]bool {
	out := map[string]map[string]bool{}
	add := func(alias, prop string) {
		set, ok := out[alias]
		if !ok {
			set = map[string]bool{}
			out[alias] = set
		}
		set[prop] = true
	}
	var walk func(plan.Node)
	walk = func(n plan.Node) {
		if n == nil {
			return
		}
		switch v := n.(type) {
		case *plan.Filter:
			collectExprProps(v.Predicate, add)
		case *plan.GraphRel:
			collectExprProps(v.WherePredicate, add)
		case *plan.With:
			collectExprProps(v.PostFilter, add)
		case *plan.Having:
			collectExprProps(v.Predicate, add)
		case *plan.OrderBy:
			for _, k := range v.Keys {
				collectExprProps(k.Expr, add)
			}
		case *plan.Skip:
			collectExprProps(v.N, add)
		case *plan.Limit:
			collectExprProps(v.N, add)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

func collectExprProps(e ast.Expression, add func(alias, prop string)) {
	switch v := e.(type) {
	case nil:
	case *ast.PropertyAccess:
		add(v.Var, v.Prop)
	case *ast.BinaryOp:
		collectExprProps(v.Left, add)
		collectExprProps(v.Right, add)
	case *ast.UnaryOp:
		collectExprProps(v.Operand, add)
	case *ast.IsNull:
		collectExprProps(v.Operand, add)
	case *ast.FuncCall:
		for _, a := range v.Args {
			collectExprProps(a, add)
		}
	case *ast.ListLiteral:
		for _, it := range v.Items {
			collectExprProps(it, add)
		}
	case *ast.CaseExpr:
		collectExprProps(v.Operand, add)
		for _, w := range v.Whens {
			collectExprProps(w.Cond, add)
			collectExprProps(w.Then, add)
		}
		collectExprProps(v.Else, add)
	}
}
