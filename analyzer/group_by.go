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

// BuildGroupBys inserts a plan.GroupBy under every Project/With whose
// projection list mixes aggregate and non-aggregate expressions (spec
// §4.4.6): the non-aggregate expressions become grouping keys, the
// aggregate calls become GroupBy.Aggregates, and the Project/With above is
// left projecting references to the grouped-by output rather than
// re-deriving the aggregate.
func BuildGroupBys(n plan.Node) plan.Node {
	switch v := n.(type) {
	case *plan.Project:
		child := BuildGroupBys(v.Child)
		if keys, aggs, ok := splitAggregates(v.Projections); ok {
			child = &plan.GroupBy{Child: child, Keys: keys, Aggregates: aggs}
		}
		return &plan.Project{Child: child, Projections: v.Projections, Distinct: v.Distinct}
	case *plan.With:
		child := BuildGroupBys(v.Child)
		if keys, aggs, ok := splitAggregates(v.Projections); ok {
			child = &plan.GroupBy{Child: child, Keys: keys, Aggregates: aggs}
		}
		v2 := *v
		v2.Child = child
		return &v2
	case *plan.Having:
		return &plan.Having{Child: BuildGroupBys(v.Child), Predicate: v.Predicate}
	case *plan.OrderBy:
		v2 := *v
		v2.Child = BuildGroupBys(v.Child)
		return &v2
	case *plan.Skip:
		return &plan.Skip{Child: BuildGroupBys(v.Child), N: v.N}
	case *plan.Limit:
		return &plan.Limit{Child: BuildGroupBys(v.Child), N: v.N}
	case *plan.Filter:
		return &plan.Filter{Child: BuildGroupBys(v.Child), Predicate: v.Predicate}
	case *plan.Unwind:
		v2 := *v
		v2.Child = BuildGroupBys(v.Child)
		return &v2
	case *plan.Union:
		return &plan.Union{Left: BuildGroupBys(v.Left), Right: BuildGroupBys(v.Right)}
	default:
		return n
	}
}

// splitAggregates reports whether projs contains at least one aggregate
// call; when it does, it also returns the non-aggregate expressions as
// grouping keys and the aggregate projections as the aggregate list
// (spec §4.4.6 "every non-aggregate projection becomes a grouping key").
func splitAggregates(projs []ast.Projection) (keys []ast.Expression, aggs []ast.Projection, ok bool) {
	hasAgg := false
	for _, p := range projs {
		if !p.Wildcard && ast.IsAggregate(p.Expr) {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		return nil, nil, false
	}
	for _, p := range projs {
		if p.Wildcard {
			keys = append(keys, &ast.VarRef{Name: p.Var})
			continue
		}
		if ast.IsAggregate(p.Expr) {
			aggs = append(aggs, p)
			continue
		}
		keys = append(keys, p.Expr)
	}
	return keys, aggs, true
}
