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
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/plan"
)

// DefaultWidenedHopLimit is the optimizer's relaxed bound on unrolling a
// fixed-hop range into a ChainedJoin (spec §4.6 item 3), wider than the
// analyzer's default small-k heuristic of 3 (spec §4.5.4). It only applies
// when the pattern's single GraphRel already carries a pushed-down
// predicate (PushDownFilters must run before this pass).
const DefaultWidenedHopLimit = 6

// ConfirmChainedJoins re-examines every GraphRel the analyzer left untouched
// because its fixed hop count exceeded the small-k heuristic, and unrolls it
// into a ChainedJoin anyway when any predicate was pushed onto it — a
// selective anchor makes the wider chain cheaper than a recursive CTE would
// be (spec §4.6 item 3). How selective that predicate is is not examined;
// the predicate itself is kept as a Filter over the ChainedJoin. A GraphRel with no
// WherePredicate, an unbounded/non-fixed range, or a shortestPath marker is
// left for the render layer's recursive-CTE lowering (spec §4.8).
func ConfirmChainedJoins(n plan.Node, ctx *plan.Context, cat *catalog.Catalog, maxHops int) (plan.Node, *plan.Context, error) {
	switch v := n.(type) {
	case *plan.GraphRel:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		ctx = ctx2
		if shouldWiden(v, maxHops) {
			if scan, ok := child.(*plan.TableScan); ok {
				widened, ctx3, err := analyzer.UnrollGraphRel(v, scan, scan.Entity, ctx, cat)
				if err != nil {
					return nil, nil, err
				}
				if v.WherePredicate != nil {
					widened = &plan.Filter{Child: widened, Predicate: v.WherePredicate}
				}
				return widened, ctx3, nil
			}
		}
		v2 := *v
		v2.Child = child
		return &v2, ctx, nil
	case *plan.Filter:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		return &plan.Filter{Child: child, Predicate: v.Predicate}, ctx2, nil
	case *plan.Join:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, ctx2, nil
	case *plan.ChainedJoin:
		base, ctx2, err := ConfirmChainedJoins(v.Base, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		v2 := *v
		v2.Base = base
		return &v2, ctx2, nil
	case *plan.Project:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		return &plan.Project{Child: child, Projections: v.Projections, Distinct: v.Distinct}, ctx2, nil
	case *plan.With:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, ctx2, nil
	case *plan.GroupBy:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, ctx2, nil
	case *plan.Having:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		return &plan.Having{Child: child, Predicate: v.Predicate}, ctx2, nil
	case *plan.OrderBy:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, ctx2, nil
	case *plan.Skip:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		return &plan.Skip{Child: child, N: v.N}, ctx2, nil
	case *plan.Limit:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		return &plan.Limit{Child: child, N: v.N}, ctx2, nil
	case *plan.Unwind:
		child, ctx2, err := ConfirmChainedJoins(v.Child, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, ctx2, nil
	case *plan.Union:
		left, ctx2, err := ConfirmChainedJoins(v.Left, ctx, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		right, ctx3, err := ConfirmChainedJoins(v.Right, ctx2, cat, maxHops)
		if err != nil {
			return nil, nil, err
		}
		return &plan.Union{Left: left, Right: right}, ctx3, nil
	default:
		return n, ctx, nil
	}
}

func shouldWiden(e *plan.GraphRel, maxHops int) bool {
	if e.Range == nil || e.WherePredicate == nil {
		return false
	}
	if e.Shortest || e.AllShortest {
		return false
	}
	return e.Range.Min == e.Range.Max && e.Range.Max > 3 && e.Range.Max <= maxHops
}
