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
	"fmt"
	"sort"

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/plan"
)

// Selectivity tiers for anchor scoring (spec §4.5.2, re-applied at §4.6.2
// with the benefit of the predicates PushDownFilters just relocated).
const (
	tierNone = iota
	tierRange
	tierColumnEquality
	tierIdentityEquality
)

// RescoreAnchors re-scores the anchor each join chain picked during §4.5
// inference now that pushed-down filters make selectivity visible on joined
// aliases too, not just the alias the analyzer happened to see first. It
// does not replay join inference or reorder the tree — by the time the
// optimizer runs, the join order is already fixed and a safe reorder would
// need the same reachability analysis §4.5.3 already did. Instead it reports
// a mismatch as a warning string (surfaced via Response.warnings, spec
// §6.2), so a host that cares about plan quality can flag the query for a
// catalog index review rather than silently accept a weaker anchor.
func RescoreAnchors(n plan.Node, cat *catalog.Catalog) []string {
	var warnings []string
	var walk func(plan.Node)
	walk = func(n plan.Node) {
		if n == nil {
			return
		}
		if isChainRoot(n) {
			warnings = append(warnings, scoreChain(n, cat)...)
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return warnings
}

// isChainRoot reports whether n is the top of a contiguous join chain (the
// node shapes graph-join inference produces): a Join, ChainedJoin, or a
// Filter/GraphRel (or a stack of them) sitting over one.
func isChainRoot(n plan.Node) bool {
	switch v := n.(type) {
	case *plan.Join, *plan.ChainedJoin:
		return true
	case *plan.Filter:
		return isChainRoot(v.Child)
	case *plan.GraphRel:
		return isChainRoot(v.Child)
	default:
		return false
	}
}

// chainAlias names the alias an equality condition's other side references,
// together with the tier that equality earns under §4.5.2/§4.6.2.
type chainAlias struct {
	alias string
	tier  int
}

func scoreChain(n plan.Node, cat *catalog.Catalog) []string {
	scores := map[string]int{}
	var anchor string
	var walk func(plan.Node)
	walk = func(n plan.Node) {
		switch v := n.(type) {
		case *plan.TableScan:
			anchor = v.Entity.Alias
			bumpRangeTier(scores, v.Entity.Alias, tierNone)
		case *plan.Join:
			bumpConditionTiers(scores, v.Condition, cat)
			walk(v.Child)
		case *plan.ChainedJoin:
			for _, j := range v.Children_ {
				bumpConditionTiers(scores, j.Condition, cat)
			}
			walk(v.Base)
		case *plan.Filter:
			bumpConditionTiers(scores, v.Predicate, cat)
			walk(v.Child)
		case *plan.GraphRel:
			bumpConditionTiers(scores, v.WherePredicate, cat)
			walk(v.Child)
		}
	}
	walk(n)

	if anchor == "" {
		return nil
	}
	anchorTier := scores[anchor]
	var better []string
	for alias, tier := range scores {
		if alias != anchor && tier > anchorTier {
			better = append(better, alias)
		}
	}
	if len(better) == 0 {
		return nil
	}
	sort.Strings(better)
	var out []string
	for _, alias := range better {
		out = append(out, fmt.Sprintf(
			"anchor %q (tier %d) is less selective than alias %q (tier %d); "+
				"consider an index or a catalog IDColumns hint that lets the anchor rank higher",
			anchor, anchorTier, alias, scores[alias]))
	}
	return out
}

func bumpRangeTier(scores map[string]int, alias string, tier int) {
	if tier > scores[alias] {
		scores[alias] = tier
	}
}

// bumpConditionTiers walks a conjunction (already split by the analyzer's
// SplitConjuncts, but this pass tolerates an un-split AND too) and records
// the highest tier each referenced alias earns.
func bumpConditionTiers(scores map[string]int, e ast.Expression, cat *catalog.Catalog) {
	if e == nil {
		return
	}
	if b, ok := e.(*ast.BinaryOp); ok && b.Op == "AND" {
		bumpConditionTiers(scores, b.Left, cat)
		bumpConditionTiers(scores, b.Right, cat)
		return
	}
	b, ok := e.(*ast.BinaryOp)
	if !ok {
		return
	}
	switch b.Op {
	case "=":
		alias, _, tier := equalityTier(b, cat)
		if alias != "" {
			bumpRangeTier(scores, alias, tier)
		}
	case "<", "<=", ">", ">=":
		if pa, ok := b.Left.(*ast.PropertyAccess); ok {
			bumpRangeTier(scores, pa.Var, tierRange)
		}
		if pa, ok := b.Right.(*ast.PropertyAccess); ok {
			bumpRangeTier(scores, pa.Var, tierRange)
		}
	}
}

// equalityTier scores a single "a.x = b.y"/"a.x = <literal>" equality: an
// identity-column reference earns tierIdentityEquality, any other column
// earns tierColumnEquality. It returns the alias on the left side of a join
// condition (the side introduced by this Join node), since that is the
// alias whose anchor-worthiness is in question.
func equalityTier(b *ast.BinaryOp, cat *catalog.Catalog) (alias, prop string, tier int) {
	pa, ok := b.Left.(*ast.PropertyAccess)
	if !ok {
		pa, ok = b.Right.(*ast.PropertyAccess)
	}
	if !ok {
		return "", "", tierNone
	}
	alias, prop = pa.Var, pa.Prop
	for _, label := range cat.AllLabels() {
		if entry, err := cat.Node(label); err == nil {
			for _, id := range entry.IDColumns {
				if id == prop {
					return alias, prop, tierIdentityEquality
				}
			}
		}
	}
	return alias, prop, tierColumnEquality
}
