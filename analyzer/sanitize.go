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

import "github.com/genezhang/clickgraph/plan"

// Sanitize is the final analyzer pass (spec §4.4 closing step): it drops
// no-op Filters a Join's nil condition can leave behind (cross joins have no
// predicate to wrap) and collapses any Filter directly on top of Empty,
// which can arise if a later pass (e.g. optimizer pushdown) relocates a
// predicate onto a branch that graph-join inference already proved empty.
func Sanitize(n plan.Node) plan.Node {
	switch v := n.(type) {
	case *plan.Filter:
		child := Sanitize(v.Child)
		if _, ok := child.(*plan.Empty); ok {
			return child
		}
		if v.Predicate == nil {
			return child
		}
		return &plan.Filter{Child: child, Predicate: v.Predicate}
	case *plan.GraphRel:
		v2 := *v
		v2.Child = Sanitize(v.Child)
		return &v2
	case *plan.Join:
		child := Sanitize(v.Child)
		if _, ok := child.(*plan.Empty); ok && v.Kind == plan.Inner {
			return child
		}
		v2 := *v
		v2.Child = child
		return &v2
	case *plan.ChainedJoin:
		v2 := *v
		v2.Base = Sanitize(v.Base)
		return &v2
	case *plan.Project:
		return &plan.Project{Child: Sanitize(v.Child), Projections: v.Projections, Distinct: v.Distinct}
	case *plan.With:
		v2 := *v
		v2.Child = Sanitize(v.Child)
		return &v2
	case *plan.GroupBy:
		v2 := *v
		v2.Child = Sanitize(v.Child)
		return &v2
	case *plan.Having:
		return &plan.Having{Child: Sanitize(v.Child), Predicate: v.Predicate}
	case *plan.OrderBy:
		v2 := *v
		v2.Child = Sanitize(v.Child)
		return &v2
	case *plan.Skip:
		return &plan.Skip{Child: Sanitize(v.Child), N: v.N}
	case *plan.Limit:
		return &plan.Limit{Child: Sanitize(v.Child), N: v.N}
	case *plan.Unwind:
		v2 := *v
		v2.Child = Sanitize(v.Child)
		return &v2
	case *plan.Union:
		left := Sanitize(v.Left)
		right := Sanitize(v.Right)
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
