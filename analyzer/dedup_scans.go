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
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// DedupScans verifies the invariant that every alias is scanned at most once
// in the plan (spec §4.4.3). The builder already folds a redeclared label
// into the existing binding instead of emitting a second TableScan (see
// builder.bindNode's intersectLabels), so under normal construction this
// pass never finds a violation; it exists as a defensive check for plans
// built or rewritten by future passes that bypass the builder, returning
// cgqerrors.ErrInternalInvariant rather than silently emitting SQL that
// double-counts rows.
func DedupScans(n plan.Node) error {
	seen := map[string]bool{}
	return walkScans(n, seen)
}

func walkScans(n plan.Node, seen map[string]bool) error {
	switch v := n.(type) {
	case *plan.TableScan:
		if seen[v.Entity.Alias] {
			return cgqerrors.Internal("duplicate scan of alias %q", v.Entity.Alias)
		}
		seen[v.Entity.Alias] = true
		return nil
	case *plan.GraphRel:
		if err := walkScans(v.Child, seen); err != nil {
			return err
		}
		if seen[v.RightAlias] {
			return cgqerrors.Internal("duplicate scan of alias %q", v.RightAlias)
		}
		seen[v.RightAlias] = true
		return nil
	case *plan.Empty:
		return nil
	case *plan.Union:
		// Each UNION ALL branch is an independently built sub-plan (spec
		// §4.3): the same alias name may legitimately recur across branches.
		if err := walkScans(v.Left, map[string]bool{}); err != nil {
			return err
		}
		return walkScans(v.Right, map[string]bool{})
	default:
		for _, c := range n.Children() {
			if c == nil {
				continue
			}
			if err := walkScans(c, seen); err != nil {
				return err
			}
		}
		return nil
	}
}
