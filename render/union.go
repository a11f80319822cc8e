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

// alignUnionBranches makes every branch of a UNION ALL expose the same
// column list in the same order (SPEC_FULL.md §C "cross-branch column
// alignment"): a branch missing a column the union as a whole needs gets a
// literal NULL in its place, aliased to match. Every branch is reordered to
// one shared order: the order in which column names are first seen,
// scanning the branches from first to last.
func alignUnionBranches(branches []*SelectFragment) {
	if len(branches) < 2 {
		return
	}
	var order []string
	seen := map[string]bool{}
	for _, b := range branches {
		for _, c := range b.Columns {
			key := columnKey(c)
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}
	for _, b := range branches {
		byKey := map[string]Column{}
		for _, c := range b.Columns {
			byKey[columnKey(c)] = c
		}
		aligned := make([]Column, len(order))
		for i, key := range order {
			if c, ok := byKey[key]; ok {
				aligned[i] = c
			} else {
				aligned[i] = Column{Expr: "NULL", Alias: key}
			}
		}
		b.Columns = aligned
	}
}

func columnKey(c Column) string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Expr
}
