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

package compiler

import (
	"fmt"
	"strings"

	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/plan"
)

// resolveViewParameters binds a node's declared view parameters (spec §3.1,
// SPEC_FULL.md §C "RBAC view parameters") into the already-rendered sql
// text. A node's schema filter is rendered verbatim with "{name}"
// placeholders (render/expr.go's *ast.RawPredicate case), exactly like an
// ast.ParamRef; resolveViewParameters is what turns a supplied or
// catalog-default value into a literal substitution. A declared parameter
// with neither a supplied value nor a catalog default is left as an
// unbound placeholder for the host's own binding layer, and is reported as
// a warning so the host doesn't mistake it for a dangling query parameter.
func resolveViewParameters(sql string, cat *catalog.Catalog, ctx *plan.Context, supplied map[string]string) (string, []string) {
	var warnings []string
	seen := map[string]bool{}
	for _, binding := range ctx.Aliases {
		if binding.EntityKind != plan.KindNode || binding.LabelOrType == "" {
			continue
		}
		node, err := cat.Node(binding.LabelOrType)
		if err != nil {
			continue
		}
		for _, vp := range node.ViewParameters {
			if seen[vp.Name] {
				continue
			}
			seen[vp.Name] = true

			value, ok := supplied[vp.Name]
			if !ok {
				if vp.Default == "" {
					warnings = append(warnings, fmt.Sprintf(
						"view parameter %q (node %q) has no supplied value or catalog default; left unbound as {%s}",
						vp.Name, node.Label, vp.Name))
					continue
				}
				value = vp.Default
			}
			sql = strings.ReplaceAll(sql, "{"+vp.Name+"}", value)
		}
	}
	return sql, warnings
}
