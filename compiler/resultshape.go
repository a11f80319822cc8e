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
	"strings"

	"github.com/genezhang/clickgraph/render"
)

// inferResultShape derives Response.result_shape (spec §6.2) from the
// printed fragment's own column list. The compiler never executes SQL, so
// "inferred_kind" is a syntactic guess from the rendered expression's shape,
// not a type-checked result; a host that needs exact types gets them from
// the columnar engine's own result metadata at execution time.
func inferResultShape(f render.Fragment) ResultShape {
	var cols []render.Column
	switch v := f.(type) {
	case *render.SelectFragment:
		cols = v.Columns
	case *render.ScalarFragment:
		cols = v.Columns
	case *render.UnionFragment:
		if len(v.Branches) > 0 {
			cols = v.Branches[0].Columns
		}
	}
	shape := ResultShape{Columns: make([]ColumnShape, len(cols))}
	for i, c := range cols {
		name := c.Alias
		if name == "" {
			name = c.Expr
		}
		shape.Columns[i] = ColumnShape{Name: name, InferredKind: inferKind(c.Expr)}
	}
	return shape
}

// inferKind guesses a column's kind from the syntactic shape of its
// rendered SQL expression: an aggregate call reads as a number, a raw
// string/numeric literal reads as its own type, anything else is
// "unknown" pending the engine's own result metadata.
func inferKind(expr string) string {
	upper := strings.ToUpper(expr)
	switch {
	case strings.HasPrefix(upper, "COUNT(") || strings.HasPrefix(upper, "SUM(") ||
		strings.HasPrefix(upper, "AVG(") || strings.HasPrefix(upper, "MIN(") ||
		strings.HasPrefix(upper, "MAX(") || strings.HasPrefix(upper, "GROUPARRAY("):
		return "number"
	case strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'"):
		return "string"
	case expr == "TRUE" || expr == "FALSE":
		return "boolean"
	case expr == "NULL":
		return "null"
	default:
		return "unknown"
	}
}
