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
	"sort"

	"github.com/spf13/cast"

	"github.com/genezhang/clickgraph/ast"
)

// checkParameters cross-references every $name reference the query actually
// makes against req.Parameters (spec §6.2 "parameters"), which the compiler
// never inlines into the emitted SQL itself (render/expr.go renders a
// ParamRef as a "{name}" placeholder; binding it is the host's job, the same
// way a prepared statement binds its own placeholders). What the compiler
// can usefully do at compile time is catch a referenced-but-unsupplied
// parameter before the host ever sends the SQL to its executor.
//
// Supplied values arrive as interface{} (typically JSON-decoded), so they're
// normalized through cast.ToStringE purely to render a readable warning;
// a value that can't be turned into a string at all (a map or slice, say,
// where the query expects a scalar) is reported as a second kind of warning.
func checkParameters(q *ast.Query, supplied map[string]interface{}) []string {
	refs := map[string]bool{}
	var collect func(q *ast.Query)
	collect = func(q *ast.Query) {
		for _, c := range q.Clauses {
			collectParamRefsFromClause(c, refs)
		}
		if q.Union != nil {
			collect(q.Union.Left)
			collect(q.Union.Right)
		}
	}
	collect(q)

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []string
	for _, name := range names {
		value, ok := supplied[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("parameter %q is referenced but was not supplied", name))
			continue
		}
		if _, err := cast.ToStringE(value); err != nil {
			warnings = append(warnings, fmt.Sprintf("parameter %q has a non-scalar value the host must bind explicitly: %v", name, err))
		}
	}
	return warnings
}

func collectParamRefsFromClause(c ast.Clause, refs map[string]bool) {
	switch v := c.(type) {
	case *ast.MatchClause:
		for _, pat := range v.Patterns {
			for _, seg := range pat.Segments {
				collectParamRefsFromSegment(seg, refs)
			}
		}
	case *ast.WhereClause:
		collectParamRefs(v.Predicate, refs)
	case *ast.WithClause:
		for _, p := range v.Projections {
			collectParamRefs(p.Expr, refs)
		}
		collectParamRefs(v.Where, refs)
	case *ast.UnwindClause:
		collectParamRefs(v.Source, refs)
	case *ast.ReturnClause:
		for _, p := range v.Projections {
			collectParamRefs(p.Expr, refs)
		}
		for _, o := range v.OrderBy {
			collectParamRefs(o.Expr, refs)
		}
		collectParamRefs(v.Skip, refs)
		collectParamRefs(v.Limit, refs)
	}
}

func collectParamRefsFromSegment(seg ast.PatternSegment, refs map[string]bool) {
	switch s := seg.(type) {
	case *ast.NodePattern:
		for _, pe := range s.Properties {
			collectParamRefs(pe.Value, refs)
		}
	case *ast.RelationshipPattern:
		for _, pe := range s.Properties {
			collectParamRefs(pe.Value, refs)
		}
	}
}

func collectParamRefs(e ast.Expression, refs map[string]bool) {
	switch v := e.(type) {
	case nil:
	case *ast.ParamRef:
		refs[v.Name] = true
	case *ast.BinaryOp:
		collectParamRefs(v.Left, refs)
		collectParamRefs(v.Right, refs)
	case *ast.UnaryOp:
		collectParamRefs(v.Operand, refs)
	case *ast.IsNull:
		collectParamRefs(v.Operand, refs)
	case *ast.FuncCall:
		for _, a := range v.Args {
			collectParamRefs(a, refs)
		}
	case *ast.ListLiteral:
		for _, item := range v.Items {
			collectParamRefs(item, refs)
		}
	case *ast.CaseExpr:
		collectParamRefs(v.Operand, refs)
		for _, w := range v.Whens {
			collectParamRefs(w.Cond, refs)
			collectParamRefs(w.Then, refs)
		}
		collectParamRefs(v.Else, refs)
	}
}
