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

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// sqlFuncNames maps a CGQ function name (spec §3.2) to the columnar engine's
// own spelling, for the handful that differ (spec §6.1 array functions,
// SPEC_FULL.md's ambient dialect). Anything absent here is passed through
// unchanged (case-preserved), since most scalar functions share SQL's names.
var sqlFuncNames = map[string]string{
	"COLLECT": "groupArray",
}

// resolver carries what renderExpr needs to turn an alias.prop reference
// into a physical column/expression reference: the plan context's alias
// bindings (for label/type and entity kind) and the catalog those bindings
// resolve against.
type resolver struct {
	ctx *plan.Context
	cat *catalog.Catalog
	// cteAliases marks variables forwarded by wildcard ("RETURN n") across a
	// WITH boundary already lowered into a CTE. Their properties were
	// flattened onto the CTE's own output columns as "alias_prop" (see
	// expandWildcard), so resolveProperty must read them back that way
	// instead of re-deriving the original table/column through the catalog.
	cteAliases map[string]bool
}

func (r *resolver) markCTEAlias(alias string) {
	if r.cteAliases == nil {
		r.cteAliases = map[string]bool{}
	}
	r.cteAliases[alias] = true
}

// renderExpr renders e as a SQL text fragment.
func renderExpr(e ast.Expression, r *resolver) (string, error) {
	switch v := e.(type) {
	case nil:
		return "", nil
	case *ast.Literal:
		return renderLiteral(v.Value), nil
	case *ast.ParamRef:
		// Parameter binding is the host's responsibility (spec §6.1); the
		// printer only needs to lower the reference to a stable named
		// placeholder the host's binding layer recognizes.
		return fmt.Sprintf("{%s}", v.Name), nil
	case *ast.VarRef:
		return quoteIdent(v.Name), nil
	case *ast.PropertyAccess:
		return r.resolveProperty(v.Var, v.Prop)
	case *ast.RawPredicate:
		return v.SQL, nil
	case *ast.BinaryOp:
		if v.Op == "IN" {
			if list, ok := v.Right.(*ast.ListLiteral); ok && len(list.Items) == 0 {
				// spec §8.3: "x IN []" is always false, not "(x IN ())".
				return "FALSE", nil
			}
		}
		left, err := renderExpr(v.Left, r)
		if err != nil {
			return "", err
		}
		right, err := renderExpr(v.Right, r)
		if err != nil {
			return "", err
		}
		if v.Op == "IN" {
			return fmt.Sprintf("(%s IN %s)", left, right), nil
		}
		return fmt.Sprintf("(%s %s %s)", left, v.Op, right), nil
	case *ast.UnaryOp:
		operand, err := renderExpr(v.Operand, r)
		if err != nil {
			return "", err
		}
		if v.Op == "NOT" {
			return fmt.Sprintf("(NOT %s)", operand), nil
		}
		return fmt.Sprintf("(-%s)", operand), nil
	case *ast.IsNull:
		operand, err := renderExpr(v.Operand, r)
		if err != nil {
			return "", err
		}
		if v.Negated {
			return fmt.Sprintf("(%s IS NOT NULL)", operand), nil
		}
		return fmt.Sprintf("(%s IS NULL)", operand), nil
	case *ast.FuncCall:
		return renderFuncCall(v, r)
	case *ast.ListLiteral:
		return renderTuple(v.Items, r)
	case *ast.CaseExpr:
		return renderCase(v, r)
	default:
		return "", cgqerrors.Internal("render: unhandled expression type %T", e)
	}
}

func renderFuncCall(v *ast.FuncCall, r *resolver) (string, error) {
	name := v.Name
	if mapped, ok := sqlFuncNames[strings.ToUpper(name)]; ok {
		name = mapped
	}
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		rendered, err := renderExpr(a, r)
		if err != nil {
			return "", err
		}
		args[i] = rendered
	}
	distinct := ""
	if v.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", name, distinct, strings.Join(args, ", ")), nil
}

func renderCase(v *ast.CaseExpr, r *resolver) (string, error) {
	var sb strings.Builder
	sb.WriteString("CASE")
	if v.Operand != nil {
		operand, err := renderExpr(v.Operand, r)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " %s", operand)
	}
	for _, w := range v.Whens {
		cond, err := renderExpr(w.Cond, r)
		if err != nil {
			return "", err
		}
		then, err := renderExpr(w.Then, r)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " WHEN %s THEN %s", cond, then)
	}
	if v.Else != nil {
		els, err := renderExpr(v.Else, r)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " ELSE %s", els)
	}
	sb.WriteString(" END")
	return sb.String(), nil
}

// renderTuple renders a list literal as the engine's native tuple/array
// syntax (spec §4.8 printer rule: "never a parenthesised wrap around
// another parenthesised list"). A single-element list used on the right of
// IN becomes "(x)", not "((x))" — renderExpr's BinaryOp case above already
// wraps the IN operator itself, so this only ever emits one set of parens.
func renderTuple(items []ast.Expression, r *resolver) (string, error) {
	parts := make([]string, len(items))
	for i, it := range items {
		rendered, err := renderExpr(it, r)
		if err != nil {
			return "", err
		}
		parts[i] = rendered
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", ")), nil
}

func renderLiteral(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// resolveProperty turns alias.prop into a SQL column/expression reference,
// honoring the catalog's column-or-expression property values (spec §4.2)
// and endpoint-denormalization priority (spec §4.2 rule 1). An alias with no
// recorded binding (e.g. a WITH-bound scalar alias already holding a SQL
// expression's output) is treated as a bare output-column reference.
func (r *resolver) resolveProperty(alias, prop string) (string, error) {
	if r.cteAliases[alias] {
		return quoteIdent(alias + "_" + prop), nil
	}
	binding, ok := r.ctx.Aliases[alias]
	if !ok {
		return quoteIdent(alias) + "." + quoteIdent(prop), nil
	}
	switch binding.EntityKind {
	case plan.KindRelationship:
		pv, _, err := r.cat.ResolveRelProperty(binding.LabelOrType, prop, catalog.NeitherSide)
		if err != nil {
			return "", err
		}
		return renderPropertyValue(alias, pv), nil
	case plan.KindNode:
		pv, _, err := r.cat.ResolveNodeProperty(binding.LabelOrType, prop)
		if err != nil {
			return "", err
		}
		return renderPropertyValue(alias, pv), nil
	default:
		return quoteIdent(alias) + "." + quoteIdent(prop), nil
	}
}

// renderPropertyValue renders a resolved catalog property. An expression
// property may reference the row's own alias via the literal token
// "$alias", substituted here for the alias this access actually bound to
// (catalog.Expr authors write schema-level expressions once and let every
// binding site supply its own alias).
func renderPropertyValue(alias string, pv catalog.PropertyValue) string {
	if pv.IsExpr {
		return strings.ReplaceAll(pv.Expression, "$alias", quoteIdent(alias))
	}
	return quoteIdent(alias) + "." + quoteIdent(pv.Column)
}

// reservedWords is not exhaustive; it covers the identifiers likely to
// collide in practice (spec §4.8 printer rule: quote only when needed).
var reservedWords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "order": true,
	"having": true, "limit": true, "with": true, "as": true, "join": true,
	"union": true, "all": true, "distinct": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "and": true, "or": true, "not": true,
	"in": true, "is": true, "null": true, "table": true, "settings": true,
}

// quoteIdent quotes ident with backticks if it contains a character outside
// [A-Za-z0-9_], starts with a digit, or collides with a reserved word (spec
// §4.8 printer rule).
func quoteIdent(ident string) string {
	if ident == "" {
		return ident
	}
	needsQuote := reservedWords[strings.ToLower(ident)]
	if !needsQuote {
		if ident[0] >= '0' && ident[0] <= '9' {
			needsQuote = true
		}
		for _, c := range ident {
			if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				needsQuote = true
				break
			}
		}
	}
	if !needsQuote {
		return ident
	}
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
