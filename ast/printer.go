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

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a canonical CGQ text for q such that Parse(Print(q))
// produces a Query equal (by value) to the one the builder could have
// produced from q in the first place (spec §8.2 round-trip law). It is not
// meant to reproduce the user's original formatting.
func Print(q *Query) string {
	var sb strings.Builder
	printQuery(&sb, q)
	return sb.String()
}

func printQuery(sb *strings.Builder, q *Query) {
	if q.Union != nil {
		printQuery(sb, q.Union.Left)
		sb.WriteString(" UNION ALL ")
		printQuery(sb, q.Union.Right)
		return
	}
	for i, c := range q.Clauses {
		if i > 0 {
			sb.WriteString(" ")
		}
		printClause(sb, c)
	}
}

func printClause(sb *strings.Builder, c Clause) {
	switch v := c.(type) {
	case *UseClause:
		fmt.Fprintf(sb, "USE %s", v.Catalog)
	case *MatchClause:
		if v.Optional {
			sb.WriteString("OPTIONAL ")
		}
		sb.WriteString("MATCH ")
		for i, p := range v.Patterns {
			if i > 0 {
				sb.WriteString(", ")
			}
			printPattern(sb, p)
		}
	case *WhereClause:
		sb.WriteString("WHERE ")
		printExpr(sb, v.Predicate)
	case *WithClause:
		sb.WriteString("WITH ")
		if v.Distinct {
			sb.WriteString("DISTINCT ")
		}
		printProjections(sb, v.Projections)
		if v.Where != nil {
			sb.WriteString(" WHERE ")
			printExpr(sb, v.Where)
		}
	case *UnwindClause:
		fmt.Fprintf(sb, "UNWIND ")
		printExpr(sb, v.Source)
		fmt.Fprintf(sb, " AS %s", v.As)
	case *ReturnClause:
		sb.WriteString("RETURN ")
		if v.Distinct {
			sb.WriteString("DISTINCT ")
		}
		printProjections(sb, v.Projections)
		if len(v.OrderBy) > 0 {
			sb.WriteString(" ORDER BY ")
			for i, t := range v.OrderBy {
				if i > 0 {
					sb.WriteString(", ")
				}
				printExpr(sb, t.Expr)
				if t.Descending {
					sb.WriteString(" DESC")
				}
			}
		}
		if v.Skip != nil {
			sb.WriteString(" SKIP ")
			printExpr(sb, v.Skip)
		}
		if v.Limit != nil {
			sb.WriteString(" LIMIT ")
			printExpr(sb, v.Limit)
		}
	}
}

func printProjections(sb *strings.Builder, projs []Projection) {
	for i, p := range projs {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Wildcard {
			sb.WriteString(p.Var)
		} else {
			printExpr(sb, p.Expr)
		}
		if p.Alias != "" {
			fmt.Fprintf(sb, " AS %s", p.Alias)
		}
	}
}

func printPattern(sb *strings.Builder, p *Pattern) {
	if p.PathVar != "" {
		fmt.Fprintf(sb, "%s = ", p.PathVar)
	}
	if p.ShortestPath {
		sb.WriteString("shortestPath(")
	} else if p.AllShortestPaths {
		sb.WriteString("allShortestPaths(")
	}
	for _, seg := range p.Segments {
		switch s := seg.(type) {
		case *NodePattern:
			printNodePattern(sb, s)
		case *RelationshipPattern:
			printRelPattern(sb, s)
		}
	}
	if p.ShortestPath || p.AllShortestPaths {
		sb.WriteString(")")
	}
}

func printNodePattern(sb *strings.Builder, n *NodePattern) {
	sb.WriteString("(")
	sb.WriteString(n.Var)
	for _, l := range n.Labels {
		fmt.Fprintf(sb, ":%s", l)
	}
	if len(n.Properties) > 0 {
		printPropertyMap(sb, n.Properties)
	}
	sb.WriteString(")")
}

func printRelPattern(sb *strings.Builder, r *RelationshipPattern) {
	if r.Direction == DirIncoming {
		sb.WriteString("<-")
	} else {
		sb.WriteString("-")
	}
	sb.WriteString("[")
	sb.WriteString(r.Var)
	for _, t := range r.Types {
		fmt.Fprintf(sb, ":%s", t)
	}
	if r.Range != nil {
		printHopRange(sb, r.Range)
	}
	if len(r.Properties) > 0 {
		printPropertyMap(sb, r.Properties)
	}
	sb.WriteString("]")
	if r.Direction == DirOutgoing {
		sb.WriteString("->")
	} else {
		sb.WriteString("-")
	}
}

func printHopRange(sb *strings.Builder, hr *HopRange) {
	sb.WriteString("*")
	if hr.Min == 0 && hr.Max == Unbounded {
		return
	}
	sb.WriteString(strconv.Itoa(hr.Min))
	if hr.Max != hr.Min {
		sb.WriteString("..")
		if hr.Max != Unbounded {
			sb.WriteString(strconv.Itoa(hr.Max))
		}
	}
}

func printPropertyMap(sb *strings.Builder, props []PropertyEquality) {
	sb.WriteString("{")
	for i, pe := range props {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s: ", pe.Name)
		printExpr(sb, pe.Value)
	}
	sb.WriteString("}")
}

func printExpr(sb *strings.Builder, e Expression) {
	switch v := e.(type) {
	case *Literal:
		printLiteral(sb, v.Value)
	case *ParamRef:
		fmt.Fprintf(sb, "$%s", v.Name)
	case *VarRef:
		sb.WriteString(v.Name)
	case *PropertyAccess:
		fmt.Fprintf(sb, "%s.%s", v.Var, v.Prop)
	case *BinaryOp:
		sb.WriteString("(")
		printExpr(sb, v.Left)
		fmt.Fprintf(sb, " %s ", v.Op)
		printExpr(sb, v.Right)
		sb.WriteString(")")
	case *UnaryOp:
		if v.Op == "NOT" {
			sb.WriteString("NOT ")
		} else {
			sb.WriteString(v.Op)
		}
		printExpr(sb, v.Operand)
	case *IsNull:
		printExpr(sb, v.Operand)
		if v.Negated {
			sb.WriteString(" IS NOT NULL")
		} else {
			sb.WriteString(" IS NULL")
		}
	case *FuncCall:
		fmt.Fprintf(sb, "%s(", v.Name)
		if v.Distinct {
			sb.WriteString("DISTINCT ")
		}
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, a)
		}
		sb.WriteString(")")
	case *ListLiteral:
		sb.WriteString("[")
		for i, it := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, it)
		}
		sb.WriteString("]")
	case *CaseExpr:
		sb.WriteString("CASE ")
		if v.Operand != nil {
			printExpr(sb, v.Operand)
			sb.WriteString(" ")
		}
		for _, w := range v.Whens {
			sb.WriteString("WHEN ")
			printExpr(sb, w.Cond)
			sb.WriteString(" THEN ")
			printExpr(sb, w.Then)
			sb.WriteString(" ")
		}
		if v.Else != nil {
			sb.WriteString("ELSE ")
			printExpr(sb, v.Else)
			sb.WriteString(" ")
		}
		sb.WriteString("END")
	}
}

func printLiteral(sb *strings.Builder, v interface{}) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("NULL")
	case bool:
		if x {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case string:
		fmt.Fprintf(sb, "'%s'", strings.ReplaceAll(x, "'", "\\'"))
	case float64:
		sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	default:
		fmt.Fprintf(sb, "%v", x)
	}
}
