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

// Package plan defines the logical plan tree (spec §3.3) and the plan
// context threaded alongside it (spec §3.4). Node is a tree, never a graph:
// alias resolution is a lookup on Context, not a back-pointer from a node
// (spec §9 "Cyclic plan references").
package plan

import (
	"fmt"
	"strings"

	"github.com/genezhang/clickgraph/ast"
)

// Node is any logical plan node. Every Node is immutable once built;
// rewrites produce new Nodes rather than mutating in place (spec §9 "Source
// patterns needing re-architecture": model each pass as (Plan, Context) ->
// (Plan, Context) over immutable trees).
type Node interface {
	Children() []Node
	String() string
}

// JoinKind distinguishes inner joins from the left joins OPTIONAL MATCH
// requires (spec §3.3 invariant on Join.kind).
type JoinKind int

const (
	Inner JoinKind = iota
	Left
)

func (k JoinKind) String() string {
	if k == Left {
		return "LEFT"
	}
	return "INNER"
}

// Entity describes the pattern element a TableScan/GraphRel endpoint binds,
// carrying the alias through to render lowering.
type Entity struct {
	Alias       string
	Labels      []string // candidate labels/types; len==1 once fixed by the analyzer
	Properties  []ast.PropertyEquality
}

// TableScan is a scan of a single node- or relationship-labelled pattern
// element, before joins are materialized (spec §3.3).
type TableScan struct {
	Entity Entity
	IsRel  bool
}

func (s *TableScan) Children() []Node { return nil }
func (s *TableScan) String() string {
	kind := "Node"
	if s.IsRel {
		kind = "Rel"
	}
	return fmt.Sprintf("TableScan(%s %s:%v)", kind, s.Entity.Alias, s.Entity.Labels)
}

// GraphRel is a single-hop or variable-length graph edge, binding three
// aliases (spec §3.3). It is the scheduler's unit of work before
// graph-join inference replaces it with Join/ChainedJoin nodes.
//
// RightEntity carries the candidate-label metadata for the right endpoint
// at the point the pattern introduced it; the left endpoint's metadata stays
// on the node that introduced LeftAlias. RightEntity is always a
// newly-introduced alias (the builder emits one GraphRel per hop in a
// pattern's left-deep chain, so only the chain's first node gets its own
// TableScan — every subsequent node is introduced by the GraphRel that
// reaches it).
type GraphRel struct {
	LeftAlias   string
	RelAlias    string
	RightAlias  string
	RightEntity Entity
	Types       []string
	Direction   ast.Direction
	Optional    bool
	Range       *ast.HopRange
	Shortest    bool
	AllShortest bool
	WherePredicate ast.Expression // filters pushed down by the optimizer (spec §4.6.1)
	Child       Node
}

func (g *GraphRel) Children() []Node { return []Node{g.Child} }
func (g *GraphRel) String() string {
	return fmt.Sprintf("GraphRel(%s-[%s:%v]->%s optional=%v range=%v)",
		g.LeftAlias, g.RelAlias, g.Types, g.RightAlias, g.Optional, g.Range)
}

// JoinRef identifies what is being joined in a Join node: either a scan of a
// node/relationship table, or a reference to an already-bound alias (for the
// "reuse" side of a join).
type JoinRef struct {
	Alias  string
	Labels []string
	IsRel  bool
}

// Join attaches Joined to the result so far via Condition (spec §3.3).
type Join struct {
	Child     Node
	Joined    JoinRef
	Condition ast.Expression
	Kind      JoinKind
}

func (j *Join) Children() []Node { return []Node{j.Child} }
func (j *Join) String() string {
	return fmt.Sprintf("Join(%s %s kind=%s)", j.Joined.Alias, exprString(j.Condition), j.Kind)
}

// ChainedJoin is an unrolled sequence of inner joins for a fixed-hop
// (a)-[*k..k]->(b) pattern (spec §3.3, §4.5.4). Children_'s Join.Child
// fields are unused placeholders; Base plus list order is what the render
// layer folds into a left-deep join chain.
type ChainedJoin struct {
	Base     Node
	Children_ []*Join
	EndAlias string
}

func (c *ChainedJoin) Children() []Node { return []Node{c.Base} }
func (c *ChainedJoin) String() string {
	return fmt.Sprintf("ChainedJoin(hops=%d end=%s)", len(c.Children_), c.EndAlias)
}

// Filter is a scalar filter (spec §3.3).
type Filter struct {
	Child     Node
	Predicate ast.Expression
}

func (f *Filter) Children() []Node { return []Node{f.Child} }
func (f *Filter) String() string   { return fmt.Sprintf("Filter(%s)", exprString(f.Predicate)) }

// Project is column selection, optionally DISTINCT (spec §3.3).
type Project struct {
	Child       Node
	Projections []ast.Projection
	Distinct    bool
}

func (p *Project) Children() []Node { return []Node{p.Child} }
func (p *Project) String() string {
	names := make([]string, len(p.Projections))
	for i, pr := range p.Projections {
		names[i] = projString(pr)
	}
	return fmt.Sprintf("Project(distinct=%v, %s)", p.Distinct, strings.Join(names, ", "))
}

// GroupBy carries synthesized grouping keys and aggregate expressions
// (spec §3.3, §4.4.6).
type GroupBy struct {
	Child      Node
	Keys       []ast.Expression
	Aggregates []ast.Projection
}

func (g *GroupBy) Children() []Node { return []Node{g.Child} }
func (g *GroupBy) String() string   { return fmt.Sprintf("GroupBy(keys=%d, aggs=%d)", len(g.Keys), len(g.Aggregates)) }

// Having filters post-aggregation (spec §3.3 invariant: produced only when
// GroupBy is the immediate child and the predicate references an aggregate
// alias).
type Having struct {
	Child     Node
	Predicate ast.Expression
}

func (h *Having) Children() []Node { return []Node{h.Child} }
func (h *Having) String() string   { return fmt.Sprintf("Having(%s)", exprString(h.Predicate)) }

// OrderBy, Skip, Limit implement RETURN's trailing modifiers (spec §3.3).
type OrderBy struct {
	Child Node
	Keys  []ast.OrderTerm
}

func (o *OrderBy) Children() []Node { return []Node{o.Child} }
func (o *OrderBy) String() string   { return fmt.Sprintf("OrderBy(%d keys)", len(o.Keys)) }

type Skip struct {
	Child Node
	N     ast.Expression
}

func (s *Skip) Children() []Node { return []Node{s.Child} }
func (s *Skip) String() string   { return fmt.Sprintf("Skip(%s)", exprString(s.N)) }

type Limit struct {
	Child Node
	N     ast.Expression
}

func (l *Limit) Children() []Node { return []Node{l.Child} }
func (l *Limit) String() string   { return fmt.Sprintf("Limit(%s)", exprString(l.N)) }

// With is a pipeline boundary equivalent to Project plus an optional
// post-filter (spec §3.3). PostFilter is nil if the clause had no trailing
// WHERE; PostFilterIsHaving records whether the builder classified the
// predicate as a HAVING (aggregate-referencing) or Filter.
type With struct {
	Child               Node
	Projections         []ast.Projection
	Distinct            bool
	PostFilter          ast.Expression
	PostFilterIsHaving  bool
}

func (w *With) Children() []Node { return []Node{w.Child} }
func (w *With) String() string   { return fmt.Sprintf("With(%d projections)", len(w.Projections)) }

// Unwind unrolls a list-typed expression into rows (spec §3.3).
type Unwind struct {
	Child     Node
	Source    ast.Expression
	OutAlias  string
}

func (u *Unwind) Children() []Node { return []Node{u.Child} }
func (u *Unwind) String() string   { return fmt.Sprintf("Unwind(%s AS %s)", exprString(u.Source), u.OutAlias) }

// Union is a top-level UNION ALL (spec §3.3).
type Union struct {
	Left  Node
	Right Node
}

func (u *Union) Children() []Node { return []Node{u.Left, u.Right} }
func (u *Union) String() string   { return "Union" }

// Empty is the semantic "provably no rows" node emitted by property pruning
// when an untyped pattern cannot match any labelled type (spec §3.3, §4.4.1).
type Empty struct{}

func (e *Empty) Children() []Node { return nil }
func (e *Empty) String() string   { return "Empty" }

func exprString(e ast.Expression) string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	// Reuse the AST package's own rendering via a minimal local fallback to
	// avoid a plan->ast->plan import cycle on the canonical printer; this is
	// for String()/debugging only, never for SQL generation.
	writeExprDebug(&sb, e)
	return sb.String()
}

func projString(p ast.Projection) string {
	if p.Wildcard {
		return p.Var
	}
	var sb strings.Builder
	writeExprDebug(&sb, p.Expr)
	if p.Alias != "" {
		sb.WriteString(" AS " + p.Alias)
	}
	return sb.String()
}

func writeExprDebug(sb *strings.Builder, e ast.Expression) {
	switch v := e.(type) {
	case nil:
		sb.WriteString("?")
	case *ast.Literal:
		fmt.Fprintf(sb, "%v", v.Value)
	case *ast.ParamRef:
		fmt.Fprintf(sb, "$%s", v.Name)
	case *ast.VarRef:
		sb.WriteString(v.Name)
	case *ast.PropertyAccess:
		fmt.Fprintf(sb, "%s.%s", v.Var, v.Prop)
	case *ast.BinaryOp:
		writeExprDebug(sb, v.Left)
		fmt.Fprintf(sb, " %s ", v.Op)
		writeExprDebug(sb, v.Right)
	case *ast.UnaryOp:
		fmt.Fprintf(sb, "%s ", v.Op)
		writeExprDebug(sb, v.Operand)
	case *ast.IsNull:
		writeExprDebug(sb, v.Operand)
		if v.Negated {
			sb.WriteString(" IS NOT NULL")
		} else {
			sb.WriteString(" IS NULL")
		}
	case *ast.FuncCall:
		fmt.Fprintf(sb, "%s(...)", v.Name)
	default:
		sb.WriteString("<expr>")
	}
}
