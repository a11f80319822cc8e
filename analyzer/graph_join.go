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
	"sort"

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// maxUndirectedCombinations caps the 2^k UNION ALL fan-out from k
// undirected edges in one connected pattern (spec §4.5.3). A pattern with
// more undirected hops than this is rare enough in practice that refusing it
// with a budget error is preferable to silently emitting a huge UNION.
const maxUndirectedCombinations = 16

// InferGraphJoins is the spec §4.5 pass: it walks the plan replacing each
// contiguous TableScan/GraphRel/Filter chain (a single MATCH pattern, or a
// comma-joined group of them) with the Join/ChainedJoin tree that actually
// reaches every aliased node and relationship, choosing an anchor, emitting
// joins breadth-first from it, and attaching node/relationship uniqueness
// predicates and catalog schema filters along the way.
//
// A GraphRel carrying a variable-length range that isn't a small fixed hop
// count is left untouched: spec §4.8 lowers it directly to a recursive CTE
// at render time, so there is nothing for join inference to rewrite it into.
func InferGraphJoins(n plan.Node, ctx *plan.Context, cat *catalog.Catalog) (plan.Node, *plan.Context, error) {
	inf := &inferrer{cat: cat, ctx: ctx}
	out, err := inf.transform(n)
	return out, inf.ctx, err
}

type inferrer struct {
	cat *catalog.Catalog
	ctx *plan.Context
}

func (inf *inferrer) transform(n plan.Node) (plan.Node, error) {
	switch v := n.(type) {
	case *plan.Project:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Child: child, Projections: v.Projections, Distinct: v.Distinct}, nil
	case *plan.With:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, nil
	case *plan.GroupBy:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, nil
	case *plan.Having:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		return &plan.Having{Child: child, Predicate: v.Predicate}, nil
	case *plan.OrderBy:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, nil
	case *plan.Skip:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		return &plan.Skip{Child: child, N: v.N}, nil
	case *plan.Limit:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		return &plan.Limit{Child: child, N: v.N}, nil
	case *plan.Unwind:
		child, err := inf.transform(v.Child)
		if err != nil {
			return nil, err
		}
		v2 := *v
		v2.Child = child
		return &v2, nil
	case *plan.Union:
		left, err := inf.transform(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := inf.transform(v.Right)
		if err != nil {
			return nil, err
		}
		return &plan.Union{Left: left, Right: right}, nil
	case *plan.Empty:
		return v, nil
	case *plan.TableScan, *plan.GraphRel, *plan.Filter, *plan.Join:
		return inf.inferChain(n)
	default:
		return n, nil
	}
}

// inferChain collects one contiguous pattern (every TableScan/GraphRel/
// Filter/cross-Join beneath n) and replaces it with its join-inferred
// result.
func (inf *inferrer) inferChain(n plan.Node) (plan.Node, error) {
	c := &chainCollector{nodes: map[string]plan.Entity{}}
	if err := c.collect(n); err != nil {
		return nil, err
	}

	// Single-hop variable-length / shortestPath patterns with no other
	// graph structure around them lower straight through to render.
	if len(c.edges) == 1 && c.edges[0].Range != nil {
		e := c.edges[0]
		if isSmallFixedHop(e.Range) && !e.Shortest && !e.AllShortest {
			return inf.unrollFixedHop(c)
		}
		return n, nil
	}

	return inf.inferJoins(c)
}

func isSmallFixedHop(r *ast.HopRange) bool {
	return r.Min == r.Max && r.Max > 0 && r.Max <= 3
}

type chainCollector struct {
	nodes   map[string]plan.Entity
	edges   []*plan.GraphRel
	filters []ast.Expression
}

func (c *chainCollector) collect(n plan.Node) error {
	switch v := n.(type) {
	case *plan.TableScan:
		c.nodes[v.Entity.Alias] = v.Entity
		return nil
	case *plan.GraphRel:
		if err := c.collect(v.Child); err != nil {
			return err
		}
		c.nodes[v.RightAlias] = v.RightEntity
		c.edges = append(c.edges, v)
		if v.WherePredicate != nil {
			c.filters = append(c.filters, v.WherePredicate)
		}
		return nil
	case *plan.Filter:
		if err := c.collect(v.Child); err != nil {
			return err
		}
		c.filters = append(c.filters, v.Predicate)
		return nil
	case *plan.Join:
		if err := c.collect(v.Child); err != nil {
			return err
		}
		if v.Condition != nil {
			return cgqerrors.Internal("graph-join inference encountered a pre-conditioned Join")
		}
		c.nodes[v.Joined.Alias] = plan.Entity{Alias: v.Joined.Alias, Labels: v.Joined.Labels}
		return nil
	default:
		return cgqerrors.Internal("unexpected node %T inside a pattern chain", n)
	}
}

// inferJoins implements spec §4.5.2-§4.5.6: anchor selection, BFS join
// emission, undirected-edge orientation fan-out, and node/relationship
// uniqueness predicates.
func (inf *inferrer) inferJoins(c *chainCollector) (plan.Node, error) {
	anchor := inf.chooseAnchor(c)

	undirected := make([]*plan.GraphRel, 0)
	for _, e := range c.edges {
		if e.Direction == ast.DirUndirected {
			undirected = append(undirected, e)
		}
	}
	if len(undirected) > 0 {
		combos := 1 << uint(len(undirected))
		if combos > maxUndirectedCombinations {
			return nil, cgqerrors.BudgetExceeded("pattern has too many undirected edges to enumerate orientations")
		}
		var branches []plan.Node
		for mask := 0; mask < combos; mask++ {
			orient := map[*plan.GraphRel]bool{} // true: treat as LeftAlias->RightAlias (outgoing)
			for i, e := range undirected {
				orient[e] = mask&(1<<uint(i)) != 0
			}
			branch, err := inf.emitOneOrientation(c, anchor, orient)
			if err != nil {
				return nil, err
			}
			branches = append(branches, branch)
		}
		out := branches[0]
		for _, b := range branches[1:] {
			out = &plan.Union{Left: out, Right: b}
		}
		return out, nil
	}

	return inf.emitOneOrientation(c, anchor, nil)
}

// chooseAnchor implements the tie-break ladder of spec §4.5.2.
func (inf *inferrer) chooseAnchor(c *chainCollector) string {
	aliases := make([]string, 0, len(c.nodes))
	for a := range c.nodes {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases) // deterministic fallback ordering

	// Tier 1: alias constrained by an equality filter on an identity column.
	for _, f := range c.filters {
		for _, a := range aliases {
			prop, ok := isEqualityOn(f, a)
			if !ok {
				continue
			}
			if entry, err := inf.cat.Node(singleLabel(c.nodes[a])); err == nil {
				if containsStr(entry.IDColumns, prop) {
					return a
				}
			}
		}
	}
	// Tier 2: a non-optional alias (optional aliases must stay on the
	// outside of a LEFT join, never the join root). Among several, the
	// alphabetically first wins; source order is not tracked here.
	for _, a := range aliases {
		if !inf.ctx.IsOptional(a) {
			return a
		}
	}
	// Every alias is optional: the alphabetically first one.
	return aliases[0]
}

// relIsFKEdge reports whether rel is an FK-edge (spec §4.5.1): a
// relationship whose table is the from-node's own table rather than a
// separate edge table.
func (inf *inferrer) relIsFKEdge(rel *catalog.RelationshipEntry) bool {
	return rel.IsFKEdge(func(label string) string {
		n, err := inf.cat.Node(label)
		if err != nil {
			return ""
		}
		return n.Table
	})
}

func singleLabel(e plan.Entity) string {
	if len(e.Labels) == 0 {
		return ""
	}
	return e.Labels[0]
}

func containsStr(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// emitOneOrientation builds the base TableScan(anchor) and BFS-emits a Join
// for each reachable edge, given a fixed orientation choice for undirected
// edges (orient may be nil when there are none).
func (inf *inferrer) emitOneOrientation(c *chainCollector, anchor string, orient map[*plan.GraphRel]bool) (plan.Node, error) {
	var out plan.Node = &plan.TableScan{Entity: c.nodes[anchor]}
	// buildNodeJoin only ANDs a node's catalog schema filter into the join
	// condition that reaches it from the other side of an edge, so the
	// anchor itself — including a bare single-node pattern with no edges at
	// all — needs its own filter applied here instead.
	if label := singleLabel(c.nodes[anchor]); label != "" {
		if node, err := inf.cat.Node(label); err == nil && node.SchemaFilter != "" {
			out = &plan.Filter{Child: out, Predicate: &ast.RawPredicate{SQL: node.SchemaFilter}}
		}
	}
	visited := map[string]bool{anchor: true}
	queue := []string{anchor}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range c.edges {
			var other string
			switch {
			case e.LeftAlias == cur:
				other = e.RightAlias
			case e.RightAlias == cur:
				other = e.LeftAlias
			default:
				continue
			}
			if visited[other] {
				continue
			}
			// fromIsLeft says which side of the pattern plays the catalog's
			// "from" role; for an undirected edge it is a free choice fixed
			// per enumerated orientation (spec §4.5.3), otherwise it follows
			// the pattern's own arrow.
			var fromIsLeft bool
			switch {
			case e.Direction == ast.DirUndirected && orient != nil:
				fromIsLeft = orient[e]
			case e.Direction == ast.DirIncoming:
				fromIsLeft = false
			default:
				fromIsLeft = true
			}

			fromAlias, toAlias := e.LeftAlias, e.RightAlias
			if !fromIsLeft {
				fromAlias, toAlias = e.RightAlias, e.LeftAlias
			}

			relJoin, err := inf.buildRelJoin(e, fromAlias, toAlias, cur, c.nodes[cur])
			if err != nil {
				return nil, err
			}
			out = relJoin(out)

			nodeJoin, skip, err := inf.buildNodeJoin(e, fromAlias, other, c.nodes[other])
			if err != nil {
				return nil, err
			}
			if !skip {
				out = nodeJoin(out)
			}

			visited[other] = true
			queue = append(queue, other)
		}
	}

	// Any remaining declared nodes not reached by an edge are either
	// comma-pattern cross joins or (should not happen) disconnected nodes.
	var unreached []string
	for a := range c.nodes {
		if !visited[a] {
			unreached = append(unreached, a)
		}
	}
	sort.Strings(unreached)
	for _, a := range unreached {
		out = &plan.Join{Child: out, Joined: plan.JoinRef{Alias: a, Labels: c.nodes[a].Labels}, Kind: plan.Inner}
	}

	out = inf.attachUniqueness(out, c)
	out = inf.attachRemainingFilters(out, c)
	return out, nil
}

// buildRelJoin resolves a relationship's table against its catalog entry and
// returns a function attaching the Join node for its edge row (spec §4.5.1).
// fromAlias/toAlias are the pattern-level aliases playing the catalog's
// "from"/"to" roles for this orientation; curAlias is whichever of the two
// is already materialized, with curEntity its (by now single-label) entity.
//
// An FK-edge relationship (spec §4.5.1: "the relationship is itself a
// column on a node table") has no row of its own to join — rel.Table IS
// the from-node's table — so there is nothing here for buildRelJoin to
// attach; buildNodeJoin folds the FK column straight into its own join
// condition instead.
func (inf *inferrer) buildRelJoin(e *plan.GraphRel, fromAlias, toAlias, curAlias string, curEntity plan.Entity) (func(plan.Node) plan.Node, error) {
	typ := ""
	if len(e.Types) > 0 {
		typ = e.Types[0]
	}
	rel, err := inf.cat.Relationship(typ)
	if err != nil {
		return nil, err
	}
	if inf.relIsFKEdge(rel) {
		return func(base plan.Node) plan.Node { return base }, nil
	}
	node, err := inf.cat.Node(singleLabel(curEntity))
	if err != nil {
		return nil, err
	}

	var cond ast.Expression
	if curAlias == fromAlias {
		cond = columnEquality(e.RelAlias, rel.FromColumns, curAlias, node.IDColumns)
	} else {
		cond = columnEquality(e.RelAlias, rel.ToColumns, curAlias, node.IDColumns)
	}
	if len(e.Types) > 1 || rel.IsPolymorphic() {
		disc := discriminatorPredicate(e.RelAlias, rel, e.Types)
		if disc != nil {
			cond = andExpr(cond, disc)
		}
	}
	if rel.SchemaFilter != "" {
		cond = andExpr(cond, &ast.RawPredicate{SQL: rel.SchemaFilter})
	}
	kind := plan.Inner
	if e.Optional {
		kind = plan.Left
	}
	return func(base plan.Node) plan.Node {
		return &plan.Join{Child: base, Joined: plan.JoinRef{Alias: e.RelAlias, Labels: e.Types, IsRel: true}, Condition: cond, Kind: kind}
	}, nil
}

// buildNodeJoin resolves the newly-reached node's Join, or reports that it
// should be skipped because the relationship denormalizes that endpoint's
// properties directly onto the edge row (spec §4.5.1 "denormalized
// relationship": no node join is emitted, ResolveRelProperty serves
// property access against the edge row instead).
func (inf *inferrer) buildNodeJoin(e *plan.GraphRel, fromAlias, otherAlias string, otherEntity plan.Entity) (fn func(plan.Node) plan.Node, skip bool, err error) {
	typ := ""
	if len(e.Types) > 0 {
		typ = e.Types[0]
	}
	rel, rerr := inf.cat.Relationship(typ)
	if rerr != nil {
		return nil, false, rerr
	}
	isFrom := otherAlias == fromAlias
	if isFrom && rel.IsDenormalizedFrom() {
		return nil, true, nil
	}
	if !isFrom && rel.IsDenormalizedTo() {
		return nil, true, nil
	}

	label := singleLabel(otherEntity)
	if label == "" {
		if isFrom {
			label = rel.FromLabel
		} else {
			label = rel.ToLabel
		}
	}
	node, nerr := inf.cat.Node(label)
	if nerr != nil {
		return nil, false, nerr
	}
	var cond ast.Expression
	if inf.relIsFKEdge(rel) {
		// No edge row exists to join through: rel.ToColumns is a foreign-key
		// column living directly on whichever alias plays the catalog's
		// "from" role (spec §4.5.1's FK-edge pattern), so the two node
		// aliases are joined on it directly.
		if isFrom {
			curAlias := e.LeftAlias
			if curAlias == otherAlias {
				curAlias = e.RightAlias
			}
			toNode, terr := inf.cat.Node(rel.ToLabel)
			if terr != nil {
				return nil, false, terr
			}
			cond = columnEquality(otherAlias, rel.ToColumns, curAlias, toNode.IDColumns)
		} else {
			cond = columnEquality(fromAlias, rel.ToColumns, otherAlias, node.IDColumns)
		}
	} else {
		var relCols []string
		if isFrom {
			relCols = rel.FromColumns
		} else {
			relCols = rel.ToColumns
		}
		cond = columnEquality(e.RelAlias, relCols, otherAlias, node.IDColumns)
	}
	if node.SchemaFilter != "" {
		cond = andExpr(cond, &ast.RawPredicate{SQL: node.SchemaFilter})
	}
	kind := plan.Inner
	if e.Optional {
		kind = plan.Left
	}
	return func(base plan.Node) plan.Node {
		return &plan.Join{Child: base, Joined: plan.JoinRef{Alias: otherAlias, Labels: []string{label}}, Condition: cond, Kind: kind}
	}, false, nil
}

func columnEquality(leftAlias string, leftCols []string, rightAlias string, rightCols []string) ast.Expression {
	n := len(leftCols)
	if len(rightCols) < n {
		n = len(rightCols)
	}
	var out ast.Expression
	for i := 0; i < n; i++ {
		eq := &ast.BinaryOp{
			Op:   "=",
			Left: &ast.PropertyAccess{Var: leftAlias, Prop: leftCols[i]},
			Right: &ast.PropertyAccess{Var: rightAlias, Prop: rightCols[i]},
		}
		out = andExpr(out, eq)
	}
	return out
}

func andExpr(a, b ast.Expression) ast.Expression {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &ast.BinaryOp{Op: "AND", Left: a, Right: b}
}

func discriminatorPredicate(relAlias string, rel *catalog.RelationshipEntry, types []string) ast.Expression {
	if rel.TypeColumn == "" {
		return nil
	}
	if len(types) <= 1 {
		value := rel.TypeValue
		if value == "" {
			value = rel.Type
		}
		return &ast.BinaryOp{
			Op:   "=",
			Left: &ast.PropertyAccess{Var: relAlias, Prop: rel.TypeColumn},
			Right: &ast.Literal{Value: value},
		}
	}
	items := make([]ast.Expression, len(types))
	for i, t := range types {
		items[i] = &ast.Literal{Value: t}
	}
	return &ast.BinaryOp{
		Op:   "IN",
		Left: &ast.PropertyAccess{Var: relAlias, Prop: rel.TypeColumn},
		Right: &ast.ListLiteral{Items: items},
	}
}

// attachUniqueness wraps out in Filter nodes enforcing node isomorphism
// (in a multi-hop pattern, every pair of distinct node aliases binds to
// distinct rows) and relationship isomorphism (every pair of distinct relationship
// aliases binds to distinct edges), per spec §4.5.5. Anonymous aliases
// (builder-generated "_n"/"_rel" names) are excluded from node isomorphism:
// only explicitly user-named nodes are guaranteed distinct.
func (inf *inferrer) attachUniqueness(out plan.Node, c *chainCollector) plan.Node {
	named := make([]string, 0, len(c.nodes))
	for a := range c.nodes {
		if len(a) < 2 || a[0] != '_' {
			named = append(named, a)
		}
	}
	sort.Strings(named)
	if len(c.edges) > 1 {
		for i := 0; i < len(named); i++ {
			for j := i + 1; j < len(named); j++ {
				a, b := named[i], named[j]
				if !sameCandidateLabel(c.nodes[a], c.nodes[b]) {
					continue // different labels can never collide on identity
				}
				pred := inf.distinctRowsPredicate(a, b, c.nodes[a])
				if pred != nil {
					out = &plan.Filter{Child: out, Predicate: pred}
				}
			}
		}
	}
	for i, e1 := range c.edges {
		for j := i + 1; j < len(c.edges); j++ {
			e2 := c.edges[j]
			if e1.RelAlias == "" || e2.RelAlias == "" || e1.RelAlias == e2.RelAlias {
				continue
			}
			if len(e1.Types) != 1 || len(e2.Types) != 1 || e1.Types[0] != e2.Types[0] {
				continue
			}
			rel, err := inf.cat.Relationship(e1.Types[0])
			if err != nil || len(rel.IDColumns) == 0 {
				continue
			}
			out = &plan.Filter{Child: out, Predicate: notEqualTuple(e1.RelAlias, e2.RelAlias, rel.IDColumns)}
		}
	}
	return out
}

func sameCandidateLabel(a, b plan.Entity) bool {
	return singleLabel(a) != "" && singleLabel(a) == singleLabel(b)
}

func (inf *inferrer) distinctRowsPredicate(a, b string, entity plan.Entity) ast.Expression {
	node, err := inf.cat.Node(singleLabel(entity))
	if err != nil || len(node.IDColumns) == 0 {
		return nil
	}
	return notEqualTuple(a, b, node.IDColumns)
}

func notEqualTuple(a, b string, cols []string) ast.Expression {
	var out ast.Expression
	for _, col := range cols {
		ne := &ast.BinaryOp{
			Op:   "<>",
			Left: &ast.PropertyAccess{Var: a, Prop: col},
			Right: &ast.PropertyAccess{Var: b, Prop: col},
		}
		if out == nil {
			out = ne
		} else {
			out = &ast.BinaryOp{Op: "OR", Left: out, Right: ne}
		}
	}
	return out
}

// attachRemainingFilters reattaches every predicate collected while walking
// the chain (WHERE conjuncts, desugared inline-property equalities) back on
// top of the join tree. The optimizer's filter-pushdown pass (spec §4.6.1)
// later relocates the ones it can onto the GraphRel-derived Joins; this pass
// only needs to not lose any of them.
func (inf *inferrer) attachRemainingFilters(out plan.Node, c *chainCollector) plan.Node {
	for _, f := range c.filters {
		out = &plan.Filter{Child: out, Predicate: f}
	}
	return out
}

// unrollFixedHop expands a (a)-[*k..k]->(b) pattern with no shortestPath
// marker into a ChainedJoin of k identical relationship/node join pairs
// (spec §4.5.4 "fixed hop count unrolls into k joins"), using fresh
// intermediate aliases from the shared name counter.
func (inf *inferrer) unrollFixedHop(c *chainCollector) (plan.Node, error) {
	e := c.edges[0]
	hops := e.Range.Max
	leftAlias := e.LeftAlias
	var base plan.Node = &plan.TableScan{Entity: c.nodes[leftAlias]}
	joins := make([]*plan.Join, 0, hops*2)

	cur := leftAlias
	curEntity := c.nodes[leftAlias]
	for i := 0; i < hops; i++ {
		relAlias := inf.ctx.Names.Fresh("_rel")
		var nodeAlias string
		var nodeEntity plan.Entity
		last := i == hops-1
		if last {
			nodeAlias = e.RightAlias
			nodeEntity = c.nodes[e.RightAlias]
		} else {
			nodeAlias = inf.ctx.Names.Fresh("_n")
			nodeEntity = plan.Entity{Alias: nodeAlias, Labels: []string{relEndpointLabel(inf.cat, e, false)}}
		}

		synthetic := &plan.GraphRel{
			LeftAlias: cur, RelAlias: relAlias, RightAlias: nodeAlias,
			RightEntity: nodeEntity, Types: e.Types, Direction: e.Direction, Optional: e.Optional,
		}
		relJoinFn, err := inf.buildRelJoin(synthetic, chooseFromAlias(synthetic), chooseToAlias(synthetic), cur, curEntity)
		if err != nil {
			return nil, err
		}
		relJoinNode := relJoinFn(nil).(*plan.Join)
		joins = append(joins, relJoinNode)

		nodeJoinFn, skip, err := inf.buildNodeJoin(synthetic, chooseFromAlias(synthetic), nodeAlias, nodeEntity)
		if err != nil {
			return nil, err
		}
		if !skip {
			nodeJoinNode := nodeJoinFn(nil).(*plan.Join)
			joins = append(joins, nodeJoinNode)
		}
		cur = nodeAlias
		curEntity = nodeEntity
	}

	return &plan.ChainedJoin{Base: base, Children_: joins, EndAlias: e.RightAlias}, nil
}

// UnrollGraphRel unrolls a single fixed-hop GraphRel in isolation, with base
// substituted for the synthesized TableScan unrollFixedHop would otherwise
// build from scratch (so a Filter/Join already sitting under e.Child is not
// discarded). Exported for the optimizer's chained-join-selection pass (spec
// §4.6 item 3): InferGraphJoins only unrolls hop counts up to
// isSmallFixedHop's default of 3, but a pushed-down selective anchor
// predicate can justify unrolling a wider fixed range too.
func UnrollGraphRel(e *plan.GraphRel, base plan.Node, leftEntity plan.Entity, ctx *plan.Context, cat *catalog.Catalog) (plan.Node, *plan.Context, error) {
	inf := &inferrer{cat: cat, ctx: ctx}
	c := &chainCollector{nodes: map[string]plan.Entity{
		e.LeftAlias:  leftEntity,
		e.RightAlias: e.RightEntity,
	}, edges: []*plan.GraphRel{e}}
	out, err := inf.unrollFixedHop(c)
	if err != nil {
		return nil, nil, err
	}
	cj := out.(*plan.ChainedJoin)
	cj.Base = base
	return cj, inf.ctx, nil
}

func chooseFromAlias(e *plan.GraphRel) string {
	if e.Direction == ast.DirIncoming {
		return e.RightAlias
	}
	return e.LeftAlias
}

func chooseToAlias(e *plan.GraphRel) string {
	if e.Direction == ast.DirIncoming {
		return e.LeftAlias
	}
	return e.RightAlias
}

func relEndpointLabel(cat *catalog.Catalog, e *plan.GraphRel, fromSide bool) string {
	typ := ""
	if len(e.Types) > 0 {
		typ = e.Types[0]
	}
	rel, err := cat.Relationship(typ)
	if err != nil {
		return ""
	}
	if fromSide {
		return rel.FromLabel
	}
	return rel.ToLabel
}
