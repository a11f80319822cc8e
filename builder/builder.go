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

// Package builder converts a parsed CGQ ast.Query into the initial logical
// plan tree (spec §4.3). It consults the graph catalog only to expand
// untyped patterns into their candidate-label set; everything else
// (resolving candidates down to one label, inferring join shape, and so on)
// is left to the analyzer passes that run afterward.
package builder

import (
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// Result is the output of Build: a logical plan plus the context threaded
// alongside it, and the name of the catalog a USE clause selected (empty if
// none was present, meaning the caller's requested/default catalog governs).
type Result struct {
	Plan        plan.Node
	Context     *plan.Context
	UsedCatalog string
}

// Build converts q into a logical plan against cat. seed is the
// fingerprint used to initialize the per-compilation name counter
// (spec §3.4, §5).
func Build(q *ast.Query, cat *catalog.Catalog, seed uint64) (*Result, error) {
	b := &builder{cat: cat, ctx: plan.NewContext(seed)}
	return b.buildQuery(q)
}

type builder struct {
	cat *catalog.Catalog
	ctx *plan.Context
}

func (b *builder) buildQuery(q *ast.Query) (*Result, error) {
	if q.Union != nil {
		left, err := Build(q.Union.Left, b.cat, b.ctx.Names.Seed())
		if err != nil {
			return nil, err
		}
		right, err := Build(q.Union.Right, b.cat, b.ctx.Names.Seed())
		if err != nil {
			return nil, err
		}
		return &Result{Plan: &plan.Union{Left: left.Plan, Right: right.Plan}, Context: left.Context}, nil
	}

	var cur plan.Node
	var usedCatalog string
	for _, clause := range q.Clauses {
		var err error
		cur, usedCatalog, err = b.buildClause(clause, cur, usedCatalog)
		if err != nil {
			return nil, err
		}
	}
	return &Result{Plan: cur, Context: b.ctx, UsedCatalog: usedCatalog}, nil
}

func (b *builder) buildClause(c ast.Clause, cur plan.Node, usedCatalog string) (plan.Node, string, error) {
	switch v := c.(type) {
	case *ast.UseClause:
		// USE never appears in the output tree (spec §4.3).
		return cur, v.Catalog, nil

	case *ast.MatchClause:
		next, err := b.buildMatch(v, cur)
		return next, usedCatalog, err

	case *ast.WhereClause:
		return &plan.Filter{Child: cur, Predicate: v.Predicate}, usedCatalog, nil

	case *ast.WithClause:
		isHaving := v.Where != nil && referencesAggregateAlias(v.Where, v.Projections)
		var post ast.Expression
		if v.Where != nil {
			post = v.Where
		}
		b.trackProjectionRequirements(v.Projections)
		return &plan.With{
			Child: cur, Projections: v.Projections, Distinct: v.Distinct,
			PostFilter: post, PostFilterIsHaving: isHaving,
		}, usedCatalog, nil

	case *ast.UnwindClause:
		return &plan.Unwind{Child: cur, Source: v.Source, OutAlias: v.As}, usedCatalog, nil

	case *ast.ReturnClause:
		b.trackProjectionRequirements(v.Projections)
		node := plan.Node(&plan.Project{Child: cur, Projections: v.Projections, Distinct: v.Distinct})
		if len(v.OrderBy) > 0 {
			node = &plan.OrderBy{Child: node, Keys: v.OrderBy}
		}
		if v.Skip != nil {
			node = &plan.Skip{Child: node, N: v.Skip}
		}
		if v.Limit != nil {
			node = &plan.Limit{Child: node, N: v.Limit}
		}
		return node, usedCatalog, nil
	}
	return cur, usedCatalog, cgqerrors.Internal("unknown clause type %T", c)
}

// trackProjectionRequirements records, for every alias a wildcard projection
// or property-access projection references, that its properties must
// survive to SQL output (spec §3.4 "Property requirements"). These are the
// only projection references recorded: the analyzer adds predicate
// references in InferSchema, and its projection-tagging pass records none.
func (b *builder) trackProjectionRequirements(projs []ast.Projection) {
	for _, p := range projs {
		if p.Wildcard {
			b.ctx = b.ctx.RequireAllProperties(p.Var)
			continue
		}
		walkExprAliasProps(p.Expr, func(alias, prop string) {
			b.ctx = b.ctx.RequireProperty(alias, prop)
		})
	}
}

func walkExprAliasProps(e ast.Expression, fn func(alias, prop string)) {
	switch v := e.(type) {
	case *ast.PropertyAccess:
		fn(v.Var, v.Prop)
	case *ast.BinaryOp:
		walkExprAliasProps(v.Left, fn)
		walkExprAliasProps(v.Right, fn)
	case *ast.UnaryOp:
		walkExprAliasProps(v.Operand, fn)
	case *ast.IsNull:
		walkExprAliasProps(v.Operand, fn)
	case *ast.FuncCall:
		for _, a := range v.Args {
			walkExprAliasProps(a, fn)
		}
	case *ast.ListLiteral:
		for _, it := range v.Items {
			walkExprAliasProps(it, fn)
		}
	case *ast.CaseExpr:
		if v.Operand != nil {
			walkExprAliasProps(v.Operand, fn)
		}
		for _, w := range v.Whens {
			walkExprAliasProps(w.Cond, fn)
			walkExprAliasProps(w.Then, fn)
		}
		if v.Else != nil {
			walkExprAliasProps(v.Else, fn)
		}
	}
}

// referencesAggregateAlias reports whether pred references an alias that
// projs binds to an aggregate expression, which is the condition under which
// a WITH clause's trailing WHERE becomes HAVING instead of Filter
// (spec §4.3, §4.4.6).
func referencesAggregateAlias(pred ast.Expression, projs []ast.Projection) bool {
	aggAliases := map[string]bool{}
	for _, p := range projs {
		if p.Alias != "" && ast.IsAggregate(p.Expr) {
			aggAliases[p.Alias] = true
		}
	}
	found := false
	var walk func(ast.Expression)
	walk = func(e ast.Expression) {
		if found {
			return
		}
		if vr, ok := e.(*ast.VarRef); ok && aggAliases[vr.Name] {
			found = true
			return
		}
		switch v := e.(type) {
		case *ast.BinaryOp:
			walk(v.Left)
			walk(v.Right)
		case *ast.UnaryOp:
			walk(v.Operand)
		case *ast.IsNull:
			walk(v.Operand)
		case *ast.FuncCall:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(pred)
	return found
}

func (b *builder) buildMatch(m *ast.MatchClause, cur plan.Node) (plan.Node, error) {
	for _, pat := range m.Patterns {
		next, newAliases, err := b.buildPattern(pat, cur)
		if err != nil {
			return nil, err
		}
		if m.Optional {
			for _, a := range newAliases {
				b.ctx = b.ctx.MarkOptional(a)
			}
		}
		cur = next
	}
	return cur, nil
}

// buildPattern expands one path pattern into a left-deep chain of
// TableScan/GraphRel nodes joined onto cur (spec §4.3). It returns the
// aliases newly introduced by this pattern, used by OPTIONAL MATCH to know
// which bindings need NULL-on-absence semantics.
func (b *builder) buildPattern(pat *ast.Pattern, cur plan.Node) (plan.Node, []string, error) {
	var newAliases []string
	segs := pat.Segments
	firstNode := segs[0].(*ast.NodePattern)

	entity, isNew, err := b.bindNode(firstNode)
	if err != nil {
		return nil, nil, err
	}
	if isNew {
		newAliases = append(newAliases, entity.Alias)
	}

	var tree plan.Node
	switch {
	case b.ctx.IsJoined(entity.Alias):
		// Alias already scanned by an earlier pattern/clause (spec §4.3
		// "subsequent occurrences" are reused, not re-scanned); analyzer
		// pass 3 (duplicate-scan removal, spec §4.4.3) still runs to fold
		// any weaker label constraint this occurrence adds.
		tree = cur
	case cur == nil:
		tree = &plan.TableScan{Entity: entity}
		b.ctx = b.ctx.MarkJoined(entity.Alias)
	default:
		// A new, disconnected component within the same MATCH (e.g.
		// "MATCH (a)-->(b), (c)-->(d)"); join it in with no condition so
		// render lowering emits a comma/CROSS JOIN (spec §4.8 JoinRef).
		tree = &plan.Join{Child: cur, Joined: plan.JoinRef{Alias: entity.Alias, Labels: entity.Labels}, Kind: plan.Inner}
		b.ctx = b.ctx.MarkJoined(entity.Alias)
	}
	tree = b.applyInlineProps(tree, entity.Alias, firstNode.Properties)

	leftAlias := entity.Alias
	for i := 1; i < len(segs); i += 2 {
		relPat := segs[i].(*ast.RelationshipPattern)
		nodePat := segs[i+1].(*ast.NodePattern)

		rightEntity, isNewRight, err := b.bindNode(nodePat)
		if err != nil {
			return nil, nil, err
		}
		if isNewRight {
			newAliases = append(newAliases, rightEntity.Alias)
		}
		relAlias := relPat.Var
		if relAlias == "" {
			relAlias = b.ctx.Names.Fresh("_rel")
		}
		types := relPat.Types
		if len(types) == 0 {
			types = b.cat.AllTypes()
			if len(types) == 0 {
				return nil, nil, cgqerrors.New(cgqerrors.KindMissingRelationshipType,
					cgqerrors.ErrMissingRelType.New(relAlias), nil)
			}
		}
		gr := &plan.GraphRel{
			LeftAlias: leftAlias, RelAlias: relAlias, RightAlias: rightEntity.Alias,
			RightEntity: rightEntity, Types: types, Direction: relPat.Direction,
			Range: relPat.Range, Shortest: pat.ShortestPath, AllShortest: pat.AllShortestPaths,
			Child: tree,
		}
		b.ctx = b.ctx.BindAlias(relAlias, plan.AliasBinding{
			EntityKind: plan.KindRelationship, Candidates: types,
		})
		b.ctx = b.ctx.MarkJoined(rightEntity.Alias)

		var node plan.Node = gr
		node = b.applyInlineProps(node, rightEntity.Alias, nodePat.Properties)
		node = b.applyRelInlineProps(node, relAlias, types, relPat.Properties)
		tree = node
		leftAlias = rightEntity.Alias
	}
	return tree, newAliases, nil
}

// bindNode registers (or re-resolves) a node pattern's alias, expanding an
// untyped pattern to the catalog's full label set (spec §4.3 "When a pattern
// is untyped ... candidate labels equal to all labels in the catalog").
func (b *builder) bindNode(n *ast.NodePattern) (plan.Entity, bool, error) {
	alias := n.Var
	if alias == "" {
		alias = b.ctx.Names.Fresh("_n")
	}
	if existing, ok := b.ctx.Aliases[alias]; ok {
		candidates := existing.Candidates
		if len(n.Labels) > 0 {
			// A re-declared label on an alias the plan already bound narrows
			// (intersects) the candidate set rather than being discarded
			// (spec §4.4.3 "dedup/fold" is this folding done eagerly, since
			// the builder never introduces a second TableScan for the same
			// alias to begin with).
			candidates = intersectLabels(existing.Candidates, n.Labels)
			b.ctx = b.ctx.BindAlias(alias, plan.AliasBinding{
				EntityKind: existing.EntityKind, Candidates: candidates,
				LabelOrType: existing.LabelOrType, BackingTable: existing.BackingTable,
				IDColumns: existing.IDColumns, CatalogRef: existing.CatalogRef,
			})
		}
		return plan.Entity{Alias: alias, Labels: candidates, Properties: n.Properties}, false, nil
	}
	labels := n.Labels
	if len(labels) == 0 {
		labels = b.cat.AllLabels()
	}
	b.ctx = b.ctx.BindAlias(alias, plan.AliasBinding{EntityKind: plan.KindNode, Candidates: labels})
	return plan.Entity{Alias: alias, Labels: labels, Properties: n.Properties}, true, nil
}

// intersectLabels narrows candidates to those also named in redeclared,
// preserving candidates' order.
func intersectLabels(candidates, redeclared []string) []string {
	want := make(map[string]bool, len(redeclared))
	for _, l := range redeclared {
		want[l] = true
	}
	var out []string
	for _, l := range candidates {
		if want[l] {
			out = append(out, l)
		}
	}
	return out
}

// applyInlineProps desugars an inline property map on a node pattern into a
// Filter of equality conjuncts (spec §4.1 "Inline property maps ... which
// the builder desugars into WHERE equalities").
func (b *builder) applyInlineProps(tree plan.Node, alias string, props []ast.PropertyEquality) plan.Node {
	if len(props) == 0 {
		return tree
	}
	var pred ast.Expression
	for _, pe := range props {
		eq := &ast.BinaryOp{Op: "=", Left: &ast.PropertyAccess{Var: alias, Prop: pe.Name}, Right: pe.Value}
		if pred == nil {
			pred = eq
		} else {
			pred = &ast.BinaryOp{Op: "AND", Left: pred, Right: eq}
		}
	}
	return &plan.Filter{Child: tree, Predicate: pred}
}

// applyRelInlineProps desugars inline properties on a relationship pattern
// the same way, resolved through the catalog's relationship property map
// per the Open Question in spec.md §9 ("treat inline relationship
// properties uniformly as WHERE conjuncts").
func (b *builder) applyRelInlineProps(tree plan.Node, relAlias string, types []string, props []ast.PropertyEquality) plan.Node {
	return b.applyInlineProps(tree, relAlias, props)
}
