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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/builder"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

func socialCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New("social")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "User", Table: "users", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{
			"name": catalog.Col("name"), "age": catalog.Col("age"),
		},
	}))
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "Company", Table: "companies", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{"name": catalog.Col("name")},
	}))
	require.NoError(t, cat.AddRelationship(&catalog.RelationshipEntry{
		Type: "FOLLOWS", Table: "follows", IDColumns: []string{"id"},
		FromColumns: []string{"from_id"}, FromLabel: "User",
		ToColumns: []string{"to_id"}, ToLabel: "User",
	}))
	require.NoError(t, cat.AddRelationship(&catalog.RelationshipEntry{
		Type: "WORKS_AT", Table: "employment", IDColumns: []string{"id"},
		FromColumns: []string{"user_id"}, FromLabel: "User",
		ToColumns: []string{"company_id"}, ToLabel: "Company",
	}))
	return cat
}

func compile(t *testing.T, cat *catalog.Catalog, src string) *Result {
	t.Helper()
	q, err := ast.Parse(src)
	require.NoError(t, err)
	res, err := builder.Build(q, cat, 1)
	require.NoError(t, err)
	out, err := Run(res.Plan, res.Context, cat, nil)
	require.NoError(t, err)
	return out
}

func TestRunSingleHopProducesJoinChain(t *testing.T) {
	out := compile(t, socialCatalog(t), `MATCH (a:User)-[r:FOLLOWS]->(b:User) WHERE a.name = 'Alice' RETURN a.name, b.name`)
	proj, ok := out.Plan.(*plan.Project)
	require.True(t, ok)

	// Under the Project we should find a Join chain rooted at a TableScan,
	// with no GraphRel left (spec §4.5 replaces it entirely).
	require.False(t, containsGraphRel(proj.Child))
	require.True(t, containsTableScan(proj.Child))
}

func TestRunChoosesEqualityAnchor(t *testing.T) {
	out := compile(t, socialCatalog(t), `MATCH (a:User)-[:FOLLOWS]->(b:User) WHERE b.id = 2 RETURN a.name, b.name`)
	scan := firstTableScan(t, out.Plan)
	require.Equal(t, "b", scan.Entity.Alias)
}

func TestRunAppliesAnchorSchemaFilterOnBareNodePattern(t *testing.T) {
	cat := catalog.New("tenanted")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "Account", Table: "accounts", IDColumns: []string{"id"},
		Properties:   map[string]catalog.PropertyValue{"name": catalog.Col("name")},
		SchemaFilter: "tenant_id = {tenant}",
	}))

	out := compile(t, cat, `MATCH (a:Account) RETURN a.name`)
	require.True(t, containsFilterWithSQL(out.Plan, "tenant_id = {tenant}"))
}

func containsFilterWithSQL(n plan.Node, sql string) bool {
	if n == nil {
		return false
	}
	if f, ok := n.(*plan.Filter); ok {
		if raw, ok := f.Predicate.(*ast.RawPredicate); ok && raw.SQL == sql {
			return true
		}
	}
	for _, c := range n.Children() {
		if containsFilterWithSQL(c, sql) {
			return true
		}
	}
	return false
}

func TestRunTwoHopJoinsAllAliases(t *testing.T) {
	out := compile(t, socialCatalog(t),
		`MATCH (a:User)-[:FOLLOWS]->(b:User)-[:WORKS_AT]->(c:Company) RETURN a.name, c.name`)
	aliases := collectJoinedAliases(out.Plan)
	require.Contains(t, aliases, "a")
	require.Contains(t, aliases, "b")
	require.Contains(t, aliases, "c")
}

func TestRunFKEdgeCollapsesToDirectColumnJoin(t *testing.T) {
	cat := catalog.New("social")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "User", Table: "users", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{"name": catalog.Col("name")},
	}))
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "Company", Table: "companies", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{"name": catalog.Col("name")},
	}))
	require.NoError(t, cat.AddRelationship(&catalog.RelationshipEntry{
		// users.company_id is a plain FK column: the relationship's table
		// IS the from-node's own table, not a separate edge table.
		Type: "EMPLOYED_BY", Table: "users",
		FromColumns: []string{"id"}, FromLabel: "User",
		ToColumns: []string{"company_id"}, ToLabel: "Company",
	}))

	out := compile(t, cat, `MATCH (a:User)-[:EMPLOYED_BY]->(c:Company) RETURN a.name, c.name`)

	aliases := collectJoinedAliases(out.Plan)
	require.Contains(t, aliases, "a")
	require.Contains(t, aliases, "c")

	join := findJoin(out.Plan, "c")
	require.NotNil(t, join, "expected a direct Join onto the Company alias")
	require.True(t, containsPropertyEquality(join.Condition, "a", "company_id", "c", "id"),
		"FK-edge join should compare the from-node's own FK column against the to-node's id, with no separate edge-row join")
}

func findJoin(n plan.Node, alias string) *plan.Join {
	if n == nil {
		return nil
	}
	if j, ok := n.(*plan.Join); ok && j.Joined.Alias == alias {
		return j
	}
	for _, c := range n.Children() {
		if j := findJoin(c, alias); j != nil {
			return j
		}
	}
	return nil
}

func containsPropertyEquality(e ast.Expression, leftVar, leftProp, rightVar, rightProp string) bool {
	switch v := e.(type) {
	case *ast.BinaryOp:
		if v.Op == "=" {
			l, lok := v.Left.(*ast.PropertyAccess)
			r, rok := v.Right.(*ast.PropertyAccess)
			if lok && rok && l.Var == leftVar && l.Prop == leftProp && r.Var == rightVar && r.Prop == rightProp {
				return true
			}
		}
		return containsPropertyEquality(v.Left, leftVar, leftProp, rightVar, rightProp) ||
			containsPropertyEquality(v.Right, leftVar, leftProp, rightVar, rightProp)
	}
	return false
}

func TestRunUndirectedProducesUnion(t *testing.T) {
	out := compile(t, socialCatalog(t), `MATCH (a:User)-[:FOLLOWS]-(b:User) RETURN a.name, b.name`)
	require.True(t, containsUnion(out.Plan), "undirected edge should fan out into a UNION ALL of orientations")
}

func TestRunAmbiguousPropertyOnUntypedPatternFails(t *testing.T) {
	cat := catalog.New("social")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "User", Table: "users", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{"name": catalog.Col("name")},
	}))
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "Company", Table: "companies", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{"name": catalog.Col("name")},
	}))

	q, err := ast.Parse(`MATCH (n) WHERE n.name = 'Alice' RETURN n`)
	require.NoError(t, err)
	res, err := builder.Build(q, cat, 1)
	require.NoError(t, err)
	_, err = Run(res.Plan, res.Context, cat, nil)
	require.Error(t, err)
	require.True(t, cgqerrors.ErrAmbiguousProperty.Is(errors.Unwrap(err)))
}

func TestRunUntypedPatternPrunesToEmpty(t *testing.T) {
	out := compile(t, socialCatalog(t), `MATCH (n) WHERE n.nonexistent_prop = 1 RETURN n`)
	require.True(t, containsEmpty(out.Plan))
}

func TestRunGroupByClassifiesAggregates(t *testing.T) {
	out := compile(t, socialCatalog(t), `MATCH (a:User)-[:FOLLOWS]->(b:User) WITH a, COUNT(b) AS cnt WHERE cnt > 1 RETURN a.name, cnt`)
	proj := out.Plan.(*plan.Project)
	with := proj.Child.(*plan.With)
	_, ok := with.Child.(*plan.GroupBy)
	require.True(t, ok)
}

func TestRunRejectsNestedAggregate(t *testing.T) {
	q, err := ast.Parse(`MATCH (a:User) RETURN COUNT(COUNT(a))`)
	require.NoError(t, err)
	res, err := builder.Build(q, socialCatalog(t), 1)
	require.NoError(t, err)
	_, err = Run(res.Plan, res.Context, socialCatalog(t), nil)
	require.Error(t, err)
}

// --- test helpers ---

func containsGraphRel(n plan.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := n.(*plan.GraphRel); ok {
		return true
	}
	for _, c := range n.Children() {
		if containsGraphRel(c) {
			return true
		}
	}
	return false
}

func containsTableScan(n plan.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := n.(*plan.TableScan); ok {
		return true
	}
	for _, c := range n.Children() {
		if containsTableScan(c) {
			return true
		}
	}
	return false
}

func containsUnion(n plan.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := n.(*plan.Union); ok {
		return true
	}
	for _, c := range n.Children() {
		if containsUnion(c) {
			return true
		}
	}
	return false
}

func containsEmpty(n plan.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := n.(*plan.Empty); ok {
		return true
	}
	for _, c := range n.Children() {
		if containsEmpty(c) {
			return true
		}
	}
	return false
}

func firstTableScan(t *testing.T, n plan.Node) *plan.TableScan {
	t.Helper()
	if n == nil {
		return nil
	}
	if ts, ok := n.(*plan.TableScan); ok {
		return ts
	}
	for _, c := range n.Children() {
		if ts := firstTableScan(t, c); ts != nil {
			return ts
		}
	}
	return nil
}

func collectJoinedAliases(n plan.Node) map[string]bool {
	out := map[string]bool{}
	var walk func(plan.Node)
	walk = func(n plan.Node) {
		if n == nil {
			return
		}
		switch v := n.(type) {
		case *plan.TableScan:
			out[v.Entity.Alias] = true
		case *plan.Join:
			out[v.Joined.Alias] = true
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}
