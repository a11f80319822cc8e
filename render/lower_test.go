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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genezhang/clickgraph/analyzer"
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/builder"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/optimizer"
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
	require.NoError(t, cat.AddRelationship(&catalog.RelationshipEntry{
		Type: "FOLLOWS", Table: "follows", IDColumns: []string{"id"},
		FromColumns: []string{"from_id"}, FromLabel: "User",
		ToColumns: []string{"to_id"}, ToLabel: "User",
	}))
	return cat
}

func compile(t *testing.T, cat *catalog.Catalog, src string) (plan.Node, *plan.Context) {
	t.Helper()
	q, err := ast.Parse(src)
	require.NoError(t, err)
	res, err := builder.Build(q, cat, 1)
	require.NoError(t, err)
	out, err := analyzer.Run(res.Plan, res.Context, cat, nil)
	require.NoError(t, err)
	opt, err := optimizer.Run(out.Plan, out.Context, cat, nil)
	require.NoError(t, err)
	return opt.Plan, opt.Context
}

func TestLowerSimpleMatchReturn(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat, `MATCH (a:User) WHERE a.age > 18 RETURN a.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sel, ok := frag.(*SelectFragment)
	require.True(t, ok)
	require.Equal(t, "users", sel.From.Table)
	require.Equal(t, "a", sel.From.Alias)
	require.Len(t, sel.Columns, 1)
	require.Equal(t, "a.name", sel.Columns[0].Expr)
	require.Contains(t, sel.Where, "(a.age > 18)")

	sql := Print(frag)
	require.Contains(t, sql, "SELECT a.name")
	require.Contains(t, sql, "FROM users AS a")
	require.Contains(t, sql, "WHERE (a.age > 18)")
}

func TestLowerOneHopJoin(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat,
		`MATCH (a:User)-[:FOLLOWS]->(b:User) WHERE b.age > 18 RETURN a.name, b.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)
	require.Contains(t, sql, "JOIN follows")
	require.Contains(t, sql, "JOIN users")
	// The b.age filter was pushed onto its Join condition by the optimizer,
	// so it must not also appear as a standalone WHERE clause.
	sel := frag.(*SelectFragment)
	require.Empty(t, sel.Where)
}

func TestLowerWithProducesCTE(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat,
		`MATCH (a:User) WITH a, a.age AS age WHERE age > 18 RETURN a.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sel, ok := frag.(*SelectFragment)
	require.True(t, ok)
	require.Len(t, sel.CTEs, 1)
	require.NotNil(t, sel.CTEs[0].Select)
	sql := Print(frag)
	require.Contains(t, sql, "WITH ")
}

func TestLowerVariableLengthPathEmitsRecursiveCTEWithPathTracking(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat,
		`MATCH (a:User)-[:FOLLOWS*1..3]->(b:User) WHERE a.name = 'Alice' RETURN b.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)

	require.Contains(t, sql, "WITH RECURSIVE")
	require.Contains(t, sql, "path_nodes")
	require.Contains(t, sql, "path_relationships")
	require.Contains(t, sql, "arrayConcat")
	require.Contains(t, sql, "NOT has(p.path_nodes")
}

func TestLowerShortestPathPartitionsByStartNode(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat,
		`MATCH p = shortestPath((a:User)-[:FOLLOWS*1..5]->(b:User)) WHERE a.name IN ['Alice', 'Bob'] RETURN b.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)

	require.Contains(t, sql, "ROW_NUMBER() OVER (PARTITION BY start_id ORDER BY hop_count ASC)")
	require.Contains(t, sql, "rn = 1")
}

func TestLowerAllShortestPathsFiltersOnMinHopCount(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat,
		`MATCH p = allShortestPaths((a:User)-[:FOLLOWS*1..5]->(b:User)) WHERE a.name = 'Alice' RETURN b.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)

	require.Contains(t, sql, "hop_count = (SELECT MIN(hop_count) FROM")
}

func TestLowerEmptyInListIsAlwaysFalse(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat, `MATCH (a:User) WHERE a.name IN [] RETURN a.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)
	require.Contains(t, sql, "FALSE")
	require.NotContains(t, sql, "IN ()")
}

func TestLowerEmptyPlan(t *testing.T) {
	frag, err := Lower(&plan.Empty{}, plan.NewContext(1), nil)
	require.NoError(t, err)
	sql := Print(frag)
	require.Contains(t, sql, "WHERE 0")
}
