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

package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genezhang/clickgraph/analyzer"
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/builder"
	"github.com/genezhang/clickgraph/catalog"
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
	return out.Plan, out.Context
}

func TestPushDownFiltersAttachesToJoin(t *testing.T) {
	n, _ := compile(t, socialCatalog(t),
		`MATCH (a:User)-[:FOLLOWS]->(b:User) WHERE b.age > 18 RETURN a.name, b.name`)
	n = PushDownFilters(n)
	require.False(t, containsFilterOn(n, "b"), "the b.age filter should have moved onto b's Join condition")
}

func TestConfirmChainedJoinsWidensSelectiveFixedHop(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat,
		`MATCH (a:User)-[:FOLLOWS*4..4]->(b:User) WHERE a.id = 1 RETURN b.name`)
	// The analyzer's small-k heuristic (<=3) leaves this as a GraphRel; the
	// optimizer only widens it once a WherePredicate has actually been
	// pushed onto it.
	n = PushDownFilters(n)
	n, ctx, err := ConfirmChainedJoins(n, ctx, cat, DefaultWidenedHopLimit)
	require.NoError(t, err)
	require.True(t, containsChainedJoin(n), "a 4-hop fixed range with a selective anchor should widen into a ChainedJoin")
}

func containsFilterOn(n plan.Node, alias string) bool {
	if n == nil {
		return false
	}
	if f, ok := n.(*plan.Filter); ok {
		if refs, ok := f.Predicate.(*ast.BinaryOp); ok {
			if pa, ok := refs.Left.(*ast.PropertyAccess); ok && pa.Var == alias {
				return true
			}
		}
	}
	for _, c := range n.Children() {
		if containsFilterOn(c, alias) {
			return true
		}
	}
	return false
}

func containsChainedJoin(n plan.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := n.(*plan.ChainedJoin); ok {
		return true
	}
	for _, c := range n.Children() {
		if containsChainedJoin(c) {
			return true
		}
	}
	return false
}
