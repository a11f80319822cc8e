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

package builder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/plan"
)

func socialCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New("social")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "User", Table: "users", IDColumns: []string{"id"},
		Properties: map[string]catalog.PropertyValue{"name": catalog.Col("name"), "age": catalog.Col("age")},
	}))
	require.NoError(t, cat.AddRelationship(&catalog.RelationshipEntry{
		Type: "FOLLOWS", Table: "follows",
		FromColumns: []string{"from_id"}, FromLabel: "User",
		ToColumns: []string{"to_id"}, ToLabel: "User",
	}))
	return cat
}

func TestBuildSingleHopWithWhere(t *testing.T) {
	q, err := ast.Parse(`MATCH (a:User)-[r:FOLLOWS]->(b:User) WHERE a.name = 'Alice' RETURN a.name, b.name`)
	require.NoError(t, err)
	res, err := Build(q, socialCatalog(t), 1)
	require.NoError(t, err)

	proj, ok := res.Plan.(*plan.Project)
	require.True(t, ok)
	require.Len(t, proj.Projections, 2)

	filter, ok := proj.Child.(*plan.Filter)
	require.True(t, ok)

	gr, ok := filter.Child.(*plan.GraphRel)
	require.True(t, ok)
	require.Equal(t, "a", gr.LeftAlias)
	require.Equal(t, "b", gr.RightAlias)
	require.Equal(t, []string{"FOLLOWS"}, gr.Types)

	scan, ok := gr.Child.(*plan.TableScan)
	require.True(t, ok)
	require.Equal(t, "a", scan.Entity.Alias)
}

func TestBuildOptionalMatchMarksNewAliases(t *testing.T) {
	q, err := ast.Parse(`MATCH (a:User) WHERE a.name='Eve' OPTIONAL MATCH (a)-[:FOLLOWS]->(b:User) RETURN a.name, b.name`)
	require.NoError(t, err)
	res, err := Build(q, socialCatalog(t), 1)
	require.NoError(t, err)
	require.True(t, res.Context.IsOptional("b"))
	require.False(t, res.Context.IsOptional("a"))
}

func TestBuildWithHavingClassification(t *testing.T) {
	q, err := ast.Parse(`MATCH (a:User)-[:FOLLOWS]->(b) WITH a, COUNT(b) AS cnt WHERE cnt > 1 RETURN a.name, cnt`)
	require.NoError(t, err)
	res, err := Build(q, socialCatalog(t), 1)
	require.NoError(t, err)

	proj := res.Plan.(*plan.Project)
	with, ok := proj.Child.(*plan.With)
	require.True(t, ok)
	require.True(t, with.PostFilterIsHaving)
}

func TestBuildUntypedPatternExpandsCandidates(t *testing.T) {
	q, err := ast.Parse(`MATCH (n) WHERE n.age > 18 RETURN n`)
	require.NoError(t, err)
	res, err := Build(q, socialCatalog(t), 1)
	require.NoError(t, err)
	binding := res.Context.Aliases["n"]
	require.Equal(t, []string{"User"}, binding.Candidates)
}

func TestBuildUnionAll(t *testing.T) {
	q, err := ast.Parse(`MATCH (a:User) RETURN a.name UNION ALL MATCH (b:User) RETURN b.name`)
	require.NoError(t, err)
	res, err := Build(q, socialCatalog(t), 1)
	require.NoError(t, err)
	_, ok := res.Plan.(*plan.Union)
	require.True(t, ok)
}
