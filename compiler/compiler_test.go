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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genezhang/clickgraph/catalog"
)

func socialRegistry(t *testing.T) *catalog.Registry {
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
	reg := catalog.NewRegistry()
	reg.Register(cat)
	require.NoError(t, reg.SetDefault("social"))
	return reg
}

func TestCompileSimpleQuery(t *testing.T) {
	reg := socialRegistry(t)
	resp, err := Compile(context.Background(), reg, Request{
		Query: `MATCH (a:User) WHERE a.age > 18 RETURN a.name`,
	}, Options{})
	require.NoError(t, err)
	require.Contains(t, resp.SQL, "SELECT a.name")
	require.Contains(t, resp.SQL, "FROM users AS a")
	require.NotEmpty(t, resp.PlanID)
	require.Len(t, resp.ResultShape.Columns, 1)
	require.Equal(t, "name", resp.ResultShape.Columns[0].Name)
}

func TestCompileSQLOnlySkipsResultShape(t *testing.T) {
	reg := socialRegistry(t)
	resp, err := Compile(context.Background(), reg, Request{
		Query:   `MATCH (a:User) RETURN a.name`,
		SQLOnly: true,
	}, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SQL)
	require.Empty(t, resp.ResultShape.Columns)
}

func TestCompileUnknownCatalogFails(t *testing.T) {
	reg := socialRegistry(t)
	_, err := Compile(context.Background(), reg, Request{
		Query:   `MATCH (a:User) RETURN a.name`,
		Catalog: "nope",
	}, Options{})
	require.Error(t, err)
}

func TestCompileBindsSuppliedViewParameter(t *testing.T) {
	cat := catalog.New("tenanted")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "Account", Table: "accounts", IDColumns: []string{"id"},
		Properties:     map[string]catalog.PropertyValue{"name": catalog.Col("name")},
		SchemaFilter:   "tenant_id = {tenant}",
		ViewParameters: []catalog.ViewParameter{{Name: "tenant"}},
	}))
	reg := catalog.NewRegistry()
	reg.Register(cat)
	require.NoError(t, reg.SetDefault("tenanted"))

	resp, err := Compile(context.Background(), reg, Request{
		Query:          `MATCH (a:Account) RETURN a.name`,
		ViewParameters: map[string]string{"tenant": "'acme'"},
	}, Options{})
	require.NoError(t, err)
	require.Contains(t, resp.SQL, "tenant_id = 'acme'")
	require.Empty(t, resp.Warnings)
}

func TestCompileWarnsOnUnboundViewParameter(t *testing.T) {
	cat := catalog.New("tenanted")
	require.NoError(t, cat.AddNode(&catalog.NodeEntry{
		Label: "Account", Table: "accounts", IDColumns: []string{"id"},
		Properties:     map[string]catalog.PropertyValue{"name": catalog.Col("name")},
		SchemaFilter:   "tenant_id = {tenant}",
		ViewParameters: []catalog.ViewParameter{{Name: "tenant"}},
	}))
	reg := catalog.NewRegistry()
	reg.Register(cat)
	require.NoError(t, reg.SetDefault("tenanted"))

	resp, err := Compile(context.Background(), reg, Request{
		Query: `MATCH (a:Account) RETURN a.name`,
	}, Options{})
	require.NoError(t, err)
	require.Contains(t, resp.SQL, "{tenant}")
	require.Len(t, resp.Warnings, 1)
}

func TestCompileWarnsOnMissingParameter(t *testing.T) {
	reg := socialRegistry(t)
	resp, err := Compile(context.Background(), reg, Request{
		Query: `MATCH (a:User) WHERE a.age > $minAge RETURN a.name`,
	}, Options{})
	require.NoError(t, err)
	require.Contains(t, resp.SQL, "{minAge}")
	require.Len(t, resp.Warnings, 1)
	require.Contains(t, resp.Warnings[0], "minAge")
}

func TestCompileSuppliedParameterSuppressesWarning(t *testing.T) {
	reg := socialRegistry(t)
	resp, err := Compile(context.Background(), reg, Request{
		Query:      `MATCH (a:User) WHERE a.age > $minAge RETURN a.name`,
		Parameters: map[string]interface{}{"minAge": 18},
	}, Options{})
	require.NoError(t, err)
	require.Empty(t, resp.Warnings)
}

func TestCompileBudgetExceeded(t *testing.T) {
	reg := socialRegistry(t)
	_, err := Compile(context.Background(), reg, Request{
		Query: `MATCH (a:User)-[:FOLLOWS]->(b:User) RETURN a.name, b.name`,
	}, Options{Budget: 1})
	require.Error(t, err)
}

func TestCompileFingerprintIsStableAcrossRepeatedCompiles(t *testing.T) {
	reg := socialRegistry(t)
	req := Request{Query: `MATCH (a:User) RETURN a.name`}
	first, err := Compile(context.Background(), reg, req, Options{})
	require.NoError(t, err)
	second, err := Compile(context.Background(), reg, req, Options{})
	require.NoError(t, err)
	require.Equal(t, first.Fingerprint, second.Fingerprint)
	require.Equal(t, first.SQL, second.SQL)
	require.NotEqual(t, first.PlanID, second.PlanID)
}

func TestCompileBatchRunsConcurrently(t *testing.T) {
	reg := socialRegistry(t)
	reqs := []Request{
		{Query: `MATCH (a:User) RETURN a.name`},
		{Query: `MATCH (a:User) RETURN a.age`},
	}
	resps, err := CompileBatch(context.Background(), reg, reqs, Options{})
	require.NoError(t, err)
	require.Len(t, resps, 2)
	require.Contains(t, resps[0].SQL, "a.name")
	require.Contains(t, resps[1].SQL, "a.age")
}
