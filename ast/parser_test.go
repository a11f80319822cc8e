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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genezhang/clickgraph/cgqerrors"
)

func TestParseSingleHopWithWhere(t *testing.T) {
	q, err := Parse(`MATCH (a:User)-[r:FOLLOWS]->(b:User) WHERE a.name = 'Alice' RETURN a.name, b.name`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 3)

	m, ok := q.Clauses[0].(*MatchClause)
	require.True(t, ok)
	require.False(t, m.Optional)
	require.Len(t, m.Patterns, 1)
	require.Len(t, m.Patterns[0].Segments, 3)

	a := m.Patterns[0].Segments[0].(*NodePattern)
	require.Equal(t, "a", a.Var)
	require.Equal(t, []string{"User"}, a.Labels)

	rel := m.Patterns[0].Segments[1].(*RelationshipPattern)
	require.Equal(t, "r", rel.Var)
	require.Equal(t, []string{"FOLLOWS"}, rel.Types)
	require.Equal(t, DirOutgoing, rel.Direction)
	require.Nil(t, rel.Range)

	w, ok := q.Clauses[1].(*WhereClause)
	require.True(t, ok)
	bo, ok := w.Predicate.(*BinaryOp)
	require.True(t, ok)
	require.Equal(t, "=", bo.Op)

	ret, ok := q.Clauses[2].(*ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Projections, 2)
}

func TestParseOptionalMatch(t *testing.T) {
	q, err := Parse(`MATCH (a:User) WHERE a.name='Eve' OPTIONAL MATCH (a)-[:FOLLOWS]->(b:User) RETURN a.name, b.name`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 4)
	opt, ok := q.Clauses[2].(*MatchClause)
	require.True(t, ok)
	require.True(t, opt.Optional)
}

func TestParseShortestPath(t *testing.T) {
	q, err := Parse(`MATCH p = shortestPath((a:User)-[:FOLLOWS*]-(b:User)) WHERE a.name='Alice' AND b.name='Eve' RETURN length(p)`)
	require.NoError(t, err)
	m := q.Clauses[0].(*MatchClause)
	pat := m.Patterns[0]
	require.Equal(t, "p", pat.PathVar)
	require.True(t, pat.ShortestPath)
	rel := pat.Segments[1].(*RelationshipPattern)
	require.NotNil(t, rel.Range)
	require.Equal(t, 0, rel.Range.Min)
	require.Equal(t, Unbounded, rel.Range.Max)
	require.Equal(t, DirUndirected, rel.Direction)
}

func TestParseWithHaving(t *testing.T) {
	q, err := Parse(`MATCH (a:User)-[:FOLLOWS]->(b) WITH a, COUNT(b) AS cnt WHERE cnt > 1 RETURN a.name, cnt`)
	require.NoError(t, err)
	with, ok := q.Clauses[1].(*WithClause)
	require.True(t, ok)
	require.Len(t, with.Projections, 2)
	require.True(t, IsAggregate(with.Projections[1].Expr))
	require.NotNil(t, with.Where)
}

func TestParseUndirectedTwoHop(t *testing.T) {
	q, err := Parse(`MATCH (a:User)-[:FRIEND]-(b:User)-[:FRIEND]-(c:User) WHERE a.id=1 RETURN c.id`)
	require.NoError(t, err)
	m := q.Clauses[0].(*MatchClause)
	require.Len(t, m.Patterns[0].Segments, 5)
	rel1 := m.Patterns[0].Segments[1].(*RelationshipPattern)
	rel2 := m.Patterns[0].Segments[3].(*RelationshipPattern)
	require.Equal(t, DirUndirected, rel1.Direction)
	require.Equal(t, DirUndirected, rel2.Direction)
}

func TestParseHopRanges(t *testing.T) {
	cases := []struct {
		src      string
		min, max int
	}{
		{`MATCH (a)-[:R*]->(b) RETURN a`, 0, Unbounded},
		{`MATCH (a)-[:R*3]->(b) RETURN a`, 3, 3},
		{`MATCH (a)-[:R*2..4]->(b) RETURN a`, 2, 4},
		{`MATCH (a)-[:R*1..]->(b) RETURN a`, 1, Unbounded},
	}
	for _, c := range cases {
		q, err := Parse(c.src)
		require.NoError(t, err, c.src)
		m := q.Clauses[0].(*MatchClause)
		rel := m.Patterns[0].Segments[1].(*RelationshipPattern)
		require.Equal(t, c.min, rel.Range.Min, c.src)
		require.Equal(t, c.max, rel.Range.Max, c.src)
	}
}

func TestParseUnionAll(t *testing.T) {
	q, err := Parse(`MATCH (a:User) RETURN a.name UNION ALL MATCH (b:Admin) RETURN b.name`)
	require.NoError(t, err)
	require.NotNil(t, q.Union)
	require.Nil(t, q.Clauses)
}

func TestParseErrorHasSpan(t *testing.T) {
	_, err := Parse(`MATCH (a RETURN a`)
	require.Error(t, err)
	var ce *cgqerrors.CompileError
	require.ErrorAs(t, err, &ce)
	require.NotNil(t, ce.Span)
}

func TestPrintRoundTrip(t *testing.T) {
	srcs := []string{
		`MATCH (a:User)-[r:FOLLOWS]->(b:User) WHERE (a.name = 'Alice') RETURN a.name, b.name`,
		`MATCH (a:User) WHERE (a.age > 18) RETURN a`,
		`UNWIND [1, 2, 3] AS x RETURN x`,
	}
	for _, src := range srcs {
		q1, err := Parse(src)
		require.NoError(t, err, src)
		printed := Print(q1)
		q2, err := Parse(printed)
		require.NoError(t, err, printed)
		require.Equal(t, q1, q2, "round trip mismatch for %q -> %q", src, printed)
	}
}
