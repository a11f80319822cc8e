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

	"github.com/genezhang/clickgraph/internal/sqlgolden"
)

const socialFixture = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER);
CREATE TABLE follows (id INTEGER PRIMARY KEY, from_id INTEGER, to_id INTEGER);
INSERT INTO users VALUES (1, 'alice', 30), (2, 'bob', 25), (3, 'carol', 40);
INSERT INTO follows VALUES (1, 1, 2), (2, 2, 3);
`

// TestGoldenOneHopJoinRunsOnSQLite renders a one-hop MATCH and runs the
// emitted SQL against an in-memory SQLite database (SPEC_FULL.md §B): this
// catches gross syntactic breakage the Fragment-shape assertions in
// lower_test.go wouldn't, since it actually executes the printed text.
func TestGoldenOneHopJoinRunsOnSQLite(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat, `MATCH (a:User)-[:FOLLOWS]->(b:User) RETURN a.name, b.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)

	h, err := sqlgolden.New()
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.LoadFixture(socialFixture))

	cols, rows, err := h.Run(sql)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	require.Len(t, rows, 2)
}

// TestGoldenWithCTERunsOnSQLite exercises the WITH-boundary CTE flattening
// convention end to end against SQLite.
func TestGoldenWithCTERunsOnSQLite(t *testing.T) {
	cat := socialCatalog(t)
	n, ctx := compile(t, cat, `MATCH (a:User) WITH a, a.age AS age WHERE age > 20 RETURN a.name`)
	frag, err := Lower(n, ctx, cat)
	require.NoError(t, err)
	sql := Print(frag)

	h, err := sqlgolden.New()
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.LoadFixture(socialFixture))

	_, rows, err := h.Run(sql)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}
