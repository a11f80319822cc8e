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
)

func TestPrintSelectBasic(t *testing.T) {
	s := &SelectFragment{
		Columns: []Column{{Expr: "a.name", Alias: "name"}},
		From:    TableRef{Table: "users", Alias: "a"},
		Where:   []string{"(a.age > 18)"},
		Limit:   "10",
	}
	sql := Print(s)
	require.Equal(t, "SELECT a.name AS name FROM users AS a WHERE (a.age > 18) LIMIT 10", sql)
}

func TestPrintUnionAligned(t *testing.T) {
	a := &SelectFragment{
		Columns: []Column{{Expr: "a.name", Alias: "name"}},
		From:    TableRef{Table: "users", Alias: "a"},
	}
	b := &SelectFragment{
		Columns: []Column{{Expr: "b.title", Alias: "title"}},
		From:    TableRef{Table: "posts", Alias: "b"},
	}
	branches := []*SelectFragment{a, b}
	alignUnionBranches(branches)
	u := &UnionFragment{Branches: branches}
	sql := Print(u)
	require.Contains(t, sql, "UNION ALL")
	require.Len(t, a.Columns, 2)
	require.Len(t, b.Columns, 2)
	require.Equal(t, "NULL", a.Columns[1].Expr)
	require.Equal(t, "NULL", b.Columns[0].Expr)
}

func TestPrintRecursiveCTE(t *testing.T) {
	s := &SelectFragment{
		CTEs: []CTE{{Name: "path1", Recursive: true, RawBody: "SELECT 1 AS start_id, 2 AS end_id, 1 AS hop_count"}},
		Columns: []Column{{Expr: "a.name"}},
		From:    TableRef{Table: "users", Alias: "a"},
	}
	sql := Print(s)
	require.Contains(t, sql, "WITH RECURSIVE path1 AS (")
}

func TestPrintEmpty(t *testing.T) {
	sql := Print(&SelectFragment{empty: true})
	require.Contains(t, sql, "WHERE 0")
}

func TestQuoteIdentReservedWord(t *testing.T) {
	require.Equal(t, "`select`", quoteIdent("select"))
	require.Equal(t, "name", quoteIdent("name"))
	require.Equal(t, "`2fast`", quoteIdent("2fast"))
}
