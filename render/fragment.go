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

// Package render lowers the annotated logical plan to SQL fragments and
// prints them as dialect SQL text (spec §4.8, §6.1).
package render

// Fragment is the sum type of render plan nodes (spec §4.8).
type Fragment interface{ fragmentNode() }

// Column is one SELECT-list entry: an already-rendered SQL expression plus
// its output alias ("" if the expression's own name should be used).
type Column struct {
	Expr  string
	Alias string
}

// TableRef names a FROM-clause table and the alias rows from it bind to.
type TableRef struct {
	Table string
	Alias string
}

// CTE is one entry of a WITH clause. A WITH-clause CTE (spec §4.8 "With
// becomes a CTE") carries its body as a nested Select fragment; a variable-
// length pattern's recursive CTE (spec §4.5.4, §6.1 "WITH RECURSIVE name AS
// (base UNION ALL recursive)") is built directly as dialect SQL text in
// RawBody, since its base/recursive-term shape doesn't fit the structured
// SelectFragment model. Exactly one of Select/RawBody is set.
type CTE struct {
	Name      string
	Recursive bool
	Select    *SelectFragment
	RawBody   string
}

// JoinFragment is one INNER/LEFT JOIN appended to a SelectFragment's FROM
// clause, in the order render should emit them (spec §4.8 "a list of
// JoinRef ... appended in order").
type JoinFragment struct {
	Kind string // "INNER" or "LEFT"
	Table string
	Alias string
	On    string
}

// SelectFragment is spec §4.8's SelectFragment.
type SelectFragment struct {
	CTEs     []CTE
	Distinct bool
	Columns  []Column
	From     TableRef
	Joins    []JoinFragment
	Where    []string
	GroupBy  []string
	Having   string
	OrderBy  []string
	Skip     string
	Limit    string
	Settings map[string]string
	// empty marks a fragment spec §4.8 says should "return zero rows
	// without querying any table" (the Empty plan node).
	empty bool
}

func (*SelectFragment) fragmentNode() {}

// UnionFragment is spec §4.8's UnionFragment: each branch lowered and column
// aligned independently (SPEC_FULL.md §C "cross-branch column alignment").
type UnionFragment struct {
	Branches []*SelectFragment
}

func (*UnionFragment) fragmentNode() {}

// ScalarFragment is spec §4.8's ScalarFragment, for a standalone RETURN with
// no FROM (e.g. "RETURN 1+1").
type ScalarFragment struct {
	Columns []Column
}

func (*ScalarFragment) fragmentNode() {}
