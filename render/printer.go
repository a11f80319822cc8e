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
	"fmt"
	"sort"
	"strings"
)

// Print renders f as dialect SQL text (spec §4.8, §6.1). The printer never
// re-derives semantics: every decision about what to select, join, or filter
// was already made by Lower, so Print is purely textual assembly.
func Print(f Fragment) string {
	var sb strings.Builder
	printFragment(&sb, f)
	return sb.String()
}

func printFragment(sb *strings.Builder, f Fragment) {
	switch v := f.(type) {
	case *SelectFragment:
		printSelect(sb, v)
	case *UnionFragment:
		printUnion(sb, v)
	case *ScalarFragment:
		printScalar(sb, v)
	}
}

func printUnion(sb *strings.Builder, u *UnionFragment) {
	for i, b := range u.Branches {
		if i > 0 {
			sb.WriteString(" UNION ALL ")
		}
		// Each branch prints its own CTE list, if it has one: lowerWith
		// hoists nested CTEs up to the branch that contains them, not
		// across UNION branches.
		printSelect(sb, b)
	}
}

func printScalar(sb *strings.Builder, s *ScalarFragment) {
	sb.WriteString("SELECT ")
	writeColumns(sb, s.Columns)
}

func printSelect(sb *strings.Builder, s *SelectFragment) {
	if s.empty {
		sb.WriteString("SELECT * FROM (SELECT 1) AS _empty WHERE 0")
		return
	}
	writeCTEs(sb, s.CTEs)

	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	writeColumns(sb, s.Columns)

	fmt.Fprintf(sb, " FROM %s", tableRefSQL(s.From))
	for _, j := range s.Joins {
		fmt.Fprintf(sb, " %s JOIN %s", j.Kind, quoteTable(j.Table))
		if j.Alias != "" && j.Alias != j.Table {
			fmt.Fprintf(sb, " AS %s", j.Alias)
		}
		if j.On != "" {
			fmt.Fprintf(sb, " ON %s", j.On)
		}
	}

	if len(s.Where) > 0 {
		fmt.Fprintf(sb, " WHERE %s", strings.Join(s.Where, " AND "))
	}
	if len(s.GroupBy) > 0 {
		fmt.Fprintf(sb, " GROUP BY %s", strings.Join(s.GroupBy, ", "))
	}
	if s.Having != "" {
		fmt.Fprintf(sb, " HAVING %s", s.Having)
	}
	if len(s.OrderBy) > 0 {
		fmt.Fprintf(sb, " ORDER BY %s", strings.Join(s.OrderBy, ", "))
	}
	if s.Limit != "" {
		fmt.Fprintf(sb, " LIMIT %s", s.Limit)
	}
	if s.Skip != "" {
		fmt.Fprintf(sb, " OFFSET %s", s.Skip)
	}
	if len(s.Settings) > 0 {
		writeSettings(sb, s.Settings)
	}
}

func writeCTEs(sb *strings.Builder, ctes []CTE) {
	if len(ctes) == 0 {
		return
	}
	sb.WriteString("WITH ")
	recursive := false
	for _, c := range ctes {
		if c.Recursive {
			recursive = true
		}
	}
	if recursive {
		sb.WriteString("RECURSIVE ")
	}
	for i, c := range ctes {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s AS (", quoteIdent(c.Name))
		if c.Select != nil {
			printSelect(sb, c.Select)
		} else {
			sb.WriteString(c.RawBody)
		}
		sb.WriteString(")")
	}
	sb.WriteString(" ")
}

func writeColumns(sb *strings.Builder, cols []Column) {
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Expr)
		if c.Alias != "" {
			fmt.Fprintf(sb, " AS %s", quoteIdent(c.Alias))
		}
	}
}

func tableRefSQL(t TableRef) string {
	if t.Alias == "" || t.Alias == t.Table {
		return quoteTable(t.Table)
	}
	return fmt.Sprintf("%s AS %s", quoteTable(t.Table), t.Alias)
}

// quoteTable leaves a database-qualified table name's dot untouched while
// still quoting each identifier segment as quoteIdent would.
func quoteTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

func writeSettings(sb *strings.Builder, settings map[string]string) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteString(" SETTINGS ")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s = %s", k, settings[k])
	}
}
