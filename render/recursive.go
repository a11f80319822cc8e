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

	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// lowerVariableLengthRel builds the "WITH RECURSIVE name AS (base UNION ALL
// recursive)" CTE spec §4.5.4/§6.1 describes for a GraphRel the analyzer left
// untouched (unbounded range, or a fixed range too wide for
// optimizer.ConfirmChainedJoins to unroll). The CTE exposes start_id, end_id
// and hop_count; frag is joined to it on frag's left alias and then, always,
// a further join back to the right node's physical table.
func lowerVariableLengthRel(v *plan.GraphRel, r *resolver, frag *SelectFragment) error {
	if len(v.Types) != 1 {
		return cgqerrors.Internal("render: variable-length pattern must resolve to exactly one relationship type, got %v", v.Types)
	}
	rel, err := r.cat.Relationship(v.Types[0])
	if err != nil {
		return err
	}
	if len(rel.FromColumns) != 1 || len(rel.ToColumns) != 1 {
		return cgqerrors.Internal("render: variable-length relationship %q must have single-column endpoints", rel.Type)
	}

	fromCol, toCol := rel.FromColumns[0], rel.ToColumns[0]
	if v.Direction == ast.DirIncoming {
		fromCol, toCol = toCol, fromCol
	}
	table := qualifiedTable(rel.Database, rel.Table)

	name := r.ctx.Names.Fresh("path")
	minHop := 1
	maxHop := ast.Unbounded
	if v.Range != nil {
		minHop, maxHop = v.Range.Min, v.Range.Max
	}

	// The running tuple carries path_nodes/path_relationships alongside
	// start_id/end_id/hop_count (spec §4.5.4), and the recursive case's
	// "NOT has(p.path_nodes, ...)" guard is the node-non-revisit predicate
	// spec §8.1 requires alongside the strict hop-count increment.
	base := fmt.Sprintf(
		"SELECT %s AS start_id, %s AS end_id, 1 AS hop_count, [%s, %s] AS path_nodes, [tuple(%s, %s)] AS path_relationships FROM %s",
		quoteIdent(fromCol), quoteIdent(toCol), quoteIdent(fromCol), quoteIdent(toCol), quoteIdent(fromCol), quoteIdent(toCol), table,
	)
	recursive := fmt.Sprintf(
		"SELECT p.start_id AS start_id, e.%s AS end_id, p.hop_count + 1 AS hop_count, "+
			"arrayConcat(p.path_nodes, [e.%s]) AS path_nodes, "+
			"arrayConcat(p.path_relationships, [tuple(e.%s, e.%s)]) AS path_relationships "+
			"FROM %s p JOIN %s e ON e.%s = p.end_id "+
			"WHERE p.hop_count + 1 <= %d AND NOT has(p.path_nodes, e.%s)",
		quoteIdent(toCol), quoteIdent(toCol), quoteIdent(fromCol), quoteIdent(toCol),
		name, table, quoteIdent(fromCol), maxHop, quoteIdent(toCol),
	)
	body := fmt.Sprintf("%s UNION ALL %s", base, recursive)

	frag.CTEs = append(frag.CTEs, CTE{Name: name, Recursive: true, RawBody: body})

	joinAlias := name
	switch {
	case v.Shortest:
		// spec §9's resolved open question: one shortest path per start
		// node, not one globally-shortest row, so a flat ORDER BY/LIMIT 1
		// isn't enough once more than one start node can match. Rank within
		// a wrapping CTE and keep only each start_id's own rank-1 row.
		inner := quoteIdent(name)
		if minHop > 1 {
			inner = fmt.Sprintf("(SELECT * FROM %s WHERE hop_count >= %d) ranked_src", quoteIdent(name), minHop)
		}
		ranked := r.ctx.Names.Fresh("shortest")
		rankedBody := fmt.Sprintf(
			"SELECT start_id, end_id, hop_count FROM (SELECT start_id, end_id, hop_count, "+
				"ROW_NUMBER() OVER (PARTITION BY start_id ORDER BY hop_count ASC) AS rn FROM %s) t WHERE rn = 1",
			inner,
		)
		frag.CTEs = append(frag.CTEs, CTE{Name: ranked, RawBody: rankedBody})
		joinAlias = ranked
	case v.AllShortest:
		if minHop > 1 {
			frag.Where = append(frag.Where, fmt.Sprintf("%s.hop_count >= %d", quoteIdent(joinAlias), minHop))
		}
		// spec §4.5.4's last bullet: every path tied for the minimum
		// hop-count, not just the first one ORDER BY happens to emit.
		frag.Where = append(frag.Where, fmt.Sprintf(
			"%s.hop_count = (SELECT MIN(hop_count) FROM %s)", quoteIdent(joinAlias), quoteIdent(name)))
	default:
		if minHop > 1 {
			frag.Where = append(frag.Where, fmt.Sprintf("%s.hop_count >= %d", quoteIdent(joinAlias), minHop))
		}
	}

	leftIDCol, err := nodeIDColumn(v.LeftAlias, r)
	if err != nil {
		return err
	}
	onLeft := fmt.Sprintf("%s.%s = %s.start_id", quoteIdent(v.LeftAlias), quoteIdent(leftIDCol), quoteIdent(joinAlias))
	frag.Joins = append(frag.Joins, JoinFragment{Kind: "INNER", Table: joinAlias, Alias: joinAlias, On: onLeft})

	// The right-hand node alias still needs its own table to resolve any
	// property access beyond the bare id the path CTE already carries.
	rightTable, err := scanTable(v.RightEntity, false, r.cat)
	if err != nil {
		return err
	}
	rightIDCol, err := nodeIDColumn(v.RightAlias, r)
	if err != nil {
		return err
	}
	onRight := fmt.Sprintf("%s.%s = %s.end_id", quoteIdent(v.RightAlias), quoteIdent(rightIDCol), quoteIdent(joinAlias))
	frag.Joins = append(frag.Joins, JoinFragment{Kind: "INNER", Table: rightTable, Alias: v.RightAlias, On: onRight})

	return nil
}

// nodeIDColumn resolves alias's node identity column, used to join a path
// CTE's start_id/end_id back to the node's own physical table.
func nodeIDColumn(alias string, r *resolver) (string, error) {
	binding, ok := r.ctx.Aliases[alias]
	if !ok {
		return "", cgqerrors.Internal("render: alias %q has no binding for variable-length path join", alias)
	}
	node, err := r.cat.Node(binding.LabelOrType)
	if err != nil {
		return "", err
	}
	if len(node.IDColumns) == 0 {
		return "", cgqerrors.Internal("render: node %q has no identity column", node.Label)
	}
	return node.IDColumns[0], nil
}
