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
	"fmt"

	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// enforceBudget counts n's plan nodes and fails with BudgetExceeded once the
// count passes limit (spec §5 "compilations are bounded ... hard cap on
// number of plan nodes and CTEs"). Compile calls this after every pipeline
// stage that can grow the tree (the analyzer's undirected-edge UNION
// fan-out and fixed-hop unrolling, the optimizer's chained-join widening),
// so a runaway compilation is caught as early as possible.
func enforceBudget(n plan.Node, limit int) error {
	if limit <= 0 {
		return nil
	}
	count := countNodes(n)
	if count > limit {
		return cgqerrors.BudgetExceeded(fmt.Sprintf("plan has %d nodes, exceeding the configured limit of %d", count, limit))
	}
	return nil
}

func countNodes(n plan.Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children() {
		total += countNodes(c)
	}
	return total
}
