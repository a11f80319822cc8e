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

package analyzer

import (
	"github.com/sirupsen/logrus"

	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/plan"
)

// Result is the output of Run: the rewritten plan plus the context it
// carries after the last pass.
type Result struct {
	Plan    plan.Node
	Context *plan.Context
}

// Run executes the analyzer passes of spec §4.4 in a fixed order, each one
// a pure (plan.Node, *plan.Context) -> (plan.Node, *plan.Context) step:
//
//  1. InferSchema     - §4.4.1 candidate-label pruning, Empty on exhaustion
//  2. SplitConjuncts   - §4.4.2 filter tagging (restructure ANDs)
//  3. DedupScans       - §4.4.3 duplicate-scan invariant check
//  4. InferGraphJoins  - §4.5 graph-join inference (the hot spot)
//  5. BuildGroupBys    - §4.4.6 grouping-key / aggregate split
//  6. TagProjections   - §4.4.6 invariant: no nested aggregates
//  7. Sanitize         - closing cleanup pass
//
// log, if non-nil, gets a Debug entry per pass naming the pass and the
// resulting node count, matching the teacher's logrus usage in its analyzer
// (SPEC_FULL.md §A "Logging").
func Run(n plan.Node, ctx *plan.Context, cat *catalog.Catalog, log *logrus.Entry) (*Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
		log.Logger.SetOutput(discardWriter{})
	}

	var err error
	n, ctx, err = InferSchema(n, ctx, cat)
	if err != nil {
		return nil, err
	}
	logPass(log, "InferSchema", n)

	n = SplitConjuncts(n)
	logPass(log, "SplitConjuncts", n)

	if err := DedupScans(n); err != nil {
		return nil, err
	}
	logPass(log, "DedupScans", n)

	n, ctx, err = InferGraphJoins(n, ctx, cat)
	if err != nil {
		return nil, err
	}
	logPass(log, "InferGraphJoins", n)

	n = BuildGroupBys(n)
	logPass(log, "BuildGroupBys", n)

	if err := TagProjections(n); err != nil {
		return nil, err
	}
	logPass(log, "TagProjections", n)

	n = Sanitize(n)
	logPass(log, "Sanitize", n)

	return &Result{Plan: n, Context: ctx}, nil
}

func logPass(log *logrus.Entry, name string, n plan.Node) {
	log.WithField("pass", name).WithField("nodes", countNodes(n)).Debug("analyzer pass complete")
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

// discardWriter is a zero-value io.Writer sink, used so Run's default
// logger never writes anywhere absent an explicit *logrus.Entry (spec
// SPEC_FULL.md §A "defaulting to a discard logger").
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
