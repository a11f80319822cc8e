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

// Package optimizer implements the passes of spec §4.6, run after the
// analyzer has already replaced every GraphRel it can with a Join/ChainedJoin
// tree. Unlike the analyzer passes, these never change query semantics: they
// only relocate predicates and widen an already-legal unrolling decision, so
// every pass here is safe to skip under a tight compile budget.
package optimizer

import (
	"github.com/sirupsen/logrus"

	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/plan"
)

// Result is the output of Run: the rewritten plan plus any diagnostics worth
// surfacing to the caller as Response.warnings (spec §6.2).
type Result struct {
	Plan     plan.Node
	Context  *plan.Context
	Warnings []string
}

// Run executes the optimizer passes of spec §4.6 in order:
//
//  1. PushDownFilters      - §4.6.1 relocate single-alias conjuncts onto
//     the GraphRel/Join that introduces that alias (or onto the GraphRel
//     directly above the scan that introduces it).
//  2. RescoreAnchors       - §4.6.2 re-score the anchor each pattern chain
//     picked, now that pushed-down predicates reveal more selectivity;
//     reported as a warning rather than replayed (see anchor.go).
//  3. ConfirmChainedJoins  - §4.6.3 widen the fixed-hop unroll threshold
//     when a predicate was pushed onto the GraphRel; its selectivity is
//     not examined.
func Run(n plan.Node, ctx *plan.Context, cat *catalog.Catalog, log *logrus.Entry) (*Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
		log.Logger.SetOutput(discardWriter{})
	}

	n = PushDownFilters(n)
	log.WithField("pass", "PushDownFilters").Debug("optimizer pass complete")

	warnings := RescoreAnchors(n, cat)
	for _, w := range warnings {
		log.WithField("pass", "RescoreAnchors").Warn(w)
	}

	n, ctx, err := ConfirmChainedJoins(n, ctx, cat, DefaultWidenedHopLimit)
	if err != nil {
		return nil, err
	}
	log.WithField("pass", "ConfirmChainedJoins").Debug("optimizer pass complete")

	return &Result{Plan: n, Context: ctx, Warnings: warnings}, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
