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

// Package compiler is the programmatic surface of the CGQ-to-SQL compiler
// (spec §6.2): it wires the lexer/parser, builder, analyzer, optimizer and
// render passes into one Compile call and never executes the SQL it emits.
package compiler

import (
	"context"

	"github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/genezhang/clickgraph/analyzer"
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/builder"
	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/optimizer"
	"github.com/genezhang/clickgraph/plan"
	"github.com/genezhang/clickgraph/render"
)

// Request is spec §6.2's programmatic request shape.
type Request struct {
	Query          string
	Catalog        string
	Parameters     map[string]interface{}
	ViewParameters map[string]string
	SQLOnly        bool
	Replan         string // "auto" or "force"; reserved for a future plan cache
}

// Response is spec §6.2's success response shape.
type Response struct {
	SQL         string
	ResultShape ResultShape
	Warnings    []string
	PlanID      string

	// Fingerprint is a stable hash of the parsed query (SPEC_FULL.md §B
	// "plan fingerprinting"): unlike PlanID, which is a fresh UUID on every
	// call for log correlation, Fingerprint is identical across repeated
	// compilations of the same query text, so a host can use it as a cache
	// key without comparing SQL strings.
	Fingerprint uint64
}

// ResultShape describes the emitted SQL's projected columns, so a host can
// bind result sets without re-parsing the query (spec §6.2 "result_shape").
type ResultShape struct {
	Columns []ColumnShape
}

// ColumnShape is one result column's name and a best-effort type hint.
type ColumnShape struct {
	Name         string
	InferredKind string
}

// Options configures one or more Compile calls. A zero-value Options is
// usable: it disables budget enforcement and uses a discard logger and a
// no-op tracer.
type Options struct {
	// Budget caps the number of plan nodes a single compilation may
	// produce (spec §5 "Cancellation"); CTEs emitted by render are not
	// counted. Zero means unbounded.
	Budget int
	Log    *logrus.Entry
	Tracer opentracing.Tracer
}

func (o Options) logger() *logrus.Entry {
	if o.Log != nil {
		return o.Log
	}
	log := logrus.NewEntry(logrus.New())
	log.Logger.SetOutput(discardWriter{})
	return log
}

func (o Options) tracer() opentracing.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}
	return opentracing.NoopTracer{}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Compile runs the full pipeline for one request: parse, build, analyze,
// optimize, lower, print. It never touches the network; the returned SQL is
// handed to an external columnar engine by the caller (spec §6).
func Compile(ctx context.Context, reg *catalog.Registry, req Request, opts Options) (*Response, error) {
	log := opts.logger()
	tracer := opts.tracer()
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.Compile")
	defer span.Finish()

	planID := uuid.NewV4().String()
	log = log.WithField("plan_id", planID)

	q, err := parseStage(ctx, tracer, req.Query)
	if err != nil {
		return nil, err
	}

	seed, err := fingerprint(q)
	if err != nil {
		return nil, cgqerrors.Internal("compiler: fingerprinting query: %v", err)
	}

	paramWarnings := checkParameters(q, req.Parameters)

	cat, err := reg.Resolve(req.Catalog)
	if err != nil {
		return nil, cgqerrors.New(cgqerrors.KindUnknownLabel, err, nil)
	}

	buildRes, err := buildStage(ctx, tracer, q, cat, seed)
	if err != nil {
		return nil, err
	}
	log.WithField("stage", "build").Debug("compile stage complete")

	if err := enforceBudget(buildRes.Plan, opts.Budget); err != nil {
		return nil, err
	}

	analyzeRes, err := analyzeStage(ctx, tracer, buildRes.Plan, buildRes.Context, cat, log)
	if err != nil {
		return nil, err
	}
	log.WithField("stage", "analyze").Debug("compile stage complete")
	if err := enforceBudget(analyzeRes.Plan, opts.Budget); err != nil {
		return nil, err
	}

	optRes, err := optimizeStage(ctx, tracer, analyzeRes.Plan, analyzeRes.Context, cat, log)
	if err != nil {
		return nil, err
	}
	log.WithField("stage", "optimize").Debug("compile stage complete")
	if err := enforceBudget(optRes.Plan, opts.Budget); err != nil {
		return nil, err
	}

	frag, err := lowerStage(ctx, tracer, optRes.Plan, optRes.Context, cat)
	if err != nil {
		return nil, err
	}

	sql := printStage(ctx, tracer, frag)
	log.WithField("stage", "render").Debug("compile stage complete")

	sql, vpWarnings := resolveViewParameters(sql, cat, optRes.Context, req.ViewParameters)

	warnings := append([]string{}, optRes.Warnings...)
	warnings = append(warnings, paramWarnings...)
	warnings = append(warnings, vpWarnings...)
	resp := &Response{SQL: sql, Warnings: warnings, PlanID: planID, Fingerprint: seed}
	if !req.SQLOnly {
		// result_shape inference is the only stage that isn't needed to
		// produce sql itself; sql_only mode (spec §6.2, SPEC_FULL.md §C
		// "SQL-prefix / sql_only mode") skips it so a caller that only
		// wants to preview the compiled statement never pays for it.
		resp.ResultShape = inferResultShape(frag)
	}
	return resp, nil
}

func parseStage(ctx context.Context, tracer opentracing.Tracer, src string) (*ast.Query, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.parse")
	defer span.Finish()
	return ast.Parse(src)
}

func buildStage(ctx context.Context, tracer opentracing.Tracer, q *ast.Query, cat *catalog.Catalog, seed uint64) (*builder.Result, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.build")
	defer span.Finish()
	return builder.Build(q, cat, seed)
}

func analyzeStage(ctx context.Context, tracer opentracing.Tracer, n plan.Node, pctx *plan.Context, cat *catalog.Catalog, log *logrus.Entry) (*analyzer.Result, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.analyze")
	defer span.Finish()
	return analyzer.Run(n, pctx, cat, log)
}

func optimizeStage(ctx context.Context, tracer opentracing.Tracer, n plan.Node, pctx *plan.Context, cat *catalog.Catalog, log *logrus.Entry) (*optimizer.Result, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.optimize")
	defer span.Finish()
	return optimizer.Run(n, pctx, cat, log)
}

func lowerStage(ctx context.Context, tracer opentracing.Tracer, n plan.Node, pctx *plan.Context, cat *catalog.Catalog) (render.Fragment, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.lower")
	defer span.Finish()
	return render.Lower(n, pctx, cat)
}

func printStage(ctx context.Context, tracer opentracing.Tracer, frag render.Fragment) string {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, tracer, "compiler.print")
	defer span.Finish()
	return render.Print(frag)
}
