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
	"github.com/genezhang/clickgraph/ast"
	"github.com/genezhang/clickgraph/cgqerrors"
	"github.com/genezhang/clickgraph/plan"
)

// TagProjections walks every projection list, WHERE predicate and non-HAVING
// WITH post-filter in the plan and rejects a nested aggregate call (spec §4.4.6 invariant:
// aggregates do not nest) with cgqerrors.ErrInvalidAggregate. This runs
// after BuildGroupBys so the error fires against the same projection lists
// that just got classified into keys vs aggregates.
func TagProjections(n plan.Node) error {
	switch v := n.(type) {
	case *plan.Project:
		if err := checkProjections(v.Projections); err != nil {
			return err
		}
		return TagProjections(v.Child)
	case *plan.With:
		if err := checkProjections(v.Projections); err != nil {
			return err
		}
		if v.PostFilter != nil && !v.PostFilterIsHaving {
			if err := checkNoAggregate(v.PostFilter); err != nil {
				return err
			}
		}
		return TagProjections(v.Child)
	case *plan.Having:
		// Having.Predicate normally references an alias bound by the
		// WITH clause's aggregate projection (e.g. "cnt > 1"), not a raw
		// aggregate call; it is not checked for nested aggregates here.
		return TagProjections(v.Child)
	case *plan.Filter:
		if err := checkNoAggregate(v.Predicate); err != nil {
			return err
		}
		return TagProjections(v.Child)
	case *plan.GroupBy:
		return TagProjections(v.Child)
	case *plan.OrderBy:
		return TagProjections(v.Child)
	case *plan.Skip:
		return TagProjections(v.Child)
	case *plan.Limit:
		return TagProjections(v.Child)
	case *plan.Unwind:
		return TagProjections(v.Child)
	case *plan.Union:
		if err := TagProjections(v.Left); err != nil {
			return err
		}
		return TagProjections(v.Right)
	default:
		return nil
	}
}

func checkProjections(projs []ast.Projection) error {
	for _, p := range projs {
		if p.Wildcard {
			continue
		}
		if !ast.IsAggregate(p.Expr) {
			if err := checkNoAggregate(p.Expr); err != nil {
				return err
			}
			continue
		}
		if fc, ok := p.Expr.(*ast.FuncCall); ok {
			for _, arg := range fc.Args {
				if err := checkNoAggregate(arg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkNoAggregate rejects any aggregate call found anywhere in e (spec
// §4.4.6 invariant: aggregates never nest, and a bare WHERE/join condition
// can never itself be an aggregate).
func checkNoAggregate(e ast.Expression) error {
	if e == nil {
		return nil
	}
	if ast.IsAggregate(e) {
		return cgqerrors.New(cgqerrors.KindInvalidAggregate, cgqerrors.ErrInvalidAggregate.New("nested aggregate"), nil)
	}
	switch v := e.(type) {
	case *ast.BinaryOp:
		if err := checkNoAggregate(v.Left); err != nil {
			return err
		}
		return checkNoAggregate(v.Right)
	case *ast.UnaryOp:
		return checkNoAggregate(v.Operand)
	case *ast.IsNull:
		return checkNoAggregate(v.Operand)
	case *ast.FuncCall:
		for _, a := range v.Args {
			if err := checkNoAggregate(a); err != nil {
				return err
			}
		}
		return nil
	case *ast.ListLiteral:
		for _, it := range v.Items {
			if err := checkNoAggregate(it); err != nil {
				return err
			}
		}
		return nil
	case *ast.CaseExpr:
		if err := checkNoAggregate(v.Operand); err != nil {
			return err
		}
		for _, w := range v.Whens {
			if err := checkNoAggregate(w.Cond); err != nil {
				return err
			}
			if err := checkNoAggregate(w.Then); err != nil {
				return err
			}
		}
		return checkNoAggregate(v.Else)
	default:
		return nil
	}
}
