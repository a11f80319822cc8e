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

// Package cgqerrors holds the typed error taxonomy shared by every stage of
// the CGQ compiler pipeline. Every error a caller can see is a *CompileError
// carrying one of the Kind values below; its cause, returned by Unwrap, is
// the matching gopkg.in/src-d/go-errors.v1 *errors.Kind instantiated with
// .New(args...). Hosts classify failures by CompileError.Kind, or with
// ErrXxx.Is(errors.Unwrap(err)), instead of string matching.
package cgqerrors

import (
	"fmt"

	"gopkg.in/src-d/go-errors.v1"
)

// Kind identifies which pipeline stage produced an error, for Response.kind
// in the programmatic surface (spec §6.2).
type Kind string

const (
	KindLexError                Kind = "LexError"
	KindParseError               Kind = "ParseError"
	KindUnknownLabel             Kind = "UnknownLabel"
	KindUnknownType              Kind = "UnknownType"
	KindUnknownProperty          Kind = "UnknownProperty"
	KindAmbiguousProperty        Kind = "AmbiguousProperty"
	KindMissingRelationshipType  Kind = "MissingRelationshipType"
	KindInconsistentPattern      Kind = "InconsistentPattern"
	KindInvalidAggregate         Kind = "InvalidAggregate"
	KindBudgetExceeded           Kind = "BudgetExceeded"
	KindInternalInvariant        Kind = "InternalInvariant"
)

var (
	ErrLex                 = errors.NewKind("lex error: %s")
	ErrParse               = errors.NewKind("parse error: %s")
	ErrUnknownLabel        = errors.NewKind("unknown label %q")
	ErrUnknownType         = errors.NewKind("unknown relationship type %q")
	ErrUnknownProperty     = errors.NewKind("unknown property %q on alias %q")
	ErrAmbiguousProperty   = errors.NewKind("property %q is ambiguous between labels %v")
	ErrMissingRelType      = errors.NewKind("relationship alias %q has no type but one is required here")
	ErrInconsistentPattern = errors.NewKind("inconsistent pattern: %s")
	ErrInvalidAggregate    = errors.NewKind("aggregate not allowed here: %s")
	ErrBudgetExceeded      = errors.NewKind("compile budget exceeded: %s")
	ErrInternalInvariant   = errors.NewKind("internal invariant violated: %s")
)

// Span is the source-text location attached to user errors that originate
// from parsing (spec §6.2 "source_span").
type Span struct {
	Line   int
	Column int
	Length int
}

// CompileError is the error type returned across package boundaries in this
// module. It pairs a Kind with an optional Span and, for every Kind, wraps
// the underlying cause so callers can still errors.Is/As against it.
type CompileError struct {
	Kind    Kind
	Message string
	Span    *Span
	cause   error
}

func (e *CompileError) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Span.Line, e.Span.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CompileError) Unwrap() error { return e.cause }

// New builds a CompileError from one of the Kind values above, wrapping the
// go-errors.v1 Kind's own error for message formatting.
func New(kind Kind, underlying error, span *Span) *CompileError {
	return &CompileError{Kind: kind, Message: underlying.Error(), Span: span, cause: underlying}
}

// Internal wraps a caught invariant violation as an InternalInvariant error,
// distinct from user-facing errors per spec §7.
func Internal(format string, args ...interface{}) *CompileError {
	err := ErrInternalInvariant.New(fmt.Sprintf(format, args...))
	return New(KindInternalInvariant, err, nil)
}

// BudgetExceeded reports that a compilation exceeded its configured size or
// time budget (spec §5 "Cancellation").
func BudgetExceeded(reason string) *CompileError {
	return New(KindBudgetExceeded, ErrBudgetExceeded.New(reason), nil)
}
