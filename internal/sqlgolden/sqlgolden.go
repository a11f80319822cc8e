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

// Package sqlgolden is a test-only harness that runs a reduced rendering of
// compiler output (recursive CTEs, joins, aggregates — the subset SQLite
// also understands) against an in-memory SQLite database, so render and
// compiler golden tests catch gross syntactic breakage without a human
// reading raw SQL strings (SPEC_FULL.md §B). It is not a substitute for the
// external columnar engine named in spec.md §1: dialect-specific fragments
// such as arrayConcat, has, or a trailing SETTINGS clause are not portable
// to SQLite and must still be asserted textually by the caller.
package sqlgolden

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// Harness owns one in-memory SQLite connection.
type Harness struct {
	db *sql.DB
}

// New opens a fresh, private in-memory SQLite database.
func New() (*Harness, error) {
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Harness{db: db}, nil
}

// Close releases the underlying connection.
func (h *Harness) Close() error { return h.db.Close() }

// LoadFixture runs one or more semicolon-separated DDL/DML statements, e.g.
// a handful of CREATE TABLE and INSERT statements describing the tables a
// rendered query joins against.
func (h *Harness) LoadFixture(stmts string) error {
	_, err := h.db.Exec(stmts)
	return err
}

// Columns is the ordered column names of a Run result.
type Columns []string

// Rows is the result set of a Run call; each entry is one row in column
// order, decoded into driver-native Go values.
type Rows [][]any

// Run executes query and returns its column names and rows. A SQL syntax
// or catalog error surfaces as the returned error — that's the gross
// breakage this harness exists to catch; it does not validate result
// values against an expected golden set itself, callers do that with
// testify.
func (h *Harness) Run(query string) (Columns, Rows, error) {
	rows, err := h.db.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out Rows
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}
