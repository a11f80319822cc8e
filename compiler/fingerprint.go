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
	"github.com/mitchellh/hashstructure"

	"github.com/genezhang/clickgraph/ast"
)

// fingerprint computes a stable hash of the parsed query, used to seed the
// fresh-name counter (spec §8.2 "CTE naming stability": two compilations of
// the same query against the same catalog must emit byte-identical SQL, so
// the counter can never start from process-global or time-based state) and
// returned to the caller as a cache key cheaper than comparing SQL strings.
func fingerprint(q *ast.Query) (uint64, error) {
	return hashstructure.Hash(q, nil)
}
