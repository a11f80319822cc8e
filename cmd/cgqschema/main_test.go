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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
name: social
nodes:
  - label: User
    table: users
    id_columns: [id]
    properties:
      name: name
      age: age
relationships:
  - type: FOLLOWS
    table: follows
    from_columns: [from_id]
    from_label: User
    to_columns: [to_id]
    to_label: User
`

func TestRunGeneratesBuilderChain(t *testing.T) {
	dir := t.TempDir()
	catPath := filepath.Join(dir, "social.yaml")
	require.NoError(t, os.WriteFile(catPath, []byte(fixtureYAML), 0o644))

	outPath := filepath.Join(dir, "social_catalog.go")
	require.NoError(t, run(catPath, outPath, "schema", ""))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	src := string(out)

	require.Contains(t, src, "package schema")
	require.Contains(t, src, "func BuildSocialCatalog()")
	require.Contains(t, src, "catalog.NewBuilder(\"social\")")
	require.Contains(t, src, `"User"`)
	require.Contains(t, src, `"FOLLOWS"`)
	require.Contains(t, src, `catalog.Col("name")`)
}

func TestRunRejectsBadCatalog(t *testing.T) {
	dir := t.TempDir()
	catPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(catPath, []byte("not: [valid"), 0o644))
	err := run(catPath, filepath.Join(dir, "out.go"), "schema", "")
	require.Error(t, err)
}
