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

package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderChainsNodesAndRelationships(t *testing.T) {
	cat, err := NewBuilder("social").
		Node(&NodeEntry{Label: "User", Table: "users", IDColumns: []string{"id"}}).
		Node(&NodeEntry{Label: "Post", Table: "posts", IDColumns: []string{"id"}}).
		Relationship(&RelationshipEntry{
			Type: "AUTHORED", Table: "posts",
			FromColumns: []string{"author_id"}, FromLabel: "User",
			ToColumns: []string{"id"}, ToLabel: "Post",
		}).
		Build()
	require.NoError(t, err)
	require.Equal(t, "social", cat.Name)
	_, err = cat.Node("User")
	require.NoError(t, err)
	_, err = cat.Relationship("AUTHORED")
	require.NoError(t, err)
}

func TestBuilderStopsAtFirstError(t *testing.T) {
	_, err := NewBuilder("social").
		Node(&NodeEntry{Label: "User", Table: "users"}).
		Node(&NodeEntry{Label: "User", Table: "other"}).
		Build()
	require.Error(t, err)
}
