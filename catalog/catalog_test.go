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

func TestDefaultTableNamePluralizes(t *testing.T) {
	require.Equal(t, "users", DefaultTableName("User"))
	require.Equal(t, "follows", DefaultTableName("Follow"))
}

func TestAddNodeDuplicateLabel(t *testing.T) {
	cat := New("social")
	require.NoError(t, cat.AddNode(&NodeEntry{Label: "User", Table: "users"}))
	err := cat.AddNode(&NodeEntry{Label: "User", Table: "users2"})
	require.Error(t, err)
}

func TestResolveNodePropertyFallback(t *testing.T) {
	cat := New("social")
	require.NoError(t, cat.AddNode(&NodeEntry{
		Label:      "User",
		Table:      "users",
		Properties: map[string]PropertyValue{"name": Col("display_name")},
	}))

	pv, declared, err := cat.ResolveNodeProperty("User", "name")
	require.NoError(t, err)
	require.True(t, declared)
	require.Equal(t, "display_name", pv.Column)

	pv, declared, err = cat.ResolveNodeProperty("User", "undeclared_prop")
	require.NoError(t, err)
	require.False(t, declared)
	require.Equal(t, "undeclared_prop", pv.Column)
}

func TestResolveRelPropertyDenormalizedPriority(t *testing.T) {
	cat := New("social")
	require.NoError(t, cat.AddRelationship(&RelationshipEntry{
		Type:               "FOLLOWS",
		Table:              "follows",
		FromColumns:        []string{"from_id"},
		FromLabel:          "User",
		ToColumns:          []string{"to_id"},
		ToLabel:            "User",
		Properties:         map[string]PropertyValue{"since": Col("since")},
		FromNodeProperties: map[string]PropertyValue{"since": Col("from_since_override")},
	}))

	pv, declared, err := cat.ResolveRelProperty("FOLLOWS", "since", FromSide)
	require.NoError(t, err)
	require.True(t, declared)
	require.Equal(t, "from_since_override", pv.Column)

	pv, declared, err = cat.ResolveRelProperty("FOLLOWS", "since", ToSide)
	require.NoError(t, err)
	require.True(t, declared)
	require.Equal(t, "since", pv.Column)
}

func TestUnknownLabelAndType(t *testing.T) {
	cat := New("social")
	_, err := cat.Node("Missing")
	require.Error(t, err)
	_, err = cat.Relationship("MISSING")
	require.Error(t, err)
}

func TestRegistryDefaultIsExplicit(t *testing.T) {
	reg := NewRegistry()
	cat := New("social")
	reg.Register(cat)

	_, err := reg.Resolve("")
	require.Error(t, err, "no default configured yet")

	require.NoError(t, reg.SetDefault("social"))
	got, err := reg.Resolve("")
	require.NoError(t, err)
	require.Same(t, cat, got)

	got, err = reg.Resolve("social")
	require.NoError(t, err)
	require.Same(t, cat, got)

	_, err = reg.Resolve("nonexistent")
	require.Error(t, err)
}
