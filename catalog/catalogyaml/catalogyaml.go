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

// Package catalogyaml builds test-fixture catalog.Catalog values from a
// small YAML description. This is NOT the schema YAML loader named out of
// scope in spec.md §1 — that is a host concern (e.g. watching a live schema
// directory). It lets _test.go files across this module, and the cmd/cgqc
// and cmd/cgqschema tools, build realistic catalogs tersely, the way the teacher's enginetest package
// builds fixture schemas in Go rather than wiring a live system.
package catalogyaml

import (
	"gopkg.in/yaml.v2"

	"github.com/genezhang/clickgraph/catalog"
)

type doc struct {
	Name          string             `yaml:"name"`
	Nodes         []nodeDoc          `yaml:"nodes"`
	Relationships []relationshipDoc `yaml:"relationships"`
}

type nodeDoc struct {
	Label      string            `yaml:"label"`
	Table      string            `yaml:"table"`
	IDColumns  []string          `yaml:"id_columns"`
	Properties map[string]string `yaml:"properties"`
	Filter     string            `yaml:"filter"`
}

type relationshipDoc struct {
	Type               string            `yaml:"type"`
	Table              string            `yaml:"table"`
	IDColumns          []string          `yaml:"id_columns"`
	FromColumns        []string          `yaml:"from_columns"`
	FromLabel          string            `yaml:"from_label"`
	ToColumns          []string          `yaml:"to_columns"`
	ToLabel            string            `yaml:"to_label"`
	Properties         map[string]string `yaml:"properties"`
	FromNodeProperties map[string]string `yaml:"from_node_properties"`
	ToNodeProperties   map[string]string `yaml:"to_node_properties"`
	TypeColumn         string            `yaml:"type_column"`
	TypeValue          string            `yaml:"type_value"`
	FromLabelColumn    string            `yaml:"from_label_column"`
	ToLabelColumn      string            `yaml:"to_label_column"`
	Filter             string            `yaml:"filter"`
}

// Parse decodes a YAML catalog fixture into a *catalog.Catalog. Every
// "properties" value may be a plain column name or, if wrapped as
// "expr:<sql>", a derived expression (catalog.Expr).
func Parse(src []byte) (*catalog.Catalog, error) {
	var d doc
	if err := yaml.Unmarshal(src, &d); err != nil {
		return nil, err
	}
	cat := catalog.New(d.Name)
	for _, n := range d.Nodes {
		entry := &catalog.NodeEntry{
			Label:        n.Label,
			Table:        n.Table,
			IDColumns:    n.IDColumns,
			Properties:   toPropertyMap(n.Properties),
			SchemaFilter: n.Filter,
		}
		if err := cat.AddNode(entry); err != nil {
			return nil, err
		}
	}
	for _, r := range d.Relationships {
		entry := &catalog.RelationshipEntry{
			Type:               r.Type,
			Table:              r.Table,
			IDColumns:          r.IDColumns,
			FromColumns:        r.FromColumns,
			FromLabel:          r.FromLabel,
			ToColumns:          r.ToColumns,
			ToLabel:            r.ToLabel,
			Properties:         toPropertyMap(r.Properties),
			FromNodeProperties: toPropertyMap(r.FromNodeProperties),
			ToNodeProperties:   toPropertyMap(r.ToNodeProperties),
			TypeColumn:         r.TypeColumn,
			TypeValue:          r.TypeValue,
			FromLabelColumn:    r.FromLabelColumn,
			ToLabelColumn:      r.ToLabelColumn,
			SchemaFilter:       r.Filter,
		}
		if err := cat.AddRelationship(entry); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func toPropertyMap(m map[string]string) map[string]catalog.PropertyValue {
	if m == nil {
		return nil
	}
	out := make(map[string]catalog.PropertyValue, len(m))
	for k, v := range m {
		if len(v) > 5 && v[:5] == "expr:" {
			out[k] = catalog.Expr(v[5:])
		} else {
			out[k] = catalog.Col(v)
		}
	}
	return out
}
