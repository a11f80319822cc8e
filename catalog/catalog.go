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

// Package catalog holds the graph catalog (spec §3.1, §4.2): the
// process-wide, immutable-after-load schema that node and relationship
// labels/types resolve against.
package catalog

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/genezhang/clickgraph/cgqerrors"
)

// PropertyValue is either a plain column name or a derived SQL expression
// for a logical property (spec design note: collapse logical_expr/render_expr
// into one tagged representation).
type PropertyValue struct {
	Column     string // set when IsExpr is false
	Expression string // raw SQL expression, set when IsExpr is true
	IsExpr     bool
}

// Col returns a PropertyValue backed by a plain column.
func Col(name string) PropertyValue { return PropertyValue{Column: name} }

// Expr returns a PropertyValue backed by a derived SQL expression.
func Expr(sql string) PropertyValue { return PropertyValue{Expression: sql, IsExpr: true} }

// ViewParameter names a setting the external executor must bind at query
// time (spec §3.1; supplemented per SPEC_FULL.md §C "RBAC view parameters").
type ViewParameter struct {
	Name    string
	Default string // "" if there is no default and the host must supply one
}

// NodeEntry is a node label's schema (spec §3.1).
type NodeEntry struct {
	Label          string
	Database       string // optional qualifier, "" if unqualified
	Table          string
	IDColumns      []string // composite IDs allowed
	Properties     map[string]PropertyValue
	SchemaFilter   string // optional, raw SQL predicate, "" if absent
	ViewParameters []ViewParameter
}

// RelationshipEntry is a relationship type's schema (spec §3.1).
type RelationshipEntry struct {
	Type     string
	Database string
	Table    string

	// IDColumns is the edge's own identity; nil means identity is the
	// endpoint-column pair (spec §4.5.1 "rel_self_id").
	IDColumns []string

	FromColumns []string
	FromLabel   string
	ToColumns   []string
	ToLabel     string

	Properties map[string]PropertyValue

	// Denormalized endpoint properties embedded directly in the edge table.
	FromNodeProperties map[string]PropertyValue
	ToNodeProperties    map[string]PropertyValue

	// Polymorphism markers (spec §3.1, §4.5.1).
	TypeColumn      string // discriminator column, "" if this table holds one type only
	TypeValue       string // discriminator value for this entry, defaults to Type
	FromLabelColumn string
	ToLabelColumn   string

	SchemaFilter string
}

// IsDenormalized reports whether this relationship stores node properties
// directly on the edge row rather than via a join to a separate node table,
// per endpoint (spec §4.5.1 "denormalized relationship").
func (r *RelationshipEntry) IsDenormalizedFrom() bool { return len(r.FromNodeProperties) > 0 }
func (r *RelationshipEntry) IsDenormalizedTo() bool    { return len(r.ToNodeProperties) > 0 }

// IsPolymorphic reports whether this relationship's table carries a type
// discriminator (spec §4.5.1 "polymorphic edge").
func (r *RelationshipEntry) IsPolymorphic() bool { return r.TypeColumn != "" }

// IsFKEdge reports whether this relationship is a foreign-key column on the
// left node's own table rather than a separate edge table (spec §4.5.1
// "foreign-key (FK-edge) pattern").
func (r *RelationshipEntry) IsFKEdge(nodeTableOf func(label string) string) bool {
	return r.Table == nodeTableOf(r.FromLabel)
}

// discriminatorValue returns the value to compare TypeColumn against.
func (r *RelationshipEntry) discriminatorValue() string {
	if r.TypeValue != "" {
		return r.TypeValue
	}
	return r.Type
}

// Catalog is a named, immutable-after-load bundle of node and relationship
// entries (spec §3.1).
type Catalog struct {
	Name  string
	nodes map[string]*NodeEntry
	rels  map[string]*RelationshipEntry
}

// New returns an empty catalog under the given declared name.
func New(name string) *Catalog {
	return &Catalog{Name: name, nodes: map[string]*NodeEntry{}, rels: map[string]*RelationshipEntry{}}
}

// DefaultTableName derives a backing table name for a label that has none
// declared explicitly, by pluralizing the label the way velox's schema
// package derives SQL table names from Go entity names (SPEC_FULL.md §B).
func DefaultTableName(label string) string {
	return inflect.Pluralize(toSnakeCase(label))
}

func toSnakeCase(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			c = c - 'A' + 'a'
		}
		out = append(out, c)
	}
	return string(out)
}

// AddNode registers a node label. Returns an error if the label is already
// registered (spec §3.1 invariant: each label appears at most once).
func (c *Catalog) AddNode(n *NodeEntry) error {
	if _, exists := c.nodes[n.Label]; exists {
		return fmt.Errorf("label %q already registered in catalog %q", n.Label, c.Name)
	}
	if n.Table == "" {
		n.Table = DefaultTableName(n.Label)
	}
	c.nodes[n.Label] = n
	return nil
}

// AddRelationship registers a relationship type. Returns an error if the
// type is already registered.
func (c *Catalog) AddRelationship(r *RelationshipEntry) error {
	if _, exists := c.rels[r.Type]; exists {
		return fmt.Errorf("relationship type %q already registered in catalog %q", r.Type, c.Name)
	}
	c.rels[r.Type] = r
	return nil
}

// Node looks up a node label, returning cgqerrors.ErrUnknownLabel if absent.
func (c *Catalog) Node(label string) (*NodeEntry, error) {
	n, ok := c.nodes[label]
	if !ok {
		return nil, cgqerrors.New(cgqerrors.KindUnknownLabel, cgqerrors.ErrUnknownLabel.New(label), nil)
	}
	return n, nil
}

// Relationship looks up a relationship type, returning
// cgqerrors.ErrUnknownType if absent.
func (c *Catalog) Relationship(typ string) (*RelationshipEntry, error) {
	r, ok := c.rels[typ]
	if !ok {
		return nil, cgqerrors.New(cgqerrors.KindUnknownType, cgqerrors.ErrUnknownType.New(typ), nil)
	}
	return r, nil
}

// AllLabels returns every registered node label, used by the builder to
// expand an untyped node pattern's candidate set (spec §4.3, §4.4.1).
func (c *Catalog) AllLabels() []string {
	out := make([]string, 0, len(c.nodes))
	for l := range c.nodes {
		out = append(out, l)
	}
	return out
}

// AllTypes returns every registered relationship type, analogous to
// AllLabels for untyped relationship patterns.
func (c *Catalog) AllTypes() []string {
	out := make([]string, 0, len(c.rels))
	for t := range c.rels {
		out = append(out, t)
	}
	return out
}

// HasProperty reports whether label declares prop (explicitly or via the
// raw-column fallback is NOT assumed here — candidate pruning, spec §4.4.1,
// only trusts explicit declarations).
func (c *Catalog) HasProperty(label, prop string) bool {
	n, ok := c.nodes[label]
	if !ok {
		return false
	}
	_, ok = n.Properties[prop]
	return ok
}

// ResolveNodeProperty resolves alias.prop for a node bound to label,
// honouring the fallback-to-raw-column rule of spec §4.2 rule 3.
func (c *Catalog) ResolveNodeProperty(label, prop string) (PropertyValue, bool, error) {
	n, ok := c.nodes[label]
	if !ok {
		return PropertyValue{}, false, cgqerrors.New(cgqerrors.KindUnknownLabel, cgqerrors.ErrUnknownLabel.New(label), nil)
	}
	if pv, ok := n.Properties[prop]; ok {
		return pv, true, nil
	}
	// Fallback: treat the property name itself as a column (spec §4.2).
	return Col(prop), false, nil
}

// ResolveRelProperty resolves alias.prop for a relationship bound to typ,
// honouring endpoint denormalization priority (spec §4.2 rule 1) ahead of
// the relationship's own property map (rule 2).
func (c *Catalog) ResolveRelProperty(typ, prop string, endpoint EndpointSide) (PropertyValue, bool, error) {
	r, ok := c.rels[typ]
	if !ok {
		return PropertyValue{}, false, cgqerrors.New(cgqerrors.KindUnknownType, cgqerrors.ErrUnknownType.New(typ), nil)
	}
	if endpoint == FromSide && r.FromNodeProperties != nil {
		if pv, ok := r.FromNodeProperties[prop]; ok {
			return pv, true, nil
		}
	}
	if endpoint == ToSide && r.ToNodeProperties != nil {
		if pv, ok := r.ToNodeProperties[prop]; ok {
			return pv, true, nil
		}
	}
	if pv, ok := r.Properties[prop]; ok {
		return pv, true, nil
	}
	return Col(prop), false, nil
}

// EndpointSide distinguishes which side of a relationship an alias binds to,
// for denormalized-property resolution (spec §4.2 rule 1).
type EndpointSide int

const (
	NeitherSide EndpointSide = iota
	FromSide
	ToSide
)
