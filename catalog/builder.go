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

// Builder assembles a Catalog through a chained call sequence rather than a
// literal NodeEntry/RelationshipEntry struct graph. cmd/cgqschema emits
// exactly this call chain as generated Go source (SPEC_FULL.md §B); it
// exists so that generated schema registrations read as ordinary typed Go
// calls instead of requiring the generator to reconstruct struct literals.
//
// A Builder defers the first error it sees so a generated chain needs no
// per-call error checks; Build reports it.
type Builder struct {
	cat *Catalog
	err error
}

// NewBuilder starts a Builder for a catalog named name.
func NewBuilder(name string) *Builder {
	return &Builder{cat: New(name)}
}

// Node registers a node label. Returns the Builder for chaining.
func (b *Builder) Node(n *NodeEntry) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.cat.AddNode(n)
	return b
}

// Relationship registers a relationship type. Returns the Builder for chaining.
func (b *Builder) Relationship(r *RelationshipEntry) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.cat.AddRelationship(r)
	return b
}

// Build returns the assembled Catalog, or the first error encountered by
// any Node/Relationship call in the chain.
func (b *Builder) Build() (*Catalog, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cat, nil
}
