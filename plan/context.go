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

package plan

import "github.com/genezhang/clickgraph/internal/namegen"

// EntityKind classifies what an alias is bound to (spec §3.4).
type EntityKind int

const (
	KindNode EntityKind = iota
	KindRelationship
	KindScalar
	KindPath
	KindList
)

// AliasBinding is everything the plan context knows about one alias
// (spec §3.4).
type AliasBinding struct {
	EntityKind    EntityKind
	LabelOrType   string // fixed label/type; "" while still a candidate set
	Candidates    []string
	BackingTable  string
	IDColumns     []string
	CatalogRef    string // catalog name this binding was resolved against
}

// Context is the plan context threaded alongside (conceptually "within")
// every plan node (spec §3.4). It is treated as an immutable value: every
// pass that wants to change it returns a new Context via its update methods
// (BindAlias, MarkOptional, MarkJoined, RequireProperty, ...),
// per the REDESIGN FLAGS in spec.md §9 ("builder-style context updated by
// returning a new value").
type Context struct {
	Aliases       map[string]AliasBinding
	Optional      map[string]bool // aliases whose absence must translate to NULL
	Joined        map[string]bool // aliases already materialized in the join tree
	PropsNeeded   map[string]map[string]bool // alias -> set of property names, or {"*": true} for all
	Names         *namegen.Counter
}

// NewContext returns an empty Context seeded with a name counter. seed
// should be a stable fingerprint of the compilation's AST (spec §5 "Alias
// and CTE name generation uses a monotonic per-compilation counter") so
// that identical queries produce byte-identical SQL (spec §8.2).
func NewContext(seed uint64) *Context {
	return &Context{
		Aliases:     map[string]AliasBinding{},
		Optional:    map[string]bool{},
		Joined:      map[string]bool{},
		PropsNeeded: map[string]map[string]bool{},
		Names:       namegen.NewCounter(seed),
	}
}

// Clone returns a deep-enough copy for a pass to mutate and return, keeping
// the original untouched. The Names counter is shared (not cloned) because
// it must stay monotonic across the whole compilation regardless of which
// Context value ends up in the final tree.
func (c *Context) Clone() *Context {
	n := &Context{
		Aliases:     make(map[string]AliasBinding, len(c.Aliases)),
		Optional:    make(map[string]bool, len(c.Optional)),
		Joined:      make(map[string]bool, len(c.Joined)),
		PropsNeeded: make(map[string]map[string]bool, len(c.PropsNeeded)),
		Names:       c.Names,
	}
	for k, v := range c.Aliases {
		n.Aliases[k] = v
	}
	for k, v := range c.Optional {
		n.Optional[k] = v
	}
	for k, v := range c.Joined {
		n.Joined[k] = v
	}
	for k, v := range c.PropsNeeded {
		m := make(map[string]bool, len(v))
		for p, ok := range v {
			m[p] = ok
		}
		n.PropsNeeded[k] = m
	}
	return n
}

// BindAlias records a, returning a new Context (Clone + mutate).
func (c *Context) BindAlias(alias string, b AliasBinding) *Context {
	n := c.Clone()
	n.Aliases[alias] = b
	return n
}

// MarkOptional records that alias is optional, returning a new Context.
func (c *Context) MarkOptional(alias string) *Context {
	n := c.Clone()
	n.Optional[alias] = true
	return n
}

// MarkJoined records that alias has been materialized, returning a new
// Context.
func (c *Context) MarkJoined(alias string) *Context {
	n := c.Clone()
	n.Joined[alias] = true
	return n
}

// RequireProperty records that prop must survive into SQL output for alias,
// returning a new Context (spec §3.4 "Property requirements", §4.7).
func (c *Context) RequireProperty(alias, prop string) *Context {
	n := c.Clone()
	set, ok := n.PropsNeeded[alias]
	if !ok {
		set = map[string]bool{}
	} else {
		set2 := make(map[string]bool, len(set))
		for k, v := range set {
			set2[k] = v
		}
		set = set2
	}
	set[prop] = true
	n.PropsNeeded[alias] = set
	return n
}

// RequireAllProperties marks alias as needing every declared property
// (spec §4.3 "a wildcard reference ... marks the alias as needing every
// declared property").
func (c *Context) RequireAllProperties(alias string) *Context {
	return c.RequireProperty(alias, "*")
}

// NeedsAllProperties reports whether alias was wildcard-projected.
func (c *Context) NeedsAllProperties(alias string) bool {
	return c.PropsNeeded[alias]["*"]
}

// RequiredProperties returns the (unordered) property names required for
// alias, excluding the "*" wildcard marker.
func (c *Context) RequiredProperties(alias string) []string {
	set := c.PropsNeeded[alias]
	out := make([]string, 0, len(set))
	for p := range set {
		if p != "*" {
			out = append(out, p)
		}
	}
	return out
}

// IsOptional reports whether alias's absence must translate to NULL rather
// than eliminate the row.
func (c *Context) IsOptional(alias string) bool { return c.Optional[alias] }

// IsJoined reports whether alias has already been materialized in the
// emerging join tree.
func (c *Context) IsJoined(alias string) bool { return c.Joined[alias] }
