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
	"fmt"
	"sync"
)

// Registry holds the set of catalogs a process has loaded (spec §3.1
// lifecycle, §5 "Shared resources", §6.3 "Persisted state: None" — this is
// in-memory only and rebuilt from scratch on process start).
//
// Per the REDESIGN FLAGS in spec.md §9, this registry does NOT automatically
// alias every catalog under "default" the way the original implementation
// did to satisfy a legacy caller. Callers name their catalog explicitly
// (Request.catalog) or mark exactly one catalog as the default with
// SetDefault; a `USE <catalog>` clause always wins regardless.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Catalog
	dflt    string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Catalog{}}
}

// Register publishes cat under its declared name. Registration is a
// separate lifecycle operation from query compilation (spec §5); the
// Registry's internal lock makes publication atomic with respect to
// concurrent readers, but a compilation never blocks on it because it
// only ever takes the read lock once, up front, to obtain a Catalog
// reference — the Catalog itself is immutable thereafter.
func (r *Registry) Register(cat *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[cat.Name] = cat
}

// SetDefault designates which registered catalog a request with no
// explicit catalog name and no USE clause resolves to.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("cannot set default: catalog %q is not registered", name)
	}
	r.dflt = name
	return nil
}

// Resolve returns the catalog for name, or the default catalog if name is
// empty. Returns an error if neither exists.
func (r *Registry) Resolve(name string) (*Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.dflt
	}
	if name == "" {
		return nil, fmt.Errorf("no catalog name given and no default catalog is configured")
	}
	cat, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("catalog %q is not registered", name)
	}
	return cat, nil
}
