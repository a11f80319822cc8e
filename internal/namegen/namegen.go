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

// Package namegen provides the monotonic per-compilation name counter used
// to mint fresh CTE and alias names (spec §3.4, §5 "Ordering guarantees").
// Seeding the counter from a fingerprint of the compilation's AST (rather
// than a process-global counter) is what makes two compilations of the same
// query against the same catalog emit byte-identical SQL (spec §8.2 "CTE
// naming stability"), since the counter always starts from the same value
// for the same input.
package namegen

import "fmt"

// Counter mints fresh, deterministic names. It is NOT safe for concurrent
// use by design: a single compilation is single-threaded (spec §5).
type Counter struct {
	seed uint64
	next uint64
}

// NewCounter returns a Counter seeded from seed. Two Counters built from the
// same seed mint the identical sequence of names.
func NewCounter(seed uint64) *Counter {
	return &Counter{seed: seed}
}

// Fresh returns a new name of the form "<prefix>_<seed8>_<n>", monotonic
// within this Counter.
func (c *Counter) Fresh(prefix string) string {
	n := c.next
	c.next++
	return fmt.Sprintf("%s_%08x_%d", prefix, uint32(c.seed), n)
}

// Seed returns the counter's seed, exposed for diagnostics/logging.
func (c *Counter) Seed() uint64 { return c.seed }
