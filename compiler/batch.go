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
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/genezhang/clickgraph/catalog"
)

// CompileBatch compiles every request in reqs concurrently, each against the
// shared, immutable Registry (spec §5 "the host may run unrelated
// compilations in parallel threads; the catalog is shared but immutable
// after load, so no locking is required on the compilation path"). The
// returned slice is in the same order as reqs; a request that fails gets a
// nil Response and its error is the first one returned by the group.
func CompileBatch(ctx context.Context, reg *catalog.Registry, reqs []Request, opts Options) ([]*Response, error) {
	out := make([]*Response, len(reqs))
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		i, req := i, req
		errg.Go(func() error {
			resp, err := Compile(ctx, reg, req, opts)
			if err != nil {
				return err
			}
			out[i] = resp
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
