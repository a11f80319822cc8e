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

// Command cgqc compiles a single CGQ query against a YAML catalog fixture
// and prints the resulting SQL. It is a development aid, not the host
// integration surface described in spec §6.2: real hosts embed the
// compiler package directly rather than shelling out to this binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/catalog/catalogyaml"
	"github.com/genezhang/clickgraph/compiler"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "", "path to a YAML catalog fixture (required)")
		queryPath   = flag.String("query", "", "path to a .cgq file; reads stdin if omitted")
		sqlOnly     = flag.Bool("sql-only", false, "skip result-shape inference")
		budget      = flag.Int("budget", 0, "max plan nodes before compilation fails; 0 disables the cap")
		showShape   = flag.Bool("shape", false, "print the inferred result shape as JSON after the SQL")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cgqc -catalog <file.yaml> [-query <file.cgq>] [flags]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *catalogPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*catalogPath, *queryPath, *sqlOnly, *budget, *showShape); err != nil {
		fmt.Fprintln(os.Stderr, "cgqc:", err)
		os.Exit(1)
	}
}

func run(catalogPath, queryPath string, sqlOnly bool, budget int, showShape bool) error {
	catBytes, err := os.ReadFile(catalogPath)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	cat, err := catalogyaml.Parse(catBytes)
	if err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}

	var queryBytes []byte
	if queryPath == "" {
		queryBytes, err = io.ReadAll(os.Stdin)
	} else {
		queryBytes, err = os.ReadFile(queryPath)
	}
	if err != nil {
		return fmt.Errorf("reading query: %w", err)
	}

	reg := catalog.NewRegistry()
	reg.Register(cat)
	if err := reg.SetDefault(cat.Name); err != nil {
		return err
	}
	resp, err := compiler.Compile(context.Background(), reg, compiler.Request{
		Query:   string(queryBytes),
		Catalog: cat.Name,
		SQLOnly: sqlOnly,
	}, compiler.Options{Budget: budget})
	if err != nil {
		return err
	}

	fmt.Println(resp.SQL)
	if showShape {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.ResultShape)
	}
	return nil
}
