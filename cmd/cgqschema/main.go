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

// Command cgqschema generates a Go source file that builds a catalog.Catalog
// through catalog.Builder's chained calls, from a declarative YAML catalog
// description (SPEC_FULL.md §B). This is the Go-native analogue of the
// original implementation's tools/cg-schema helper: hand-authoring a
// catalog.Builder chain directly is error-prone, so this tool generates it
// from the same YAML shape catalog/catalogyaml parses for test fixtures.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/genezhang/clickgraph/catalog"
	"github.com/genezhang/clickgraph/catalog/catalogyaml"
)

const catalogPkg = "github.com/genezhang/clickgraph/catalog"

func main() {
	var (
		catalogPath = flag.String("catalog", "", "path to a YAML catalog description (required)")
		outPath     = flag.String("out", "", "output .go file path (required)")
		pkgName     = flag.String("package", "schema", "generated file's package name")
		funcName    = flag.String("func", "", "generated builder function name; defaults to Build<Name>Catalog")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cgqschema -catalog <file.yaml> -out <file.go> [flags]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *catalogPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*catalogPath, *outPath, *pkgName, *funcName); err != nil {
		fmt.Fprintln(os.Stderr, "cgqschema:", err)
		os.Exit(1)
	}
}

func run(catalogPath, outPath, pkgName, funcName string) error {
	src, err := os.ReadFile(catalogPath)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	cat, err := catalogyaml.Parse(src)
	if err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	if funcName == "" {
		funcName = "Build" + exportedName(cat.Name) + "Catalog"
	}

	f := jen.NewFile(pkgName)
	f.HeaderComment("Code generated by cgqschema. DO NOT EDIT.")

	f.Commentf("%s assembles the %q catalog.", funcName, cat.Name)
	f.Func().Id(funcName).Params().Params(jen.Op("*").Qual(catalogPkg, "Catalog"), jen.Error()).Block(
		jen.Return(builderChain(cat)),
	)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()
	return f.Render(out)
}

// builderChain renders catalog.NewBuilder(name).Node(...).Relationship(...).Build().
func builderChain(cat *catalog.Catalog) jen.Code {
	chain := jen.Qual(catalogPkg, "NewBuilder").Call(jen.Lit(cat.Name))

	labels := cat.AllLabels()
	sort.Strings(labels)
	for _, label := range labels {
		n, err := cat.Node(label)
		if err != nil {
			continue
		}
		chain = chain.Dot("Node").Call(jen.Op("&").Qual(catalogPkg, "NodeEntry").Values(nodeEntryFields(n)))
	}

	types := cat.AllTypes()
	sort.Strings(types)
	for _, typ := range types {
		r, err := cat.Relationship(typ)
		if err != nil {
			continue
		}
		chain = chain.Dot("Relationship").Call(jen.Op("&").Qual(catalogPkg, "RelationshipEntry").Values(relationshipEntryFields(r)))
	}

	return chain.Dot("Build").Call()
}

func nodeEntryFields(n *catalog.NodeEntry) jen.Dict {
	fields := jen.Dict{
		jen.Id("Label"): jen.Lit(n.Label),
		jen.Id("Table"): jen.Lit(n.Table),
	}
	if n.Database != "" {
		fields[jen.Id("Database")] = jen.Lit(n.Database)
	}
	if len(n.IDColumns) > 0 {
		fields[jen.Id("IDColumns")] = litStrings(n.IDColumns)
	}
	if len(n.Properties) > 0 {
		fields[jen.Id("Properties")] = propertyMap(n.Properties)
	}
	if n.SchemaFilter != "" {
		fields[jen.Id("SchemaFilter")] = jen.Lit(n.SchemaFilter)
	}
	return fields
}

func relationshipEntryFields(r *catalog.RelationshipEntry) jen.Dict {
	fields := jen.Dict{
		jen.Id("Type"):  jen.Lit(r.Type),
		jen.Id("Table"): jen.Lit(r.Table),
	}
	if r.Database != "" {
		fields[jen.Id("Database")] = jen.Lit(r.Database)
	}
	if len(r.IDColumns) > 0 {
		fields[jen.Id("IDColumns")] = litStrings(r.IDColumns)
	}
	if len(r.FromColumns) > 0 {
		fields[jen.Id("FromColumns")] = litStrings(r.FromColumns)
	}
	fields[jen.Id("FromLabel")] = jen.Lit(r.FromLabel)
	if len(r.ToColumns) > 0 {
		fields[jen.Id("ToColumns")] = litStrings(r.ToColumns)
	}
	fields[jen.Id("ToLabel")] = jen.Lit(r.ToLabel)
	if len(r.Properties) > 0 {
		fields[jen.Id("Properties")] = propertyMap(r.Properties)
	}
	if len(r.FromNodeProperties) > 0 {
		fields[jen.Id("FromNodeProperties")] = propertyMap(r.FromNodeProperties)
	}
	if len(r.ToNodeProperties) > 0 {
		fields[jen.Id("ToNodeProperties")] = propertyMap(r.ToNodeProperties)
	}
	if r.TypeColumn != "" {
		fields[jen.Id("TypeColumn")] = jen.Lit(r.TypeColumn)
	}
	if r.TypeValue != "" {
		fields[jen.Id("TypeValue")] = jen.Lit(r.TypeValue)
	}
	if r.FromLabelColumn != "" {
		fields[jen.Id("FromLabelColumn")] = jen.Lit(r.FromLabelColumn)
	}
	if r.ToLabelColumn != "" {
		fields[jen.Id("ToLabelColumn")] = jen.Lit(r.ToLabelColumn)
	}
	if r.SchemaFilter != "" {
		fields[jen.Id("SchemaFilter")] = jen.Lit(r.SchemaFilter)
	}
	return fields
}

func propertyMap(m map[string]catalog.PropertyValue) jen.Code {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	dict := jen.Dict{}
	for _, name := range names {
		dict[jen.Lit(name)] = propertyValueCode(m[name])
	}
	return jen.Map(jen.String()).Qual(catalogPkg, "PropertyValue").Values(dict)
}

func propertyValueCode(pv catalog.PropertyValue) jen.Code {
	if pv.IsExpr {
		return jen.Qual(catalogPkg, "Expr").Call(jen.Lit(pv.Expression))
	}
	return jen.Qual(catalogPkg, "Col").Call(jen.Lit(pv.Column))
}

func litStrings(ss []string) jen.Code {
	items := make([]jen.Code, len(ss))
	for i, s := range ss {
		items[i] = jen.Lit(s)
	}
	return jen.Index().String().Values(items...)
}

// exportedName turns a catalog name like "social_graph" into "SocialGraph"
// for use in a generated Go identifier.
func exportedName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}
