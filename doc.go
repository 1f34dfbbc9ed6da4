// Package oasql translates a subset of OpenAPI 3 schema documents into a
// relational object model suitable for a SQL-mapping runtime.
//
// Given the schemas under components.schemas of an OpenAPI document, the
// package resolves references (local and cross-file), flattens allOf
// composition, classifies inter-entity relationships, places foreign keys,
// synthesizes association tables for many-to-many relationships, and derives
// per-model artifacts (columns, constructor arguments, typed-dict shapes) for
// a downstream code emitter.
//
// The normalization pipeline mutates the schema catalog in place and is run
// once per document:
//
//	schemas, err := oasql.LoadSpecYAML("openapi.yaml")
//	if err != nil { ... }
//	facade := oasql.NewFacade()
//	if err := oasql.Normalize(schemas, facade); err != nil { ... }
//	models, err := oasql.ExtractModels(schemas)
//
// Validation never raises; CheckModels reports a verdict for every schema the
// package will not manage and why.
package oasql
