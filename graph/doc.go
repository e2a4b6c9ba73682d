// Package graph implements the merge engine that turns extraction
// candidates into persisted nodes and edges.
//
// Merging is idempotent: entity identity is the (type, normalized name)
// natural key and edge identity is (type, source, target), both mapped
// to content-based IDs. Re-ingesting a document updates properties
// instead of creating duplicates. Candidates that violate the ontology
// are collected as rejections on the result, never surfaced as errors.
package graph
