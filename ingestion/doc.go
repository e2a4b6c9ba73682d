// Package ingestion provides the per-document pipeline: extract
// candidates from raw text, validate them against the live ontology, and
// merge them into the graph.
//
// A document moves through RECEIVED, EXTRACTING, MERGING and ends in
// DONE or FAILED. Extraction problems are per-document outcomes; only
// infrastructure failures surface as errors to the caller.
package ingestion
