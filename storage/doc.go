// Package storage defines the persistence contracts for the knowledge
// graph and the batch job records, plus the JSON value codecs shared by
// backends.
//
// The badger subpackage provides the production implementation on
// BadgerDB. Repositories are thread-safe; upserts are atomic with
// respect to their natural-key lookup.
package storage
