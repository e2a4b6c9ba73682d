// Package ontology holds the evolvable schema of the knowledge graph:
// entity types, relationship types, and named immutable snapshots.
//
// The Registry keeps the live structure behind an atomically-swapped
// pointer so that merge operations read it without taking locks, while
// administrative writes build a new copy, persist it, and swap the
// reference (copy-on-write).
package ontology
