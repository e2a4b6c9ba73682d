package ai

import (
	"context"

	"github.com/poiesic/lattice/ontology"
)

// EntityExtractor turns raw document text into candidate entities and
// relationships, guided by the current ontology structure.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// Extract analyzes text and returns candidate entities and
	// relationships typed against the given ontology structure.
	// Candidates are unvalidated: the merge engine re-checks them
	// against the live ontology at merge time.
	// Returns an empty extraction if nothing is found.
	// Returns an error if the extraction call fails.
	Extract(ctx context.Context, text string, structure *ontology.Structure) (*Extraction, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Extractor returns the entity extraction service.
	// The returned EntityExtractor is safe for concurrent use.
	Extractor() EntityExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
