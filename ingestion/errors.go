package ingestion

import "errors"

var (
	// ErrExtractorRequired is returned when an entity extractor is not provided.
	ErrExtractorRequired = errors.New("entity extractor required")

	// ErrMergerRequired is returned when a graph merger is not provided.
	ErrMergerRequired = errors.New("graph merger required")

	// ErrRegistryRequired is returned when an ontology registry is not provided.
	ErrRegistryRequired = errors.New("ontology registry required")
)
