package graph

import "errors"

var (
	// ErrGraphRepositoryRequired is returned when a graph repository is not provided.
	ErrGraphRepositoryRequired = errors.New("graph repository required")

	// ErrStructureRequired is returned when a merge is attempted without
	// an ontology structure.
	ErrStructureRequired = errors.New("ontology structure required")
)
