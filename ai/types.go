package ai

// CandidateEntity is an unvalidated entity extracted from text, not yet
// checked against the ontology or merged into the graph.
type CandidateEntity struct {
	// Name is the entity identifier as it appears in the document,
	// e.g. "main girder", "S355 steel".
	Name string

	// Type is the claimed ontology entity type, e.g. "Component".
	// Unknown types are rejected (not fatally) by the merge engine.
	Type string

	// Properties holds extracted attribute values keyed by property name.
	Properties map[string]any

	// Confidence is the extractor's confidence in this candidate, 0-1.
	Confidence float64

	// SourceSpan is the text fragment the candidate was derived from.
	SourceSpan string
}

// CandidateRelationship is an unvalidated directed edge between two
// candidate entities, referenced by (type, name) pairs.
type CandidateRelationship struct {
	// Type is the claimed ontology relationship type, e.g. "MADE_OF".
	Type string

	SourceName string
	SourceType string
	TargetName string
	TargetType string

	// Properties holds extracted attribute values for the edge.
	Properties map[string]any

	// Confidence is the extractor's confidence in this candidate, 0-1.
	Confidence float64
}

// Extraction is the full result of one extraction call over a document.
type Extraction struct {
	Entities      []CandidateEntity
	Relationships []CandidateRelationship
}
