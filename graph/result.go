package graph

import "github.com/poiesic/lattice/core"

// RejectionKind identifies which kind of candidate was rejected.
type RejectionKind string

const (
	RejectedEntity       RejectionKind = "entity"
	RejectedRelationship RejectionKind = "relationship"
)

// Rejection records a candidate that failed ontology validation.
// Rejections are informational: they never fail the surrounding merge.
type Rejection struct {
	Kind   RejectionKind `json:"kind"`
	Name   string        `json:"name"`
	Reason string        `json:"reason"`
}

// MergeResult summarizes one merge run over a document's candidates.
type MergeResult struct {
	EntitiesCreated      int            `json:"entities_created"`
	EntitiesUpdated      int            `json:"entities_updated"`
	RelationshipsCreated int            `json:"relationships_created"`
	RelationshipsUpdated int            `json:"relationships_updated"`
	EntityIds            []core.ID      `json:"entity_ids,omitempty"`
	RelationshipIds      []core.ID      `json:"relationship_ids,omitempty"`
	EntitiesByType       map[string]int `json:"entities_by_type,omitempty"`
	Rejections           []Rejection    `json:"rejections,omitempty"`
}

// UniqueEntities returns the number of distinct entities touched by the merge.
func (r *MergeResult) UniqueEntities() int {
	return len(r.EntityIds)
}

func (r *MergeResult) reject(kind RejectionKind, name, reason string) {
	r.Rejections = append(r.Rejections, Rejection{Kind: kind, Name: name, Reason: reason})
}
