package ontology

import (
	"maps"
	"slices"
	"time"
)

// EntityType declares a kind of graph node the ontology allows, together
// with the ordered set of property names instances of it may carry.
type EntityType struct {
	Name        string   `json:"name"`
	Properties  []string `json:"properties"`
	Description string   `json:"description,omitempty"`
}

// Clone returns a deep copy of the entity type.
func (t *EntityType) Clone() *EntityType {
	return &EntityType{
		Name:        t.Name,
		Properties:  slices.Clone(t.Properties),
		Description: t.Description,
	}
}

// AllowsProperty reports whether the given property name is in the
// type's declared property set.
func (t *EntityType) AllowsProperty(name string) bool {
	return slices.Contains(t.Properties, name)
}

// RelationshipType declares a kind of directed edge the ontology allows.
// FromTypes and ToTypes constrain the entity types at each endpoint;
// an empty set means "Any".
type RelationshipType struct {
	Name        string   `json:"name"`
	FromTypes   []string `json:"from"`
	ToTypes     []string `json:"to"`
	Description string   `json:"description,omitempty"`
}

// Clone returns a deep copy of the relationship type.
func (t *RelationshipType) Clone() *RelationshipType {
	return &RelationshipType{
		Name:        t.Name,
		FromTypes:   slices.Clone(t.FromTypes),
		ToTypes:     slices.Clone(t.ToTypes),
		Description: t.Description,
	}
}

// AllowsSource reports whether entities of the given type may appear at
// the source end of this relationship. An empty FromTypes set allows any type.
func (t *RelationshipType) AllowsSource(entityType string) bool {
	return len(t.FromTypes) == 0 || slices.Contains(t.FromTypes, entityType)
}

// AllowsTarget reports whether entities of the given type may appear at
// the target end of this relationship. An empty ToTypes set allows any type.
func (t *RelationshipType) AllowsTarget(entityType string) bool {
	return len(t.ToTypes) == 0 || slices.Contains(t.ToTypes, entityType)
}

// Structure is the live ontology: the full set of entity and relationship
// types, keyed by name. A Structure handed out by the registry is frozen;
// mutations build a new Structure and swap it in.
type Structure struct {
	EntityTypes       map[string]*EntityType       `json:"entity_types"`
	RelationshipTypes map[string]*RelationshipType `json:"relationship_types"`
}

// NewStructure returns an empty Structure with initialized maps.
func NewStructure() *Structure {
	return &Structure{
		EntityTypes:       make(map[string]*EntityType),
		RelationshipTypes: make(map[string]*RelationshipType),
	}
}

// Clone returns a deep copy of the structure. Snapshots and writers both
// rely on this to keep frozen structures independent of later edits.
func (s *Structure) Clone() *Structure {
	out := &Structure{
		EntityTypes:       make(map[string]*EntityType, len(s.EntityTypes)),
		RelationshipTypes: make(map[string]*RelationshipType, len(s.RelationshipTypes)),
	}
	for name, t := range s.EntityTypes {
		out.EntityTypes[name] = t.Clone()
	}
	for name, t := range s.RelationshipTypes {
		out.RelationshipTypes[name] = t.Clone()
	}
	return out
}

// EntityTypeNames returns the declared entity type names in sorted order.
func (s *Structure) EntityTypeNames() []string {
	return slices.Sorted(maps.Keys(s.EntityTypes))
}

// RelationshipTypeNames returns the declared relationship type names in sorted order.
func (s *Structure) RelationshipTypeNames() []string {
	return slices.Sorted(maps.Keys(s.RelationshipTypes))
}

// Snapshot is an immutable, named copy of the ontology structure at a
// point in time. Snapshots are append-only; they are never mutated or
// deleted by normal operation.
type Snapshot struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Structure   *Structure `json:"structure"`
}
