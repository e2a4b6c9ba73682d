// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/ontology"
	"github.com/poiesic/lattice/storage"
)

// Merger validates extraction candidates against the ontology and
// upserts them into the graph store with natural-key deduplication.
//
// Candidates that do not conform to the ontology are recorded as
// rejections, never as errors: a partially-accepted document is still a
// successful ingestion. Errors are reserved for infrastructure failures.
type Merger struct {
	repo   storage.GraphRepository
	logger *slog.Logger
}

// NewMerger creates a merger bound to a graph repository.
func NewMerger(repo storage.GraphRepository, opts ...Option) (*Merger, error) {
	if repo == nil {
		return nil, ErrGraphRepositoryRequired
	}

	m := &Merger{
		repo:   repo,
		logger: slog.Default().With("component", "graph-merger"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Merge runs the two-pass merge algorithm: entities first, then
// relationships (which may reference entities merged in the first pass
// or entities already in the store). The structure is the ontology view
// as of the moment of merge; candidates extracted against an older view
// are re-validated here.
//
// Once started, a merge runs to completion for the document; it never
// yields partially-validated state to the caller.
func (m *Merger) Merge(ctx context.Context, structure *ontology.Structure, extraction *ai.Extraction) (*MergeResult, error) {
	if structure == nil {
		return nil, ErrStructureRequired
	}
	if extraction == nil {
		extraction = &ai.Extraction{}
	}

	result := &MergeResult{
		EntitiesByType: make(map[string]int),
	}

	// First pass: entities. Merged entities are kept by natural key so
	// the relationship pass can resolve endpoints without store reads.
	merged := make(map[string]*core.Entity)

	for _, candidate := range extraction.Entities {
		entityType, ok := structure.EntityTypes[candidate.Type]
		if !ok {
			result.reject(RejectedEntity, candidate.Name,
				fmt.Sprintf("unknown entity type %q", candidate.Type))
			continue
		}

		entity := &core.Entity{
			Type: candidate.Type,
			Name: candidate.Name,
		}
		if err := core.ValidateEntity(entity); err != nil {
			result.reject(RejectedEntity, candidate.Name, err.Error())
			continue
		}

		// Properties the type declares go to the typed map; everything
		// else lands in the open additional_props bag.
		for key, value := range candidate.Properties {
			if entityType.AllowsProperty(key) {
				if entity.Properties == nil {
					entity.Properties = make(map[string]any)
				}
				entity.Properties[key] = value
			} else {
				if entity.AdditionalProps == nil {
					entity.AdditionalProps = make(map[string]any)
				}
				entity.AdditionalProps[key] = value
			}
		}

		stored, created, err := m.repo.UpsertEntity(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("merging entity %q: %w", candidate.Name, err)
		}

		if created {
			result.EntitiesCreated++
		} else {
			result.EntitiesUpdated++
		}
		if _, seen := merged[stored.Key()]; !seen {
			result.EntityIds = append(result.EntityIds, stored.Id)
			result.EntitiesByType[stored.Type]++
		}
		merged[stored.Key()] = stored
	}

	// Second pass: relationships.
	seenRels := make(map[core.ID]bool)
	for _, candidate := range extraction.Relationships {
		relType, ok := structure.RelationshipTypes[candidate.Type]
		if !ok {
			result.reject(RejectedRelationship, candidate.Type,
				fmt.Sprintf("unknown relationship type %q", candidate.Type))
			continue
		}

		source, err := m.resolveEndpoint(ctx, merged, candidate.SourceType, candidate.SourceName)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				result.reject(RejectedRelationship, candidate.Type,
					fmt.Sprintf("unresolvable source %q (%s)", candidate.SourceName, candidate.SourceType))
				continue
			}
			return nil, fmt.Errorf("resolving relationship source: %w", err)
		}

		target, err := m.resolveEndpoint(ctx, merged, candidate.TargetType, candidate.TargetName)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				result.reject(RejectedRelationship, candidate.Type,
					fmt.Sprintf("unresolvable target %q (%s)", candidate.TargetName, candidate.TargetType))
				continue
			}
			return nil, fmt.Errorf("resolving relationship target: %w", err)
		}

		if !relType.AllowsSource(source.Type) {
			result.reject(RejectedRelationship, candidate.Type,
				fmt.Sprintf("source type %q not allowed for %s", source.Type, relType.Name))
			continue
		}
		if !relType.AllowsTarget(target.Type) {
			result.reject(RejectedRelationship, candidate.Type,
				fmt.Sprintf("target type %q not allowed for %s", target.Type, relType.Name))
			continue
		}

		rel := &core.Relationship{
			Type:       candidate.Type,
			SourceId:   source.Id,
			TargetId:   target.Id,
			Properties: candidate.Properties,
		}

		stored, created, err := m.repo.UpsertRelationship(ctx, rel)
		if err != nil {
			return nil, fmt.Errorf("merging relationship %s: %w", candidate.Type, err)
		}

		if created {
			result.RelationshipsCreated++
		} else {
			result.RelationshipsUpdated++
		}
		if !seenRels[stored.Id] {
			seenRels[stored.Id] = true
			result.RelationshipIds = append(result.RelationshipIds, stored.Id)
		}
	}

	m.logger.Debug("merge complete",
		"entitiesCreated", result.EntitiesCreated,
		"entitiesUpdated", result.EntitiesUpdated,
		"relationshipsCreated", result.RelationshipsCreated,
		"relationshipsUpdated", result.RelationshipsUpdated,
		"rejections", len(result.Rejections))

	return result, nil
}

// resolveEndpoint resolves a (type, name) reference to an entity, looking
// first at entities merged in this batch, then at the store.
// Returns storage.ErrNotFound when the reference cannot be resolved.
func (m *Merger) resolveEndpoint(ctx context.Context, merged map[string]*core.Entity, entityType, name string) (*core.Entity, error) {
	if entityType == "" || core.NormalizeName(name) == "" {
		return nil, storage.ErrNotFound
	}

	if entity, ok := merged[core.NaturalKey(entityType, name)]; ok {
		return entity, nil
	}
	return m.repo.GetEntityByKey(ctx, entityType, name)
}
