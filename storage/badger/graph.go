package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

// GraphRepository implements storage.GraphRepository for BadgerDB.
//
// Entity and relationship IDs are content-derived (BLAKE2b of the
// natural key), so an upsert is a read of one key followed by a write of
// the same key inside a serializable transaction. Concurrent upserts of
// the same key conflict at commit and are retried, which guarantees a
// single node per natural key.
type GraphRepository struct {
	backend *Backend
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(backend *Backend) (*GraphRepository, error) {
	return &GraphRepository{
		backend: backend,
	}, nil
}

// Close releases resources. GraphRepository has no resources to release.
func (r *GraphRepository) Close() error {
	return nil
}

// UpsertEntity inserts or property-merges an entity by natural key.
func (r *GraphRepository) UpsertEntity(ctx context.Context, entity *core.Entity) (*core.Entity, bool, error) {
	id := core.IDFromContent(entity.Key())
	key := makeEntityKey(id)

	var stored *core.Entity
	var created bool

	err := r.backend.WithWriteRetry(func(tx *badger.Txn) error {
		existing, err := readEntity(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if existing == nil {
			stored = &core.Entity{
				Id:              id,
				Type:            entity.Type,
				Name:            entity.Name,
				Properties:      cloneProps(entity.Properties),
				AdditionalProps: cloneProps(entity.AdditionalProps),
				InsertedAt:      now,
				UpdatedAt:       now,
			}
			created = true
		} else {
			// Merge incoming properties last-write-wins per key.
			// The first-seen display name is kept.
			existing.Properties = mergeProps(existing.Properties, entity.Properties)
			existing.AdditionalProps = mergeProps(existing.AdditionalProps, entity.AdditionalProps)
			existing.UpdatedAt = now
			stored = existing
			created = false
		}

		value, err := storage.MarshalEntity(stored)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, false, wrapStoreErr("upsert entity", err)
	}

	return stored, created, nil
}

// GetEntity retrieves an entity by ID.
func (r *GraphRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var entity *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entity, err = readEntity(tx, makeEntityKey(id))
		return err
	}, false)
	if err != nil {
		return nil, wrapStoreErr("get entity", err)
	}
	if entity == nil {
		return nil, storage.ErrNotFound
	}
	return entity, nil
}

// GetEntityByKey retrieves an entity by its natural key.
func (r *GraphRepository) GetEntityByKey(ctx context.Context, entityType, name string) (*core.Entity, error) {
	return r.GetEntity(ctx, core.IDFromContent(core.NaturalKey(entityType, name)))
}

// UpsertRelationship inserts or property-merges an edge by (type, source, target).
func (r *GraphRepository) UpsertRelationship(ctx context.Context, rel *core.Relationship) (*core.Relationship, bool, error) {
	id := core.IDFromContent(rel.Key())
	key := makeRelationshipKey(id)

	var stored *core.Relationship
	var created bool

	err := r.backend.WithWriteRetry(func(tx *badger.Txn) error {
		existing, err := readRelationship(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if existing == nil {
			stored = &core.Relationship{
				Id:         id,
				Type:       rel.Type,
				SourceId:   rel.SourceId,
				TargetId:   rel.TargetId,
				Properties: cloneProps(rel.Properties),
				InsertedAt: now,
				UpdatedAt:  now,
			}
			created = true
		} else {
			existing.Properties = mergeProps(existing.Properties, rel.Properties)
			existing.UpdatedAt = now
			stored = existing
			created = false
		}

		value, err := storage.MarshalRelationship(stored)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, false, wrapStoreErr("upsert relationship", err)
	}

	return stored, created, nil
}

// GetRelationship retrieves a relationship by ID.
func (r *GraphRepository) GetRelationship(ctx context.Context, id core.ID) (*core.Relationship, error) {
	var rel *core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		rel, err = readRelationship(tx, makeRelationshipKey(id))
		return err
	}, false)
	if err != nil {
		return nil, wrapStoreErr("get relationship", err)
	}
	if rel == nil {
		return nil, storage.ErrNotFound
	}
	return rel, nil
}

// readEntity reads an entity within a transaction.
// Returns (nil, nil) if the key doesn't exist.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}

// readRelationship reads a relationship within a transaction.
// Returns (nil, nil) if the key doesn't exist.
func readRelationship(tx *badger.Txn, key []byte) (*core.Relationship, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rel *core.Relationship
	err = item.Value(func(val []byte) error {
		var err error
		rel, err = storage.UnmarshalRelationship(val)
		return err
	})
	return rel, err
}

// cloneProps copies a property map, returning nil for empty input.
func cloneProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// mergeProps merges incoming into existing, last-write-wins per key.
func mergeProps(existing, incoming map[string]any) map[string]any {
	if len(incoming) == 0 {
		return existing
	}
	if existing == nil {
		existing = make(map[string]any, len(incoming))
	}
	for k, v := range incoming {
		existing[k] = v
	}
	return existing
}

// wrapStoreErr marks infrastructure failures as storage.ErrUnavailable so
// callers can tell them apart from validation problems. Not-found and
// serialization errors pass through unchanged.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrDuplicateKey) ||
		errors.Is(err, storage.ErrNotReady) ||
		errors.Is(err, storage.ErrSerializationFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", storage.ErrUnavailable, op, err)
}
