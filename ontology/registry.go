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


package ontology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/lattice/storage"
)

// Store is the persistence contract the registry needs. It is implemented
// by the badger storage layer.
type Store interface {
	// LoadStructure returns the persisted live structure.
	// Returns an error satisfying IsNotFound semantics of the storage
	// layer when no structure has been saved yet.
	LoadStructure(ctx context.Context) (*Structure, error)

	// SaveStructure persists the live structure, replacing any previous one.
	SaveStructure(ctx context.Context, structure *Structure) error

	// AddSnapshot persists a new snapshot. Fails when the name is taken.
	AddSnapshot(ctx context.Context, snapshot *Snapshot) error

	// GetSnapshot returns the snapshot with the given name.
	GetSnapshot(ctx context.Context, name string) (*Snapshot, error)

	// ListSnapshots returns all snapshots ordered newest first.
	ListSnapshots(ctx context.Context) ([]*Snapshot, error)
}

// Registry holds the live ontology structure and its named snapshots.
//
// Reads go through an atomically-swapped pointer and never block behind
// writers. Writers serialize on a mutex, build a new Structure from a
// deep copy, persist it, then swap the pointer. Concurrent administrative
// edits are last-writer-wins.
type Registry struct {
	store  Store
	live   atomic.Pointer[Structure]
	mu     sync.Mutex // serializes writers
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	seed   *Structure
	logger *slog.Logger
}

// WithSeed sets a structure to install when the store holds no ontology yet.
// Typically DefaultStructure().
func WithSeed(seed *Structure) RegistryOption {
	return func(o *registryOptions) {
		o.seed = seed
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(o *registryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewRegistry creates a registry backed by the given store and loads the
// persisted structure. When the store is empty and a seed is configured,
// the seed is persisted and becomes the live structure.
func NewRegistry(ctx context.Context, store Store, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	options := &registryOptions{
		logger: slog.Default().With("component", "ontology-registry"),
	}
	for _, opt := range opts {
		opt(options)
	}

	r := &Registry{
		store:  store,
		logger: options.logger,
	}

	structure, err := store.LoadStructure(ctx)
	switch {
	case err == nil:
		r.live.Store(structure)
	case errors.Is(err, storage.ErrNotFound):
		structure = options.seed
		if structure == nil {
			structure = NewStructure()
		}
		if err := store.SaveStructure(ctx, structure); err != nil {
			return nil, fmt.Errorf("seeding ontology: %w", err)
		}
		r.live.Store(structure)
		r.logger.Info("seeded ontology structure",
			"entityTypes", len(structure.EntityTypes),
			"relationshipTypes", len(structure.RelationshipTypes))
	default:
		return nil, fmt.Errorf("loading ontology: %w", err)
	}

	return r, nil
}

// Structure returns the current live structure. The returned value is
// frozen: callers must treat it as read-only. Holding the reference is
// safe across concurrent writes, which swap in a new structure instead
// of mutating this one.
func (r *Registry) Structure() *Structure {
	return r.live.Load()
}

// AddEntityType declares a new entity type.
//
// Re-adding an existing name with an identical property list succeeds
// without modifying anything. Re-adding with a different property list
// fails with ErrDuplicateType.
func (r *Registry) AddEntityType(ctx context.Context, name string, properties []string, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty entity type name", ErrInvalidName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.live.Load()
	if existing, ok := current.EntityTypes[name]; ok {
		if slices.Equal(existing.Properties, properties) {
			return nil // idempotent re-add
		}
		return fmt.Errorf("%w: entity type %q", ErrDuplicateType, name)
	}

	next := current.Clone()
	next.EntityTypes[name] = &EntityType{
		Name:        name,
		Properties:  slices.Clone(properties),
		Description: description,
	}

	if err := r.store.SaveStructure(ctx, next); err != nil {
		return fmt.Errorf("persisting ontology: %w", err)
	}
	r.live.Store(next)

	r.logger.Info("added entity type", "name", name, "properties", len(properties))
	return nil
}

// AddRelationshipType declares a new relationship type. Every name in
// fromTypes and toTypes must already exist as an entity type. Empty
// endpoint sets mean "any entity type".
//
// Re-adding an existing name with identical endpoint sets succeeds;
// a conflicting definition fails with ErrDuplicateType.
func (r *Registry) AddRelationshipType(ctx context.Context, name string, fromTypes, toTypes []string, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty relationship type name", ErrInvalidName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.live.Load()

	for _, from := range fromTypes {
		if _, ok := current.EntityTypes[from]; !ok {
			return fmt.Errorf("%w: %q referenced in from types", ErrUnknownEntityType, from)
		}
	}
	for _, to := range toTypes {
		if _, ok := current.EntityTypes[to]; !ok {
			return fmt.Errorf("%w: %q referenced in to types", ErrUnknownEntityType, to)
		}
	}

	if existing, ok := current.RelationshipTypes[name]; ok {
		if slices.Equal(existing.FromTypes, fromTypes) && slices.Equal(existing.ToTypes, toTypes) {
			return nil // idempotent re-add
		}
		return fmt.Errorf("%w: relationship type %q", ErrDuplicateType, name)
	}

	next := current.Clone()
	next.RelationshipTypes[name] = &RelationshipType{
		Name:        name,
		FromTypes:   slices.Clone(fromTypes),
		ToTypes:     slices.Clone(toTypes),
		Description: description,
	}

	if err := r.store.SaveStructure(ctx, next); err != nil {
		return fmt.Errorf("persisting ontology: %w", err)
	}
	r.live.Store(next)

	r.logger.Info("added relationship type", "name", name)
	return nil
}

// CreateSnapshot freezes a deep copy of the current live structure under
// a unique version name. Fails with ErrDuplicateSnapshot if the name is
// already taken. Snapshots are immutable once created.
func (r *Registry) CreateSnapshot(ctx context.Context, versionName, description string) (*Snapshot, error) {
	versionName = strings.TrimSpace(versionName)
	if versionName == "" {
		return nil, fmt.Errorf("%w: empty snapshot name", ErrInvalidName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := &Snapshot{
		Name:        versionName,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Structure:   r.live.Load().Clone(),
	}

	if err := r.store.AddSnapshot(ctx, snapshot); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSnapshot, versionName)
		}
		return nil, err
	}

	r.logger.Info("created ontology snapshot", "version", versionName)
	return snapshot, nil
}

// GetSnapshot returns the snapshot with the given version name.
func (r *Registry) GetSnapshot(ctx context.Context, versionName string) (*Snapshot, error) {
	return r.store.GetSnapshot(ctx, versionName)
}

// ListSnapshots returns all snapshots, newest first.
func (r *Registry) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	return r.store.ListSnapshots(ctx)
}
