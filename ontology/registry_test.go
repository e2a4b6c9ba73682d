package ontology

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lattice/storage"
)

// memStore is an in-memory Store for registry tests.
type memStore struct {
	structure *Structure
	snapshots map[string]*Snapshot
	saves     int
	failSave  error
}

func newMemStore() *memStore {
	return &memStore{snapshots: make(map[string]*Snapshot)}
}

func (s *memStore) LoadStructure(ctx context.Context) (*Structure, error) {
	if s.structure == nil {
		return nil, storage.ErrNotFound
	}
	return s.structure, nil
}

func (s *memStore) SaveStructure(ctx context.Context, structure *Structure) error {
	if s.failSave != nil {
		return s.failSave
	}
	s.structure = structure
	s.saves++
	return nil
}

func (s *memStore) AddSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if _, ok := s.snapshots[snapshot.Name]; ok {
		return storage.ErrDuplicateKey
	}
	s.snapshots[snapshot.Name] = snapshot
	return nil
}

func (s *memStore) GetSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	snapshot, ok := s.snapshots[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return snapshot, nil
}

func (s *memStore) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	out := make([]*Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func newTestRegistry(t *testing.T) (*Registry, *memStore) {
	t.Helper()

	store := newMemStore()
	registry, err := NewRegistry(context.Background(), store, WithSeed(DefaultStructure()))
	require.NoError(t, err)
	return registry, store
}

func TestNewRegistrySeedsEmptyStore(t *testing.T) {
	registry, store := newTestRegistry(t)

	assert.Equal(t, 1, store.saves, "seed should be persisted")
	assert.Contains(t, registry.Structure().EntityTypes, "Component")
}

func TestNewRegistryLoadsExistingStructure(t *testing.T) {
	store := newMemStore()
	existing := NewStructure()
	existing.EntityTypes["Widget"] = &EntityType{Name: "Widget"}
	store.structure = existing

	registry, err := NewRegistry(context.Background(), store, WithSeed(DefaultStructure()))
	require.NoError(t, err)

	// The persisted structure wins over the seed.
	assert.Contains(t, registry.Structure().EntityTypes, "Widget")
	assert.NotContains(t, registry.Structure().EntityTypes, "Component")
}

func TestNewRegistryRequiresStore(t *testing.T) {
	_, err := NewRegistry(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestAddEntityType(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.AddEntityType(ctx, "Supplier", []string{"country"}, "vendor"))
	assert.Contains(t, registry.Structure().EntityTypes, "Supplier")

	// Identical re-add is idempotent success.
	require.NoError(t, registry.AddEntityType(ctx, "Supplier", []string{"country"}, "vendor"))

	// Conflicting property set fails.
	err := registry.AddEntityType(ctx, "Supplier", []string{"country", "rating"}, "")
	assert.ErrorIs(t, err, ErrDuplicateType)

	err = registry.AddEntityType(ctx, "  ", nil, "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAddEntityTypeDoesNotMutateOldReaders(t *testing.T) {
	registry, _ := newTestRegistry(t)

	before := registry.Structure()
	require.NoError(t, registry.AddEntityType(context.Background(), "Supplier", nil, ""))

	// Readers holding the old structure never observe the write.
	assert.NotContains(t, before.EntityTypes, "Supplier")
	assert.Contains(t, registry.Structure().EntityTypes, "Supplier")
}

func TestAddRelationshipType(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.AddRelationshipType(ctx, "SUPPLIED_BY",
		[]string{"Component"}, []string{"Material"}, ""))

	// Referencing an unknown entity type fails.
	err := registry.AddRelationshipType(ctx, "SHIPS_TO",
		[]string{"Component"}, []string{"Warehouse"}, "")
	assert.ErrorIs(t, err, ErrUnknownEntityType)

	// Idempotent re-add vs conflicting definition.
	require.NoError(t, registry.AddRelationshipType(ctx, "SUPPLIED_BY",
		[]string{"Component"}, []string{"Material"}, ""))
	err = registry.AddRelationshipType(ctx, "SUPPLIED_BY",
		[]string{"System"}, []string{"Material"}, "")
	assert.ErrorIs(t, err, ErrDuplicateType)

	// Empty endpoint sets mean any type.
	require.NoError(t, registry.AddRelationshipType(ctx, "RELATES_TO", nil, nil, ""))
	relType := registry.Structure().RelationshipTypes["RELATES_TO"]
	assert.True(t, relType.AllowsSource("Component"))
	assert.True(t, relType.AllowsTarget("Document"))
}

func TestAddEntityTypeRollsBackOnPersistError(t *testing.T) {
	registry, store := newTestRegistry(t)
	store.failSave = fmt.Errorf("disk full")

	err := registry.AddEntityType(context.Background(), "Supplier", nil, "")
	require.Error(t, err)
	assert.NotContains(t, registry.Structure().EntityTypes, "Supplier",
		"a failed persist must not change the live structure")
}

func TestCreateSnapshotImmutability(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	snapshot, err := registry.CreateSnapshot(ctx, "v1", "baseline")
	require.NoError(t, err)
	typesAtSnapshot := len(snapshot.Structure.EntityTypes)

	// Mutating the live structure afterwards does not alter v1.
	require.NoError(t, registry.AddEntityType(ctx, "Supplier", nil, ""))

	stored, err := registry.GetSnapshot(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, stored.Structure.EntityTypes, typesAtSnapshot)
	assert.NotContains(t, stored.Structure.EntityTypes, "Supplier")
}

func TestCreateSnapshotDuplicateName(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.CreateSnapshot(ctx, "v1", "")
	require.NoError(t, err)

	_, err = registry.CreateSnapshot(ctx, "v1", "")
	assert.ErrorIs(t, err, ErrDuplicateSnapshot)

	_, err = registry.CreateSnapshot(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"v1", "v2", "v3"} {
		_, err := registry.CreateSnapshot(ctx, name, "")
		require.NoError(t, err)
	}

	snapshots, err := registry.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	for i := 1; i < len(snapshots); i++ {
		assert.False(t, snapshots[i].CreatedAt.After(snapshots[i-1].CreatedAt),
			"snapshots must be ordered newest first")
	}
}
