package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lattice/ontology"
	"github.com/poiesic/lattice/storage"
)

// OntologyStore implements ontology.Store for BadgerDB. The live
// structure lives under a single key; snapshots are stored by name with
// a BigEndian date index for newest-first listing.
type OntologyStore struct {
	backend *Backend
}

var _ ontology.Store = (*OntologyStore)(nil)

// NewOntologyStore creates a new OntologyStore.
func NewOntologyStore(backend *Backend) *OntologyStore {
	return &OntologyStore{
		backend: backend,
	}
}

// LoadStructure returns the persisted live structure.
func (s *OntologyStore) LoadStructure(ctx context.Context) (*ontology.Structure, error) {
	var structure *ontology.Structure
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(ontologyStructureKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshalStructure(val, &structure)
		})
	}, false)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, wrapStoreErr("load ontology structure", err)
	}
	return structure, nil
}

// SaveStructure persists the live structure, replacing any previous one.
func (s *OntologyStore) SaveStructure(ctx context.Context, structure *ontology.Structure) error {
	value, err := marshalStructure(structure)
	if err != nil {
		return err
	}
	err = s.backend.WithWriteRetry(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(ontologyStructureKey), value); err != nil {
			return err
		}
		return tx.Commit()
	})
	return wrapStoreErr("save ontology structure", err)
}

// AddSnapshot persists a new snapshot. Fails with storage.ErrDuplicateKey
// when the version name is taken. Snapshots are never updated or deleted.
func (s *OntologyStore) AddSnapshot(ctx context.Context, snapshot *ontology.Snapshot) error {
	key := makeSnapshotKey(snapshot.Name)
	value, err := marshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	err = s.backend.WithWriteRetry(func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		// Date index points at the primary record's name
		dateKey := makeSnapshotDateKey(snapshot.CreatedAt, snapshot.Name)
		if err := tx.Set(dateKey, []byte(snapshot.Name)); err != nil {
			return err
		}
		return tx.Commit()
	})
	return wrapStoreErr("add snapshot", err)
}

// GetSnapshot returns the snapshot with the given version name.
func (s *OntologyStore) GetSnapshot(ctx context.Context, name string) (*ontology.Snapshot, error) {
	var snapshot *ontology.Snapshot
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSnapshotKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshalSnapshot(val, &snapshot)
		})
	}, false)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, wrapStoreErr("get snapshot", err)
	}
	return snapshot, nil
}

// ListSnapshots returns all snapshots ordered newest first, walking the
// date index in reverse.
func (s *OntologyStore) ListSnapshots(ctx context.Context) ([]*ontology.Snapshot, error) {
	var names []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotDatePrefix + ":")
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration starts past the last key in the prefix range
		seek := append([]byte(snapshotDatePrefix+":"), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				names = append(names, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, wrapStoreErr("list snapshots", err)
	}

	snapshots := make([]*ontology.Snapshot, 0, len(names))
	for _, name := range names {
		snapshot, err := s.GetSnapshot(ctx, name)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func marshalStructure(structure *ontology.Structure) ([]byte, error) {
	data, err := json.Marshal(structure)
	if err != nil {
		return nil, fmt.Errorf("%w: ontology structure: %w", storage.ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshalStructure(data []byte, out **ontology.Structure) error {
	var structure ontology.Structure
	if err := json.Unmarshal(data, &structure); err != nil {
		return fmt.Errorf("%w: ontology structure: %w", storage.ErrSerializationFailed, err)
	}
	if structure.EntityTypes == nil {
		structure.EntityTypes = make(map[string]*ontology.EntityType)
	}
	if structure.RelationshipTypes == nil {
		structure.RelationshipTypes = make(map[string]*ontology.RelationshipType)
	}
	*out = &structure
	return nil
}

func marshalSnapshot(snapshot *ontology.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %w", storage.ErrSerializationFailed, snapshot.Name, err)
	}
	return data, nil
}

func unmarshalSnapshot(data []byte, out **ontology.Snapshot) error {
	var snapshot ontology.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: snapshot: %w", storage.ErrSerializationFailed, err)
	}
	*out = &snapshot
	return nil
}
