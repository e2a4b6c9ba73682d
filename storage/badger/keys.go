package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/lattice/core"
)

// Key prefixes for different data types
const (
	entityRecordPrefix       = "entrec"
	relationshipRecordPrefix = "relrec"
	jobRecordPrefix          = "jobrec"
	ontologyStructureKey     = "ontstruct"
	snapshotRecordPrefix     = "ontsnap"
	snapshotDatePrefix       = "ontsnapd"
)

// makeEntityKey generates a key for an entity by ID.
// Entity IDs are content-derived from the natural key, so no secondary
// name index is needed: key lookups recompute the ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeRelationshipKey generates a key for a relationship by ID.
func makeRelationshipKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", relationshipRecordPrefix, id))
}

// makeJobKey generates a key for a batch job record.
func makeJobKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobRecordPrefix, id))
}

// makeSnapshotKey generates a key for an ontology snapshot by version name.
func makeSnapshotKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", snapshotRecordPrefix, name))
}

// makeSnapshotDateKey generates a composite key for the snapshot date index.
// Format: prefix:timestamp:name
func makeSnapshotDateKey(createdAt time.Time, name string) []byte {
	prefix := snapshotDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + len(name)
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(name))
	return buf
}
