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


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/poiesic/lattice/core"
)

// Values are stored as JSON. The open property bags on entities and
// relationships hold arbitrary JSON values, which rules out fixed-schema
// binary encodings.

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(entity *core.Entity) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("%w: entity %d: %w", ErrSerializationFailed, entity.Id, err)
	}
	return data, nil
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	var entity core.Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("%w: entity: %w", ErrSerializationFailed, err)
	}
	return &entity, nil
}

// MarshalRelationship serializes a Relationship to bytes.
func MarshalRelationship(rel *core.Relationship) ([]byte, error) {
	data, err := json.Marshal(rel)
	if err != nil {
		return nil, fmt.Errorf("%w: relationship %d: %w", ErrSerializationFailed, rel.Id, err)
	}
	return data, nil
}

// UnmarshalRelationship deserializes a Relationship from bytes.
func UnmarshalRelationship(data []byte) (*core.Relationship, error) {
	var rel core.Relationship
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("%w: relationship: %w", ErrSerializationFailed, err)
	}
	return &rel, nil
}

// MarshalJob serializes a BatchJob to bytes.
func MarshalJob(job *core.BatchJob) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", ErrSerializationFailed, job.Id, err)
	}
	return data, nil
}

// UnmarshalJob deserializes a BatchJob from bytes.
func UnmarshalJob(data []byte) (*core.BatchJob, error) {
	var job core.BatchJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: job: %w", ErrSerializationFailed, err)
	}
	return &job, nil
}

// MarshalID serializes an ID to 8 BigEndian bytes for index values.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from index value bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: id: expected 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}
