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

import "errors"

var (
	// ErrStoreRequired is returned when a registry is created without a store.
	ErrStoreRequired = errors.New("ontology store required")

	// ErrInvalidName indicates an empty or malformed type name.
	ErrInvalidName = errors.New("invalid type name")

	// ErrDuplicateType indicates a type name already exists with a
	// different definition. Re-adding an identical definition is not an
	// error; only conflicting definitions are rejected, to avoid silent
	// schema drift.
	ErrDuplicateType = errors.New("type already exists with a different definition")

	// ErrUnknownEntityType indicates a relationship type references an
	// entity type that has not been declared.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrDuplicateSnapshot indicates a snapshot version name is already taken.
	ErrDuplicateSnapshot = errors.New("snapshot version name already exists")
)
