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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrInvalidJob indicates a BatchJob failed validation.
	ErrInvalidJob = errors.New("invalid batch job")

	// ErrEmptyEntityName indicates the entity Name field is empty.
	ErrEmptyEntityName = errors.New("entity name cannot be empty")

	// ErrEmptyEntityType indicates the entity Type field is empty.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")

	// ErrEmptyRelationshipType indicates the relationship Type field is empty.
	ErrEmptyRelationshipType = errors.New("relationship type cannot be empty")

	// ErrMissingEndpoint indicates a relationship is missing a source or target ID.
	ErrMissingEndpoint = errors.New("relationship source and target are required")

	// ErrNoInputFiles indicates a batch job was created with an empty file list.
	ErrNoInputFiles = errors.New("batch job requires at least one input file")

	// ErrInvalidJobStatus indicates an unknown JobStatus value.
	ErrInvalidJobStatus = errors.New("invalid job status")
)
