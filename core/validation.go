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

import "fmt"

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Name must not be empty after normalization
//   - Type must not be empty
//
// NOT validated (populated by the merge engine):
//   - ID (0 is valid before the first upsert)
//   - Properties / AdditionalProps (any shape is allowed; the ontology
//     decides which keys land where)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if NormalizeName(entity.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if entity.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityType)
	}

	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
//
// Validation rules:
//   - Type must not be empty
//   - SourceId and TargetId must both be set
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}

	if rel.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrEmptyRelationshipType)
	}

	if rel.SourceId == 0 || rel.TargetId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrMissingEndpoint)
	}

	return nil
}

// ValidateJobStatus validates that a JobStatus has a known value.
func ValidateJobStatus(status JobStatus) error {
	switch status {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusPartialSuccess, JobStatusCancelled:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidJobStatus, string(status))
}

// ValidateBatchJob validates a BatchJob prior to submission.
//
// Validation rules:
//   - Files must not be empty
//   - Status must be a known value
//
// Counter consistency (ProcessedFiles == SuccessfulFiles + FailedFiles)
// is an orchestrator invariant, not an input rule, and is not checked here.
func ValidateBatchJob(job *BatchJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if len(job.Files) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrNoInputFiles)
	}

	if err := ValidateJobStatus(job.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	return nil
}
