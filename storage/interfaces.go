package storage

import (
	"context"

	"github.com/poiesic/lattice/core"
)

// GraphRepository persists graph nodes and edges with upsert semantics.
// Implementations must be thread-safe, and each upsert must be atomic
// with respect to its natural-key lookup: two concurrent upserts of the
// same key must never create two records.
type GraphRepository interface {
	// UpsertEntity inserts or property-merges an entity by natural key.
	// When no entity with the key exists, one is created with a
	// content-based ID and created=true is returned. Otherwise incoming
	// properties are merged into the stored record last-write-wins per
	// key, and created=false is returned. The returned entity is the
	// stored state after the upsert.
	UpsertEntity(ctx context.Context, entity *core.Entity) (stored *core.Entity, created bool, err error)

	// GetEntity retrieves an entity by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntityByKey retrieves an entity by its natural key.
	// Returns ErrNotFound if it doesn't exist.
	GetEntityByKey(ctx context.Context, entityType, name string) (*core.Entity, error)

	// UpsertRelationship inserts or property-merges an edge identified
	// by (type, source, target). Same contract as UpsertEntity.
	UpsertRelationship(ctx context.Context, rel *core.Relationship) (stored *core.Relationship, created bool, err error)

	// GetRelationship retrieves a relationship by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetRelationship(ctx context.Context, id core.ID) (*core.Relationship, error)

	// Close releases resources held by the repository.
	Close() error
}

// JobRepository is the durable record of batch jobs and their per-file
// results. Mutating operations execute read-modify-write inside a single
// storage transaction; the orchestrator additionally funnels all writes
// for one job through a single goroutine.
type JobRepository interface {
	// CreateJob persists a new job record.
	// Returns ErrDuplicateKey if the job ID is taken.
	CreateJob(ctx context.Context, job *core.BatchJob) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetJob(ctx context.Context, id string) (*core.BatchJob, error)

	// AppendResult appends a per-file result and bumps the processed /
	// successful / failed counters in the same transaction, keeping
	// processed == successful + failed at every observation point.
	AppendResult(ctx context.Context, id string, result core.FileProcessingResult) error

	// SetStatus updates the job status and maintains the started/ended
	// timestamps on transitions into RUNNING and into terminal states.
	SetStatus(ctx context.Context, id string, status core.JobStatus) error

	// RequestCancel marks the job as cancellation-requested. A no-op on
	// jobs that are already terminal.
	RequestCancel(ctx context.Context, id string) error

	// SaveReport stores the final report on the job record.
	SaveReport(ctx context.Context, id string, report *core.BatchJobReport) error

	// GetReport returns the cached report for a terminal job.
	// Returns ErrNotFound for unknown jobs and ErrNotReady when the job
	// has not reached a terminal state.
	GetReport(ctx context.Context, id string) (*core.BatchJobReport, error)

	// FailInterrupted marks jobs left PENDING or RUNNING by a previous
	// process as FAILED. Called once on startup; there is no resume
	// guarantee for in-flight work.
	FailInterrupted(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
