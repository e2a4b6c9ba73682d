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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
// Each mutation is a read-modify-write of the full job record inside a
// single transaction, so counters stay consistent at every observation
// point.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	return &JobRepository{
		backend: backend,
	}, nil
}

// Close releases resources. JobRepository has no resources to release.
func (r *JobRepository) Close() error {
	return nil
}

// CreateJob persists a new job record.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.BatchJob) error {
	key := makeJobKey(job.Id)
	err := r.backend.WithWriteRetry(func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if job.CreatedAt.IsZero() {
			job.CreatedAt = time.Now().UTC()
		}
		job.TotalFiles = len(job.Files)

		value, err := storage.MarshalJob(job)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	})
	return wrapStoreErr("create job", err)
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*core.BatchJob, error) {
	var job *core.BatchJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		job, err = readJob(tx, makeJobKey(id))
		return err
	}, false)
	if err != nil {
		return nil, wrapStoreErr("get job", err)
	}
	if job == nil {
		return nil, storage.ErrNotFound
	}
	return job, nil
}

// AppendResult appends a per-file result and bumps the counters in the
// same transaction.
func (r *JobRepository) AppendResult(ctx context.Context, id string, result core.FileProcessingResult) error {
	return r.update(id, func(job *core.BatchJob) error {
		job.Results = append(job.Results, result)
		job.ProcessedFiles++
		if result.Outcome == core.FileOutcomeSuccess {
			job.SuccessfulFiles++
		} else {
			job.FailedFiles++
		}
		return nil
	})
}

// SetStatus updates the job status. Transitions into RUNNING set the
// start timestamp; transitions into a terminal state set the end
// timestamp. Terminal states are never overwritten.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status core.JobStatus) error {
	return r.update(id, func(job *core.BatchJob) error {
		if job.Status.Terminal() {
			return nil
		}
		job.Status = status
		now := time.Now().UTC()
		if status == core.JobStatusRunning && job.StartedAt.IsZero() {
			job.StartedAt = now
		}
		if status.Terminal() {
			job.EndedAt = now
		}
		return nil
	})
}

// RequestCancel marks the job as cancellation-requested.
// A no-op on jobs that are already terminal.
func (r *JobRepository) RequestCancel(ctx context.Context, id string) error {
	return r.update(id, func(job *core.BatchJob) error {
		if job.Status.Terminal() {
			return nil
		}
		job.CancelRequested = true
		return nil
	})
}

// SaveReport stores the final report on the job record.
func (r *JobRepository) SaveReport(ctx context.Context, id string, report *core.BatchJobReport) error {
	return r.update(id, func(job *core.BatchJob) error {
		job.Report = report
		return nil
	})
}

// GetReport returns the cached report for a terminal job.
func (r *JobRepository) GetReport(ctx context.Context, id string) (*core.BatchJobReport, error) {
	job, err := r.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() || job.Report == nil {
		return nil, storage.ErrNotReady
	}
	return job.Report, nil
}

// FailInterrupted marks jobs left PENDING or RUNNING by a previous
// process as FAILED and attaches a minimal report. There is no resume
// guarantee for work that was in flight during a crash.
func (r *JobRepository) FailInterrupted(ctx context.Context) (int, error) {
	var interrupted []string

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.BatchJob
			err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			})
			if err != nil {
				return err
			}
			if job != nil && !job.Status.Terminal() {
				interrupted = append(interrupted, job.Id)
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, wrapStoreErr("scan interrupted jobs", err)
	}

	for _, id := range interrupted {
		err := r.update(id, func(job *core.BatchJob) error {
			if job.Status.Terminal() {
				return nil
			}
			job.Status = core.JobStatusFailed
			job.EndedAt = time.Now().UTC()
			job.Report = &core.BatchJobReport{
				Status:  core.JobStatusFailed,
				Summary: "job interrupted by process restart; progress before the restart is not resumable",
				Results: job.Results,
				Errors:  []core.FileError{{File: "*", Reason: "interrupted by process restart"}},
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	return len(interrupted), nil
}

// update applies fn to the stored job record inside a write transaction.
func (r *JobRepository) update(id string, fn func(job *core.BatchJob) error) error {
	key := makeJobKey(id)
	err := r.backend.WithWriteRetry(func(tx *badger.Txn) error {
		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		if err := fn(job); err != nil {
			return err
		}

		value, err := storage.MarshalJob(job)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	})
	return wrapStoreErr("update job", err)
}

// readJob reads a job within a transaction.
// Returns (nil, nil) if the key doesn't exist.
func readJob(tx *badger.Txn, key []byte) (*core.BatchJob, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job *core.BatchJob
	err = item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalJob(val)
		return err
	})
	return job, err
}
