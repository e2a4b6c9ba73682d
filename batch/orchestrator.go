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


package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/ingestion"
	"github.com/poiesic/lattice/storage"
)

// Orchestrator runs batch ingestion jobs over a shared bounded worker
// pool. Submitting many jobs does not multiply concurrency: all files
// from all jobs contend for the same pool slots.
//
// Each job has exactly one collector goroutine; every write to the
// job's durable record flows through it, so counter updates never race.
type Orchestrator struct {
	jobs        storage.JobRepository
	pipeline    *ingestion.Pipeline
	pool        *ants.Pool
	fileTimeout time.Duration
	maxRetries  int
	retryDelay  time.Duration
	readFile    func(path string) (string, error)
	logger      *slog.Logger

	running  sync.WaitGroup
	released atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size shared across all jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}

		if o.pool != nil {
			o.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithFileTimeout sets the per-file processing deadline.
// A file that exceeds it is recorded as FAILURE; the job continues.
// Default is 2 minutes.
func WithFileTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) error {
		if timeout > 0 {
			o.fileTimeout = timeout
		}
		return nil
	}
}

// WithRetryPolicy sets the retry policy for transient job-store writes.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(o *Orchestrator) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.maxRetries = maxAttempts
		o.retryDelay = baseDelay
		return nil
	}
}

// WithFileReader overrides how file contents are loaded.
// Default reads from the local filesystem.
func WithFileReader(read func(path string) (string, error)) Option {
	return func(o *Orchestrator) error {
		if read != nil {
			o.readFile = read
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(jobs storage.JobRepository, pipeline *ingestion.Pipeline, opts ...Option) (*Orchestrator, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		jobs:        jobs,
		pipeline:    pipeline,
		pool:        pool,
		fileTimeout: 2 * time.Minute,
		maxRetries:  3,
		retryDelay:  100 * time.Millisecond,
		readFile: func(path string) (string, error) {
			data, err := os.ReadFile(path)
			return string(data), err
		},
		logger: slog.Default().With("component", "batch-orchestrator"),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.pool.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Submit registers a new batch job and starts processing asynchronously.
// Returns the job ID immediately; progress is observed via Status.
func (o *Orchestrator) Submit(ctx context.Context, files []string, config map[string]string) (string, error) {
	if o.released.Load() {
		return "", ErrOrchestratorReleased
	}
	if len(files) == 0 {
		return "", core.ErrNoInputFiles
	}

	job := &core.BatchJob{
		Id:     uuid.NewString(),
		Files:  files,
		Config: config,
		Status: core.JobStatusPending,
	}

	err := RetryWithBackoff(ctx, func() error {
		return o.jobs.CreateJob(ctx, job)
	}, o.maxRetries, o.retryDelay)
	if err != nil {
		return "", fmt.Errorf("creating job record: %w", err)
	}

	o.logger.Info("batch job submitted", "jobId", job.Id, "files", len(files))

	// The job outlives the submitting request; it runs against the
	// background context and is cancelled only through the cancel flag.
	o.running.Add(1)
	go o.run(job.Id, files)

	return job.Id, nil
}

// Status returns a progress snapshot for the job.
// Returns storage.ErrNotFound for unknown job IDs.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*JobProgress, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return ProgressFor(job), nil
}

// Cancel requests cooperative cancellation of a job. Files already in
// flight run to completion; files not yet started are skipped. Safe to
// call repeatedly and after the job is terminal.
// Returns storage.ErrNotFound for unknown job IDs.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	return o.jobs.RequestCancel(ctx, jobID)
}

// Report returns the final report for a terminal job.
// Returns storage.ErrNotFound for unknown jobs and storage.ErrNotReady
// while the job is still PENDING or RUNNING.
func (o *Orchestrator) Report(ctx context.Context, jobID string) (*core.BatchJobReport, error) {
	return o.jobs.GetReport(ctx, jobID)
}

// Release waits for in-flight jobs to finish and frees the worker pool.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	if o.released.Swap(true) {
		return
	}
	o.running.Wait()
	o.pool.Release()
}

// fileDone carries one worker's outcome to the job's collector.
// A skipped file saw the cancel flag before starting and produced no result.
type fileDone struct {
	result  *core.FileProcessingResult
	skipped bool
}

// run drives one job to a terminal state. It is the job's single
// collector: all job-record writes after creation happen here or in
// repository calls made from here.
func (o *Orchestrator) run(jobID string, files []string) {
	defer o.running.Done()

	ctx := context.Background()
	log := o.logger.With("jobId", jobID)

	if err := o.updateJob(ctx, func() error {
		return o.jobs.SetStatus(ctx, jobID, core.JobStatusRunning)
	}); err != nil {
		log.Error("failed to start job", "err", err)
		o.finalize(ctx, jobID, core.JobStatusFailed,
			fmt.Sprintf("job could not be started: %v", err))
		return
	}

	done := make(chan fileDone, len(files))
	dispatched := 0
	for _, file := range files {
		f := file
		err := o.pool.Submit(func() {
			done <- o.processFile(jobID, f)
		})
		if err != nil {
			log.Error("failed to dispatch file", "file", f, "err", err)
			break
		}
		dispatched++
	}

	skipped := len(files) - dispatched // pool rejected the remainder
	for i := 0; i < dispatched; i++ {
		outcome := <-done
		if outcome.skipped {
			skipped++
			continue
		}
		if err := o.updateJob(ctx, func() error {
			return o.jobs.AppendResult(ctx, jobID, *outcome.result)
		}); err != nil {
			// The file's work is done but its result is lost; count it
			// against the job rather than silently dropping it.
			log.Error("failed to record file result", "file", outcome.result.File, "err", err)
		}
	}

	o.resolve(ctx, jobID, skipped)
}

// processFile runs one file through the ingestion pipeline under the
// per-file deadline. Workers observe the cancel flag here, between
// files: once it is set, files not yet started are skipped.
func (o *Orchestrator) processFile(jobID, file string) fileDone {
	ctx, cancel := context.WithTimeout(context.Background(), o.fileTimeout)
	defer cancel()

	job, err := o.jobs.GetJob(ctx, jobID)
	if err == nil && job.CancelRequested {
		return fileDone{skipped: true}
	}

	started := time.Now()

	text, err := o.readFile(file)
	if err != nil {
		return fileDone{result: &core.FileProcessingResult{
			File:     file,
			Outcome:  core.FileOutcomeFailure,
			Detail:   fmt.Sprintf("reading file: %v", err),
			Duration: time.Since(started),
		}}
	}

	docResult, err := o.pipeline.ProcessDocument(ctx, file, text)
	if err != nil {
		// Infrastructure failure is isolated to this file; the rest of
		// the batch keeps going.
		return fileDone{result: &core.FileProcessingResult{
			File:     file,
			Outcome:  core.FileOutcomeFailure,
			Detail:   fmt.Sprintf("processing failed: %v", err),
			Duration: time.Since(started),
		}}
	}

	result := &core.FileProcessingResult{
		File:     file,
		Outcome:  docResult.Outcome,
		Detail:   docResult.Detail,
		Duration: docResult.Duration,
	}
	if docResult.Merge != nil {
		result.EntityIds = docResult.Merge.EntityIds
		result.RelationshipIds = docResult.Merge.RelationshipIds
	}
	return fileDone{result: result}
}

// resolve computes the terminal status once every dispatched file has
// reported, then materializes the report.
func (o *Orchestrator) resolve(ctx context.Context, jobID string, skipped int) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		o.logger.Error("failed to load job for resolution", "jobId", jobID, "err", err)
		return
	}

	var status core.JobStatus
	switch {
	case job.CancelRequested && skipped > 0:
		status = core.JobStatusCancelled
	case job.FailedFiles == 0 && skipped == 0:
		status = core.JobStatusCompleted
	case job.SuccessfulFiles == 0:
		status = core.JobStatusFailed
	default:
		status = core.JobStatusPartialSuccess
	}

	o.finalize(ctx, jobID, status, "")
}

// finalize persists the report and flips the job to its terminal
// status. The report is computed exactly once, here; later report reads
// serve this stored copy.
func (o *Orchestrator) finalize(ctx context.Context, jobID string, status core.JobStatus, detail string) {
	log := o.logger.With("jobId", jobID)

	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		log.Error("failed to load job for finalization", "err", err)
		return
	}

	report := buildReport(job, status, detail)
	if err := o.updateJob(ctx, func() error {
		return o.jobs.SaveReport(ctx, jobID, report)
	}); err != nil {
		log.Error("failed to save job report", "err", err)
	}

	if err := o.updateJob(ctx, func() error {
		return o.jobs.SetStatus(ctx, jobID, status)
	}); err != nil {
		log.Error("failed to set terminal status", "err", err)
		return
	}

	log.Info("batch job finished", "status", status,
		"processed", job.ProcessedFiles,
		"succeeded", job.SuccessfulFiles,
		"failed", job.FailedFiles)
}

// updateJob applies a job-store write with the transient-error retry policy.
func (o *Orchestrator) updateJob(ctx context.Context, write func() error) error {
	return RetryWithBackoff(ctx, write, o.maxRetries, o.retryDelay)
}

// buildReport assembles the final report from the job's accumulated
// per-file results.
func buildReport(job *core.BatchJob, status core.JobStatus, detail string) *core.BatchJobReport {
	report := &core.BatchJobReport{
		Status:  status,
		Results: job.Results,
	}

	for _, result := range job.Results {
		if result.Outcome == core.FileOutcomeFailure {
			report.Errors = append(report.Errors, core.FileError{
				File:   result.File,
				Reason: result.Detail,
			})
		}
	}

	summary := fmt.Sprintf("processed %d/%d files: %d succeeded, %d failed",
		job.ProcessedFiles, job.TotalFiles, job.SuccessfulFiles, job.FailedFiles)
	if status == core.JobStatusCancelled {
		summary += fmt.Sprintf("; cancelled before %d files started",
			job.TotalFiles-job.ProcessedFiles)
	}
	if detail != "" {
		summary += "; " + detail
	}
	report.Summary = summary

	return report
}
