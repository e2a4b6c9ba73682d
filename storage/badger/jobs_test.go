package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

func newJobRepo(t *testing.T) storage.JobRepository {
	t.Helper()

	_, jobRepo, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	t.Cleanup(func() {
		jobRepo.Close()
		backend.Close()
	})
	return jobRepo
}

func createJob(t *testing.T, repo storage.JobRepository, id string, files ...string) *core.BatchJob {
	t.Helper()

	job := &core.BatchJob{
		Id:     id,
		Files:  files,
		Status: core.JobStatusPending,
	}
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	return job
}

func TestCreateAndGetJob(t *testing.T) {
	repo := newJobRepo(t)
	ctx := context.Background()

	createJob(t, repo, "job-1", "a.txt", "b.txt")

	job, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if job.TotalFiles != 2 {
		t.Fatalf("Expected TotalFiles=2, got %d", job.TotalFiles)
	}
	if job.Status != core.JobStatusPending {
		t.Fatalf("Expected PENDING, got %s", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	err = repo.CreateJob(ctx, &core.BatchJob{Id: "job-1", Files: []string{"x"}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	_, err = repo.GetJob(ctx, "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAppendResultMaintainsCounters(t *testing.T) {
	repo := newJobRepo(t)
	ctx := context.Background()

	createJob(t, repo, "job-1", "a.txt", "b.txt", "c.txt")

	results := []core.FileProcessingResult{
		{File: "a.txt", Outcome: core.FileOutcomeSuccess, Duration: time.Second},
		{File: "b.txt", Outcome: core.FileOutcomeFailure, Detail: "boom", Duration: time.Second},
		{File: "c.txt", Outcome: core.FileOutcomeSuccess, Duration: time.Second},
	}

	for i, result := range results {
		if err := repo.AppendResult(ctx, "job-1", result); err != nil {
			t.Fatalf("Failed to append result: %v", err)
		}

		job, err := repo.GetJob(ctx, "job-1")
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}
		if job.ProcessedFiles != i+1 {
			t.Fatalf("Expected %d processed, got %d", i+1, job.ProcessedFiles)
		}
		if job.ProcessedFiles != job.SuccessfulFiles+job.FailedFiles {
			t.Fatalf("Counter invariant broken: %d != %d + %d",
				job.ProcessedFiles, job.SuccessfulFiles, job.FailedFiles)
		}
	}

	job, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if job.SuccessfulFiles != 2 || job.FailedFiles != 1 {
		t.Fatalf("Expected 2/1, got %d/%d", job.SuccessfulFiles, job.FailedFiles)
	}
	if len(job.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(job.Results))
	}
}

func TestSetStatusLifecycle(t *testing.T) {
	repo := newJobRepo(t)
	ctx := context.Background()

	createJob(t, repo, "job-1", "a.txt")

	if err := repo.SetStatus(ctx, "job-1", core.JobStatusRunning); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	job, _ := repo.GetJob(ctx, "job-1")
	if job.StartedAt.IsZero() {
		t.Fatal("Expected StartedAt on RUNNING transition")
	}
	if !job.EndedAt.IsZero() {
		t.Fatal("Did not expect EndedAt while running")
	}

	if err := repo.SetStatus(ctx, "job-1", core.JobStatusCompleted); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	job, _ = repo.GetJob(ctx, "job-1")
	if job.EndedAt.IsZero() {
		t.Fatal("Expected EndedAt on terminal transition")
	}

	// Terminal states are monotonic: later transitions are ignored.
	if err := repo.SetStatus(ctx, "job-1", core.JobStatusRunning); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	job, _ = repo.GetJob(ctx, "job-1")
	if job.Status != core.JobStatusCompleted {
		t.Fatalf("Expected terminal status to stick, got %s", job.Status)
	}
}

func TestRequestCancel(t *testing.T) {
	repo := newJobRepo(t)
	ctx := context.Background()

	createJob(t, repo, "job-1", "a.txt")

	if err := repo.RequestCancel(ctx, "job-1"); err != nil {
		t.Fatalf("Failed to request cancel: %v", err)
	}
	job, _ := repo.GetJob(ctx, "job-1")
	if !job.CancelRequested {
		t.Fatal("Expected cancel flag to be set")
	}

	// Repeating is a no-op, as is cancelling a terminal job.
	if err := repo.RequestCancel(ctx, "job-1"); err != nil {
		t.Fatalf("Failed to request cancel twice: %v", err)
	}
	if err := repo.SetStatus(ctx, "job-1", core.JobStatusCancelled); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	if err := repo.RequestCancel(ctx, "job-1"); err != nil {
		t.Fatalf("Expected cancel on terminal job to be a no-op, got %v", err)
	}

	if err := repo.RequestCancel(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestReportLifecycle(t *testing.T) {
	repo := newJobRepo(t)
	ctx := context.Background()

	createJob(t, repo, "job-1", "a.txt")

	_, err := repo.GetReport(ctx, "job-1")
	if !errors.Is(err, storage.ErrNotReady) {
		t.Fatalf("Expected ErrNotReady before terminal, got %v", err)
	}

	report := &core.BatchJobReport{
		Status:  core.JobStatusCompleted,
		Summary: "processed 1/1 files: 1 succeeded, 0 failed",
	}
	if err := repo.SaveReport(ctx, "job-1", report); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if err := repo.SetStatus(ctx, "job-1", core.JobStatusCompleted); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	loaded, err := repo.GetReport(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to get report: %v", err)
	}
	if loaded.Summary != report.Summary {
		t.Fatalf("Unexpected report: %+v", loaded)
	}

	if _, err := repo.GetReport(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestFailInterrupted(t *testing.T) {
	repo := newJobRepo(t)
	ctx := context.Background()

	createJob(t, repo, "pending-job", "a.txt")
	createJob(t, repo, "running-job", "a.txt")
	createJob(t, repo, "done-job", "a.txt")

	if err := repo.SetStatus(ctx, "running-job", core.JobStatusRunning); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	if err := repo.SetStatus(ctx, "done-job", core.JobStatusCompleted); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	count, err := repo.FailInterrupted(ctx)
	if err != nil {
		t.Fatalf("Failed to fail interrupted jobs: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 interrupted jobs, got %d", count)
	}

	for _, id := range []string{"pending-job", "running-job"} {
		job, err := repo.GetJob(ctx, id)
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}
		if job.Status != core.JobStatusFailed {
			t.Fatalf("Expected %s FAILED, got %s", id, job.Status)
		}
		if job.Report == nil {
			t.Fatalf("Expected %s to have a report", id)
		}
	}

	job, err := repo.GetJob(ctx, "done-job")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if job.Status != core.JobStatusCompleted {
		t.Fatalf("Expected terminal job untouched, got %s", job.Status)
	}
}
