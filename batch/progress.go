package batch

import (
	"time"

	"github.com/poiesic/lattice/core"
)

// JobProgress is a point-in-time view of a batch job for status queries.
type JobProgress struct {
	JobId                     string         `json:"job_id"`
	Status                    core.JobStatus `json:"status"`
	CancelRequested           bool           `json:"cancel_requested"`
	TotalFiles                int            `json:"total_files"`
	ProcessedFiles            int            `json:"processed_files_count"`
	SuccessfulFiles           int            `json:"successful_files_count"`
	FailedFiles               int            `json:"failed_files_count"`
	EstimatedRemainingSeconds float64        `json:"estimated_remaining_time_seconds"`
}

// ProgressFor derives a progress snapshot from a job record.
// The remaining-time estimate is the mean per-file duration observed so
// far multiplied by the files not yet processed; it is zero before the
// first file completes and zero once the job is terminal.
func ProgressFor(job *core.BatchJob) *JobProgress {
	progress := &JobProgress{
		JobId:           job.Id,
		Status:          job.Status,
		CancelRequested: job.CancelRequested,
		TotalFiles:      job.TotalFiles,
		ProcessedFiles:  job.ProcessedFiles,
		SuccessfulFiles: job.SuccessfulFiles,
		FailedFiles:     job.FailedFiles,
	}

	if job.Status.Terminal() || len(job.Results) == 0 {
		return progress
	}

	var total time.Duration
	for _, result := range job.Results {
		total += result.Duration
	}
	mean := total / time.Duration(len(job.Results))
	remaining := job.TotalFiles - job.ProcessedFiles
	if remaining > 0 {
		progress.EstimatedRemainingSeconds = (mean * time.Duration(remaining)).Seconds()
	}

	return progress
}
