package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/lattice/core"
)

func TestProgressForEstimatesRemaining(t *testing.T) {
	job := &core.BatchJob{
		Id:              "job-1",
		Status:          core.JobStatusRunning,
		TotalFiles:      4,
		ProcessedFiles:  2,
		SuccessfulFiles: 2,
		Results: []core.FileProcessingResult{
			{File: "a.txt", Outcome: core.FileOutcomeSuccess, Duration: 2 * time.Second},
			{File: "b.txt", Outcome: core.FileOutcomeSuccess, Duration: 4 * time.Second},
		},
	}

	progress := ProgressFor(job)

	assert.Equal(t, "job-1", progress.JobId)
	assert.Equal(t, 2, progress.ProcessedFiles)
	// Mean 3s per file, 2 files remaining.
	assert.InDelta(t, 6.0, progress.EstimatedRemainingSeconds, 0.001)
}

func TestProgressForBeforeFirstResult(t *testing.T) {
	job := &core.BatchJob{
		Id:         "job-1",
		Status:     core.JobStatusRunning,
		TotalFiles: 3,
	}

	progress := ProgressFor(job)
	assert.Zero(t, progress.EstimatedRemainingSeconds,
		"no estimate before the first file completes")
}

func TestProgressForTerminalJob(t *testing.T) {
	job := &core.BatchJob{
		Id:             "job-1",
		Status:         core.JobStatusCompleted,
		TotalFiles:     1,
		ProcessedFiles: 1,
		Results: []core.FileProcessingResult{
			{File: "a.txt", Outcome: core.FileOutcomeSuccess, Duration: time.Second},
		},
	}

	progress := ProgressFor(job)
	assert.Zero(t, progress.EstimatedRemainingSeconds)
}
