package batch

import "errors"

var (
	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrPipelineRequired is returned when an ingestion pipeline is not provided.
	ErrPipelineRequired = errors.New("ingestion pipeline required")

	// ErrOrchestratorReleased is returned when submitting to a released orchestrator.
	ErrOrchestratorReleased = errors.New("orchestrator has been released")

	// ErrInvalidMaxAttempts is returned when retry is configured with
	// a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")
)
