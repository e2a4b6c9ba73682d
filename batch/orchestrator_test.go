package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/ai/mock"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/graph"
	"github.com/poiesic/lattice/ingestion"
	"github.com/poiesic/lattice/ontology"
	"github.com/poiesic/lattice/storage"
	badgerstore "github.com/poiesic/lattice/storage/badger"
)

type testHarness struct {
	orchestrator *Orchestrator
	jobs         storage.JobRepository
	extractor    *mock.MockExtractor
}

func newTestHarness(t *testing.T, files map[string]string, opts ...Option) *testHarness {
	t.Helper()

	graphRepo, jobRepo, ontStore, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	registry, err := ontology.NewRegistry(context.Background(), ontStore,
		ontology.WithSeed(ontology.DefaultStructure()))
	require.NoError(t, err)

	merger, err := graph.NewMerger(graphRepo)
	require.NoError(t, err)

	extractor := mock.NewMockExtractor()
	pipeline, err := ingestion.NewPipeline(extractor, merger, registry)
	require.NoError(t, err)

	readFile := func(path string) (string, error) {
		text, ok := files[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		return text, nil
	}

	allOpts := append([]Option{
		WithPoolSize(2),
		WithFileReader(readFile),
		WithRetryPolicy(2, time.Millisecond),
	}, opts...)

	orchestrator, err := NewOrchestrator(jobRepo, pipeline, allOpts...)
	require.NoError(t, err)
	t.Cleanup(orchestrator.Release)

	return &testHarness{orchestrator: orchestrator, jobs: jobRepo, extractor: extractor}
}

func (h *testHarness) waitTerminal(t *testing.T, jobID string) *JobProgress {
	t.Helper()

	var progress *JobProgress
	require.Eventually(t, func() bool {
		var err error
		progress, err = h.orchestrator.Status(context.Background(), jobID)
		return err == nil && progress.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond, "job never reached a terminal state")
	return progress
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	_, err := NewOrchestrator(nil, nil)
	assert.ErrorIs(t, err, ErrJobRepositoryRequired)
}

func TestSubmitRejectsEmptyFileList(t *testing.T) {
	h := newTestHarness(t, nil)

	_, err := h.orchestrator.Submit(context.Background(), nil, nil)
	assert.ErrorIs(t, err, core.ErrNoInputFiles)
}

func TestBatchAllFilesSucceed(t *testing.T) {
	h := newTestHarness(t, map[string]string{
		"a.txt": "Impeller|Component\n",
		"b.txt": "316L Stainless|Material\n",
	})

	jobID, err := h.orchestrator.Submit(context.Background(), []string{"a.txt", "b.txt"}, nil)
	require.NoError(t, err)

	progress := h.waitTerminal(t, jobID)
	assert.Equal(t, core.JobStatusCompleted, progress.Status)
	assert.Equal(t, 2, progress.TotalFiles)
	assert.Equal(t, 2, progress.ProcessedFiles)
	assert.Equal(t, 2, progress.SuccessfulFiles)
	assert.Equal(t, 0, progress.FailedFiles)

	report, err := h.orchestrator.Report(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, report.Status)
	assert.Len(t, report.Results, 2)
	assert.Empty(t, report.Errors)
	assert.Contains(t, report.Summary, "2 succeeded")
}

func TestBatchCounterInvariant(t *testing.T) {
	files := make(map[string]string)
	names := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("doc-%d.txt", i)
		files[name] = fmt.Sprintf("Part %d|Component\n", i)
		names = append(names, name)
	}
	h := newTestHarness(t, files)

	jobID, err := h.orchestrator.Submit(context.Background(), names, nil)
	require.NoError(t, err)

	// processed == successful + failed must hold at every observation.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		progress, err := h.orchestrator.Status(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, progress.ProcessedFiles, progress.SuccessfulFiles+progress.FailedFiles)
		assert.LessOrEqual(t, progress.ProcessedFiles, progress.TotalFiles)
		if progress.Status.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	progress := h.waitTerminal(t, jobID)
	assert.Equal(t, progress.TotalFiles, progress.ProcessedFiles)
}

func TestBatchPartialSuccessWithTimeout(t *testing.T) {
	h := newTestHarness(t, map[string]string{
		"fast-1.txt": "Impeller|Component\n",
		"slow.txt":   "hangs",
		"fast-2.txt": "Volute|Component\n",
	}, WithFileTimeout(100*time.Millisecond))

	h.extractor.ExtractFunc = func(ctx context.Context, text string, structure *ontology.Structure) (*ai.Extraction, error) {
		if text == "hangs" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		out := &ai.Extraction{}
		out.Entities = append(out.Entities, ai.CandidateEntity{
			Name: text, Type: "Component", Confidence: 0.9,
		})
		return out, nil
	}

	jobID, err := h.orchestrator.Submit(context.Background(),
		[]string{"fast-1.txt", "slow.txt", "fast-2.txt"}, nil)
	require.NoError(t, err)

	progress := h.waitTerminal(t, jobID)
	assert.Equal(t, core.JobStatusPartialSuccess, progress.Status)
	assert.Equal(t, 3, progress.ProcessedFiles)
	assert.Equal(t, 2, progress.SuccessfulFiles)
	assert.Equal(t, 1, progress.FailedFiles)

	report, err := h.orchestrator.Report(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "slow.txt", report.Errors[0].File)
	assert.Contains(t, report.Errors[0].Reason, "extraction failed")
}

func TestBatchAllFilesFail(t *testing.T) {
	h := newTestHarness(t, map[string]string{})

	jobID, err := h.orchestrator.Submit(context.Background(),
		[]string{"missing-1.txt", "missing-2.txt"}, nil)
	require.NoError(t, err)

	progress := h.waitTerminal(t, jobID)
	assert.Equal(t, core.JobStatusFailed, progress.Status)
	assert.Equal(t, 2, progress.FailedFiles)

	report, err := h.orchestrator.Report(context.Background(), jobID)
	require.NoError(t, err)
	assert.Len(t, report.Errors, 2)
}

func TestBatchCancellationYieldsExactlyProcessedResults(t *testing.T) {
	const totalFiles = 5

	files := make(map[string]string)
	names := make([]string, 0, totalFiles)
	for i := 0; i < totalFiles; i++ {
		name := fmt.Sprintf("doc-%d.txt", i)
		files[name] = fmt.Sprintf("Part %d|Component\n", i)
		names = append(names, name)
	}

	h := newTestHarness(t, files, WithPoolSize(1))

	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.extractor.ExtractFunc = func(ctx context.Context, text string, structure *ontology.Structure) (*ai.Extraction, error) {
		once.Do(func() {
			close(firstStarted)
			<-release
		})
		return &ai.Extraction{Entities: []ai.CandidateEntity{
			{Name: text, Type: "Component", Confidence: 0.9},
		}}, nil
	}

	jobID, err := h.orchestrator.Submit(context.Background(), names, nil)
	require.NoError(t, err)

	<-firstStarted
	require.NoError(t, h.orchestrator.Cancel(context.Background(), jobID))
	close(release)

	progress := h.waitTerminal(t, jobID)
	assert.Equal(t, core.JobStatusCancelled, progress.Status)
	assert.Less(t, progress.ProcessedFiles, totalFiles)

	// Exactly one result per file that actually ran; skipped files
	// contribute nothing.
	report, err := h.orchestrator.Report(context.Background(), jobID)
	require.NoError(t, err)
	assert.Len(t, report.Results, progress.ProcessedFiles)
	assert.Contains(t, report.Summary, "cancelled before")
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newTestHarness(t, map[string]string{"a.txt": "Impeller|Component\n"})

	jobID, err := h.orchestrator.Submit(context.Background(), []string{"a.txt"}, nil)
	require.NoError(t, err)
	h.waitTerminal(t, jobID)

	// Cancelling a terminal job is a no-op, not an error.
	require.NoError(t, h.orchestrator.Cancel(context.Background(), jobID))
	require.NoError(t, h.orchestrator.Cancel(context.Background(), jobID))

	progress, err := h.orchestrator.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, progress.Status)
}

func TestStatusUnknownJob(t *testing.T) {
	h := newTestHarness(t, nil)

	_, err := h.orchestrator.Status(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportNotReadyWhileRunning(t *testing.T) {
	h := newTestHarness(t, map[string]string{"a.txt": "slow"}, WithPoolSize(1))

	started := make(chan struct{})
	release := make(chan struct{})
	h.extractor.ExtractFunc = func(ctx context.Context, text string, structure *ontology.Structure) (*ai.Extraction, error) {
		close(started)
		<-release
		return &ai.Extraction{}, nil
	}

	jobID, err := h.orchestrator.Submit(context.Background(), []string{"a.txt"}, nil)
	require.NoError(t, err)

	<-started
	_, err = h.orchestrator.Report(context.Background(), jobID)
	assert.ErrorIs(t, err, storage.ErrNotReady)

	close(release)
	h.waitTerminal(t, jobID)

	report, err := h.orchestrator.Report(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, report.Status)
}

func TestSubmitAfterReleaseFails(t *testing.T) {
	h := newTestHarness(t, nil)
	h.orchestrator.Release()

	_, err := h.orchestrator.Submit(context.Background(), []string{"a.txt"}, nil)
	assert.ErrorIs(t, err, ErrOrchestratorReleased)
}
