package lattice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lattice/ai/mock"
	"github.com/poiesic/lattice/core"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(context.Background(), tmpDir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.GraphRepository())
		assert.NotNil(t, db.JobRepository())
		assert.NotNil(t, db.Ontology())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)

		// Default ontology seed is installed on first open.
		structure := db.Ontology().Structure()
		assert.Contains(t, structure.EntityTypes, "Component")
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(context.Background(), tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(context.Background(), t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, db)

	// Close the database
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase(context.Background(), t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
	})

	t.Run("can create orchestrator", func(t *testing.T) {
		orchestrator, err := db.NewOrchestrator()
		require.NoError(t, err)
		require.NotNil(t, orchestrator)
		orchestrator.Release()
	})
}

func TestDatabase_OntologySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := NewDatabase(ctx, dir, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NoError(t, db.Ontology().AddEntityType(ctx, "Supplier", []string{"country"}, ""))
	require.NoError(t, db.Close())

	db, err = NewDatabase(ctx, dir, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer db.Close()

	structure := db.Ontology().Structure()
	assert.Contains(t, structure.EntityTypes, "Supplier")
}

func TestDatabase_InterruptedJobsFailOnReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := NewDatabase(ctx, dir, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)

	// Simulate a crash mid-job: leave a RUNNING record behind.
	job := &core.BatchJob{
		Id:     "interrupted-job",
		Files:  []string{"a.txt"},
		Status: core.JobStatusPending,
	}
	require.NoError(t, db.JobRepository().CreateJob(ctx, job))
	require.NoError(t, db.JobRepository().SetStatus(ctx, job.Id, core.JobStatusRunning))
	require.NoError(t, db.Close())

	db, err = NewDatabase(ctx, dir, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer db.Close()

	reloaded, err := db.JobRepository().GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, reloaded.Status)

	report, err := db.JobRepository().GetReport(ctx, job.Id)
	require.NoError(t, err)
	assert.Contains(t, report.Summary, "interrupted")
}
