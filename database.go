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


package lattice

import (
	"context"
	"log/slog"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/ai/openai"
	"github.com/poiesic/lattice/batch"
	"github.com/poiesic/lattice/graph"
	"github.com/poiesic/lattice/ingestion"
	"github.com/poiesic/lattice/ontology"
	"github.com/poiesic/lattice/storage"
	"github.com/poiesic/lattice/storage/badger"
)

// Database is the top-level handle to a lattice store: the badger
// backend, the graph and job repositories, the ontology registry and
// the AI provider, wired together.
type Database struct {
	backend   *badger.Backend
	graphRepo storage.GraphRepository
	jobRepo   storage.JobRepository
	registry  *ontology.Registry
	provider  ai.Provider
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	seed     *ontology.Structure
	inMemory bool
}

// WithAIConfig sets the extraction adapter configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a pre-built AI provider, bypassing the default
// OpenAI-compatible one. Used by tests with the mock provider.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithOntologySeed sets the structure installed when the store holds no
// ontology yet. Default is ontology.DefaultStructure().
func WithOntologySeed(seed *ontology.Structure) DatabaseOption {
	return func(o *databaseOptions) {
		if seed != nil {
			o.seed = seed
		}
	}
}

// WithInMemory opens the backend without touching disk. Data does not
// survive Close.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens (or creates) a lattice store at filePath.
//
// Jobs left PENDING or RUNNING by a previous process are marked FAILED
// during startup: there is no resume guarantee for interrupted work.
func NewDatabase(ctx context.Context, filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		seed:     ontology.DefaultStructure(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create graph repository
	graphRepo, err := badger.NewGraphRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create job repository
	jobRepo, err := badger.NewJobRepository(backend)
	if err != nil {
		graphRepo.Close()
		backend.Close()
		return nil, err
	}

	logger := slog.Default()

	// Crash recovery: interrupted jobs become FAILED before anything
	// else reads the job store.
	failed, err := jobRepo.FailInterrupted(ctx)
	if err != nil {
		jobRepo.Close()
		graphRepo.Close()
		backend.Close()
		return nil, err
	}
	if failed > 0 {
		logger.Warn("marked interrupted jobs as failed", "count", failed)
	}

	// Load or seed the ontology
	registry, err := ontology.NewRegistry(ctx, badger.NewOntologyStore(backend),
		ontology.WithSeed(options.seed))
	if err != nil {
		jobRepo.Close()
		graphRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			jobRepo.Close()
			graphRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:   backend,
		graphRepo: graphRepo,
		jobRepo:   jobRepo,
		registry:  registry,
		provider:  provider,
		logger:    logger,
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.jobRepo.Close(); err != nil {
		db.logger.Error("error closing job repository", "err", err)
		return err
	}
	if err := db.graphRepo.Close(); err != nil {
		db.logger.Error("error closing graph repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) GraphRepository() storage.GraphRepository {
	return db.graphRepo
}

func (db *Database) JobRepository() storage.JobRepository {
	return db.jobRepo
}

func (db *Database) Ontology() *ontology.Registry {
	return db.registry
}

// NewIngestionPipeline builds the per-document pipeline over this
// database's extractor, merger and ontology.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	merger, err := graph.NewMerger(db.graphRepo)
	if err != nil {
		return nil, err
	}
	return ingestion.NewPipeline(db.provider.Extractor(), merger, db.registry, opts...)
}

// NewOrchestrator builds a batch orchestrator over this database's job
// store and a fresh ingestion pipeline.
func (db *Database) NewOrchestrator(opts ...batch.Option) (*batch.Orchestrator, error) {
	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return nil, err
	}
	return batch.NewOrchestrator(db.jobRepo, pipeline, opts...)
}
