package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/graph"
	"github.com/poiesic/lattice/ontology"
)

// stage labels the internal progression of a single document. Stages are
// sequential and not externally observable; they show up in logs only.
type stage string

const (
	stageReceived   stage = "RECEIVED"
	stageExtracting stage = "EXTRACTING"
	stageMerging    stage = "MERGING"
	stageDone       stage = "DONE"
	stageFailed     stage = "FAILED"
)

// DocumentResult is the outcome of ingesting one document.
type DocumentResult struct {
	Document string             `json:"document"`
	Outcome  core.FileOutcome   `json:"outcome"`
	Detail   string             `json:"detail,omitempty"`
	Merge    *graph.MergeResult `json:"merge,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// Pipeline orchestrates the ingestion of a single document:
// extract candidates, then validate and merge them into the graph.
type Pipeline struct {
	extractor ai.EntityExtractor
	merger    *graph.Merger
	registry  *ontology.Registry
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	extractor ai.EntityExtractor,
	merger *graph.Merger,
	registry *ontology.Registry,
	opts ...Option,
) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if merger == nil {
		return nil, ErrMergerRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	p := &Pipeline{
		extractor: extractor,
		merger:    merger,
		registry:  registry,
		logger:    slog.Default().With("component", "ingestion-pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessDocument ingests a single document.
//
// Extraction failures (adapter error, timeout, empty input) yield a
// FAILURE result with a nil error: they are per-document outcomes, not
// system problems. A non-nil error means infrastructure failed (graph
// store unreachable); the caller decides how to record it.
// Merge rejections are not failures: a partially-accepted document is
// SUCCESS with the rejections listed in its detail.
func (p *Pipeline) ProcessDocument(ctx context.Context, name, text string) (*DocumentResult, error) {
	started := time.Now()
	log := p.logger.With("document", name)
	log.Debug("document received", "stage", stageReceived, "bytes", len(text))

	if strings.TrimSpace(text) == "" {
		log.Warn("document is empty", "stage", stageFailed)
		return &DocumentResult{
			Document: name,
			Outcome:  core.FileOutcomeFailure,
			Detail:   "document is empty or unparseable",
			Duration: time.Since(started),
		}, nil
	}

	log.Debug("extracting candidates", "stage", stageExtracting)
	extraction, err := p.extractor.Extract(ctx, text, p.registry.Structure())
	if err != nil {
		log.Warn("extraction failed", "stage", stageFailed, "err", err)
		return &DocumentResult{
			Document: name,
			Outcome:  core.FileOutcomeFailure,
			Detail:   fmt.Sprintf("extraction failed: %v", err),
			Duration: time.Since(started),
		}, nil
	}

	// The merge re-validates against the live ontology as of this
	// moment, not the view extraction saw.
	log.Debug("merging candidates", "stage", stageMerging,
		"entities", len(extraction.Entities),
		"relationships", len(extraction.Relationships))
	merge, err := p.merger.Merge(ctx, p.registry.Structure(), extraction)
	if err != nil {
		log.Error("merge failed", "stage", stageFailed, "err", err)
		return nil, fmt.Errorf("merging document %q: %w", name, err)
	}

	result := &DocumentResult{
		Document: name,
		Outcome:  core.FileOutcomeSuccess,
		Detail:   summarize(merge),
		Merge:    merge,
		Duration: time.Since(started),
	}

	log.Info("document ingested", "stage", stageDone,
		"entities", merge.UniqueEntities(),
		"relationships", len(merge.RelationshipIds),
		"rejections", len(merge.Rejections),
		"duration", result.Duration)
	return result, nil
}

// summarize renders a human-readable one-liner for the result detail,
// e.g. "5 entities (3 Component, 2 Material), 2 relationships; 1 candidate rejected".
func summarize(merge *graph.MergeResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d entities", merge.UniqueEntities())
	if len(merge.EntitiesByType) > 0 {
		types := make([]string, 0, len(merge.EntitiesByType))
		for name := range merge.EntitiesByType {
			types = append(types, name)
		}
		sort.Strings(types)

		parts := make([]string, 0, len(types))
		for _, name := range types {
			parts = append(parts, fmt.Sprintf("%d %s", merge.EntitiesByType[name], name))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, ", %d relationships", len(merge.RelationshipIds))

	if n := len(merge.Rejections); n > 0 {
		if n == 1 {
			fmt.Fprintf(&b, "; 1 candidate rejected")
		} else {
			fmt.Fprintf(&b, "; %d candidates rejected", n)
		}
		reasons := make([]string, 0, n)
		for _, rejection := range merge.Rejections {
			reasons = append(reasons, fmt.Sprintf("%s %q: %s", rejection.Kind, rejection.Name, rejection.Reason))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(reasons, "; "))
	}

	return b.String()
}
