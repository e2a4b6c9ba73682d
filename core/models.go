package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for graph entities and relationships.
// IDs are generated with content-based hashing so that the same logical
// record always maps to the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// NormalizeName canonicalizes an entity name for natural-key comparison.
// Names are trimmed and lowercased; "  Main Girder " and "main girder"
// refer to the same entity.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NaturalKey returns the dedup key for an entity as "(type,normalized name)".
// Content-based IDs are derived from this key.
func NaturalKey(entityType, name string) string {
	return "(" + entityType + "," + NormalizeName(name) + ")"
}

// Entity represents a typed graph node.
// The (Type, NormalizeName(Name)) pair is the natural key: an entity is
// created on first encounter and property-merged on every subsequent one.
type Entity struct {
	Id              ID             `json:"id"`
	Type            string         `json:"type"`
	Name            string         `json:"name"`
	Properties      map[string]any `json:"properties,omitempty"`       // Keys constrained to the ontology type's allowed set
	AdditionalProps map[string]any `json:"additional_props,omitempty"` // Open bag for properties outside the allowed set
	InsertedAt      time.Time      `json:"inserted_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Key returns the entity's natural key.
func (e *Entity) Key() string {
	return NaturalKey(e.Type, e.Name)
}

// Relationship represents a directed, typed graph edge.
// Two relationships are the same edge when (Type, SourceId, TargetId) match;
// re-ingestion merges properties instead of duplicating the edge.
type Relationship struct {
	Id         ID             `json:"id"`
	Type       string         `json:"type"`
	SourceId   ID             `json:"source_id"`
	TargetId   ID             `json:"target_id"`
	Properties map[string]any `json:"properties,omitempty"`
	InsertedAt time.Time      `json:"inserted_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Key returns the edge identity tuple as "(type,sourceId,targetId)".
func (r *Relationship) Key() string {
	return RelationshipKey(r.Type, r.SourceId, r.TargetId)
}

// RelationshipKey builds the edge identity tuple without a Relationship value.
func RelationshipKey(relType string, sourceId, targetId ID) string {
	return fmt.Sprintf("(%s,%d,%d)", relType, sourceId, targetId)
}

// JobStatus is the lifecycle state of a batch job.
// PENDING and RUNNING are the only non-terminal states.
type JobStatus string

const (
	JobStatusPending        JobStatus = "PENDING"
	JobStatusRunning        JobStatus = "RUNNING"
	JobStatusCompleted      JobStatus = "COMPLETED"
	JobStatusFailed         JobStatus = "FAILED"
	JobStatusPartialSuccess JobStatus = "PARTIAL_SUCCESS"
	JobStatusCancelled      JobStatus = "CANCELLED"
)

// Terminal reports whether the status is final.
// Once terminal, a job's status never changes again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusPartialSuccess, JobStatusCancelled:
		return true
	}
	return false
}

// FileOutcome is the per-file processing result kind.
type FileOutcome string

const (
	FileOutcomeSuccess FileOutcome = "SUCCESS"
	FileOutcomeFailure FileOutcome = "FAILURE"
)

// FileProcessingResult records the outcome of processing one file.
// Created once when the file finishes; immutable thereafter.
type FileProcessingResult struct {
	File            string        `json:"file"`
	Outcome         FileOutcome   `json:"outcome"`
	Detail          string        `json:"detail,omitempty"`
	EntityIds       []ID          `json:"entity_ids,omitempty"`
	RelationshipIds []ID          `json:"relationship_ids,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// BatchJob tracks the ingestion of multiple documents as one unit of work.
// Mutated only by the orchestrator and its workers; retained after
// completion for report retrieval.
type BatchJob struct {
	Id              string                 `json:"id"`
	Files           []string               `json:"files"`
	Config          map[string]string      `json:"config,omitempty"`
	Status          JobStatus              `json:"status"`
	CancelRequested bool                   `json:"cancel_requested"`
	TotalFiles      int                    `json:"total_files"`
	ProcessedFiles  int                    `json:"processed_files"`
	SuccessfulFiles int                    `json:"successful_files"`
	FailedFiles     int                    `json:"failed_files"`
	Results         []FileProcessingResult `json:"results,omitempty"`
	Report          *BatchJobReport        `json:"report,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	StartedAt       time.Time              `json:"started_at"`
	EndedAt         time.Time              `json:"ended_at"`
}

// FileError pairs a failed file with its failure reason for report summaries.
type FileError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// BatchJobReport is the final report materialized when a job reaches a
// terminal state. Computed once and cached on the job record.
type BatchJobReport struct {
	Status  JobStatus              `json:"status"`
	Summary string                 `json:"summary"`
	Results []FileProcessingResult `json:"results"`
	Errors  []FileError            `json:"errors,omitempty"`
}
