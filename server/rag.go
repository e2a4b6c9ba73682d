package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/ingestion"
)

// RAGHandler serves the single-document convenience wrapper around the
// ingestion pipeline.
type RAGHandler struct {
	pipeline *ingestion.Pipeline
}

// NewRAGHandler creates a RAG handler.
func NewRAGHandler(pipeline *ingestion.Pipeline) *RAGHandler {
	return &RAGHandler{pipeline: pipeline}
}

type buildGraphRequest struct {
	TextContent  string `json:"text_content" binding:"required"`
	DocumentName string `json:"document_name" binding:"required"`
}

type buildGraphResponse struct {
	DocumentName             string         `json:"document_name"`
	Status                   string         `json:"status"`
	UniqueEntitiesProcessed  int            `json:"unique_entities_processed"`
	EntitiesFoundByCategory  map[string]int `json:"entities_found_by_category"`
	RelationshipsExtracted   int            `json:"relationships_extracted"`
	RelationshipsCreatedInDB int            `json:"relationships_created_in_db"`
	Detail                   string         `json:"detail,omitempty"`
}

// POST /rag/build_graph
func (h *RAGHandler) BuildGraph(c *gin.Context) {
	var req buildGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.pipeline.ProcessDocument(c.Request.Context(), req.DocumentName, req.TextContent)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	resp := buildGraphResponse{
		DocumentName:            result.Document,
		Status:                  string(result.Outcome),
		EntitiesFoundByCategory: map[string]int{},
		Detail:                  result.Detail,
	}
	if result.Outcome == core.FileOutcomeFailure {
		// Extraction-level failure: nothing was merged.
		RespondOK(c, resp)
		return
	}

	if merge := result.Merge; merge != nil {
		resp.UniqueEntitiesProcessed = merge.UniqueEntities()
		resp.EntitiesFoundByCategory = merge.EntitiesByType
		resp.RelationshipsExtracted = merge.RelationshipsCreated + merge.RelationshipsUpdated
		resp.RelationshipsCreatedInDB = merge.RelationshipsCreated
	}
	RespondOK(c, resp)
}
