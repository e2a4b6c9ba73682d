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


package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lattice/ontology"
)

// OntologyHandler serves the ontology administration endpoints.
type OntologyHandler struct {
	registry *ontology.Registry
}

// NewOntologyHandler creates an ontology handler.
func NewOntologyHandler(registry *ontology.Registry) *OntologyHandler {
	return &OntologyHandler{registry: registry}
}

type entityTypeView struct {
	Properties  []string `json:"properties"`
	Description string   `json:"description,omitempty"`
}

type relationshipTypeView struct {
	From        []string `json:"from"`
	To          []string `json:"to"`
	Description string   `json:"description,omitempty"`
}

type structureView struct {
	EntityTypes       map[string]entityTypeView       `json:"entity_types"`
	RelationshipTypes map[string]relationshipTypeView `json:"relationship_types"`
}

// GET /ontology/structure
func (h *OntologyHandler) GetStructure(c *gin.Context) {
	structure := h.registry.Structure()

	view := structureView{
		EntityTypes:       make(map[string]entityTypeView, len(structure.EntityTypes)),
		RelationshipTypes: make(map[string]relationshipTypeView, len(structure.RelationshipTypes)),
	}
	for name, et := range structure.EntityTypes {
		view.EntityTypes[name] = entityTypeView{
			Properties:  et.Properties,
			Description: et.Description,
		}
	}
	for name, rt := range structure.RelationshipTypes {
		view.RelationshipTypes[name] = relationshipTypeView{
			From:        rt.FromTypes,
			To:          rt.ToTypes,
			Description: rt.Description,
		}
	}

	RespondOK(c, view)
}

type addEntityTypeRequest struct {
	EntityType  string   `json:"entity_type" binding:"required"`
	Properties  []string `json:"properties"`
	Description string   `json:"description"`
}

// POST /ontology/entity_type
func (h *OntologyHandler) AddEntityType(c *gin.Context) {
	var req addEntityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	err := h.registry.AddEntityType(c.Request.Context(), req.EntityType, req.Properties, req.Description)
	switch {
	case errors.Is(err, ontology.ErrInvalidName):
		RespondError(c, http.StatusBadRequest, "invalid_name", err)
	case errors.Is(err, ontology.ErrDuplicateType):
		RespondError(c, http.StatusConflict, "duplicate_type", err)
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	default:
		RespondOK(c, gin.H{"entity_type": req.EntityType})
	}
}

type addRelationshipTypeRequest struct {
	RelType     string   `json:"rel_type" binding:"required"`
	FromTypes   []string `json:"from_types"`
	ToTypes     []string `json:"to_types"`
	Description string   `json:"description"`
}

// POST /ontology/relationship_type
func (h *OntologyHandler) AddRelationshipType(c *gin.Context) {
	var req addRelationshipTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	err := h.registry.AddRelationshipType(c.Request.Context(), req.RelType, req.FromTypes, req.ToTypes, req.Description)
	switch {
	case errors.Is(err, ontology.ErrInvalidName):
		RespondError(c, http.StatusBadRequest, "invalid_name", err)
	case errors.Is(err, ontology.ErrUnknownEntityType):
		RespondError(c, http.StatusBadRequest, "unknown_entity_type", err)
	case errors.Is(err, ontology.ErrDuplicateType):
		RespondError(c, http.StatusConflict, "duplicate_type", err)
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	default:
		RespondOK(c, gin.H{"rel_type": req.RelType})
	}
}

type createSnapshotRequest struct {
	VersionName string `json:"versionName" binding:"required"`
	Description string `json:"description"`
}

// POST /ontology/snapshot
func (h *OntologyHandler) CreateSnapshot(c *gin.Context) {
	var req createSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	snapshot, err := h.registry.CreateSnapshot(c.Request.Context(), req.VersionName, req.Description)
	switch {
	case errors.Is(err, ontology.ErrInvalidName):
		RespondError(c, http.StatusBadRequest, "invalid_name", err)
	case errors.Is(err, ontology.ErrDuplicateSnapshot):
		RespondError(c, http.StatusConflict, "duplicate_snapshot", err)
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	default:
		RespondOK(c, gin.H{"name": snapshot.Name, "timestamp": snapshot.CreatedAt})
	}
}

type snapshotView struct {
	Name        string    `json:"name"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// GET /ontology/versions
func (h *OntologyHandler) ListVersions(c *gin.Context) {
	snapshots, err := h.registry.ListSnapshots(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	views := make([]snapshotView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, snapshotView{
			Name:        snapshot.Name,
			Timestamp:   snapshot.CreatedAt,
			Description: snapshot.Description,
		})
	}
	RespondOK(c, views)
}
