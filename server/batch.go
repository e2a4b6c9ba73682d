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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lattice/batch"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

// BatchHandler serves batch job submission, status, cancellation and
// report retrieval.
type BatchHandler struct {
	orchestrator *batch.Orchestrator
}

// NewBatchHandler creates a batch handler.
func NewBatchHandler(orchestrator *batch.Orchestrator) *BatchHandler {
	return &BatchHandler{orchestrator: orchestrator}
}

// POST /batch/process
//
// Multipart form: repeated `file_paths` fields naming input files, plus
// an optional `job_config_str` field holding a JSON object of string
// options.
func (h *BatchHandler) Process(c *gin.Context) {
	files := c.PostFormArray("file_paths")
	if len(files) == 0 {
		RespondError(c, http.StatusBadRequest, "no_input_files", core.ErrNoInputFiles)
		return
	}

	var config map[string]string
	if raw := c.PostForm("job_config_str"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &config); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_job_config", err)
			return
		}
	}

	jobID, err := h.orchestrator.Submit(c.Request.Context(), files, config)
	if err != nil {
		if errors.Is(err, core.ErrNoInputFiles) {
			RespondError(c, http.StatusBadRequest, "no_input_files", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	RespondOK(c, gin.H{"job_id": jobID})
}

// GET /batch/status/:job_id
func (h *BatchHandler) Status(c *gin.Context) {
	progress, err := h.orchestrator.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	RespondOK(c, progress)
}

// DELETE /batch/cancel/:job_id
//
// Always answers 202 for known jobs: cancellation is a request, not a
// guarantee, and repeating it (or cancelling a finished job) is a no-op.
func (h *BatchHandler) Cancel(c *gin.Context) {
	jobID := c.Param("job_id")
	err := h.orchestrator.Cancel(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "cancellation_requested": true})
}

// GET /batch/report/:job_id
func (h *BatchHandler) Report(c *gin.Context) {
	report, err := h.orchestrator.Report(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			RespondError(c, http.StatusNotFound, "job_not_found", err)
		case errors.Is(err, storage.ErrNotReady):
			RespondError(c, http.StatusConflict, "report_not_ready", err)
		default:
			RespondError(c, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}

	RespondOK(c, report)
}
