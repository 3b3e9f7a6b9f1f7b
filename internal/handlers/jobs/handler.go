package jobs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/services/dispatch"
	"gitlab.com/scenecast.net/internal/handlers/response"
	"gitlab.com/scenecast.net/internal/static/errs"
)

const maxRequestBytes = 1 << 20

// JobHandler handles job API requests
type JobHandler struct {
	dispatchService dispatch.IDispatchService
	logger          primary.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(dispatchService dispatch.IDispatchService, logger primary.Logger) *JobHandler {
	return &JobHandler{
		dispatchService: dispatchService,
		logger:          logger,
	}
}

// RegisterRoutes registers the API routes for JobHandler
func (h *JobHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/generate", h.Generate).Methods("POST")
	router.HandleFunc("/status/{job_id}", h.GetStatus).Methods("GET")
	router.HandleFunc("/status/{job_id}/watch", h.Watch).Methods("GET")
}

// Generate handles job creation requests
func (h *JobHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	jobID, err := h.dispatchService.Submit(r.Context(), req.Prompt)
	if errors.Is(err, errs.EmptyPrompt) {
		response.WriteError(w, response.ErrorMessage{Message: "Prompt is required", StatusCode: http.StatusBadRequest})
		return
	}
	if err != nil {
		h.logger.Error("Failed to create job", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to create job", StatusCode: http.StatusInternalServerError})
		return
	}

	response.WriteJSON(w, http.StatusAccepted, GenerateResponse{
		JobID:  jobID,
		Status: "started",
	})
}

// GetStatus handles job status requests
func (h *JobHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	rec, err := h.dispatchService.GetStatus(r.Context(), jobID)
	if errors.Is(err, errs.JobNotFound) {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid job ID", StatusCode: http.StatusNotFound})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get job", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to get job", StatusCode: http.StatusInternalServerError})
		return
	}

	response.WriteSuccess(w, rec)
}
