package jobs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/services/report"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/handlers"
	"gitlab.com/scenecast.net/internal/handlers/response"
	"gitlab.com/scenecast.net/internal/static/errs"
)

// ReportHandler receives and serves worker completion reports
type ReportHandler struct {
	reportService report.IReportService
	logger        primary.Logger
}

func NewReportHandler(reportService report.IReportService, logger primary.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the API routes for ReportHandler. auth guards the
// endpoint workers post to.
func (h *ReportHandler) RegisterRoutes(router *mux.Router, auth mux.MiddlewareFunc) {
	router.Handle("/jobs/{job_id}/report", auth(http.HandlerFunc(h.PostReport))).Methods("POST")
	router.HandleFunc("/jobs/{job_id}/report", h.GetReport).Methods("GET")
}

// PostReport stores the result line a worker sent back
func (h *ReportHandler) PostReport(w http.ResponseWriter, r *http.Request) {
	jobID, ok := handlers.CallbackJobID(r.Context())
	if !ok {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
		return
	}

	var result domain.WorkerResult
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&result); err != nil {
		h.logger.Error("Failed to decode report", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	rep, err := h.reportService.Accept(r.Context(), jobID, result)
	switch {
	case errors.Is(err, errs.JobNotFound):
		response.WriteError(w, response.ErrorMessage{Message: "Invalid job ID", StatusCode: http.StatusNotFound})
		return
	case errors.Is(err, errs.InvalidReport):
		response.WriteError(w, response.ErrorMessage{Message: err.Error(), StatusCode: http.StatusBadRequest})
		return
	case err != nil:
		h.logger.Error("Failed to store report", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to store report", StatusCode: http.StatusInternalServerError})
		return
	}

	response.WriteJSON(w, http.StatusAccepted, rep)
}

// GetReport returns the report of a job
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	rep, err := h.reportService.Get(r.Context(), jobID)
	if errors.Is(err, errs.ReportNotFound) {
		response.WriteError(w, response.ErrorMessage{Message: "No report for job", StatusCode: http.StatusNotFound})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get report", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to get report", StatusCode: http.StatusInternalServerError})
		return
	}

	response.WriteSuccess(w, rep)
}
