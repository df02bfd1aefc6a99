package handlers

import (
	"fmt"
	"net/http"

	"github.com/cleanhn/hn-mirror-backend/middleware"
	"github.com/cleanhn/hn-mirror-backend/utils"
	"github.com/sirupsen/logrus"
)

/*
HandleGetJobStatus retrieves the status of an async reload job.

Query Parameters:
  - job_id: The ID of the job to check.

Example:

	GET /job-status?job_id=reload_1234567890_abc123

Response:
  - 200 OK: Job status information.
  - 400 Bad Request: Missing job_id parameter.
  - 404 Not Found: Job not found.
*/
func (h *Handler) HandleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	// Get job ID from query params
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		middleware.RespondBadRequest(w, fmt.Errorf("job_id parameter is missing"), requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     jobID,
		"action":     "get_job_status",
	}).Info("Processing job status request")

	jobStatus, exists := h.ReloadProcessor.GetJobStatus(jobID)
	if !exists {
		middleware.RespondNotFound(w, fmt.Errorf("job not found"), requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     jobID,
		"status":     jobStatus.Status,
	}).Info("Job status retrieved successfully")

	writeJSON(w, http.StatusOK, jobStatus)
}
