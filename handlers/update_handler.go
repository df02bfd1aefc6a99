package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cleanhn/hn-mirror-backend/middleware"
	"github.com/cleanhn/hn-mirror-backend/utils"
	"github.com/sirupsen/logrus"
)

// UpdateResponse is the payload returned when a reload job is accepted
type UpdateResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
	CreatedAt string `json:"created_at"`
}

// @Summary Trigger a full mirror reload
// @Description Wipes the mirror, finds the retention cutoff, and rebuilds the backlog asynchronously. Returns a job ID for polling.
// @Tags Mirror Operations
// @Produce json
// @Success 202 {object} UpdateResponse "Reload job accepted"
// @Failure 409 {object} middleware.APIError "A reload is already in progress"
// @Failure 503 {object} middleware.APIError "Reload queue is full"
// @Router /update [post]
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"action":     "trigger_reload",
	}).Info("Processing mirror reload request")

	if h.ReloadProcessor.HasActiveJob() {
		middleware.RespondConflict(w, fmt.Errorf("a mirror reload is already in progress"), requestID)
		return
	}

	jobID, err := h.ReloadProcessor.SubmitJob(requestID)
	if err != nil {
		middleware.RespondServiceUnavailable(w, err, requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     jobID,
	}).Info("Mirror reload job accepted")

	writeJSON(w, http.StatusAccepted, UpdateResponse{
		JobID:     jobID,
		Status:    "pending",
		StatusURL: "/job-status?job_id=" + jobID,
		CreatedAt: time.Now().Format(time.RFC3339),
	})
}
