package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cleanhn/hn-mirror-backend/middleware"
	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/cleanhn/hn-mirror-backend/utils"
	"github.com/sirupsen/logrus"
)

// StoriesResponse is the payload returned by the stories endpoint
type StoriesResponse struct {
	Count   int            `json:"count"`
	Days    int            `json:"days"`
	Stories []*store.Story `json:"stories"`
}

// @Summary Get mirrored stories
// @Description Retrieves stored front-page-worthy stories from the mirror, newest first.
// @Tags Mirror Operations
// @Produce json
// @Param days query int false "Look-back window in days (default: full retention window)"
// @Success 200 {object} StoriesResponse "Stories retrieved successfully"
// @Failure 400 {object} middleware.APIError "Bad request"
// @Failure 500 {object} middleware.APIError "Internal server error"
// @Router /stories [get]
func (h *Handler) HandleGetStories(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	retentionDays := int(h.RetentionWindow.Hours() / 24)
	days := retentionDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.RespondBadRequest(w, fmt.Errorf("days must be a positive integer"), requestID)
			return
		}
		if parsed < retentionDays {
			days = parsed
		}
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"days":       days,
		"action":     "get_stories",
	}).Info("Processing stories request")

	if stories, found := h.CacheManager.GetStories(days); found {
		monitoring.RecordCacheHit("get_stories")
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, StoriesResponse{
			Count:   len(stories),
			Days:    days,
			Stories: stories,
		})
		return
	}
	monitoring.RecordCacheMiss("get_stories")

	horizon := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	stories, err := h.Stories.QueryNewerThan(r.Context(), horizon)
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	if err := h.CacheManager.SetStories(days, stories); err != nil {
		h.Logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to cache stories response")
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id":    requestID,
		"days":          days,
		"stories_count": len(stories),
	}).Info("Stories retrieved successfully")

	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, StoriesResponse{
		Count:   len(stories),
		Days:    days,
		Stories: stories,
	})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
