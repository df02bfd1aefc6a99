package handlers

import (
	"net/http"
	"time"

	"github.com/cleanhn/hn-mirror-backend/middleware"
	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/cleanhn/hn-mirror-backend/utils"
	"github.com/sirupsen/logrus"
)

// BacklogProgress summarizes cold start backfill progress
type BacklogProgress struct {
	TotalBatches     int     `json:"total_batches"`
	PendingBatches   int     `json:"pending_batches"`
	ProcessedBatches int     `json:"processed_batches"`
	PercentComplete  float64 `json:"percent_complete"`
}

// StatsResponse is the payload returned by the stats endpoint
type StatsResponse struct {
	TotalStories  int             `json:"total_stories"`
	StoriesByDate map[string]int  `json:"stories_by_date"`
	Backlog       BacklogProgress `json:"backlog"`
	GeneratedAt   string          `json:"generated_at"`
}

// @Summary Get mirror statistics
// @Description Returns story counts per day and cold start backfill progress.
// @Tags Mirror Operations
// @Produce json
// @Success 200 {object} StatsResponse "Statistics retrieved successfully"
// @Failure 500 {object} middleware.APIError "Internal server error"
// @Router /stats [get]
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"action":     "get_stats",
	}).Info("Processing stats request")

	if cached, found := h.CacheManager.GetStats(); found {
		if stats, ok := cached.(*StatsResponse); ok {
			monitoring.RecordCacheHit("get_stats")
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, stats)
			return
		}
	}
	monitoring.RecordCacheMiss("get_stats")

	total, err := h.Stories.CountStories(r.Context())
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	byDate, err := h.Stories.CountByDate(r.Context())
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	totalBatches, pendingBatches, err := h.Backlog.Progress(r.Context())
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}
	monitoring.UpdateBacklogPending(pendingBatches)

	processed := totalBatches - pendingBatches
	percent := 100.0
	if totalBatches > 0 {
		percent = float64(processed) / float64(totalBatches) * 100.0
	}

	stats := &StatsResponse{
		TotalStories:  total,
		StoriesByDate: byDate,
		Backlog: BacklogProgress{
			TotalBatches:     totalBatches,
			PendingBatches:   pendingBatches,
			ProcessedBatches: processed,
			PercentComplete:  percent,
		},
		GeneratedAt: time.Now().Format(time.RFC3339),
	}

	if err := h.CacheManager.SetStats(stats); err != nil {
		h.Logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to cache stats response")
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id":      requestID,
		"total_stories":   total,
		"total_batches":   totalBatches,
		"pending_batches": pendingBatches,
	}).Info("Stats retrieved successfully")

	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, stats)
}
