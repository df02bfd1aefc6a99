package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/middleware"
	"github.com/cleanhn/hn-mirror-backend/utils"
	"github.com/sirupsen/logrus"
)

// CommentsResponse is the payload returned by the comments endpoint
type CommentsResponse struct {
	StoryID  int64      `json:"story_id"`
	Count    int        `json:"count"`
	Comments []*hn.Item `json:"comments"`
}

// @Summary Get top comments for a story
// @Description Fetches the highest-ranked comments for a story live from the Hacker News API, skipping deleted and dead entries.
// @Tags Mirror Operations
// @Produce json
// @Param id query int true "Story ID"
// @Success 200 {object} CommentsResponse "Comments retrieved successfully"
// @Failure 400 {object} middleware.APIError "Bad request"
// @Failure 502 {object} middleware.APIError "Hacker News API error"
// @Router /comments [get]
func (h *Handler) HandleGetComments(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		middleware.RespondBadRequest(w, fmt.Errorf("id parameter is missing"), requestID)
		return
	}

	storyID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || storyID <= 0 {
		middleware.RespondBadRequest(w, fmt.Errorf("id must be a positive integer"), requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"story_id":   storyID,
		"action":     "get_comments",
	}).Info("Processing comments request")

	comments, err := h.Comments.FetchTopComments(r.Context(), storyID, h.CommentsLimit)
	if err != nil {
		middleware.RespondExternalAPIError(w, err, requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id":     requestID,
		"story_id":       storyID,
		"comments_count": len(comments),
	}).Info("Comments retrieved successfully")

	writeJSON(w, http.StatusOK, CommentsResponse{
		StoryID:  storyID,
		Count:    len(comments),
		Comments: comments,
	})
}
