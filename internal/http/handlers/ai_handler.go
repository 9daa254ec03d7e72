// README: AI assistant handlers (destination suggestions, review summaries).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripplanner/internal/service"
)

// Assistant covers the single-shot model flows.
type Assistant interface {
	SuggestDestinations(ctx context.Context, description string) ([]service.Destination, error)
	SummarizeActivityReviews(ctx context.Context, activityName string, reviews []string) (string, error)
}

type AIHandler struct {
	ai      Assistant
	timeout time.Duration
}

func NewAIHandler(assistant Assistant, timeout time.Duration) *AIHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AIHandler{ai: assistant, timeout: timeout}
}

type suggestReq struct {
	TripDescription string `json:"tripDescription"`
}

type reviewsReq struct {
	ActivityName string   `json:"activityName"`
	Reviews      []string `json:"reviews"`
}

// SuggestDestinations handles POST /api/destinations/suggest.
func (h *AIHandler) SuggestDestinations(c *gin.Context) {
	var req suggestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	dests, err := h.ai.SuggestDestinations(ctx, req.TripDescription)
	if err != nil {
		writePlannerError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"destinations": dests})
}

// SummarizeReviews handles POST /api/activities/reviews/summary.
func (h *AIHandler) SummarizeReviews(c *gin.Context) {
	var req reviewsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	summary, err := h.ai.SummarizeActivityReviews(ctx, req.ActivityName, req.Reviews)
	if err != nil {
		writePlannerError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"summary": summary})
}
