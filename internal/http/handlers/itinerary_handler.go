// README: Itinerary handler (quota-guarded generation).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tripplanner/internal/modules/aiusage"
	"tripplanner/internal/service"
)

const (
	DegradedHeader       = "X-Itinerary-Degraded"
	QuotaRemainingHeader = "X-Quota-Remaining"
)

// ItineraryPlanner is the generation engine as seen by the transport.
type ItineraryPlanner interface {
	Generate(ctx context.Context, req service.TripRequest) (*service.Result, error)
}

// Quota guards generation per caller. A nil Quota disables the guard.
type Quota interface {
	Consume(ctx context.Context, subject string) (int, error)
	Refund(ctx context.Context, subject string) error
}

type ItineraryHandler struct {
	planner ItineraryPlanner
	quota   Quota
	timeout time.Duration
	logger  *zap.Logger
}

func NewItineraryHandler(planner ItineraryPlanner, quota Quota, timeout time.Duration, logger *zap.Logger) *ItineraryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItineraryHandler{planner: planner, quota: quota, timeout: timeout, logger: logger}
}

type itineraryResponse struct {
	service.Itinerary
	Anomalies []service.Anomaly `json:"anomalies,omitempty"`
}

// Generate handles POST /api/itineraries.
func (h *ItineraryHandler) Generate(c *gin.Context) {
	var req service.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	subject := callerID(c)
	if h.quota != nil {
		remaining, err := h.quota.Consume(c.Request.Context(), subject)
		if err != nil {
			if errors.Is(err, aiusage.ErrQuotaExhausted) {
				writeError(c, http.StatusTooManyRequests, err.Error())
				return
			}
			h.logger.Error("quota check failed", zap.String("subject", subject), zap.Error(err))
			writeError(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.Header(QuotaRemainingHeader, strconv.Itoa(remaining))
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.planner.Generate(ctx, req)
	if err != nil {
		h.refund(c, subject)
		writePlannerError(c, err)
		return
	}

	if res.Degraded() {
		c.Header(DegradedHeader, "true")
	}
	writeJSON(c, http.StatusOK, itineraryResponse{Itinerary: res.Itinerary, Anomalies: res.Anomalies})
}

func (h *ItineraryHandler) refund(c *gin.Context, subject string) {
	if h.quota == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
	defer cancel()
	if err := h.quota.Refund(ctx, subject); err != nil {
		h.logger.Warn("quota refund failed", zap.String("subject", subject), zap.Error(err))
	}
}
