// README: Base handler utilities (JSON helpers, caller identity, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripplanner/internal/service"
)

// ClientIDHeader optionally names the caller for quota accounting; the client IP is used otherwise.
const ClientIDHeader = "X-Client-ID"

// statusClientClosedRequest is reported when the caller went away before a result was ready.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts short opaque identifiers made of letters, digits, '-' and '_'.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func callerID(c *gin.Context) string {
	if id := c.GetHeader(ClientIDHeader); isValidID(id) {
		return id
	}
	return c.ClientIP()
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writePlannerError maps planner failures to HTTP statuses. Context errors are checked first
// because a timed-out generation also wraps ErrGenerationFailed.
func writePlannerError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "generation timed out")
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, service.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrGenerationFailed):
		writeError(c, http.StatusBadGateway, service.ErrGenerationFailed.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
