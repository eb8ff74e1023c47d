package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jurix/logging"
)

// RegisterAdminRoutes registers maintenance routes.
func RegisterAdminRoutes(r *gin.Engine, tracker GenerationTracker) {
	r.POST("/api/admin/sweep", func(c *gin.Context) { handleSweep(c, tracker) })
}

// handleSweep removes generation claims older than ?maxAge= (a Go duration,
// default the claim TTL).
func handleSweep(c *gin.Context, tracker GenerationTracker) {
	maxAge := tracker.InProgressTTL()
	if raw := c.Query("maxAge"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errorResponse(c, http.StatusBadRequest, "maxAge must be a non-negative duration such as 15m")
			return
		}
		maxAge = d
	}

	removed, err := tracker.SweepStale(c.Request.Context(), maxAge)
	if err != nil {
		logging.Error("stale claim sweep failed", "error", err)
		errorResponse(c, http.StatusServiceUnavailable, "sweep failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "maxAge": maxAge.String()})
}
