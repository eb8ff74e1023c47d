package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers health check endpoints.
func RegisterHealthRoutes(r *gin.Engine, d Deps) {
	h := func(c *gin.Context) { handleHealth(c, d) }
	r.GET("/health", h)
	r.GET("/api/health", h)
}

// handleHealth reports service status. With ?deep=true it also checks the AI backend.
func handleHealth(c *gin.Context, d Deps) {
	trackerMode := "redis"
	if d.Tracker != nil && d.Tracker.Degraded() {
		trackerMode = "memory"
	}

	resp := gin.H{
		"status":  "healthy",
		"tracker": trackerMode,
	}
	if d.Trigger != nil {
		resp["pendingTasks"] = d.Trigger.Pending()
	}

	if c.Query("deep") == "true" && d.Backend != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := d.Backend.Health(ctx); err != nil {
			resp["status"] = "degraded"
			resp["backend"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["backend"] = "ok"
	}

	c.JSON(http.StatusOK, resp)
}
