package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"jurix/config"
)

// RegisterUpdateRoutes registers the dashboard polling endpoints.
func RegisterUpdateRoutes(r *gin.Engine, updates UpdatesReader, now func() time.Time) {
	g := r.Group("/api/updates")
	g.GET("/:projectKey", func(c *gin.Context) { handleUpdatesSince(c, updates, now) })
	g.GET("/:projectKey/summary", func(c *gin.Context) { handleProjectSummary(c, updates) })
}

// handleUpdatesSince returns updates newer than ?since= (ms). Without since,
// the last five minutes are returned.
func handleUpdatesSince(c *gin.Context, updates UpdatesReader, now func() time.Time) {
	since := now().Add(-config.DefaultUpdatesWindow).UnixMilli()
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "since must be a unix timestamp in milliseconds")
			return
		}
		since = v
	}

	c.JSON(http.StatusOK, updates.GetUpdatesSince(c.Param("projectKey"), since))
}

func handleProjectSummary(c *gin.Context, updates UpdatesReader) {
	c.JSON(http.StatusOK, updates.GetProjectSummary(c.Param("projectKey")))
}
