package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterNotificationRoutes registers per-user notification routes.
func RegisterNotificationRoutes(r *gin.Engine, store ArticleStore) {
	g := r.Group("/api/notifications")
	g.GET("", func(c *gin.Context) { handleListNotifications(c, store) })
	g.POST("/:id/read", func(c *gin.Context) { handleMarkNotificationRead(c, store) })
}

func handleListNotifications(c *gin.Context, store ArticleStore) {
	user := c.Query("user")
	if user == "" {
		errorResponse(c, http.StatusBadRequest, "user is required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "notifications": store.Notifications(user)})
}

func handleMarkNotificationRead(c *gin.Context, store ArticleStore) {
	user := c.Query("user")
	if user == "" {
		errorResponse(c, http.StatusBadRequest, "user is required")
		return
	}
	if !store.MarkNotificationRead(user, c.Param("id")) {
		errorResponse(c, http.StatusNotFound, "notification not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}
