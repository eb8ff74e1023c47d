package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jurix/events"
)

// RegisterWebhookRoutes registers the Jira webhook receiver.
func RegisterWebhookRoutes(r *gin.Engine, publisher EventPublisher) {
	r.POST("/webhook/jira", func(c *gin.Context) { handleJiraWebhook(c, publisher) })
}

// handleJiraWebhook accepts a Jira webhook payload and hands it to the event
// router. Processing happens asynchronously.
func handleJiraWebhook(c *gin.Context, publisher EventPublisher) {
	var ev events.IssueEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	delivered := publisher.Publish(c.Request.Context(), &ev)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "eventType": ev.Type(), "delivered": delivered})
}
