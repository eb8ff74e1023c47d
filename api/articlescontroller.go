package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"jurix/articles"
	"jurix/events"
	"jurix/jira"
	"jurix/logging"
	"jurix/types"
)

// RegisterArticleRoutes registers article lookup, generation and feedback routes.
func RegisterArticleRoutes(r *gin.Engine, d Deps) {
	g := r.Group("/api/article/:issueKey")
	g.GET("", func(c *gin.Context) { handleGetArticle(c, d.Articles) })
	g.GET("/status", func(c *gin.Context) { handleArticleStatus(c, d) })
	g.POST("/generate", func(c *gin.Context) { handleGenerateArticle(c, d) })
	g.POST("/feedback", func(c *gin.Context) { handleArticleFeedback(c, d.Articles) })
}

func handleGetArticle(c *gin.Context, store ArticleStore) {
	data, err := store.Get(c.Request.Context(), c.Param("issueKey"))
	if errors.Is(err, articles.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "no article for this issue")
		return
	}
	if err != nil {
		logging.Error("failed to load article", "issue", c.Param("issueKey"), "error", err)
		errorResponse(c, http.StatusInternalServerError, "failed to load article")
		return
	}
	c.JSON(http.StatusOK, data)
}

// ArticleStatusResponse combines the tracker state with the stored record
type ArticleStatusResponse struct {
	types.GenerationStatus
	ArticleStatus types.ArticleStatus `json:"articleStatus,omitempty"`
	Title         string              `json:"title,omitempty"`
}

func handleArticleStatus(c *gin.Context, d Deps) {
	ctx := c.Request.Context()
	issueKey := c.Param("issueKey")

	status, err := d.Tracker.State(ctx, issueKey)
	if err != nil {
		logging.Error("failed to read generation state", "issue", issueKey, "error", err)
		errorResponse(c, http.StatusServiceUnavailable, "generation state unavailable")
		return
	}
	resp := ArticleStatusResponse{GenerationStatus: status}

	data, err := d.Articles.Get(ctx, issueKey)
	switch {
	case errors.Is(err, articles.ErrNotFound):
	case err != nil:
		logging.Warn("failed to load article for status", "issue", issueKey, "error", err)
	default:
		resp.ArticleStatus = data.Status
		resp.Title = data.Title()
		if status.State == types.StateAbsent {
			switch data.Status {
			case types.ArticleError:
				resp.State = types.StateFailed
				resp.Reason = data.Error
				resp.Since = data.CreatedAt
			case types.ArticleSuccess:
				resp.State = types.StateGenerated
				resp.Since = data.CreatedAt
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleGenerateArticle starts generation for an issue. The issue may be sent
// in the body; otherwise it is fetched from Jira.
func handleGenerateArticle(c *gin.Context, d Deps) {
	ctx := c.Request.Context()
	issueKey := c.Param("issueKey")

	body, err := c.GetRawData()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	// ContentLength is -1 for chunked bodies, so go by what was read
	var snap types.IssueSnapshot
	if len(bytes.TrimSpace(body)) > 0 {
		if err := binding.JSON.BindBody(body, &snap); err != nil {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		snap.Key = issueKey
		if snap.ProjectKey == "" {
			snap.ProjectKey = jira.ProjectFromKey(issueKey)
		}
	} else {
		if d.Issues == nil {
			errorResponse(c, http.StatusServiceUnavailable, "jira is not configured; send the issue in the request body")
			return
		}
		issue, err := d.Issues.FetchIssue(ctx, issueKey)
		if errors.Is(err, jira.ErrIssueNotFound) {
			errorResponse(c, http.StatusNotFound, "issue not found")
			return
		}
		if err != nil {
			logging.Error("failed to fetch issue", "issue", issueKey, "error", err)
			errorResponse(c, http.StatusBadGateway, "failed to fetch issue from jira")
			return
		}
		var ok bool
		if snap, ok = jira.Snapshot(issue); !ok {
			errorResponse(c, http.StatusUnprocessableEntity, "issue has no key or project")
			return
		}
	}

	result, err := d.Trigger.TriggerGeneration(ctx, snap)
	if errors.Is(err, events.ErrQueueFull) {
		errorResponse(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusAccepted
	if result != events.TriggerStarted {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"issueKey": snap.Key, "result": result})
}

// FeedbackRequest is a reviewer action on an article
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
	Action   string `json:"action" binding:"required"`
	User     string `json:"user"`
}

func handleArticleFeedback(c *gin.Context, store ArticleStore) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != articles.ActionRefine && action != articles.ActionApprove {
		errorResponse(c, http.StatusBadRequest, "action must be refine or approve")
		return
	}

	data, err := store.ApplyFeedback(c.Request.Context(), c.Param("issueKey"), types.FeedbackEntry{
		Feedback: req.Feedback,
		Action:   action,
		User:     req.User,
	})
	switch {
	case errors.Is(err, articles.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "no article for this issue")
	case errors.Is(err, articles.ErrNoArticle):
		errorResponse(c, http.StatusConflict, err.Error())
	case err != nil && data.IssueKey == "":
		logging.Error("failed to apply feedback", "issue", c.Param("issueKey"), "error", err)
		errorResponse(c, http.StatusInternalServerError, "failed to apply feedback")
	default:
		// A persistence failure still leaves the cached copy updated
		if err != nil {
			logging.Warn("feedback applied but not persisted", "issue", data.IssueKey, "error", err)
		}
		c.JSON(http.StatusOK, data)
	}
}
