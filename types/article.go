package types

// ArticleStatus is the outcome recorded for an issue's knowledge-base article
type ArticleStatus string

const (
	ArticleSuccess ArticleStatus = "success"
	ArticleError   ArticleStatus = "error"
	ArticlePending ArticleStatus = "pending"
)

// ArticleData is the stored result of article generation for one issue
type ArticleData struct {
	IssueKey  string                 `json:"issueKey"`
	Article   map[string]interface{} `json:"article,omitempty"`
	Status    ArticleStatus          `json:"status"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt int64                  `json:"createdAt"`
	Version   int                    `json:"version"`
}

// Title returns the generated article title, if any
func (a *ArticleData) Title() string {
	if a == nil || a.Article == nil {
		return ""
	}
	title, _ := a.Article["title"].(string)
	return title
}

// GenerationOutcome is the result of a single article generation request
type GenerationOutcome struct {
	Success      bool                   `json:"success"`
	Article      map[string]interface{} `json:"article,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	TimedOut     bool                   `json:"timedOut,omitempty"`
}

// Notification is a per-user message about a generated article
type Notification struct {
	ID        string `json:"id"`
	IssueKey  string `json:"issueKey"`
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
	Type      string `json:"type"`
}

// FeedbackEntry is one reviewer action recorded on an article
type FeedbackEntry struct {
	Feedback  string `json:"feedback"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
	User      string `json:"user"`
}
