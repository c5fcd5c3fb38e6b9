package models

// BatchRequest is the payload for POST /api/v1/batch/scrape-recipe.
type BatchRequest struct {
	// URLs is the list of recipe pages. Required.
	URLs []string `json:"urls" binding:"required,min=1,dive,url"`

	// Options are applied to every URL in the batch.
	Options BatchOptions `json:"options"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchOptions are the shared settings applied to every URL in a batch.
type BatchOptions struct {
	Timeout   int    `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto chrome http"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/scrape-recipe.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*RecipeResponse `json:"results,omitempty"`
}

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)
