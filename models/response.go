package models

import "github.com/use-agent/recipescrape/recipe"

// NoRecipeMessage is returned alongside RECIPE_NOT_FOUND responses.
const NoRecipeMessage = "No recipe found at the provided URL."

// RecipeResponse is the response for POST /api/v1/scrape-recipe.
type RecipeResponse struct {
	// Success indicates whether a recipe was extracted.
	Success bool `json:"success"`

	// URL is the requested page.
	URL string `json:"url"`

	// Recipe is the extracted record. On RECIPE_NOT_FOUND it carries the
	// defaults so clients always see the same shape.
	Recipe *recipe.Record `json:"recipe,omitempty"`

	// Message is a human-readable note, set when no recipe was found.
	Message string `json:"message,omitempty"`

	// StatusCode is the HTTP status code of the fetched page.
	StatusCode int `json:"status_code,omitempty"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// EngineUsed names the fetch engine that produced the page.
	EngineUsed string `json:"engine_used,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent fetching the page.
	FetchMs int64 `json:"fetch_ms"`

	// ExtractionMs is the time spent parsing and extracting.
	ExtractionMs int64 `json:"extraction_ms"`
}

// TokenResponse is the response for POST /api/v1/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// ProtectedResponse is the response for GET /api/v1/protected.
type ProtectedResponse struct {
	Message string         `json:"message"`
	User    map[string]any `json:"user"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Engines []string `json:"engines"`
	Version string   `json:"version"`
}

// ErrorResponse is the body of errors raised outside a specific endpoint
// (auth, rate limiting, token issuance).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
