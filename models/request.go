package models

// ScrapeRecipeRequest is the payload for POST /api/v1/scrape-recipe.
// URL may also be supplied as the "url" query parameter.
type ScrapeRecipeRequest struct {
	// URL is the page to extract a recipe from. Required.
	URL string `json:"url" form:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for fetch + extraction.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" form:"timeout" binding:"omitempty,min=1,max=120"`

	// CSSSelector optionally scopes extraction to the matched elements.
	// Structured data outside the matched elements is ignored too.
	CSSSelector string `json:"css_selector,omitempty" form:"css_selector"`

	// FetchMode controls the fetching strategy.
	// "auto" (default): race the configured engines.
	// "chrome": Chrome TLS fingerprint only.
	// "http": plain Go HTTP client only.
	FetchMode string `json:"fetch_mode,omitempty" form:"fetch_mode" binding:"omitempty,oneof=auto chrome http"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRecipeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
}

// TokenRequest is the payload for POST /api/v1/token. SecretKey may also
// be supplied as the "secret_key" query parameter.
type TokenRequest struct {
	SecretKey string `json:"secret_key" form:"secret_key" binding:"max=512"`
}
