package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/recipescrape/api"
	"github.com/use-agent/recipescrape/auth"
	"github.com/use-agent/recipescrape/config"
	"github.com/use-agent/recipescrape/metrics"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/recipe"
	"github.com/use-agent/recipescrape/scraper"
	"github.com/use-agent/recipescrape/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeScraper answers by URL: paths containing "missing" have no recipe,
// "down" fails to fetch, anything else returns a structured recipe.
type fakeScraper struct {
	mu   sync.Mutex
	reqs []models.ScrapeRecipeRequest
}

func (f *fakeScraper) Scrape(_ context.Context, req *models.ScrapeRecipeRequest) (*scraper.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, *req)
	f.mu.Unlock()

	switch {
	case strings.Contains(req.URL, "down"):
		return nil, models.NewScrapeError(models.ErrCodeFetchFailed, "page returned status 503", nil)
	case strings.Contains(req.URL, "slow"):
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "timed out fetching page", context.DeadlineExceeded)
	case strings.Contains(req.URL, "missing"):
		return &scraper.Result{
				URL:        req.URL,
				StatusCode: 200,
				Recipe: &recipe.Record{
					Title: recipe.NoTitle, Description: recipe.NoDescription,
					Ingredients: []string{}, Instructions: []string{}, Source: recipe.SourceHeuristic,
				},
			}, models.NewScrapeError(models.ErrCodeNoRecipe, models.NoRecipeMessage,
				recipe.ErrNoRecipe)
	default:
		return &scraper.Result{
			URL:        req.URL,
			FinalURL:   req.URL,
			StatusCode: 200,
			EngineUsed: "http-chrome",
			Recipe: &recipe.Record{
				Title: "Pancakes", Description: recipe.NoDescription,
				Ingredients: []string{"flour"}, Instructions: []string{"Mix."}, Source: recipe.SourceStructured,
			},
		}, nil
	}
}

type fixture struct {
	router  *gin.Engine
	scraper *fakeScraper
	issuer  *auth.Issuer
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"key-1"}, AdminSecret: "admin-secret"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Batch:     config.BatchConfig{MaxURLs: 3, Concurrency: 2, JobTTL: time.Minute, MaxJobs: 10},
		Metrics:   config.MetricsConfig{Enabled: true},
	}
	for _, m := range mutate {
		m(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{scraper: &fakeScraper{}, issuer: auth.NewIssuer("jwt-secret", 0)}
	f.router = api.NewRouter(ctx, cfg, api.Deps{
		Scraper:  f.scraper,
		Issuer:   f.issuer,
		Metrics:  metrics.NewCollector("test"),
		Notifier: webhook.NewNotifier(),
		Engines:  []string{"http-chrome", "http"},
	}, time.Now())
	return f
}

func (f *fixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, []string{"http-chrome", "http"}, health.Engines)

	w = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `recipescrape_http_requests_total{endpoint="/api/v1/health"`)
}

func TestToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	t.Run("query parameter", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/token?secret_key=admin-secret", "")
		require.Equal(t, http.StatusOK, w.Code)
		tok := decode[models.TokenResponse](t, w)
		assert.Equal(t, "bearer", tok.TokenType)
		assert.Zero(t, tok.ExpiresAt)

		claims, err := f.issuer.Verify(tok.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.User)
	})

	t.Run("json body", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/token", `{"secret_key":"admin-secret"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/token?secret_key=nope", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[models.ErrorResponse](t, w)
		assert.Equal(t, "Incorrect secret key", resp.Error.Message)
	})

	t.Run("malformed query is rejected before the secret check", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/token?secret_key="+strings.Repeat("x", 600), "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[models.ErrorResponse](t, w)
		assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
		assert.NotEqual(t, "Incorrect secret key", resp.Error.Message)
		assert.Contains(t, resp.Error.Message, "max")
	})

	t.Run("disabled without admin secret", func(t *testing.T) {
		t.Parallel()
		g := newFixture(t, func(c *config.Config) { c.Auth.AdminSecret = "" })
		w := g.do(http.MethodPost, "/api/v1/token?secret_key=", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProtected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok := decode[models.TokenResponse](t, f.do(http.MethodPost, "/api/v1/token?secret_key=admin-secret", ""))
	w = f.do(http.MethodGet, "/api/v1/protected", "", "Authorization", "Bearer "+tok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.ProtectedResponse](t, w)
	assert.Equal(t, "This is protected data", resp.Message)
	assert.Equal(t, "admin", resp.User["user"])

	w = f.do(http.MethodGet, "/api/v1/protected", "", "X-API-Key", "key-1")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[models.ProtectedResponse](t, w)
	assert.Equal(t, "key-****", resp.User["api_key"])
}

func TestScrapeRecipe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	creds := []string{"X-API-Key", "key-1"}

	t.Run("url as query parameter", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/scrape-recipe?url=https://cook.example/pancakes", "", creds...)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[models.RecipeResponse](t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, "Pancakes", resp.Recipe.Title)
		assert.Equal(t, "http-chrome", resp.EngineUsed)
	})

	t.Run("json body with options", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/scrape-recipe",
			`{"url":"https://cook.example/json","fetch_mode":"http","timeout":5}`, creds...)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no recipe", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/scrape-recipe?url=https://cook.example/missing", "", creds...)
		require.Equal(t, http.StatusNotFound, w.Code)
		resp := decode[models.RecipeResponse](t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, models.NoRecipeMessage, resp.Message)
		assert.Equal(t, models.ErrCodeNoRecipe, resp.Error.Code)
		require.NotNil(t, resp.Recipe)
		assert.Equal(t, recipe.NoTitle, resp.Recipe.Title)
		assert.Equal(t, []string{}, resp.Recipe.Ingredients)
	})

	t.Run("fetch errors", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/scrape-recipe?url=https://cook.example/down", "", creds...)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		w = f.do(http.MethodPost, "/api/v1/scrape-recipe?url=https://cook.example/slow", "", creds...)
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		for _, target := range []string{
			"/api/v1/scrape-recipe",
			"/api/v1/scrape-recipe?url=not-a-url",
			"/api/v1/scrape-recipe?url=https://cook.example/x&fetch_mode=browser",
			"/api/v1/scrape-recipe?url=https://cook.example/x&timeout=500",
		} {
			w := f.do(http.MethodPost, target, "", creds...)
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
	})

	t.Run("requires auth", func(t *testing.T) {
		t.Parallel()
		w := f.do(http.MethodPost, "/api/v1/scrape-recipe?url=https://cook.example/pancakes", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestScrapeRecipe_AuthDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *config.Config) { c.Auth.Enabled = false })

	w := f.do(http.MethodPost, "/api/v1/scrape-recipe?url=https://cook.example/pancakes", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimited(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.1, Burst: 1}
	})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/protected", "", "X-API-Key", "key-1").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/api/v1/protected", "", "X-API-Key", "key-1").Code)
}

func TestBatch(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []byte
		sig      string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received, sig = body, r.Header.Get(webhook.SignatureHeader)
		mu.Unlock()
	}))
	defer hook.Close()

	f := newFixture(t)
	body := `{"urls":["https://cook.example/a","https://cook.example/missing","https://cook.example/down"],
		"options":{"fetch_mode":"http"},"webhook_url":"` + hook.URL + `","webhook_secret":"whsec"}`
	w := f.do(http.MethodPost, "/api/v1/batch/scrape-recipe", body, "X-API-Key", "key-1")
	require.Equal(t, http.StatusAccepted, w.Code)
	created := decode[models.BatchResponse](t, w)
	assert.Equal(t, 3, created.Total)
	assert.True(t, strings.HasPrefix(created.ID, "batch-"))

	var status models.BatchStatusResponse
	require.Eventually(t, func() bool {
		w := f.do(http.MethodGet, "/api/v1/batch/"+created.ID, "", "X-API-Key", "key-1")
		status = models.BatchStatusResponse{}
		return json.Unmarshal(w.Body.Bytes(), &status) == nil && status.Status != models.BatchProcessing
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.BatchPartial, status.Status)
	assert.Equal(t, 3, status.Completed)
	require.Len(t, status.Results, 3)
	assert.True(t, status.Results[0].Success)
	assert.Equal(t, models.ErrCodeNoRecipe, status.Results[1].Error.Code)
	assert.Equal(t, models.ErrCodeFetchFailed, status.Results[2].Error.Code)

	f.scraper.mu.Lock()
	reqs := f.scraper.reqs
	f.scraper.mu.Unlock()
	require.Len(t, reqs, 3)
	for _, r := range reqs {
		assert.Equal(t, "http", r.FetchMode)
		assert.Equal(t, 30, r.Timeout)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, webhook.Verify("whsec", received, sig))
	var ev webhook.Event
	require.NoError(t, json.Unmarshal(received, &ev))
	assert.Equal(t, webhook.EventBatchCompleted, ev.Type)
	assert.Equal(t, created.ID, ev.JobID)
}

func TestBatch_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tooMany := `{"urls":["https://a.example","https://b.example","https://c.example","https://d.example"]}`
	tests := map[string]string{
		"empty":     `{"urls":[]}`,
		"bad url":   `{"urls":["nope"]}`,
		"too many":  tooMany,
		"malformed": `{`,
	}
	for name, body := range tests {
		w := f.do(http.MethodPost, "/api/v1/batch/scrape-recipe", body, "X-API-Key", "key-1")
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w := f.do(http.MethodGet, "/api/v1/batch/batch-unknown", "", "X-API-Key", "key-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeNotFound, decode[models.ErrorResponse](t, w).Error.Code)
}
