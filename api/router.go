package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/recipescrape/api/handler"
	"github.com/use-agent/recipescrape/api/middleware"
	"github.com/use-agent/recipescrape/cache"
	"github.com/use-agent/recipescrape/config"
	"github.com/use-agent/recipescrape/metrics"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/webhook"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Scraper  handler.RecipeScraper
	Issuer   Issuer // nil disables bearer tokens
	Metrics  *metrics.Collector
	Jobs     *cache.Store[models.BatchStatusResponse] // nil creates one from cfg.Batch
	Notifier *webhook.Notifier
	Engines  []string
}

// Issuer both mints and verifies bearer tokens. *auth.Issuer implements it.
type Issuer interface {
	handler.TokenIssuer
	middleware.TokenVerifier
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds background work (rate limiter cleanup, batch jobs).
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health, metrics and token issuance are outside auth.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		if cfg.Metrics.Enabled {
			r.GET("/metrics", deps.Metrics.Handler())
		}
	}

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(deps.Engines, startTime))

	var (
		issuer   handler.TokenIssuer
		verifier middleware.TokenVerifier
	)
	if deps.Issuer != nil {
		issuer, verifier = deps.Issuer, deps.Issuer
	}
	v1.POST("/token", handler.Token(issuer, cfg.Auth.AdminSecret))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys, verifier))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.GET("/protected", handler.Protected())
	protected.POST("/scrape-recipe", handler.ScrapeRecipe(deps.Scraper))

	jobs := deps.Jobs
	if jobs == nil {
		jobs = cache.New[models.BatchStatusResponse](cfg.Batch.MaxJobs, cfg.Batch.JobTTL)
		go func() {
			<-ctx.Done()
			jobs.Close()
		}()
	}
	batch := handler.NewBatch(ctx, deps.Scraper, jobs, deps.Notifier, cfg.Batch)
	protected.POST("/batch/scrape-recipe", batch.Post())
	protected.GET("/batch/:id", batch.Get())

	return r
}
