package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/recipescrape/cache"
	"github.com/use-agent/recipescrape/config"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/webhook"
	"golang.org/x/sync/errgroup"
)

// Batch serves asynchronous multi-URL extraction jobs.
type Batch struct {
	ctx      context.Context
	sc       RecipeScraper
	jobs     *cache.Store[models.BatchStatusResponse]
	notifier *webhook.Notifier
	cfg      config.BatchConfig
}

// NewBatch creates a Batch. Jobs run under ctx, so cancelling it aborts
// in-flight extractions. A nil notifier disables webhooks.
func NewBatch(ctx context.Context, sc RecipeScraper, jobs *cache.Store[models.BatchStatusResponse], notifier *webhook.Notifier, cfg config.BatchConfig) *Batch {
	return &Batch{ctx: ctx, sc: sc, jobs: jobs, notifier: notifier, cfg: cfg}
}

// Post returns a handler for POST /api/v1/batch/scrape-recipe. It registers
// the job and answers immediately; extraction continues in the background.
func (b *Batch) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		if b.cfg.MaxURLs > 0 && len(req.URLs) > b.cfg.MaxURLs {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("maximum %d URLs per batch", b.cfg.MaxURLs), nil))
			return
		}

		job := models.BatchStatusResponse{
			ID:      "batch-" + uuid.NewString(),
			Status:  models.BatchProcessing,
			Total:   len(req.URLs),
			Results: make([]*models.RecipeResponse, len(req.URLs)),
		}
		b.jobs.Set(job.ID, job)

		go b.run(job.ID, req)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: job.Status,
			Total:  job.Total,
		})
	}
}

// Get returns a handler for GET /api/v1/batch/:id.
func (b *Batch) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := b.jobs.Get(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "batch job not found", nil))
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// run processes every URL with at most cfg.Concurrency extractions in flight.
func (b *Batch) run(id string, req models.BatchRequest) {
	g, ctx := errgroup.WithContext(b.ctx)
	g.SetLimit(max(b.cfg.Concurrency, 1))

	for i, u := range req.URLs {
		g.Go(func() error {
			sreq := &models.ScrapeRecipeRequest{
				URL:       u,
				Timeout:   req.Options.Timeout,
				FetchMode: req.Options.FetchMode,
			}
			sreq.Defaults()
			resp, _ := scrapeOne(ctx, b.sc, sreq)

			// Results is replaced, never written in place, so snapshots
			// returned by Get stay immutable.
			b.jobs.Update(id, func(job models.BatchStatusResponse) models.BatchStatusResponse {
				results := slices.Clone(job.Results)
				results[i] = resp
				job.Results = results
				job.Completed++
				return job
			})
			return nil
		})
	}
	_ = g.Wait()

	var final models.BatchStatusResponse
	found := b.jobs.Update(id, func(job models.BatchStatusResponse) models.BatchStatusResponse {
		job.Status = batchStatus(job.Results)
		final = job
		return job
	})
	if !found {
		slog.Warn("batch job expired before completion", "id", id)
		return
	}

	slog.Info("batch job finished",
		"id", final.ID,
		"status", final.Status,
		"completed", final.Completed,
		"total", final.Total,
	)

	if req.WebhookURL != "" && b.notifier != nil {
		b.notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     final.ID,
			Timestamp: time.Now().Unix(),
			Data:      final,
		})
	}
}

func batchStatus(results []*models.RecipeResponse) string {
	failed := 0
	for _, r := range results {
		if r == nil || !r.Success {
			failed++
		}
	}
	switch {
	case failed == len(results):
		return models.BatchFailed
	case failed > 0:
		return models.BatchPartial
	default:
		return models.BatchCompleted
	}
}
