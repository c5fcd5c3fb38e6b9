package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/scraper"
)

// RecipeScraper is implemented by *scraper.Scraper.
type RecipeScraper interface {
	Scrape(ctx context.Context, req *models.ScrapeRecipeRequest) (*scraper.Result, error)
}

// ScrapeRecipe returns a handler for POST /api/v1/scrape-recipe.
//
// The url may be given as a query parameter or in a JSON body. A page
// without recipe content yields 404 RECIPE_NOT_FOUND with the defaulted
// record.
func ScrapeRecipe(sc RecipeScraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindScrapeRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.RecipeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		resp, status := scrapeOne(c.Request.Context(), sc, req)
		c.JSON(status, resp)
	}
}

// bindScrapeRequest reads the request from the query string when it carries
// a url, otherwise from the JSON body.
func bindScrapeRequest(c *gin.Context) (*models.ScrapeRecipeRequest, error) {
	var req models.ScrapeRecipeRequest
	var err error
	if c.Query("url") != "" || c.Request.ContentLength == 0 {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		return nil, err
	}
	req.Defaults()
	return &req, nil
}

// scrapeOne runs one extraction and builds its API response and status.
func scrapeOne(ctx context.Context, sc RecipeScraper, req *models.ScrapeRecipeRequest) (*models.RecipeResponse, int) {
	start := time.Now()
	res, err := sc.Scrape(ctx, req)

	resp := &models.RecipeResponse{URL: req.URL}
	if res != nil {
		resp.Recipe = res.Recipe
		resp.StatusCode = res.StatusCode
		resp.FinalURL = res.FinalURL
		resp.EngineUsed = res.EngineUsed
		resp.Timing = models.TimingInfo{
			TotalMs:      res.TotalDuration.Milliseconds(),
			FetchMs:      res.FetchDuration.Milliseconds(),
			ExtractionMs: res.ExtractDuration.Milliseconds(),
		}
	} else {
		resp.Timing.TotalMs = time.Since(start).Milliseconds()
	}

	if err == nil {
		resp.Success = true
		return resp, http.StatusOK
	}

	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	if scrapeErr.Code == models.ErrCodeNoRecipe {
		resp.Message = models.NoRecipeMessage
	}
	resp.Error = scrapeErr.ToDetail()
	return resp, mapErrorToStatus(scrapeErr)
}

// respondError writes a structured JSON error with the mapped status.
func respondError(c *gin.Context, err *models.ScrapeError) {
	c.JSON(mapErrorToStatus(err), models.ErrorResponse{
		Success: false,
		Error:   err.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetchFailed, models.ErrCodeParse:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNoRecipe, models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
