// Package scraper runs the fetch, parse and extract pipeline for a single
// recipe page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/recipescrape/config"
	"github.com/use-agent/recipescrape/engine"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/recipe"
)

// Fetch modes accepted in requests.
const (
	ModeAuto   = "auto"
	ModeChrome = "chrome"
	ModeHTTP   = "http"
)

// modeEngines maps forced fetch modes to engine names.
var modeEngines = map[string]string{
	ModeChrome: "http-chrome",
	ModeHTTP:   "http",
}

// Fetcher retrieves pages. *engine.Dispatcher implements it.
type Fetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
	FetchWith(ctx context.Context, name string, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// Scraper is safe for concurrent use.
type Scraper struct {
	fetcher        Fetcher
	extractor      *recipe.Extractor
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// New creates a Scraper. A nil extractor uses the default one; a nil
// fetcher limits the Scraper to ExtractHTML.
func New(fetcher Fetcher, extractor *recipe.Extractor, cfg config.FetchConfig) *Scraper {
	if extractor == nil {
		extractor = recipe.NewExtractor()
	}
	return &Scraper{
		fetcher:        fetcher,
		extractor:      extractor,
		defaultTimeout: cfg.DefaultTimeout,
		maxTimeout:     cfg.MaxTimeout,
	}
}

// Result is the outcome of one Scrape call.
type Result struct {
	Recipe     *recipe.Record
	URL        string
	FinalURL   string
	StatusCode int
	EngineUsed string

	FetchDuration   time.Duration
	ExtractDuration time.Duration
	TotalDuration   time.Duration
}

// Scrape fetches req.URL and extracts its recipe. Errors are
// *models.ScrapeError. When the page holds no recipe, Scrape returns the
// Result with the defaulted record together with a RECIPE_NOT_FOUND error.
func (s *Scraper) Scrape(ctx context.Context, req *models.ScrapeRecipeRequest) (*Result, error) {
	if s.fetcher == nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "no fetcher configured", nil)
	}
	req.Defaults()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.Timeout))
	defer cancel()

	page, err := s.fetch(ctx, req)
	if err != nil {
		return nil, fetchError(err)
	}
	fetched := time.Now()

	rec, err := s.extract(page.Body, page.ContentType, req.CSSSelector)
	res := &Result{
		Recipe:          rec,
		URL:             req.URL,
		FinalURL:        page.FinalURL,
		StatusCode:      page.StatusCode,
		EngineUsed:      page.EngineName,
		FetchDuration:   fetched.Sub(start),
		ExtractDuration: time.Since(fetched),
		TotalDuration:   time.Since(start),
	}

	var se *models.ScrapeError
	switch {
	case err == nil:
		slog.Info("recipe extracted", "url", req.URL, "engine", page.EngineName,
			"source", rec.Source, "ingredients", len(rec.Ingredients), "instructions", len(rec.Instructions))
		return res, nil
	case errors.As(err, &se) && se.Code == models.ErrCodeNoRecipe:
		slog.Info("no recipe found", "url", req.URL, "engine", page.EngineName)
		return res, err
	default:
		return nil, err
	}
}

// ExtractHTML runs the parse and extract steps on an already fetched
// document. It reports no recipe the same way Scrape does.
func (s *Scraper) ExtractHTML(body []byte, contentType, selector string) (*recipe.Record, error) {
	return s.extract(body, contentType, selector)
}

func (s *Scraper) extract(body []byte, contentType, selector string) (*recipe.Record, error) {
	doc, err := Parse(body, contentType)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParse, "failed to parse page", err)
	}
	if selector != "" {
		doc, err = ApplySelector(doc, selector)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid css_selector", err)
		}
	}

	rec, err := s.extractor.Extract(doc)
	if errors.Is(err, recipe.ErrNoRecipe) {
		return rec, models.NewScrapeError(models.ErrCodeNoRecipe, models.NoRecipeMessage, err)
	}
	return rec, err
}

func (s *Scraper) fetch(ctx context.Context, req *models.ScrapeRecipeRequest) (*engine.FetchResult, error) {
	freq := &engine.FetchRequest{URL: req.URL}
	if name, ok := modeEngines[req.FetchMode]; ok {
		return s.fetcher.FetchWith(ctx, name, freq)
	}
	return s.fetcher.Dispatch(ctx, freq)
}

// timeout converts the requested seconds into a duration within the
// configured bounds.
func (s *Scraper) timeout(seconds int) time.Duration {
	d := time.Duration(seconds) * time.Second
	if d <= 0 {
		d = s.defaultTimeout
	}
	if s.maxTimeout > 0 && d > s.maxTimeout {
		d = s.maxTimeout
	}
	if d <= 0 {
		d = 30 * time.Second
	}
	return d
}

func fetchError(err error) *models.ScrapeError {
	var status *engine.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, "timed out fetching page", err)
	case errors.As(err, &status):
		return models.NewScrapeError(models.ErrCodeFetchFailed,
			fmt.Sprintf("page returned status %d", status.StatusCode), err)
	case errors.Is(err, engine.ErrNotHTML):
		return models.NewScrapeError(models.ErrCodeFetchFailed, "page is not an html document", err)
	case errors.Is(err, engine.ErrUnknownEngine):
		return models.NewScrapeError(models.ErrCodeInvalidInput, "fetch mode is not available", err)
	default:
		return models.NewScrapeError(models.ErrCodeFetchFailed, "failed to fetch page", err)
	}
}
