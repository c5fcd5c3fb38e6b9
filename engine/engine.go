package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "http-chrome").
	Name() string

	// Fetch retrieves the page for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// FetchResult is the output of a successful engine fetch. Body holds the
// decompressed bytes as served; charset decoding is left to the caller.
type FetchResult struct {
	Body        []byte
	ContentType string
	Title       string
	StatusCode  int
	FinalURL    string
	EngineName  string
	Duration    time.Duration
}

// DefaultMaxBodyBytes caps response bodies when an engine is built with a
// zero limit.
const DefaultMaxBodyBytes = 10 << 20

// ErrNotHTML is returned when the response is not an HTML document.
var ErrNotHTML = errors.New("engine: response is not html")

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: %s returned status %d (%s)", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// browserHeaders mimic a desktop Chrome navigation request.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Accept-Encoding": "gzip, deflate, br",
}
