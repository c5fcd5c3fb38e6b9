package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// doFetch performs a GET through client with browser-like headers and
// returns the decoded body. Shared by every net/http based engine.
func doFetch(ctx context.Context, client *http.Client, name string, maxBody int64, req *FetchRequest) (*FetchResult, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", name, err)
	}
	for k, v := range browserHeaders {
		httpReq.Header.Set(k, v)
	}
	// Custom headers override the defaults.
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL}
	}
	ct := resp.Header.Get("Content-Type")
	if !isHTMLContentType(ct) {
		return nil, fmt.Errorf("%w (content-type: %q)", ErrNotHTML, ct)
	}

	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"), maxBody)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", name, err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: ct,
		Title:       extractTitle(body),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		EngineName:  name,
		Duration:    time.Since(start),
	}, nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("too many redirects")
	}
	return nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
// A missing header is accepted.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
