package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StdEngine fetches pages with the stock Go TLS stack. It is the fallback
// when the Chrome handshake is rejected, and the only engine that honours
// an outbound proxy.
type StdEngine struct {
	client  *http.Client
	maxBody int64
}

// NewStdEngine creates a StdEngine. An empty proxy falls back to the
// HTTP_PROXY/HTTPS_PROXY environment.
func NewStdEngine(proxy string, maxBody int64) (*StdEngine, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("http: parse proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &StdEngine{
		client: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
			Timeout:       2 * time.Minute,
		},
		maxBody: maxBody,
	}, nil
}

func (e *StdEngine) Name() string { return "http" }

func (e *StdEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	return doFetch(ctx, e.client, e.Name(), e.maxBody, req)
}
