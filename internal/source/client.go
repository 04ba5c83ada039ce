package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/circuitbreaker"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/httpx"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/metrics"
)

// Document is the graph payload the upstream source serves.
type Document struct {
	Nodes []NodeDoc `json:"nodes"`
	Links []LinkDoc `json:"links"`
}

// NodeDoc is one node in the upstream document.
type NodeDoc struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Val      float64         `json:"val"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// LinkDoc is one link in the upstream document.
type LinkDoc struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Client fetches graph documents from the configured upstream source with
// rate limiting, retries, and a circuit breaker.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
}

func NewClient() *Client {
	cfg := config.Load()
	return &Client{
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:   cfg.SourceURL,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(cfg.SourceRPS), cfg.SourceBurst),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name: "source",
		}),
	}
}

// NewClientForURL is like NewClient but targets an explicit URL; used by
// tests and one-off imports.
func NewClientForURL(url string) *Client {
	c := NewClient()
	c.baseURL = url
	return c
}

// FetchGraph retrieves the upstream graph document.
func (c *Client) FetchGraph(ctx context.Context) (*Document, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no source URL configured")
	}

	var doc *Document
	err := c.breaker.Call(func() error {
		resp, err := httpx.DoWithRetryFactory(c.http, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "application/json")
			return req, nil
		}, func(ctx context.Context, attempt int) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			metrics.SourceRateLimitWaits.Inc()
			return nil
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return ClassifyError(resp)
		}
		var d Document
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			return fmt.Errorf("decode source document: %w", err)
		}
		doc = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
