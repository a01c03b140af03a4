// Package transport sends event batches to the collection endpoint.
package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// DefaultTimeout bounds a single batch send. Sends run off the host's
// critical path, but an unbounded request would pin goroutines during an
// outage.
const DefaultTimeout = 10 * time.Second

// Client posts batches as JSON to a fixed endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, for tests and for
// hosts that need custom transports or proxies.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// NewClient creates a Client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts one batch. Any network error or non-2xx status is returned as
// an error; the caller (the queue) owns retry semantics.
func (c *Client) Send(batch wire.Batch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collection endpoint returned %s", resp.Status)
	}
	return nil
}
