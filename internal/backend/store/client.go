// Package store is the HTTP client for the hosted relational store.
//
// Tables are addressed REST-style with equality filters and ordering.
// Error Contract: Single returns a CodeNotFound domain error when no
// row matches, which callers must distinguish from
// CodeStoreUnavailable (the query itself failed).
package store

import (
	"net/http"
	"time"

	"mindspend/internal/platform/tracer"
)

// TokenSource supplies the bearer token attached to each request.
// Returning "" sends the request with the publishable key only.
type TokenSource func() string

// Client issues table-scoped queries against the remote store.
type Client struct {
	baseURL string
	apiKey  string
	token   TokenSource
	http    *http.Client
	tracer  tracer.Tracer
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for store calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTracer sets the tracer used to record per-request spans.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New constructs a store client. token may be nil for anonymous
// access.
func New(baseURL, apiKey string, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	return c
}

// Table starts a query against the named table.
func (c *Client) Table(name string) *Query {
	return &Query{client: c, table: name}
}
