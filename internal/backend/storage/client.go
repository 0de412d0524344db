// Package storage is the HTTP client for the hosted object store,
// used for avatar images.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mindspend/internal/platform/tracer"
	dErrors "mindspend/pkg/domain-errors"
)

const storagePath = "/storage/v1/object/"

// Client uploads and removes objects in a single bucket.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	token   func() string
	http    *http.Client
	tracer  tracer.Tracer
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for storage calls.
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

// New constructs a storage client for bucket.
func New(baseURL, apiKey, bucket string, token func() string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		bucket:  bucket,
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	return c
}

// Upload stores data at path within the bucket, overwriting any
// existing object.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	ctx, span := c.tracer.Start(ctx, tracer.SpanStorageUpload, tracer.String(tracer.AttrPath, path))
	err := c.upload(ctx, path, data, contentType)
	span.End(err)
	return err
}

func (c *Client) upload(ctx context.Context, path string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+storagePath+c.bucket+"/"+path, bytes.NewReader(data))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build upload request")
	}
	c.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "object storage unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return dErrors.New(dErrors.CodeStoreUnavailable, "upload failed: "+resp.Status)
	}
	return nil
}

// PublicURL returns the public URL for an uploaded object.
func (c *Client) PublicURL(path string) string {
	return c.baseURL + "/storage/v1/object/public/" + c.bucket + "/" + path
}

// Remove deletes objects at the given paths. Missing objects are not
// an error.
func (c *Client) Remove(ctx context.Context, paths []string) error {
	ctx, span := c.tracer.Start(ctx, tracer.SpanStorageRemove, tracer.Int("count", len(paths)))
	err := c.remove(ctx, paths)
	span.End(err)
	return err
}

func (c *Client) remove(ctx context.Context, paths []string) error {
	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode remove request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+storagePath+c.bucket, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build remove request")
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "object storage unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return dErrors.New(dErrors.CodeStoreUnavailable, "remove failed: "+resp.Status)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	if c.token != nil {
		if bearer := c.token(); bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
	}
}
