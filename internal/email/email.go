// Package email dispatches transactional email through the backend's
// mail function. Dispatch is fire-and-forget from the caller's
// perspective: failures are logged and never block the primary flow.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	dErrors "mindspend/pkg/domain-errors"
)

// Kind identifies a transactional message template.
type Kind string

const (
	KindVerification         Kind = "verification"
	KindPasswordReset        Kind = "password_reset"
	KindDeletionConfirmation Kind = "deletion_confirmation"
)

const mailPath = "/functions/v1/send-email"

// Dispatcher posts messages to the hosted mail endpoint.
type Dispatcher struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for mail calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Dispatcher) {
		d.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New constructs a dispatcher.
func New(baseURL, apiKey string, opts ...Option) *Dispatcher {
	d := &Dispatcher{baseURL: baseURL, apiKey: apiKey}
	for _, opt := range opts {
		opt(d)
	}
	if d.http == nil {
		d.http = &http.Client{Timeout: 10 * time.Second}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Send posts one message and reports the outcome.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, to string) error {
	payload, err := json.Marshal(map[string]string{
		"kind": string(kind),
		"to":   to,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode mail request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+mailPath, bytes.NewReader(payload))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build mail request")
	}
	req.Header.Set("apikey", d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "mail endpoint unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return dErrors.New(dErrors.CodeStoreUnavailable, "mail dispatch failed: "+resp.Status)
	}
	return nil
}

// SendAsync dispatches on a separate goroutine. Failures are logged;
// they never reach the caller.
func (d *Dispatcher) SendAsync(kind Kind, to string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Send(ctx, kind, to); err != nil {
			d.logger.WarnContext(ctx, "transactional email not delivered",
				"kind", string(kind),
				"error", err,
			)
		}
	}()
}
