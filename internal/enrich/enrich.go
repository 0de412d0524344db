// Package enrich derives preview images from pasted product URLs.
//
// Extraction is best effort: it runs concurrently with the insert that
// requested it and must never block or fail that insert. All errors
// degrade to an empty result; callers fall back to a category default.
package enrich

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"mindspend/internal/platform/metrics"
)

// Extractor recognizes a small set of marketplace URL shapes and
// synthesizes the marketplace's image URL for them.
type Extractor struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithMetrics enables hit/miss counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) {
		e.metrics = m
	}
}

// New constructs an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Marketplace product pages carry the product identifier in a /dp/
// path segment; their image CDN serves a predictable URL per product.
var (
	dpSegment      = regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})(?:[/?]|$)`)
	productSegment = regexp.MustCompile(`(?i)/product/[a-z0-9-]+-(\d{6,})(?:[/?]|$)`)
)

// PreviewImage attempts to derive a preview image URL from rawURL.
// It returns "" on any non-match or error.
func (e *Extractor) PreviewImage(ctx context.Context, rawURL string) string {
	if strings.TrimSpace(rawURL) == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		e.logger.DebugContext(ctx, "preview extraction skipped, unparseable url", "url", rawURL)
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	if m := dpSegment.FindStringSubmatch(u.Path); m != nil {
		e.countHit()
		return "https://images." + u.Host + "/images/P/" + strings.ToUpper(m[1]) + ".jpg"
	}
	if m := productSegment.FindStringSubmatch(u.Path); m != nil {
		e.countHit()
		return "https://" + u.Host + "/media/catalog/" + m[1] + "/main.jpg"
	}

	e.logger.DebugContext(ctx, "preview extraction found no pattern", "host", u.Host)
	e.countMiss()
	return ""
}

func (e *Extractor) countHit() {
	if e.metrics != nil {
		e.metrics.EnrichmentHits.Inc()
	}
}

func (e *Extractor) countMiss() {
	if e.metrics != nil {
		e.metrics.EnrichmentMisses.Inc()
	}
}

// Run launches PreviewImage on its own goroutine and returns a channel
// that yields the single result. The insert path selects on this
// channel against its own progress so a slow extraction never delays
// the write.
func (e *Extractor) Run(ctx context.Context, rawURL string) <-chan string {
	out := make(chan string, 1)
	go func() {
		out <- e.PreviewImage(ctx, rawURL)
		close(out)
	}()
	return out
}
