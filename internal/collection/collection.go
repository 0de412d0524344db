// Package collection keeps an in-memory ordered view of a remote
// table, applying mutations locally first and reconciling with the
// authoritative server response.
//
// Every optimistic mutation owns exactly one entry: rollback and
// confirmation touch only the entry the operation created or removed,
// so concurrent operations on one collection never need to serialize
// against each other.
package collection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mindspend/internal/enrich"
	"mindspend/internal/platform/metrics"
	dErrors "mindspend/pkg/domain-errors"
)

// enrichGrace is how long an insert waits for preview-image
// enrichment before proceeding with the draft as-is. Enrichment that
// misses the window is patched in after both sides resolve.
const enrichGrace = 200 * time.Millisecond

// Table is the remote half of a collection.
// Error Contract: Insert and Delete return domain errors; any error
// triggers rollback of the corresponding optimistic change.
type Table[T any] interface {
	// List returns all of the user's rows ordered by creation
	// descending.
	List(ctx context.Context) ([]T, error)
	// Insert persists a draft and returns the server's representation,
	// including the assigned identifier.
	Insert(ctx context.Context, draft T) (T, error)
	// Delete removes the row with the given server identifier.
	Delete(ctx context.Context, serverID string) error
	// UpdateImage patches the row's image field.
	UpdateImage(ctx context.Context, serverID, imageURL string) (T, error)
}

// Spec describes the item type to the generic machinery.
type Spec[T any] struct {
	// Name labels metrics and logs.
	Name string
	// Validate rejects drafts with missing required fields before any
	// network call.
	Validate func(draft T) error
	// ServerID extracts the server-assigned identifier.
	ServerID func(item T) string
	// CreatedAt extracts the creation timestamp used for ordering.
	CreatedAt func(item T) time.Time
	// EnrichURL returns the URL-shaped field to run enrichment
	// against, or "" when the type has none.
	EnrichURL func(draft T) string
	// WithImage returns a copy of item with its image field set. Nil
	// when the type has no image field.
	WithImage func(item T, imageURL string) T
	// DefaultImage returns the fallback image for a draft. Nil when
	// the type has no image field.
	DefaultImage func(draft T) string
}

// Entry pairs an identity tag with a row.
type Entry[T any] struct {
	ID  ID
	Row T
}

// Collection is the in-memory optimistic view. Safe for concurrent
// use.
type Collection[T any] struct {
	table     Table[T]
	spec      Spec[T]
	extractor *enrich.Extractor
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	entries []Entry[T]
	closed  bool
}

// Option configures a collection.
type Option[T any] func(*Collection[T])

// WithLogger sets the logger.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *Collection[T]) {
		c.logger = logger
	}
}

// WithMetrics enables mutation metrics.
func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(c *Collection[T]) {
		c.metrics = m
	}
}

// WithExtractor sets the preview-image extractor used on inserts.
func WithExtractor[T any](e *enrich.Extractor) Option[T] {
	return func(c *Collection[T]) {
		c.extractor = e
	}
}

// New constructs a collection over table.
func New[T any](table Table[T], spec Spec[T], opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{table: table, spec: spec}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.extractor == nil {
		c.extractor = enrich.New()
	}
	return c
}

// Load fetches all rows and replaces local state wholesale. On failure
// the prior state is left untouched and the error is reported.
func (c *Collection[T]) Load(ctx context.Context) error {
	rows, err := c.table.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, c.spec.Name+" load failed")
	}

	entries := make([]Entry[T], 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry[T]{ID: Confirmed(c.spec.ServerID(row)), Row: row})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.entries = entries
	return nil
}

// Snapshot returns a copy of the current entries, newest first.
// Pending entries are part of the view; their IDs report
// Pending()==true.
func (c *Collection[T]) Snapshot() []Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry[T], len(c.entries))
	copy(out, c.entries)
	return out
}

// Insert validates a draft, applies it locally under a pending
// identifier, and persists it remotely. Preview-image enrichment runs
// concurrently with the remote write and never blocks it. On success
// the pending entry is replaced in place by the confirmed item, which
// survives a reload racing the insert; on failure it is removed
// without trace.
func (c *Collection[T]) Insert(ctx context.Context, draft T) (Entry[T], error) {
	var zero Entry[T]

	if c.spec.Validate != nil {
		if err := c.spec.Validate(draft); err != nil {
			return zero, dErrors.Wrap(err, dErrors.CodeValidation, c.spec.Name+" draft rejected")
		}
	}

	// Optimistic application: the provisional item is visible
	// immediately, before any network traffic.
	localID := NewLocal()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, dErrors.New(dErrors.CodeInternal, c.spec.Name+" collection is closed")
	}
	c.entries = append([]Entry[T]{{ID: localID, Row: draft}}, c.entries...)
	c.mu.Unlock()
	c.countInsert()

	var enrichCh <-chan string
	if c.spec.EnrichURL != nil && c.spec.WithImage != nil {
		if rawURL := c.spec.EnrichURL(draft); rawURL != "" {
			enrichCh = c.extractor.Run(ctx, rawURL)
		}
	}

	// Take the enrichment result if it is ready in time, otherwise
	// proceed; a result arriving later does not modify the in-flight
	// request.
	outbound := draft
	enrichDone := false
	if enrichCh != nil {
		select {
		case img := <-enrichCh:
			enrichDone = true
			outbound = c.applyImage(outbound, img)
		case <-time.After(enrichGrace):
		case <-ctx.Done():
		}
	}
	if !enrichDone && c.spec.WithImage != nil && c.spec.DefaultImage != nil {
		outbound = c.spec.WithImage(outbound, c.spec.DefaultImage(outbound))
	}

	confirmed, err := c.table.Insert(ctx, outbound)
	if err != nil {
		c.discard(localID)
		c.countRollback("insert")
		return zero, dErrors.Wrap(err, dErrors.CodeMutationRejected, c.spec.Name+" insert failed")
	}

	entry := Entry[T]{ID: Confirmed(c.spec.ServerID(confirmed)), Row: confirmed}
	if !c.settle(localID, entry) {
		// Closed mid-flight; the result is not applied.
		return entry, nil
	}

	if enrichCh != nil && !enrichDone {
		go c.patchLate(ctx, entry, enrichCh)
	}
	return entry, nil
}

// Remove optimistically drops the item and confirms the deletion
// remotely. On failure the retained copy is restored at its
// chronological position.
func (c *Collection[T]) Remove(ctx context.Context, serverID string) error {
	if serverID == "" {
		// An empty id would match a pending entry, whose server id
		// is not assigned yet.
		return dErrors.New(dErrors.CodeValidation, c.spec.Name+" server id required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return dErrors.New(dErrors.CodeInternal, c.spec.Name+" collection is closed")
	}
	idx := -1
	for i, e := range c.entries {
		if e.ID.Server() == serverID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, c.spec.Name+" item not present")
	}
	retained := c.entries[idx]
	c.entries = append(c.entries[:idx:idx], c.entries[idx+1:]...)
	c.mu.Unlock()
	c.countRemove()

	if err := c.table.Delete(ctx, serverID); err != nil {
		c.restore(retained)
		c.countRollback("remove")
		return dErrors.Wrap(err, dErrors.CodeMutationRejected, c.spec.Name+" delete failed")
	}
	return nil
}

// Close stops the collection from applying results of in-flight
// operations, e.g. after the owning view is torn down.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Collection[T]) applyImage(item T, imageURL string) T {
	if imageURL == "" && c.spec.DefaultImage != nil {
		imageURL = c.spec.DefaultImage(item)
	}
	if imageURL == "" {
		return item
	}
	return c.spec.WithImage(item, imageURL)
}

// patchLate waits for a straggling enrichment result and patches it
// into the confirmed record, locally and best-effort remotely.
func (c *Collection[T]) patchLate(ctx context.Context, entry Entry[T], enrichCh <-chan string) {
	img, ok := <-enrichCh
	if !ok || img == "" {
		return
	}

	patched := c.spec.WithImage(entry.Row, img)
	if !c.replace(entry.ID, Entry[T]{ID: entry.ID, Row: patched}) {
		return
	}

	if updated, err := c.table.UpdateImage(ctx, entry.ID.Server(), img); err != nil {
		c.logger.WarnContext(ctx, "late image patch not persisted",
			"collection", c.spec.Name,
			"id", entry.ID.String(),
			"error", err,
		)
	} else {
		c.replace(entry.ID, Entry[T]{ID: entry.ID, Row: updated})
	}
}

// settle lands a confirmed insert. The usual case swaps the pending
// entry in place. When a reload replaced state wholesale while the
// insert was in flight, the pending entry is gone but the confirmed
// row must still land: it is inserted by creation order, after
// dropping any copy of it the reload may already have fetched.
// Returns false only when the collection is closed.
func (c *Collection[T]) settle(pendingID ID, with Entry[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for i, e := range c.entries {
		if e.ID == with.ID {
			c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
			break
		}
	}
	for i, e := range c.entries {
		if e.ID == pendingID {
			c.entries[i] = with
			return true
		}
	}
	c.insertByCreationLocked(with)
	return true
}

// replace swaps the entry identified by id in place, preserving its
// position. Returns false when the entry is gone or the collection is
// closed.
func (c *Collection[T]) replace(id ID, with Entry[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for i, e := range c.entries {
		if e.ID == id {
			c.entries[i] = with
			return true
		}
	}
	return false
}

// discard removes the entry identified by id, leaving no trace.
func (c *Collection[T]) discard(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.ID == id {
			c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
			return
		}
	}
}

// restore re-inserts a retained entry by creation order, newest first.
// The original index may be stale if other mutations landed meanwhile;
// chronological position is the invariant that holds.
func (c *Collection[T]) restore(entry Entry[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.insertByCreationLocked(entry)
}

// insertByCreationLocked places entry by creation order, newest first.
// Caller holds c.mu.
func (c *Collection[T]) insertByCreationLocked(entry Entry[T]) {
	createdAt := c.spec.CreatedAt(entry.Row)
	at := len(c.entries)
	for i, e := range c.entries {
		if !c.spec.CreatedAt(e.Row).After(createdAt) {
			at = i
			break
		}
	}
	c.entries = append(c.entries[:at:at], append([]Entry[T]{entry}, c.entries[at:]...)...)
}

func (c *Collection[T]) countInsert() {
	if c.metrics != nil {
		c.metrics.OptimisticInserts.WithLabelValues(c.spec.Name).Inc()
	}
}

func (c *Collection[T]) countRemove() {
	if c.metrics != nil {
		c.metrics.OptimisticRemoves.WithLabelValues(c.spec.Name).Inc()
	}
}

func (c *Collection[T]) countRollback(op string) {
	if c.metrics != nil {
		c.metrics.Rollbacks.WithLabelValues(c.spec.Name, op).Inc()
	}
}
