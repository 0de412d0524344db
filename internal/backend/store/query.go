package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"mindspend/internal/platform/tracer"
	dErrors "mindspend/pkg/domain-errors"
)

const restPath = "/rest/v1/"

// Query accumulates filters for one table operation. Builder methods
// return the receiver; a Query is used for a single terminal call and
// is not safe for concurrent use.
type Query struct {
	client  *Client
	table   string
	filters url.Values
	order   string
	limit   int
}

// Eq adds an equality filter on column.
func (q *Query) Eq(column string, value any) *Query {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

// Order sorts results by column. desc=true sorts newest-first for
// timestamp columns.
func (q *Query) Order(column string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.order = column + "." + dir
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Select fetches all matching rows into dest (a pointer to a slice).
func (q *Query) Select(ctx context.Context, dest any) error {
	ctx, span := q.client.tracer.Start(ctx, tracer.SpanStoreSelect, tracer.String(tracer.AttrTable, q.table))
	err := q.do(ctx, http.MethodGet, nil, dest, nil)
	span.End(err)
	return err
}

// Single fetches exactly one matching row into dest. A "no row found"
// result is reported as CodeNotFound, distinct from a failed query.
func (q *Query) Single(ctx context.Context, dest any) error {
	ctx, span := q.client.tracer.Start(ctx, tracer.SpanStoreSingle, tracer.String(tracer.AttrTable, q.table))
	err := q.do(ctx, http.MethodGet, nil, dest, map[string]string{
		"Accept": "application/vnd.pgrst.object+json",
	})
	span.End(err)
	return err
}

// Insert persists row and, when dest is non-nil, decodes the
// server-assigned representation into it.
func (q *Query) Insert(ctx context.Context, row any, dest any) error {
	ctx, span := q.client.tracer.Start(ctx, tracer.SpanStoreInsert, tracer.String(tracer.AttrTable, q.table))
	headers := map[string]string{"Prefer": "return=representation"}
	if dest != nil {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}
	err := q.do(ctx, http.MethodPost, row, dest, headers)
	span.End(err)
	return err
}

// Update patches all matching rows and, when dest is non-nil, decodes
// the first updated row into it.
func (q *Query) Update(ctx context.Context, patch any, dest any) error {
	ctx, span := q.client.tracer.Start(ctx, tracer.SpanStoreUpdate, tracer.String(tracer.AttrTable, q.table))
	headers := map[string]string{"Prefer": "return=representation"}
	if dest != nil {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}
	err := q.do(ctx, http.MethodPatch, patch, dest, headers)
	span.End(err)
	return err
}

// Delete removes all matching rows.
func (q *Query) Delete(ctx context.Context) error {
	ctx, span := q.client.tracer.Start(ctx, tracer.SpanStoreDelete, tracer.String(tracer.AttrTable, q.table))
	err := q.do(ctx, http.MethodDelete, nil, nil, nil)
	span.End(err)
	return err
}

func (q *Query) url() string {
	u := q.client.baseURL + restPath + q.table
	params := url.Values{}
	for col, vals := range q.filters {
		for _, v := range vals {
			params.Add(col, v)
		}
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.limit))
	}
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (q *Query) do(ctx context.Context, method string, body any, dest any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode row")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url(), reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	req.Header.Set("apikey", q.client.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if q.client.token != nil {
		if bearer := q.client.token(); bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := q.client.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, q.table+" query failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return q.statusError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "decode "+q.table+" response")
	}
	return nil
}

func (q *Query) statusError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Message
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	// The store answers single-row requests with 406 when no row
	// matches; that is an empty result, not an infrastructure failure.
	case http.StatusNotAcceptable, http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, "no rows in "+q.table)
	case http.StatusUnauthorized, http.StatusForbidden:
		return dErrors.New(dErrors.CodeUnauthorized, msg)
	case http.StatusConflict:
		return dErrors.New(dErrors.CodeConflict, msg)
	default:
		if resp.StatusCode >= 500 {
			return dErrors.New(dErrors.CodeStoreUnavailable, msg)
		}
		return dErrors.New(dErrors.CodeMutationRejected, msg)
	}
}
