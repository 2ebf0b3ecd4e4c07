// Package gateway is the client for the hosted record backend: typed
// collections with CRUD, filtered list queries, relation expansion, token
// auth, and a per-collection realtime change feed. The backend owns all
// persistence, query evaluation, and rule enforcement; this client only
// shuttles records and surfaces the backend's errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/session"
)

// listPageSize is how many records each list page requests. The backend
// caps pages, so List follows totalPages to fetch the full result.
const listPageSize = 500

// Query shapes a filtered list request. All fields are optional.
type Query struct {
	Filter string // string filter expression, see filter.go
	Sort   string // e.g. "-created" for newest first
	Expand string // relation name(s) to inline, e.g. "author"
}

// Client talks to one backend instance. Construct once and share; it is
// safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *session.Session
	log     *log.Logger
}

// New builds a client for the backend at rawURL.
func New(rawURL string, httpClient *http.Client, sess *session.Session, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q needs scheme and host", rawURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient, session: sess, log: logger}, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() *url.URL { return c.baseURL }

type listPage struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalPages int               `json:"totalPages"`
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

// List fetches every record matching q, following pagination. Records
// come back raw; ListRecords decodes and validates them.
func (c *Client) List(ctx context.Context, collection string, q Query) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for page := 1; ; page++ {
		vals := url.Values{}
		vals.Set("page", strconv.Itoa(page))
		vals.Set("perPage", strconv.Itoa(listPageSize))
		if q.Filter != "" {
			vals.Set("filter", q.Filter)
		}
		if q.Sort != "" {
			vals.Set("sort", q.Sort)
		}
		if q.Expand != "" {
			vals.Set("expand", q.Expand)
		}

		var pg listPage
		if err := c.do(ctx, http.MethodGet, c.recordsPath(collection)+"?"+vals.Encode(), nil, &pg); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		out = append(out, pg.Items...)
		if pg.TotalPages <= page || len(pg.Items) == 0 {
			break
		}
	}
	c.log.Debug("listed records", "collection", collection, "count", len(out))
	return out, nil
}

// ListRecords is List plus per-record schema validation and decoding.
func ListRecords[T any](ctx context.Context, c *Client, collection string, q Query) ([]T, error) {
	raws, err := c.List(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	return model.DecodeRecords[T](collection, raws)
}

// Get fetches one record by id. ErrNotFound when absent.
func (c *Client) Get(ctx context.Context, collection, id string, v any) error {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, c.recordsPath(collection)+"/"+url.PathEscape(id), nil, &raw)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return model.DecodeRecord(collection, raw, v)
}

// Create inserts a record and decodes the stored result (with its
// server-assigned id and timestamps) into v when v is non-nil.
func (c *Client) Create(ctx context.Context, collection string, fields map[string]any, v any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.recordsPath(collection), fields, &raw); err != nil {
		return fmt.Errorf("create %s: %w", collection, err)
	}
	c.log.Debug("created record", "collection", collection)
	if v == nil {
		return nil
	}
	return model.DecodeRecord(collection, raw, v)
}

// Update patches a record by id and decodes the stored result into v
// when v is non-nil.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any, v any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, c.recordsPath(collection)+"/"+url.PathEscape(id), fields, &raw); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	c.log.Debug("updated record", "collection", collection, "id", id)
	if v == nil {
		return nil
	}
	return model.DecodeRecord(collection, raw, v)
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.recordsPath(collection)+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	c.log.Debug("deleted record", "collection", collection, "id", id)
	return nil
}

func (c *Client) recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

// do issues one request. The session token, when present, rides along as
// a bearer header; non-2xx responses decode into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL.JoinPath() // copy
	parsed, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	u = u.ResolveReference(parsed)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if auth := c.session.Auth(); auth.Token != "" {
			req.Header.Set("Authorization", "Bearer "+auth.Token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
			apiErr.Status = resp.StatusCode
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
