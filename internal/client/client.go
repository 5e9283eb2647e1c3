// Package client talks to a running clipboard-history daemon over its HTTP API.
package client

import (
	"clipboard-history/internal/history"
	"clipboard-history/internal/server"
	"clipboard-history/pkg/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when no daemon answers at the configured address.
var ErrUnavailable = errors.New("clipboard-history daemon is not reachable")

const DefaultTimeout = 5 * time.Second

type Client struct {
	endpoint string
	client   *http.Client
}

// New returns a client for the daemon listening on addr ("host:port" or a full URL).
func New(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	endpoint := strings.TrimRight(addr, "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type ListOptions struct {
	// Limit > 0 caps the result. All requests every entry. With neither set
	// the daemon applies its display limit.
	Limit int
	All   bool
	Query string
	Kind  types.Kind
}

func (c *Client) List(ctx context.Context, opts ListOptions) ([]server.EntryView, error) {
	q := url.Values{}
	switch {
	case opts.All:
		q.Set("limit", "0")
	case opts.Limit > 0:
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Kind != "" {
		q.Set("kind", string(opts.Kind))
	}

	var views []server.EntryView
	err := c.do(ctx, http.MethodGet, "/api/entries", q, &views)
	return views, err
}

func (c *Client) Get(ctx context.Context, id string) (server.EntryView, error) {
	var view server.EntryView
	err := c.do(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(id), nil, &view)
	return view, err
}

// Content returns the raw payload bytes of an entry.
func (c *Client) Content(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(id)+"/content", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) Copy(ctx context.Context, id string) (server.EntryView, error) {
	var view server.EntryView
	err := c.do(ctx, http.MethodPost, "/api/entries/"+url.PathEscape(id)+"/copy", nil, &view)
	return view, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/entries/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/entries", nil, nil)
}

// Reload makes the daemon re-read its history from disk and returns the entry count.
func (c *Client) Reload(ctx context.Context) (int, error) {
	var out struct {
		Entries int `json:"entries"`
	}
	err := c.do(ctx, http.MethodPost, "/api/reload", nil, &out)
	return out.Entries, err
}

func (c *Client) Stats(ctx context.Context) (server.StatsView, error) {
	var stats server.StatsView
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}

// Ping checks that the daemon answers /status.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/status", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	resp, err := c.send(ctx, method, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into errors. The
// caller closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, u, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var apiErr struct {
		Error string `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, history.ErrNotFound)
	case http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", history.ErrCodec, msg)
	default:
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, u, msg)
	}
}
