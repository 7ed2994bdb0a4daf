// Package api is a client for a remote testdeck REST backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"testdeck/internal/logger"
	"testdeck/internal/query"
)

// ErrStatus reports a non-2xx response.
var ErrStatus = errors.New("unexpected status")

// Client talks to /api/<resource> endpoints.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Options tunes a Client. Zero values pick defaults.
type Options struct {
	Token   string
	Timeout time.Duration
	// RequestsPerSecond bounds outgoing requests. Defaults to 10 with a burst of 5.
	RequestsPerSecond float64
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid api url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	return &Client{
		baseURL:    u,
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 5),
	}, nil
}

// Fetch implements query.Fetcher.
func (c *Client) Fetch(ctx context.Context, d query.Descriptor) (any, error) {
	return c.List(ctx, d.Resource, d.Params)
}

// List GETs a resource collection and decodes it without assuming a shape.
func (c *Client) List(ctx context.Context, resource string, values url.Values) (any, error) {
	var out any
	if err := c.do(ctx, http.MethodGet, c.endpoint(values, resource), &out); err != nil {
		return nil, errors.Wrapf(err, "list %s", resource)
	}
	return out, nil
}

// Get GETs one record.
func (c *Client) Get(ctx context.Context, resource string, id int64) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, resource, fmt.Sprint(id)), &out); err != nil {
		return nil, errors.Wrapf(err, "get %s %d", resource, id)
	}
	return out, nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, resource string, id int64) error {
	if err := c.do(ctx, http.MethodDelete, c.endpoint(nil, resource, fmt.Sprint(id)), nil); err != nil {
		return errors.Wrapf(err, "delete %s %d", resource, id)
	}
	return nil
}

// SetStatus PATCHes the status of one record.
func (c *Client) SetStatus(ctx context.Context, resource string, id int64, status string) error {
	body := strings.NewReader(fmt.Sprintf(`{"status":%q}`, status))
	if err := c.doBody(ctx, http.MethodPatch, c.endpoint(nil, resource, fmt.Sprint(id)), body, nil); err != nil {
		return errors.Wrapf(err, "set status of %s %d", resource, id)
	}
	return nil
}

func (c *Client) endpoint(values url.Values, parts ...string) string {
	u := *c.baseURL
	segments := append([]string{"api"}, parts...)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(segments, "/")
	if len(values) > 0 {
		u.RawQuery = values.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, reqURL string, out any) error {
	return c.doBody(ctx, method, reqURL, nil, out)
}

func (c *Client) doBody(ctx context.Context, method, reqURL string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return errors.Wrap(err, "request creation failed")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "network error")
	}
	defer resp.Body.Close()

	logger.Debug().
		Str("method", method).
		Str("url", reqURL).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrapf(ErrStatus, "%d %s", resp.StatusCode, statusDetail(resp.Body))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(err, "JSON decode error")
	}
	return nil
}

// statusDetail extracts a short message from an error body.
func statusDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}
