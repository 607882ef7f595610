// Package ors provides a limited client for the OpenRouteService HTTP API
// (https://openrouteservice.org): geocoding, directions, isochrones and
// points of interest.  All correctness of the returned data is delegated to
// the upstream service; the client only translates requests and surfaces
// upstream errors.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/vemonet/openroute-mcp/internal/network"
)

const (
	// DefBaseURL is the public OpenRouteService API endpoint.
	DefBaseURL = "https://api.openrouteservice.org"

	hdrAuthorization = "Authorization"
	hdrContentType   = "Content-Type"
	hdrAccept        = "Accept"
	hdrRetryAfter    = "Retry-After"

	mimeJSON = "application/json; charset=utf-8"
	// the directions endpoint negotiates the representation on Accept.
	mimeAccept = "application/json, application/geo+json, application/gpx+xml; charset=utf-8"
)

// maxErrorBody limits the amount of the upstream error body kept in APIError.
const maxErrorBody = 2048

// defRetryAfter is used when a 429 response carries no usable Retry-After.
const defRetryAfter = 10 * time.Second

// Client is the OpenRouteService API client.  Zero value is not usable, call
// New.
type Client struct {
	cl      *http.Client
	baseURL string
	apiKey  string

	lim     *rate.Limiter
	retries int

	lg *slog.Logger
}

// Option is the functional option for the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, e.g. for a self-hosted
// OpenRouteService instance.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(cl *http.Client) Option {
	return func(c *Client) {
		if cl != nil {
			c.cl = cl
		}
	}
}

// WithLimits applies the API limits configuration.
func WithLimits(l Limits) Option {
	return func(c *Client) {
		c.lim = l.limiter()
		c.retries = l.Retries
	}
}

// WithLogger sets the client logger.
func WithLogger(lg *slog.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// New creates a new OpenRouteService client.  apiKey must not be empty.
func New(apiKey string, opt ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("ors: api key is empty")
	}
	c := &Client{
		cl:      http.DefaultClient,
		baseURL: DefBaseURL,
		apiKey:  apiKey,
		lim:     DefLimits.limiter(),
		retries: DefLimits.Retries,
		lg:      slog.Default(),
	}
	for _, o := range opt {
		o(c)
	}
	network.SetLogger(c.lg) // the retry layer logs through the client logger
	return c, nil
}

// get issues a GET request to path with the given query parameters.  The API
// key is passed as the api_key parameter, the way the geocoding endpoints
// expect it.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = make(url.Values)
	}
	params.Set("api_key", c.apiKey)
	uri := c.baseURL + path + "?" + params.Encode()

	var body []byte
	err := network.WithRetry(ctx, c.lim, c.retries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set(hdrAccept, mimeAccept)
		body, err = c.do(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// post issues a POST request to path with a JSON-serialised payload.  The API
// key goes into the Authorization header, the way the v2 endpoints expect it.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ors: marshal request: %w", err)
	}

	var body []byte
	err = network.WithRetry(ctx, c.lim, c.retries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set(hdrAuthorization, c.apiKey)
		req.Header.Set(hdrContentType, mimeJSON)
		req.Header.Set(hdrAccept, mimeAccept)
		body, err = c.do(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// do executes the request and returns the response body.  Non-2xx responses
// are converted to *RateLimitedError or *APIError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to issue API request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.lg.WarnContext(req.Context(), "failed to close response body", "err", err)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, &RateLimitedError{RetryAfter: retryAfter(resp)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// retryAfter extracts the Retry-After delay from the response, falling back
// to defRetryAfter if the header is missing or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get(hdrRetryAfter)
	if h == "" {
		return defRetryAfter
	}
	var secs int
	if _, err := fmt.Sscanf(h, "%d", &secs); err != nil || secs <= 0 {
		if t, err := http.ParseTime(h); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
		return defRetryAfter
	}
	return time.Duration(secs) * time.Second
}
