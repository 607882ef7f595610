package ors

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoResults is returned when the upstream service returns an empty result
// set for a query.
var ErrNoResults = errors.New("no results")

var errEmptyQuery = errors.New("empty query")

// APIError is returned for a non-2xx upstream response other than 429.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouteservice: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode implements network.StatusCoder, which makes transient
// upstream failures retryable.
func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

// RateLimitedError is returned when the upstream service responds with
// HTTP 429 (e.g. the API quota is exhausted).
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("openrouteservice: rate limited, retry after %s", e.RetryAfter)
}

// RetryAfterDelay implements network.RateLimited.
func (e *RateLimitedError) RetryAfterDelay() time.Duration { return e.RetryAfter }
