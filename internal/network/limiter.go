package network

import (
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a throttler that allows perMinute requests per minute
// with the given burst.  A boost can be added to (or, when negative,
// subtracted from) the base rate.
func NewLimiter(perMinute int, burst uint, boost int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(every(perMinute, boost)), int(burst))
}

func every(perMinute int, boost int) time.Duration {
	n := perMinute + boost
	if n < 1 {
		n = 1
	}
	return time.Minute / time.Duration(n)
}
