package ors

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/vemonet/openroute-mcp/internal/network"
)

// Limits is the rate limiting and retry configuration for API calls.  The
// defaults match the OpenRouteService free tier (40 requests per minute);
// holders of a paid plan or a self-hosted instance can override them with an
// API configuration file.
type Limits struct {
	// PerMinute is the allowed number of requests per minute.
	PerMinute int `yaml:"per_minute" validate:"required,gte=1,lte=10000"`
	// Burst is the number of requests allowed to fire at once.
	Burst uint `yaml:"burst" validate:"required,gte=1"`
	// Retries is the number of attempts for a rate limited or transient
	// failure before giving up.
	Retries int `yaml:"retries" validate:"required,gte=1,lte=10"`
}

// DefLimits are the default API limits.
var DefLimits = Limits{
	PerMinute: 40, // free tier allowance for geocode and directions
	Burst:     1,  // safe value, who would ever want to modify it?
	Retries:   3,
}

// Validate checks that the limits are within the allowed boundaries.
func (l Limits) Validate() error {
	return validate.Struct(l)
}

var validate = validator.New()

// limiter builds the token bucket for these limits.
func (l Limits) limiter() *rate.Limiter {
	burst := l.Burst
	if burst < 1 {
		burst = 1
	}
	return network.NewLimiter(l.PerMinute, burst, 0)
}

// LoadLimits reads, parses and validates the API limits configuration file.
func LoadLimits(filename string) (Limits, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Limits{}, err
	}
	defer f.Close()

	var l Limits
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return Limits{}, fmt.Errorf("parse %q: %w", filename, err)
	}
	if err := l.Validate(); err != nil {
		return Limits{}, fmt.Errorf("config %q failed validation: %w", filename, err)
	}
	return l, nil
}
