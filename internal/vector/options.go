package vector

import "time"

// QueryOption configures a vector query using the functional options pattern.
type QueryOption func(*queryConfig)

type queryConfig struct {
	topK    int
	filter  map[string]any
	timeout time.Duration
}

// WithTopK sets the maximum number of matches to return. Default is 10.
func WithTopK(k int) QueryOption {
	return func(c *queryConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter restricts matches to entries whose metadata contains the given
// key/value pair. Multiple calls combine with AND logic.
func WithFilter(key string, value any) QueryOption {
	return func(c *queryConfig) {
		if c.filter == nil {
			c.filter = make(map[string]any)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the default 10s query deadline.
func WithTimeout(d time.Duration) QueryOption {
	return func(c *queryConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildQueryConfig(opts []QueryOption) *queryConfig {
	cfg := &queryConfig{
		topK:    10,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
