package counter

import (
	"log/slog"
	"math"
)

const (
	// DefaultMaxBulkValues is the default cap on the length of the ByMany
	// operations' input.
	DefaultMaxBulkValues = 1 << 20

	// maxBulkValuesLimit keeps the element count representable as the
	// native u32 count parameter on every platform.
	maxBulkValuesLimit = math.MaxInt32
)

type config struct {
	logger        *slog.Logger
	maxBulkValues int
}

func defaultConfig() config {
	return config{
		logger:        slog.Default(),
		maxBulkValues: DefaultMaxBulkValues,
	}
}

// Option configures a Counter.
type Option func(*config)

// WithLogger sets the logger used for lifecycle and failure events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxBulkValues caps the length of IncrementByMany/DecrementByMany input.
// n must be at least 1.
func WithMaxBulkValues(n int) Option {
	return func(c *config) {
		c.maxBulkValues = min(n, maxBulkValuesLimit)
	}
}
