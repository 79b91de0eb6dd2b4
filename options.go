package typedarena

import (
	"github.com/go-kit/log"
)

const (
	// DefaultInitialBytes is the approximate size in bytes of the first
	// chunk of an arena created without an explicit capacity.
	DefaultInitialBytes = 1024

	// MinCapacity is the smallest element capacity a chunk may have.
	MinCapacity = 1
)

type config struct {
	capacity     int // explicit element capacity, 0 if unset
	initialBytes int
	minCapacity  int
	logger       log.Logger
	metrics      *Metrics
}

// Option configures an arena at construction time.
type Option func(*config)

// WithCapacity sizes the first chunk to hold at least n elements.
// If n <= 0, the capacity is derived from the initial byte budget.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithInitialBytes overrides DefaultInitialBytes for arenas created
// without WithCapacity. Non-positive values are ignored.
func WithInitialBytes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.initialBytes = n
		}
	}
}

// WithMinCapacity overrides MinCapacity. Non-positive values are ignored.
func WithMinCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.minCapacity = n
		}
	}
}

// WithLogger sets the logger used for growth and release events.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics makes the arena report to m. The same Metrics may be shared
// by many arenas.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

func newConfig(opts []Option) config {
	c := config{
		initialBytes: DefaultInitialBytes,
		minCapacity:  MinCapacity,
		logger:       log.NewNopLogger(),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// initialCapacity returns the element capacity of the first chunk for
// elements of elemSize bytes.
func (c config) initialCapacity(elemSize uintptr) int {
	n := c.capacity
	if n == 0 {
		n = c.initialBytes / int(max(1, elemSize))
	}
	return max(c.minCapacity, n)
}
