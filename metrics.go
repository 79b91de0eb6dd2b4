package typedarena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

// Metrics holds the Prometheus collectors arenas report to.
type Metrics struct {
	allocations      prometheus.Counter
	elements         prometheus.Counter
	grows            prometheus.Counter
	reservedBytes    prometheus.Counter
	releasedElements prometheus.Counter
}

// NewMetrics creates the arena collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		allocations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedarena_allocations_total",
			Help: "Total number of allocation calls served by arenas.",
		}),
		elements: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedarena_allocated_elements_total",
			Help: "Total number of elements written into arenas.",
		}),
		grows: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedarena_chunk_grows_total",
			Help: "Total number of times an arena installed a new chunk.",
		}),
		reservedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedarena_reserved_bytes_total",
			Help: "Total number of bytes reserved by arena chunks.",
		}),
		releasedElements: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedarena_released_elements_total",
			Help: "Total number of elements dropped by arena releases.",
		}),
	}
}

// counters are updated under the arena guard and may be read without it.
type counters struct {
	elements    atomic.Int64
	allocations atomic.Int64
	grows       atomic.Int64
	chunks      atomic.Int64
	capacity    atomic.Int64
}

// Stats is a snapshot of arena statistics.
type Stats struct {
	Elements      int     // Elements currently stored
	Allocations   int     // Allocation calls served
	Grows         int     // New chunks installed after construction
	NumChunks     int     // Chunks currently held, including the current one
	Capacity      int     // Summed element capacity of all chunks
	ElementSize   int     // Size of one element in bytes
	BytesInUse    int     // Elements * ElementSize
	BytesReserved int     // Capacity * ElementSize
	Utilization   float64 // Elements / Capacity (0.0-1.0)
}

func (c *counters) snapshot(elemSize uintptr) Stats {
	s := Stats{
		Elements:    int(c.elements.Load()),
		Allocations: int(c.allocations.Load()),
		Grows:       int(c.grows.Load()),
		NumChunks:   int(c.chunks.Load()),
		Capacity:    int(c.capacity.Load()),
		ElementSize: int(elemSize),
	}
	s.BytesInUse = s.Elements * s.ElementSize
	s.BytesReserved = s.Capacity * s.ElementSize
	if s.Capacity > 0 {
		s.Utilization = float64(s.Elements) / float64(s.Capacity)
	}
	return s
}

func (c *core[T]) currentCapacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cap(c.chunks.current)
}

// Len returns the number of elements stored in the arena.
func (a *Arena[T]) Len() int {
	return int(a.core.stats.elements.Load())
}

// NumChunks returns the number of chunks held by the arena.
func (a *Arena[T]) NumChunks() int {
	return int(a.core.stats.chunks.Load())
}

// RetiredChunks returns the number of chunks no longer written to.
func (a *Arena[T]) RetiredChunks() int {
	return max(0, a.NumChunks()-1)
}

// Capacity returns the summed element capacity of all chunks.
func (a *Arena[T]) Capacity() int {
	return int(a.core.stats.capacity.Load())
}

// CurrentCapacity returns the element capacity of the chunk being written.
func (a *Arena[T]) CurrentCapacity() int {
	return a.core.currentCapacity()
}

// Utilization returns the ratio of stored elements to capacity (0.0 to 1.0).
func (a *Arena[T]) Utilization() float64 {
	return a.Stats().Utilization
}

// Stats returns a snapshot of arena statistics.
func (a *Arena[T]) Stats() Stats {
	return a.core.stats.snapshot(a.core.elemSize)
}

// Counters of a SafeArena are read without taking its lock.

// Len returns the number of elements stored in the arena.
func (s *SafeArena[T]) Len() int {
	return int(s.core.stats.elements.Load())
}

// NumChunks returns the number of chunks held by the arena.
func (s *SafeArena[T]) NumChunks() int {
	return int(s.core.stats.chunks.Load())
}

// RetiredChunks returns the number of chunks no longer written to.
func (s *SafeArena[T]) RetiredChunks() int {
	return max(0, s.NumChunks()-1)
}

// Capacity returns the summed element capacity of all chunks.
func (s *SafeArena[T]) Capacity() int {
	return int(s.core.stats.capacity.Load())
}

// CurrentCapacity thread-safely returns the capacity of the current chunk.
func (s *SafeArena[T]) CurrentCapacity() int {
	return s.core.currentCapacity()
}

// Utilization returns the ratio of stored elements to capacity.
func (s *SafeArena[T]) Utilization() float64 {
	return s.Stats().Utilization
}

// Stats returns a snapshot of arena statistics. Under concurrent use the
// fields may come from slightly different moments.
func (s *SafeArena[T]) Stats() Stats {
	return s.core.stats.snapshot(s.core.elemSize)
}
