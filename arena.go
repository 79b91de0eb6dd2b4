package typedarena

import (
	"iter"
	"sync"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Dropper is implemented by element types that need to run cleanup when
// their arena is released. Drop is called on a pointer to the element and
// must not use the arena.
type Dropper interface {
	Drop()
}

// core is the implementation shared by Arena and SafeArena. Every method
// holds mu for its whole duration; the two arena types differ only in
// what mu is.
type core[T any] struct {
	mu       sync.Locker
	chunks   chunkList[T]
	released bool

	elemSize uintptr
	drops    bool
	stats    counters
	logger   log.Logger
	metrics  *Metrics
}

func (c *core[T]) init(mu sync.Locker, opts []Option) {
	cfg := newConfig(opts)
	var zero T
	c.mu = mu
	c.elemSize = unsafe.Sizeof(zero)
	_, c.drops = any((*T)(nil)).(Dropper)
	c.logger = cfg.logger
	c.metrics = cfg.metrics

	c.chunks = newChunkList[T](cfg.initialCapacity(c.elemSize))
	c.chunks.onGrow = c.observeGrow
	c.stats.chunks.Store(1)
	c.stats.capacity.Store(int64(cap(c.chunks.current)))
	c.reserved(cap(c.chunks.current))
}

func (c *core[T]) observeGrow(oldCap, newCap, batch int, retired bool) {
	c.stats.grows.Inc()
	if retired {
		c.stats.chunks.Inc()
		c.stats.capacity.Add(int64(newCap))
	} else {
		c.stats.capacity.Add(int64(newCap - oldCap))
	}
	c.reserved(newCap)
	if c.metrics != nil {
		c.metrics.grows.Inc()
	}
	level.Debug(c.logger).Log("msg", "arena chunk grown", "old_capacity", oldCap, "new_capacity", newCap, "batch", batch, "retired", retired)
}

func (c *core[T]) reserved(capacity int) {
	if c.metrics != nil {
		c.metrics.reservedBytes.Add(float64(capacity) * float64(c.elemSize))
	}
}

// written records one allocation call that stored n elements.
func (c *core[T]) written(n int) {
	c.stats.allocations.Inc()
	c.stats.elements.Add(int64(n))
	if c.metrics != nil {
		c.metrics.allocations.Inc()
		c.metrics.elements.Add(float64(n))
	}
}

func (c *core[T]) checkReleased() {
	if c.released {
		panic(errors.WithStack(ErrReleased))
	}
}

func (c *core[T]) alloc(v T) *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkReleased()

	p := c.chunks.push(v)
	c.written(1)
	return p
}

func (c *core[T]) allocSlice(values []T) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkReleased()

	s := c.chunks.extend(values)
	c.written(len(s))
	return s
}

func (c *core[T]) makeSlice(n int) []T {
	if n < 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkReleased()

	s := c.chunks.extendZeroed(n)
	c.written(n)
	return s
}

func (c *core[T]) allocExtend(minLen int, seq iter.Seq[T]) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkReleased()

	s := c.chunks.extendSeq(max(0, minLen), seq)
	c.written(len(s))
	return s
}

func (c *core[T]) all() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		c.mu.Lock()
		chunks := c.chunks.snapshot()
		c.mu.Unlock()

		for _, chunk := range chunks {
			for i := range chunk {
				if !yield(&chunk[i]) {
					return
				}
			}
		}
	}
}

func (c *core[T]) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}

	n := c.chunks.len()
	chunks := c.chunks.numChunks()
	// Detach before dropping so a panicking Drop cannot lead to a second
	// round of drops.
	detached := c.chunks.snapshot()
	c.chunks = chunkList[T]{}
	c.released = true

	c.stats.elements.Store(0)
	c.stats.chunks.Store(0)
	c.stats.capacity.Store(0)
	if c.metrics != nil {
		c.metrics.releasedElements.Add(float64(n))
	}
	level.Debug(c.logger).Log("msg", "arena released", "elements", n, "chunks", chunks)

	if !c.drops {
		return
	}
	for _, chunk := range detached {
		for i := range chunk {
			any(&chunk[i]).(Dropper).Drop()
		}
	}
}

// borrowFlag is the guard used by Arena. It never blocks: taking it while
// it is held means the arena was re-entered.
type borrowFlag struct {
	held bool
}

func (b *borrowFlag) Lock() {
	if b.held {
		panic(errors.WithStack(ErrAlreadyBorrowed))
	}
	b.held = true
}

func (b *borrowFlag) Unlock() {
	b.held = false
}

// Arena is a typed bump allocator for values of type T. Not goroutine-safe.
// Use SafeArena for concurrent access.
//
// Every pointer and slice returned by an Arena stays valid, at the same
// address, for as long as it is reachable. The arena never moves a value
// once it has been handed out and never writes to it again.
type Arena[T any] struct {
	core core[T]
	flag borrowFlag
}

// New creates an Arena. Without options the first chunk holds about
// DefaultInitialBytes bytes worth of T.
func New[T any](opts ...Option) *Arena[T] {
	a := &Arena[T]{}
	a.core.init(&a.flag, opts)
	return a
}

// Alloc moves v into the arena and returns its address.
func (a *Arena[T]) Alloc(v T) *T {
	return a.core.alloc(v)
}

// New returns the address of a new zero-valued T.
func (a *Arena[T]) New() *T {
	var zero T
	return a.core.alloc(zero)
}

// AllocSlice copies values into contiguous arena storage and returns the
// copy. The result has len and cap equal to len(values).
func (a *Arena[T]) AllocSlice(values []T) []T {
	return a.core.allocSlice(values)
}

// MakeSlice returns n contiguous zero-valued elements.
// Returns nil if n < 0.
func (a *Arena[T]) MakeSlice(n int) []T {
	return a.core.makeSlice(n)
}

// AllocExtend stores every value yielded by seq, in order, and returns the
// contiguous slice holding them. seq must not call back into the arena;
// doing so panics with ErrAlreadyBorrowed.
//
// The length of seq is not known up front, so a long seq may grow the
// arena more than once while it is written. Only the chunk that held
// values from earlier calls is retired. Use AllocSlice or AllocExtendN
// when the batch must fit with a single growth.
func (a *Arena[T]) AllocExtend(seq iter.Seq[T]) []T {
	return a.core.allocExtend(0, seq)
}

// AllocExtendN is AllocExtend for sequences known to yield at least minLen
// values, which lets the arena size a new chunk before writing.
func (a *Arena[T]) AllocExtendN(minLen int, seq iter.Seq[T]) []T {
	return a.core.allocExtend(minLen, seq)
}

// All iterates over every element allocated so far, in storage order.
func (a *Arena[T]) All() iter.Seq[*T] {
	return a.core.all()
}

// Release drops every element exactly once and makes the arena unusable.
// If a Drop panics, the arena is still released and the elements not yet
// dropped are never dropped.
// Any subsequent allocation panics. Calling Release again has no effect.
func (a *Arena[T]) Release() {
	a.core.release()
}
