package typedarena

import (
	"iter"
	"sync"
)

// SafeArena is a mutex-protected typed arena for concurrent access.
// Allocation calls are serialized; each call writes its whole batch before
// the next one starts, so batches from different goroutines never
// interleave. Returned values may be used from any goroutine without
// further locking by the arena, though concurrent writes to the same value
// still need the caller's own synchronization.
type SafeArena[T any] struct {
	mu   sync.Mutex
	core core[T]
}

// NewSafe creates a SafeArena. It accepts the same options as New.
func NewSafe[T any](opts ...Option) *SafeArena[T] {
	s := &SafeArena[T]{}
	s.core.init(&s.mu, opts)
	return s
}

// Alloc thread-safely moves v into the arena and returns its address.
func (s *SafeArena[T]) Alloc(v T) *T {
	return s.core.alloc(v)
}

// New thread-safely returns the address of a new zero-valued T.
func (s *SafeArena[T]) New() *T {
	var zero T
	return s.core.alloc(zero)
}

// AllocSlice thread-safely copies values into contiguous arena storage.
func (s *SafeArena[T]) AllocSlice(values []T) []T {
	return s.core.allocSlice(values)
}

// MakeSlice thread-safely returns n contiguous zero-valued elements.
func (s *SafeArena[T]) MakeSlice(n int) []T {
	return s.core.makeSlice(n)
}

// AllocExtend thread-safely stores every value yielded by seq and returns
// the contiguous slice holding them. The arena stays locked while seq runs,
// so seq must not call back into the arena: it would deadlock. Like
// Arena.AllocExtend, a long seq may grow the arena more than once.
func (s *SafeArena[T]) AllocExtend(seq iter.Seq[T]) []T {
	return s.core.allocExtend(0, seq)
}

// AllocExtendN is AllocExtend with a lower bound on the number of values.
func (s *SafeArena[T]) AllocExtendN(minLen int, seq iter.Seq[T]) []T {
	return s.core.allocExtend(minLen, seq)
}

// All iterates over the elements allocated before the call. The arena is
// not locked while the iteration runs.
func (s *SafeArena[T]) All() iter.Seq[*T] {
	return s.core.all()
}

// Release thread-safely drops every element and makes the arena unusable.
func (s *SafeArena[T]) Release() {
	s.core.release()
}
