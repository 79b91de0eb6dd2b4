package typedarena

import (
	"iter"
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// chunkList holds the storage of an arena. Writes only ever land in
// current; chunks in rest are kept alive for the values they hold and are
// never written again. A chunk's backing array is never reallocated once a
// value has been handed out from it, which is what keeps pointers stable.
type chunkList[T any] struct {
	current []T   // len = elements written, cap = chunk capacity
	rest    [][]T // retired chunks, oldest first

	// onGrow, if set, is called after a new current chunk is installed.
	onGrow func(oldCap, newCap, batch int, retired bool)
}

func newChunkList[T any](capacity int) chunkList[T] {
	return chunkList[T]{current: make([]T, 0, max(MinCapacity, capacity))}
}

// nextCapacity returns the capacity of the chunk that replaces one of
// capacity current when additional elements must fit into it.
func nextCapacity(current, additional int) (int, error) {
	if current > math.MaxInt/2 {
		return 0, errors.Wrapf(ErrCapacityOverflow, "doubling capacity %d", current)
	}
	required, ok := nextPowerOfTwo(additional)
	if !ok {
		return 0, errors.Wrapf(ErrCapacityOverflow, "rounding %d up to a power of two", additional)
	}
	return max(current*2, required), nil
}

// nextPowerOfTwo returns the smallest power of two >= n. Zero and negative
// inputs round up to 1.
func nextPowerOfTwo(n int) (int, bool) {
	if n <= 1 {
		return 1, true
	}
	shift := bits.Len(uint(n - 1))
	if shift >= bits.UintSize-1 {
		return 0, false
	}
	return 1 << shift, true
}

// reserve installs a new current chunk with room for at least additional
// elements. The old chunk is retired unless it holds nothing, in which
// case it is simply dropped.
//
//go:noinline
func (c *chunkList[T]) reserve(additional int) {
	newCap, err := nextCapacity(cap(c.current), additional)
	if err != nil {
		panic(err)
	}
	old := c.current
	c.current = make([]T, 0, newCap)
	retired := len(old) > 0
	if retired {
		c.rest = append(c.rest, old)
	}
	if c.onGrow != nil {
		c.onGrow(cap(old), newCap, additional, retired)
	}
}

// push appends a single value and returns its address.
func (c *chunkList[T]) push(v T) *T {
	if len(c.current) == cap(c.current) {
		c.reserve(1)
	}
	c.current = append(c.current, v)
	return &c.current[len(c.current)-1]
}

// extend appends values and returns the contiguous view covering them.
// The view never includes values from earlier calls and its capacity is
// clipped to its length.
func (c *chunkList[T]) extend(values []T) []T {
	if len(values) > cap(c.current)-len(c.current) {
		c.reserve(len(values))
	}
	start := len(c.current)
	c.current = append(c.current, values...)
	return c.current[start:len(c.current):len(c.current)]
}

// extendZeroed appends n zero values and returns the view covering them.
func (c *chunkList[T]) extendZeroed(n int) []T {
	if n > cap(c.current)-len(c.current) {
		c.reserve(n)
	}
	start := len(c.current)
	c.current = c.current[:start+n]
	clear(c.current[start:])
	return c.current[start:len(c.current):len(c.current)]
}

// extendSeq appends every value yielded by seq. minLen is a lower bound on
// the number of values seq yields and may be 0 when unknown.
//
// If current fills up before seq is exhausted, the values already written
// by this call are moved to the head of a new chunk and writing carries on
// there, so the whole batch always ends up contiguous in one chunk. Values
// written by earlier calls are never moved. If seq panics, the values it
// already yielded are discarded.
func (c *chunkList[T]) extendSeq(minLen int, seq iter.Seq[T]) []T {
	if minLen > cap(c.current)-len(c.current) {
		c.reserve(minLen)
	}
	start := len(c.current)
	done := false
	defer func() {
		if !done {
			clear(c.current[start:])
			c.current = c.current[:start]
		}
	}()

	for v := range seq {
		if len(c.current) == cap(c.current) {
			start = c.relocate(start)
		}
		c.current = append(c.current, v)
	}
	done = true
	return c.current[start:len(c.current):len(c.current)]
}

// relocate grows the arena while a batch that began at index start of
// current is being written, and moves the batch to the new chunk. It
// returns the new start of the batch.
func (c *chunkList[T]) relocate(start int) int {
	inflight := c.current[start:]
	c.current = c.current[:start]
	c.reserve(len(inflight) + 1)
	c.current = append(c.current, inflight...)
	// The old chunk no longer owns the moved values.
	clear(inflight)
	return 0
}

// len returns the number of values stored in all chunks.
func (c *chunkList[T]) len() int {
	n := len(c.current)
	for _, r := range c.rest {
		n += len(r)
	}
	return n
}

// capacity returns the summed capacity of all chunks.
func (c *chunkList[T]) capacity() int {
	n := cap(c.current)
	for _, r := range c.rest {
		n += cap(r)
	}
	return n
}

// numChunks returns the number of chunks, including current.
func (c *chunkList[T]) numChunks() int {
	if c.current == nil {
		return 0
	}
	return len(c.rest) + 1
}

// snapshot returns views over every stored value, retired chunks first.
// The views stay valid while more values are appended.
func (c *chunkList[T]) snapshot() [][]T {
	out := make([][]T, 0, len(c.rest)+1)
	for _, r := range c.rest {
		out = append(out, r[:len(r):len(r)])
	}
	return append(out, c.current[:len(c.current):len(c.current)])
}
