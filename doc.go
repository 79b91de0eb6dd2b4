// Package typedarena implements a typed bump allocator (memory arena) for Go.
//
// # Overview
//
// An arena hands out many values of a single type T from large, internally
// managed chunks and frees them all together. It is meant for data built
// from many small linked values:
//
//   - Trees and graphs whose nodes point at each other
//   - Interned nodes and parser ASTs
//   - Any batch of same-typed values that live and die together
//
// # Basic Usage
//
//	type Node struct {
//		Parent *Node
//		Value  int
//	}
//
//	a := typedarena.New[Node]()      // first chunk of about 1 KiB
//	defer a.Release()                // drops everything at once
//
//	root := a.Alloc(Node{Value: 1})
//	child := a.Alloc(Node{Parent: root, Value: 2})
//
//	// Contiguous batches
//	nodes := a.AllocSlice([]Node{{Value: 3}, {Value: 4}})
//	more := a.AllocExtend(slices.Values(others))
//
// # Stable Addresses
//
// Every pointer and slice returned by an arena keeps its address. Chunks
// are never reallocated once a value has been handed out from them: when
// the current chunk is full, a new one of at least twice the capacity is
// installed and the old one is retired, untouched. Each batch is stored
// contiguously in a single chunk, and returned slices have cap == len so
// appending to them never writes into arena storage.
//
// # Thread Safety
//
// Arena is not goroutine-safe; re-entering it (for example from the
// sequence passed to AllocExtend) panics with ErrAlreadyBorrowed.
// For concurrent access, use SafeArena:
//
//	s := typedarena.NewSafe[Node](typedarena.WithCapacity(4096))
//	defer s.Release()
//
//	// Safe from any goroutine
//	n := s.Alloc(Node{Value: 42})
//
// # Teardown
//
// Release calls Drop on every element whose pointer implements Dropper,
// exactly once, and makes the arena unusable. There is no way to free a
// single element.
//
// # Metrics and Monitoring
//
//	stats := a.Stats()
//	fmt.Printf("Utilization: %.2f%%\n", stats.Utilization*100)
//	fmt.Printf("Chunks: %d\n", stats.NumChunks)
//
// Arenas created with WithMetrics also report to Prometheus.
package typedarena
