package typedarena

import (
	"fmt"
	"slices"
	"sync"
)

type exampleNode struct {
	Parent *exampleNode
	Value  int
}

// Example demonstrates basic arena usage
func Example() {
	// Create a new arena with the default first chunk (about 1 KiB)
	a := New[exampleNode]()
	defer a.Release() // Always clean up

	// Build a linked list; every node stays where it was allocated
	var tail *exampleNode
	for i := 1; i <= 3; i++ {
		tail = a.Alloc(exampleNode{Parent: tail, Value: i})
	}
	for n := tail; n != nil; n = n.Parent {
		fmt.Printf("node %d\n", n.Value)
	}

	// Allocate a contiguous batch
	batch := a.AllocSlice([]exampleNode{{Value: 10}, {Value: 20}})
	fmt.Printf("Allocated batch of %d nodes\n", len(batch))

	stats := a.Stats()
	fmt.Printf("Elements: %d, chunk capacity: %d\n", stats.Elements, stats.Capacity)

	// Output:
	// node 3
	// node 2
	// node 1
	// Allocated batch of 2 nodes
	// Elements: 5, chunk capacity: 64
}

// ExampleArena_AllocExtend demonstrates growth while a batch is written
func ExampleArena_AllocExtend() {
	a := New[int](WithCapacity(2))
	defer a.Release()

	first := a.Alloc(100)
	squares := a.AllocExtend(func(yield func(int) bool) {
		for i := 1; i <= 5; i++ {
			if !yield(i * i) {
				return
			}
		}
	})

	fmt.Println(*first, squares)
	fmt.Printf("Chunks: %d, current capacity: %d\n", a.NumChunks(), a.CurrentCapacity())

	// Output:
	// 100 [1 4 9 16 25]
	// Chunks: 2, current capacity: 8
}

// ExampleArena_growth shows when an arena installs new chunks
func ExampleArena_growth() {
	a := New[uint32](WithCapacity(2))
	defer a.Release()

	for i := uint32(1); i <= 7; i++ {
		a.Alloc(i)
		fmt.Printf("alloc %d: retired chunks %d\n", i, a.RetiredChunks())
	}

	// Output:
	// alloc 1: retired chunks 0
	// alloc 2: retired chunks 0
	// alloc 3: retired chunks 1
	// alloc 4: retired chunks 1
	// alloc 5: retired chunks 1
	// alloc 6: retired chunks 1
	// alloc 7: retired chunks 2
}

// ExampleSafeArena demonstrates thread-safe arena usage
func ExampleSafeArena() {
	// Create a thread-safe arena
	s := NewSafe[exampleNode](WithCapacity(16))
	defer s.Release()

	var wg sync.WaitGroup
	const numWorkers = 3

	// Launch concurrent workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			// Each worker builds its own list in the shared arena
			var tail *exampleNode
			for j := 0; j < 10; j++ {
				tail = s.Alloc(exampleNode{Parent: tail, Value: id})
			}
		}(i)
	}

	wg.Wait()
	fmt.Printf("Total nodes: %d\n", s.Len())

	// Output:
	// Total nodes: 30
}

// ExampleArena_All demonstrates iterating over every allocated element
func ExampleArena_All() {
	a := New[string](WithCapacity(2))
	defer a.Release()

	a.Alloc("a")
	a.AllocSlice([]string{"b", "c"})
	a.AllocExtend(slices.Values([]string{"d"}))

	for s := range a.All() {
		fmt.Print(*s, " ")
	}
	fmt.Println()

	// Output:
	// a b c d
}
