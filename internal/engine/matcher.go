package engine

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/roach88/hgsim/internal/hypergraph"
)

// LocalConnected returns up to maxSize edge indices discovered breadth-first
// from seed. It stands in for pattern matching and is an approximation: the
// result is whatever a bounded edge-discovery walk reaches first, not a
// shortest-path region or a full connected component.
//
// The first pass takes edges containing seed in storage order and queues
// every node they reference. The walk then dequeues nodes FIFO and takes any
// unvisited edge containing them, queueing endpoints not already waiting.
//
// Returns an empty slice for a seed that is out of range, has degree 0, or
// when maxSize < 1.
func LocalConnected(v hypergraph.View, seed, maxSize int) []int {
	result := []int{}
	if maxSize < 1 || v.Degree(seed) == 0 {
		return result
	}

	visited := roaring.New()
	frontier := linkedlistqueue.New()
	queued := make(map[int]int)
	enqueue := func(n int) {
		frontier.Enqueue(n)
		queued[n]++
	}

	v.EachEdge(func(i int, e hypergraph.Edge) bool {
		if len(result) >= maxSize {
			return false
		}
		if e.Contains(seed) {
			result = append(result, i)
			visited.Add(uint32(i))
			for _, n := range e {
				enqueue(n)
			}
		}
		return true
	})

	for !frontier.Empty() && len(result) < maxSize {
		head, _ := frontier.Dequeue()
		node := head.(int)
		queued[node]--

		v.EachEdge(func(i int, e hypergraph.Edge) bool {
			if len(result) >= maxSize {
				return false
			}
			if visited.Contains(uint32(i)) || !e.Contains(node) {
				return true
			}
			result = append(result, i)
			visited.Add(uint32(i))
			for _, m := range e {
				if queued[m] == 0 {
					enqueue(m)
				}
			}
			return true
		})
	}

	return result
}
