package hypergraph

import (
	"math"
	"sort"
)

// DefaultRecencyWindow is the number of steps a freshly added node survives
// compaction without any incident edge.
const DefaultRecencyWindow = 10

// RecentNode records when a node was added explicitly through AddNode.
type RecentNode struct {
	Node int `json:"node"`
	Step int `json:"step"`
}

// Store owns the hyperedge collection and the per-node degree table.
type Store struct {
	edges     []Edge
	degrees   []int
	maxNodeID int
	recent    []RecentNode

	recencyWindow int
}

// Option configures a Store.
type Option func(*Store)

// WithRecencyWindow sets how many steps an explicitly added node is protected
// from pruning. Negative values are treated as 0.
func WithRecencyWindow(steps int) Option {
	return func(s *Store) {
		if steps < 0 {
			steps = 0
		}
		s.recencyWindow = steps
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		edges:         make([]Edge, 0, 16),
		degrees:       make([]int, 0, 16),
		recencyWindow: DefaultRecencyWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecencyWindow returns the configured protection window in steps.
func (s *Store) RecencyWindow() int {
	return s.recencyWindow
}

// AddHyperedge inserts a copy of edge and bumps the degree of every
// occurrence. Edges shorter than MinArity, or referencing a negative id, are
// dropped without effect.
func (s *Store) AddHyperedge(edge Edge) {
	if len(edge) < MinArity {
		return
	}
	for _, node := range edge {
		if node < 0 {
			return
		}
	}

	for _, node := range edge {
		s.grow(node)
		s.degrees[node] = saturatingInc(s.degrees[node])
	}
	s.edges = append(s.edges, edge.Clone())
}

// RemoveHyperedges removes the edges at the given positions and decrements
// the degree of each endpoint. Positions are applied highest first so that
// swap-removal never invalidates a position still to be processed.
// Out-of-range and repeated positions are ignored.
func (s *Store) RemoveHyperedges(indices []int) {
	if len(indices) == 0 {
		return
	}

	ordered := make([]int, len(indices))
	copy(ordered, indices)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	removed := make(map[int]struct{}, len(ordered))
	for _, i := range ordered {
		if i < 0 || i >= len(s.edges) {
			continue
		}
		if _, done := removed[i]; done {
			continue
		}
		for _, node := range s.edges[i] {
			s.degrees[node] = saturatingDec(s.degrees[node])
		}
		s.swapRemove(i)
		removed[i] = struct{}{}
	}
}

// AddNode registers a fresh node with degree 0 and records it as recent.
// The new id is MaxNodeID()+1, or 0 when the store has no nodes yet.
func (s *Store) AddNode(step int) int {
	id := s.maxNodeID + 1
	if len(s.degrees) == 0 {
		id = 0
	}
	s.grow(id)
	s.maxNodeID = id
	s.recent = append(s.recent, RecentNode{Node: id, Step: step})
	return id
}

// NodeCount returns the number of nodes with degree > 0.
func (s *Store) NodeCount() int {
	count := 0
	for _, d := range s.degrees {
		if d > 0 {
			count++
		}
	}
	return count
}

// EdgeCount returns the number of stored hyperedges.
func (s *Store) EdgeCount() int {
	return len(s.edges)
}

// MaxNodeID returns the highest node id assigned so far.
func (s *Store) MaxNodeID() int {
	return s.maxNodeID
}

// Degree returns the degree of node, or 0 when node is out of range.
func (s *Store) Degree(node int) int {
	if node < 0 || node >= len(s.degrees) {
		return 0
	}
	return s.degrees[node]
}

// Degrees returns a copy of the degree table.
func (s *Store) Degrees() []int {
	out := make([]int, len(s.degrees))
	copy(out, s.degrees)
	return out
}

// MaxDegree returns the largest degree in the table, 0 when empty.
func (s *Store) MaxDegree() int {
	_, d := s.maxDegree()
	return d
}

// MaxDegreeNode returns the lowest node id attaining MaxDegree, 0 when empty.
func (s *Store) MaxDegreeNode() int {
	n, _ := s.maxDegree()
	return n
}

func (s *Store) maxDegree() (node, degree int) {
	for i, d := range s.degrees {
		if d > degree {
			node, degree = i, d
		}
	}
	return node, degree
}

// ActiveNodes returns the ids with degree > 0 in ascending order.
func (s *Store) ActiveNodes() []int {
	active := make([]int, 0, len(s.degrees))
	for i, d := range s.degrees {
		if d > 0 {
			active = append(active, i)
		}
	}
	return active
}

// Edge returns a copy of the edge at position i.
func (s *Store) Edge(i int) (Edge, bool) {
	if i < 0 || i >= len(s.edges) {
		return nil, false
	}
	return s.edges[i].Clone(), true
}

// Edges returns a deep copy of every stored edge in storage order.
func (s *Store) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = e.Clone()
	}
	return out
}

// EachEdge calls fn for every edge in storage order until fn returns false.
// The edge passed to fn must not be modified or retained.
func (s *Store) EachEdge(fn func(i int, e Edge) bool) {
	for i, e := range s.edges {
		if !fn(i, e) {
			return
		}
	}
}

// SelfLoopIndex returns the position of the first two-element self edge on
// node, or -1 if there is none.
func (s *Store) SelfLoopIndex(node int) int {
	for i, e := range s.edges {
		if len(e) == 2 && e[0] == node && e[1] == node {
			return i
		}
	}
	return -1
}

// RecentNodes returns a copy of the recency record.
func (s *Store) RecentNodes() []RecentNode {
	out := make([]RecentNode, len(s.recent))
	copy(out, s.recent)
	return out
}

// grow extends the degree table with zeros so that node is a valid index.
func (s *Store) grow(node int) {
	if node < len(s.degrees) {
		return
	}
	s.degrees = append(s.degrees, make([]int, node+1-len(s.degrees))...)
	if node > s.maxNodeID {
		s.maxNodeID = node
	}
}

func (s *Store) swapRemove(i int) {
	last := len(s.edges) - 1
	s.edges[i] = s.edges[last]
	s.edges[last] = nil
	s.edges = s.edges[:last]
}

func saturatingInc(d int) int {
	if d == math.MaxInt {
		return d
	}
	return d + 1
}

func saturatingDec(d int) int {
	if d <= 0 {
		return 0
	}
	return d - 1
}
