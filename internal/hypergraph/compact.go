package hypergraph

// CompactStats summarises one compaction pass.
type CompactStats struct {
	Kept         int `json:"kept"`
	Pruned       int `json:"pruned"`
	DroppedEdges int `json:"dropped_edges"`
	// PrunedIDs lists the pre-compaction ids that were reclaimed.
	PrunedIDs []int `json:"pruned_ids,omitempty"`
}

// Compact rebuilds the store around its live nodes.
//
// A node survives if its degree is positive or it was added within the
// recency window ending at currentStep (inclusive). Survivors are renumbered
// densely in ascending order of their old ids. Every edge is rewritten with
// pruned nodes dropped, and an edge left with fewer than MinArity endpoints
// is discarded. Degrees are then recounted from the rewritten edges.
//
// Compacting twice at the same step is a no-op the second time.
func (s *Store) Compact(currentStep int) CompactStats {
	var stats CompactStats

	protected := make(map[int]bool, len(s.recent))
	for _, r := range s.recent {
		if s.withinWindow(currentStep, r.Step) {
			protected[r.Node] = true
		}
	}

	remap := make([]int, len(s.degrees))
	next := 0
	for i, d := range s.degrees {
		if d > 0 || protected[i] {
			remap[i] = next
			next++
			continue
		}
		remap[i] = -1
		stats.PrunedIDs = append(stats.PrunedIDs, i)
	}
	stats.Kept = next
	stats.Pruned = len(stats.PrunedIDs)

	edges := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		rewritten := make(Edge, 0, len(e))
		for _, node := range e {
			if node < len(remap) && remap[node] >= 0 {
				rewritten = append(rewritten, remap[node])
			}
		}
		if len(rewritten) < MinArity {
			stats.DroppedEdges++
			continue
		}
		edges = append(edges, rewritten)
	}

	degrees := make([]int, next)
	for _, e := range edges {
		for _, node := range e {
			degrees[node] = saturatingInc(degrees[node])
		}
	}

	// Recency entries follow their node through the renumbering. Keeping the
	// old id would protect whichever node inherits it instead.
	recent := s.recent[:0:0]
	for _, r := range s.recent {
		if !s.withinWindow(currentStep, r.Step) {
			continue
		}
		if r.Node >= len(remap) || remap[r.Node] < 0 {
			continue
		}
		recent = append(recent, RecentNode{Node: remap[r.Node], Step: r.Step})
	}

	s.edges = edges
	s.degrees = degrees
	s.maxNodeID = 0
	if next > 0 {
		s.maxNodeID = next - 1
	}
	s.recent = recent

	return stats
}

// withinWindow treats a creation step later than currentStep as age 0.
func (s *Store) withinWindow(currentStep, addedAt int) bool {
	if currentStep <= addedAt {
		return true
	}
	return currentStep-addedAt <= s.recencyWindow
}
