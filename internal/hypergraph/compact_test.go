package hypergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompact_RemapsToDenseRange(t *testing.T) {
	s := New()
	s.AddHyperedge(Edge{2, 5})
	s.AddHyperedge(Edge{5, 9})

	stats := s.Compact(1)

	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, 7, stats.Pruned)
	assert.Equal(t, []Edge{{0, 1}, {1, 2}}, s.Edges())
	assert.Equal(t, []int{1, 2, 1}, s.Degrees())
	assert.Equal(t, 2, s.MaxNodeID())
	assert.NoError(t, Verify(s))
}

func TestCompact_DropsDegeneratedEdges(t *testing.T) {
	s := New()
	s.AddHyperedge(Edge{0, 1})
	// Force an inconsistent state so that the edge references prunable nodes,
	// the only way compaction can shrink an edge.
	s.degrees[0] = 0
	s.degrees[1] = 0

	stats := s.Compact(20)

	assert.Equal(t, 1, stats.DroppedEdges)
	assert.Equal(t, 0, stats.Kept)
	assert.Equal(t, 0, s.EdgeCount())
	assert.Equal(t, 0, s.MaxNodeID(), "max id saturates at zero when nothing survives")
	assert.NoError(t, Verify(s))
}

func TestCompact_ShrinksMultiNodeEdges(t *testing.T) {
	s := New()
	s.AddHyperedge(Edge{0, 1, 2})
	s.degrees[1] = 0

	s.Compact(20)

	assert.Equal(t, []Edge{{0, 1}}, s.Edges())
	assert.Equal(t, []int{1, 1}, s.Degrees())
}

func TestCompact_EmptyStore(t *testing.T) {
	s := New()
	stats := s.Compact(0)

	assert.Equal(t, CompactStats{}, stats)
	assert.Equal(t, 0, s.MaxNodeID())
	assert.Empty(t, s.Degrees())
}

func TestCompact_Idempotent(t *testing.T) {
	s := New()
	s.AddHyperedge(Edge{1, 4})
	s.AddHyperedge(Edge{4, 4})
	s.AddNode(3)
	s.AddHyperedge(Edge{8, 1})

	s.Compact(5)
	edges, degrees, maxID, recent := s.Edges(), s.Degrees(), s.MaxNodeID(), s.RecentNodes()
	stats := s.Compact(5)

	assert.Equal(t, 0, stats.Pruned)
	assert.Equal(t, edges, s.Edges())
	assert.Equal(t, degrees, s.Degrees())
	assert.Equal(t, maxID, s.MaxNodeID())
	assert.Equal(t, recent, s.RecentNodes())
}

func TestCompact_RecencyProtection(t *testing.T) {
	tests := []struct {
		name      string
		addedAt   int
		compactAt int
		survives  bool
	}{
		{"same step", 5, 5, true},
		{"inside window", 5, 12, true},
		{"window edge inclusive", 5, 15, true},
		{"past window", 5, 16, false},
		{"compaction before creation", 5, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.AddHyperedge(Edge{0, 0})
			lonely := s.AddNode(tt.addedAt)
			require.Equal(t, 1, lonely)

			stats := s.Compact(tt.compactAt)

			if tt.survives {
				assert.Equal(t, 0, stats.Pruned)
				assert.Len(t, s.Degrees(), 2)
				assert.Equal(t, []RecentNode{{Node: 1, Step: tt.addedAt}}, s.RecentNodes())
			} else {
				assert.Equal(t, []int{1}, stats.PrunedIDs)
				assert.Len(t, s.Degrees(), 1)
				assert.Empty(t, s.RecentNodes())
			}
			assert.NoError(t, Verify(s))
		})
	}
}

func TestCompact_RecentEntriesFollowRemap(t *testing.T) {
	s := New()
	s.AddHyperedge(Edge{3, 3})
	fresh := s.AddNode(10)
	require.Equal(t, 4, fresh)

	s.Compact(10)

	// Ids 0..2 are pruned, so 3 becomes 0 and the fresh node becomes 1.
	assert.Equal(t, []RecentNode{{Node: 1, Step: 10}}, s.RecentNodes())
	assert.Equal(t, 1, s.MaxNodeID())

	// Still protected on the next pass within the window.
	stats := s.Compact(15)
	assert.Equal(t, 0, stats.Pruned)
	assert.Equal(t, []int{2, 0}, s.Degrees())
}

func TestCompact_InheritedIDIsNotProtected(t *testing.T) {
	s := New()
	s.AddHyperedge(Edge{3, 3})
	s.AddNode(10) // id 4, renumbered to 1 below
	s.Compact(10)

	// A later node reusing id 4 owes nothing to the earlier recency entry.
	s.AddHyperedge(Edge{0, 4})
	s.RemoveHyperedges([]int{1})
	stats := s.Compact(11)

	assert.Equal(t, 3, stats.Pruned, "ids 2, 3 and the orphaned 4 are reclaimed")
	assert.Equal(t, []RecentNode{{Node: 1, Step: 10}}, s.RecentNodes())
	assert.Equal(t, 1, s.MaxNodeID())
}

func TestCompact_CustomRecencyWindow(t *testing.T) {
	s := New(WithRecencyWindow(2))
	s.AddHyperedge(Edge{0, 0})
	s.AddNode(1)

	s.Compact(3)
	assert.Len(t, s.Degrees(), 2)

	s.Compact(4)
	assert.Len(t, s.Degrees(), 1)
}

func TestWithRecencyWindow_ClampsNegative(t *testing.T) {
	s := New(WithRecencyWindow(-4))
	assert.Equal(t, 0, s.RecencyWindow())
}
