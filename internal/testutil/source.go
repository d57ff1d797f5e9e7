package testutil

import (
	"fmt"
	"sync"
)

// ScriptedSource replays predetermined random draws.
//
// Floats feed Float64 (the rule draw) and Ints feed IntN (active-node
// picks). Running out of either, or scripting an IntN value outside [0,n),
// panics: the test asked for more randomness than it planned for, which is
// exactly what draw-order tests need to notice.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedSource struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	fi, ii int
}

// NewScriptedSource creates a source that returns floats and ints in order.
func NewScriptedSource(floats []float64, ints []int) *ScriptedSource {
	return &ScriptedSource{floats: floats, ints: ints}
}

// Float64 returns the next scripted float.
func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fi >= len(s.floats) {
		panic(fmt.Sprintf("ScriptedSource: float draw %d not scripted", s.fi+1))
	}
	f := s.floats[s.fi]
	s.fi++
	return f
}

// IntN returns the next scripted int, which must lie in [0,n).
func (s *ScriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ii >= len(s.ints) {
		panic(fmt.Sprintf("ScriptedSource: int draw %d not scripted", s.ii+1))
	}
	v := s.ints[s.ii]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("ScriptedSource: scripted int %d outside [0,%d)", v, n))
	}
	s.ii++
	return v
}

// Consumed returns how many floats and ints have been drawn.
func (s *ScriptedSource) Consumed() (floats, ints int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fi, s.ii
}

// Exhausted reports whether every scripted draw has been used.
func (s *ScriptedSource) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fi == len(s.floats) && s.ii == len(s.ints)
}
