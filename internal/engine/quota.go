package engine

// StepBudget limits how many steps a run may take.
//
// Unlike an error quota, exhausting the budget is the normal way a run ends:
// Take simply reports false once max steps have been granted.
type StepBudget struct {
	max  int
	used int
}

// NewStepBudget creates a budget of max steps. A negative max grants nothing.
func NewStepBudget(max int) *StepBudget {
	if max < 0 {
		max = 0
	}
	return &StepBudget{max: max}
}

// Take grants one step if any remain.
func (b *StepBudget) Take() bool {
	if b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Remaining returns the number of steps still available.
func (b *StepBudget) Remaining() int {
	return b.max - b.used
}
