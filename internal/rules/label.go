package rules

// Status-line labels.
const (
	LabelSplit        = "Split"
	LabelToggleAdd    = "Toggle Add"
	LabelToggleRemove = "Toggle Remove"
)

// Label classifies an outcome by the shape of what it did, not by the
// branch that produced it: a self edge as first addition reads as Toggle
// Add, a removal with additions as Split, anything else as Toggle Remove.
// A failed Toggle-Remove therefore reports as Toggle Add.
func Label(o Outcome) string {
	if len(o.Add) > 0 && o.Add[0].IsSelfLoop() {
		return LabelToggleAdd
	}
	if o.Remove && len(o.Add) > 0 {
		return LabelSplit
	}
	return LabelToggleRemove
}
