package ir

// Run status values.
const (
	// RunStatusRunning marks a run whose step loop has not finished.
	RunStatusRunning = "running"
	// RunStatusCompleted marks a run that used its full step budget.
	RunStatusCompleted = "completed"
	// RunStatusExhausted marks a run that stopped early with no active nodes.
	RunStatusExhausted = "exhausted"
	// RunStatusCancelled marks a run stopped by context cancellation.
	RunStatusCancelled = "cancelled"
	// RunStatusFailed marks a run aborted by a recording or verification error.
	RunStatusFailed = "failed"
)

// RunParams are the inputs that fully determine a run.
type RunParams struct {
	Seed               int64  `json:"seed"`
	Steps              int    `json:"steps"`
	PatternSize        int    `json:"pattern_size"`
	RecencyWindow      int    `json:"recency_window"`
	InitialSelfLoops   int    `json:"initial_self_loops"`
	ToggleRemoveTarget string `json:"toggle_remove_target"`
}

// Map returns the params as a canonical-JSON-ready map.
func (p RunParams) Map() map[string]any {
	return map[string]any{
		"seed":                 p.Seed,
		"steps":                p.Steps,
		"pattern_size":         p.PatternSize,
		"recency_window":       p.RecencyWindow,
		"initial_self_loops":   p.InitialSelfLoops,
		"toggle_remove_target": p.ToggleRemoveTarget,
	}
}

// RunInfo describes one simulation run.
type RunInfo struct {
	ID            string    `json:"id"`
	Params        RunParams `json:"params"`
	ConfigHash    string    `json:"config_hash"`
	Status        string    `json:"status"`
	StepsRun      int       `json:"steps_run"`
	EngineVersion string    `json:"engine_version"`
	IRVersion     string    `json:"ir_version"`
}

// StepRecord captures one step of the driver loop and the state it left.
type StepRecord struct {
	RunID string `json:"run_id"`
	Step  int    `json:"step"`

	// Skipped is true when the seed node had no incident edge; nothing
	// else in the step happened.
	Skipped  bool `json:"skipped"`
	SeedNode int  `json:"seed_node"`

	PatternIndices []int   `json:"pattern_indices"`
	Pattern        [][]int `json:"pattern"`

	Rule    string  `json:"rule"`
	Label   string  `json:"label"`
	Focus   int     `json:"focus"`
	Removed [][]int `json:"removed"`
	Added   [][]int `json:"added"`

	Pruned int `json:"pruned"`

	NodeCount     int     `json:"node_count"`
	EdgeCount     int     `json:"edge_count"`
	MaxDegree     int     `json:"max_degree"`
	MaxDegreeNode int     `json:"max_degree_node"`
	ActiveNodes   []int   `json:"active_nodes"`
	Degrees       []int   `json:"degrees"`
	Sample        [][]int `json:"sample"`

	StateHash string `json:"state_hash"`
}

// Map returns the record as a canonical-JSON-ready map.
func (r StepRecord) Map() map[string]any {
	return map[string]any{
		"run_id":          r.RunID,
		"step":            r.Step,
		"skipped":         r.Skipped,
		"seed_node":       r.SeedNode,
		"pattern_indices": nonNilInts(r.PatternIndices),
		"pattern":         nonNilEdges(r.Pattern),
		"rule":            r.Rule,
		"label":           r.Label,
		"focus":           r.Focus,
		"removed":         nonNilEdges(r.Removed),
		"added":           nonNilEdges(r.Added),
		"pruned":          r.Pruned,
		"node_count":      r.NodeCount,
		"edge_count":      r.EdgeCount,
		"max_degree":      r.MaxDegree,
		"max_degree_node": r.MaxDegreeNode,
		"active_nodes":    nonNilInts(r.ActiveNodes),
		"degrees":         nonNilInts(r.Degrees),
		"sample":          nonNilEdges(r.Sample),
		"state_hash":      r.StateHash,
	}
}

// Snapshot is the full graph state at the end of a run.
type Snapshot struct {
	RunID     string  `json:"run_id"`
	Step      int     `json:"step"`
	Edges     [][]int `json:"edges"`
	Degrees   []int   `json:"degrees"`
	MaxNodeID int     `json:"max_node_id"`
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilEdges(v [][]int) [][]int {
	if v == nil {
		return [][]int{}
	}
	return v
}
