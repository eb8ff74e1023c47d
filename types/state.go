package types

// GenerationState represents the per-issue article generation state machine
type GenerationState string

const (
	StateAbsent     GenerationState = "absent"
	StateInProgress GenerationState = "in_progress"
	StateGenerated  GenerationState = "generated"
	StateFailed     GenerationState = "failed"
)

// GenerationStatus is a readout of the state machine for one issue
type GenerationStatus struct {
	IssueKey string          `json:"issueKey"`
	State    GenerationState `json:"state"`
	Since    int64           `json:"since,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}
