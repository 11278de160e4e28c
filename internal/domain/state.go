package domain

// CoordinatorState is the prompt/listen turn-taking state.
type CoordinatorState string

const (
	StateIdle       CoordinatorState = "idle"
	StatePrompting  CoordinatorState = "prompting"
	StateListening  CoordinatorState = "listening"
	StateCancelling CoordinatorState = "cancelling"
)

// Status summarizes the coordinator for the control API.
type Status struct {
	State     CoordinatorState `json:"state"`
	SessionID string           `json:"session_id,omitempty"`
	Dialogue  DialogueContext  `json:"dialogue"`
}
