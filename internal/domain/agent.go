package domain

// AgentState is the click-scroll loop state.
type AgentState string

const (
	StateIdle              AgentState = "idle"
	StateScanning          AgentState = "scanning"
	StateActivating        AgentState = "activating"
	StateWaitingForDismiss AgentState = "waiting_for_dismiss"
	StateScrollingForMore  AgentState = "scrolling_for_more"
	StateStopped           AgentState = "stopped"
)

// Status is a point-in-time snapshot of the page-context session.
type Status struct {
	Capturing       bool       `json:"capturing"`
	Captured        int        `json:"captured"`
	Clicking        bool       `json:"clicking"`
	State           AgentState `json:"state"`
	Clicked         int        `json:"clicked"`
	ClickIntervalMs int        `json:"clickIntervalMs"`
}
