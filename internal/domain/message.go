package domain

// Trigger messages. Capture messages use Action, agent messages use Type.
const (
	ActionStartCapture = "START_CAPTURE"
	ActionStopCapture  = "STOP_CAPTURE"

	TypeStartClicking = "START_CLICKING"
	TypeStopClicking  = "STOP_CLICKING"
	TypeClickCount    = "CLICK_COUNT"
)

// Response statuses.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusRunning   = "running"
	StatusStopped   = "stopped"
)

type Message struct {
	Action   string `json:"action,omitempty"`
	Type     string `json:"type,omitempty"`
	Interval int    `json:"interval,omitempty"` // ms
}

type Response struct {
	Status string `json:"status"`
	Count  *int   `json:"count,omitempty"`
	File   string `json:"file,omitempty"`
}

// Notification is a one-way event for listeners (CLICK_COUNT after each activation).
type Notification struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
}
