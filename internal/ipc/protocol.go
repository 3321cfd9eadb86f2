package ipc

// Control-plane commands understood by an active session owner.
const (
	CommandStart  = "start"
	CommandStatus = "status"
	CommandLevel  = "level"
	CommandStop   = "stop"
	CommandCancel = "cancel"
	CommandToggle = "toggle"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool     `json:"ok"`
	State   string   `json:"state,omitempty"`
	Level   *float64 `json:"level,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}
