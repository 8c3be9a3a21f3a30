// internal/device/state.go
package device

import "github.com/tamzrod/totp-token/internal/status"

// State is the power/display state.
type State uint8

const (
	StateDormant State = iota + 1
	StateListening
	StateDisplaying
)

func (s State) String() string {
	switch s {
	case StateDormant:
		return "DORMANT"
	case StateListening:
		return "LISTENING"
	case StateDisplaying:
		return "DISPLAYING"
	default:
		return "UNKNOWN"
	}
}

// statusCode maps a state onto the exported status slot value.
func (s State) statusCode() uint16 {
	switch s {
	case StateDormant:
		return status.StateDormant
	case StateListening:
		return status.StateListening
	case StateDisplaying:
		return status.StateDisplaying
	default:
		return status.StateUnknown
	}
}

// DisplayMode selects how long a code stays on the panel.
type DisplayMode string

const (
	// DisplayFlat shows a code for the configured duration.
	DisplayFlat DisplayMode = "flat"
	// DisplayWindow shows a code until its window ends, capped by the
	// configured duration.
	DisplayWindow DisplayMode = "window"
)
