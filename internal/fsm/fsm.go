// Package fsm defines the capture lifecycle state machine.
package fsm

import "fmt"

// State is one lifecycle phase of the capture/transcription cycle.
type State string

// Event is one input that may advance the lifecycle.
type Event string

const (
	StateReady        State = "ready"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Transition returns the successor state for one event, or an error when the
// event is not legal from the current state. EventFail is accepted from any
// state so failures always land in StateError.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateReady:
		if event == EventStart {
			return StateRecording, nil
		}
		return current, invalidTransition(current, event)
	case StateRecording:
		switch event {
		case EventStop:
			return StateTranscribing, nil
		case EventCancel:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		// No cancellation once transcription is in flight.
		if event == EventTranscribed {
			return StateReady, nil
		}
		return current, invalidTransition(current, event)
	case StateError:
		if event == EventReset {
			return StateReady, nil
		}
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
