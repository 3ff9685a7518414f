package sim

import "fmt"

// State is the controller's lifecycle position. Failed is terminal and
// reachable from every non-terminal state.
type State string

const (
	StateConfigured   State = "configured"
	StateInitialising State = "initialising"
	StateRunning      State = "running"
	StateFinalising   State = "finalising"
	StateComplete     State = "complete"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateConfigured:   {StateInitialising, StateFailed},
	StateInitialising: {StateRunning, StateFailed},
	StateRunning:      {StateFinalising, StateFailed},
	StateFinalising:   {StateComplete, StateFailed},
}

func (s State) canTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// InitError reports a model failure during initialisation.
type InitError struct {
	Model string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("sim: initialise %s: %v", e.Model, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// UpdateError reports a model failure during an update step.
type UpdateError struct {
	Model string
	Step  int
	Err   error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("sim: update %s at step %d: %v", e.Model, e.Step, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}
