package pipeline

import "errors"

// State misuse is the only error class a run surfaces to the caller;
// collaborator failures degrade to record sentinels instead.
var (
	// ErrTerminalState indicates the controller was invoked on a record
	// that already reached a terminal stage
	ErrTerminalState = errors.New("claim record is already in a terminal state")

	// ErrUnknownStage indicates a record carries a stage name outside the
	// state machine (a corrupted or hand-built record)
	ErrUnknownStage = errors.New("unknown pipeline stage")
)
