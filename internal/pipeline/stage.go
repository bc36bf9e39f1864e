package pipeline

import "fmt"

// Stage identifies one step of the claim-processing state machine.
// The stage stored on the record is observability metadata; branching
// decisions come from record fields, never from the stage name.
type Stage string

const (
	StageInit             Stage = "initialized"
	StageParsed           Stage = "parsed"
	StageValidated        Stage = "validated"
	StageQueriesGenerated Stage = "queries_generated"
	StagePolicyRetrieved  Stage = "policy_retrieved"
	StageRecommended      Stage = "recommendation_generated"
	StagePriceChecked     Stage = "price_checked"
	StageFinalized        Stage = "finalized"
	StageRejected         Stage = "rejected"
)

var validStages = map[Stage]bool{
	StageInit:             true,
	StageParsed:           true,
	StageValidated:        true,
	StageQueriesGenerated: true,
	StagePolicyRetrieved:  true,
	StageRecommended:      true,
	StagePriceChecked:     true,
	StageFinalized:        true,
	StageRejected:         true,
}

var terminalStages = map[Stage]bool{
	StageFinalized: true,
	StageRejected:  true,
}

// IsTerminal returns true if no further stage may execute
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// IsValid returns true if the stage name is known
func (s Stage) IsValid() bool {
	return validStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Route is the outcome of the single branch point after validation
type Route string

const (
	RouteContinue Route = "continue"
	RouteReject   Route = "reject"
)

// RouteAfterValidation is the router: a pure function of the validation
// verdict, used exactly once per run
func RouteAfterValidation(isValid bool) Route {
	if isValid {
		return RouteContinue
	}
	return RouteReject
}

// Next returns the stage to execute after current. The graph is linear
// except for the validation branch; calling Next on a terminal stage is
// a state misuse.
func Next(current Stage, isValid bool) (Stage, error) {
	switch current {
	case StageInit:
		return StageParsed, nil
	case StageParsed:
		return StageValidated, nil
	case StageValidated:
		if RouteAfterValidation(isValid) == RouteContinue {
			return StageQueriesGenerated, nil
		}
		return StageRejected, nil
	case StageQueriesGenerated:
		return StagePolicyRetrieved, nil
	case StagePolicyRetrieved:
		return StageRecommended, nil
	case StageRecommended:
		return StagePriceChecked, nil
	case StagePriceChecked:
		return StageFinalized, nil
	case StageFinalized, StageRejected:
		return "", fmt.Errorf("%w: %s", ErrTerminalState, current)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, current)
	}
}
