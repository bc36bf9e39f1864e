package pipeline

import (
	"errors"
	"testing"
)

func TestNext_LinearPath(t *testing.T) {
	tests := []struct {
		current Stage
		isValid bool
		want    Stage
	}{
		{StageInit, false, StageParsed},
		{StageParsed, false, StageValidated},
		{StageValidated, true, StageQueriesGenerated},
		{StageValidated, false, StageRejected},
		{StageQueriesGenerated, true, StagePolicyRetrieved},
		{StagePolicyRetrieved, true, StageRecommended},
		{StageRecommended, true, StagePriceChecked},
		{StagePriceChecked, true, StageFinalized},
	}

	for _, tt := range tests {
		got, err := Next(tt.current, tt.isValid)
		if err != nil {
			t.Errorf("Next(%s, %v): unexpected error: %v", tt.current, tt.isValid, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Next(%s, %v) = %s, want %s", tt.current, tt.isValid, got, tt.want)
		}
	}
}

func TestNext_TerminalStages(t *testing.T) {
	for _, stage := range []Stage{StageFinalized, StageRejected} {
		_, err := Next(stage, true)
		if !errors.Is(err, ErrTerminalState) {
			t.Errorf("Next(%s): expected ErrTerminalState, got %v", stage, err)
		}
	}
}

func TestNext_UnknownStage(t *testing.T) {
	_, err := Next(Stage("processing"), true)
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestStage_IsTerminal(t *testing.T) {
	terminal := map[Stage]bool{
		StageFinalized: true,
		StageRejected:  true,
	}

	for stage := range validStages {
		if got := stage.IsTerminal(); got != terminal[stage] {
			t.Errorf("%s.IsTerminal() = %v, want %v", stage, got, terminal[stage])
		}
	}
}

func TestStage_IsValid(t *testing.T) {
	if !StageInit.IsValid() {
		t.Error("expected initialized to be a valid stage")
	}
	if Stage("done").IsValid() {
		t.Error("expected unknown stage to be invalid")
	}
	if Stage("").IsValid() {
		t.Error("expected empty stage to be invalid")
	}
}

func TestRouteAfterValidation(t *testing.T) {
	if RouteAfterValidation(true) != RouteContinue {
		t.Error("valid claim should continue")
	}
	if RouteAfterValidation(false) != RouteReject {
		t.Error("invalid claim should reject")
	}
}
