// Package wizard implements the multi-turn input flows a chat session can be
// in: adding an activity, picking a date range on a calendar, and entering
// minutes by hand. The machines hold no references to stores or transports;
// effects are passed in by the caller.
package wizard

import (
	"errors"
	"time"
)

// Flow names the active wizard.
type Flow string

const (
	FlowNone        Flow = ""
	FlowAddActivity Flow = "add_activity"
	FlowDateRange   Flow = "date_range"
	FlowManualTime  Flow = "manual_time"
)

// Step is the position inside a flow.
type Step string

const (
	StepChoosingType    Step = "choosing_type"
	StepAwaitingName    Step = "awaiting_name"
	StepPickingStart    Step = "picking_start"
	StepPickingEnd      Step = "picking_end"
	StepAwaitingMinutes Step = "awaiting_minutes"
)

// Purpose says what a completed date range is for.
type Purpose string

const (
	PurposeExport Purpose = "export"
	PurposeStats  Purpose = "stats"
)

// Outcome reports how a submitted input moved the machine.
type Outcome int

const (
	// OutcomeAdvanced means the flow moved to its next step.
	OutcomeAdvanced Outcome = iota
	// OutcomeCompleted means the flow finished and the state was cleared.
	OutcomeCompleted
	// OutcomeRetry means the input was rejected and the step is unchanged.
	OutcomeRetry
	// OutcomeAborted means an unexpected failure cleared the flow.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeCompleted:
		return "completed"
	case OutcomeRetry:
		return "retry"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// ErrUnexpectedStep is returned when an input arrives for a step the session is not in.
var ErrUnexpectedStep = errors.New("wizard: input does not match the current step")

// State is the per-session wizard record. The zero value is idle.
type State struct {
	Flow             Flow       `json:"flow,omitempty"`
	Step             Step       `json:"step,omitempty"`
	ActivityType     string     `json:"activity_type,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	Purpose          Purpose    `json:"purpose,omitempty"`
	TargetActivityID int64      `json:"target_activity_id,omitempty"`
	ViewMessageID    int64      `json:"view_message_id,omitempty"`
	PromptMessageID  int64      `json:"prompt_message_id,omitempty"`
}

// Active reports whether any flow is in progress.
func (s State) Active() bool {
	return s.Flow != FlowNone
}

// In reports whether the session sits at the given flow and step.
func (s State) In(flow Flow, step Step) bool {
	return s.Flow == flow && s.Step == step
}

// Clear returns the machine to idle, dropping all accumulated inputs.
func (s *State) Clear() {
	*s = State{}
}
