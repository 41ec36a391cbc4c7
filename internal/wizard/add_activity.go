package wizard

import (
	"errors"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// CreateActivityFunc persists a new activity once the wizard has all inputs.
type CreateActivityFunc func(activityType domain.ActivityType, name string) error

// StartAddActivity begins the add-activity flow, superseding any other flow.
func (s *State) StartAddActivity() {
	*s = State{Flow: FlowAddActivity, Step: StepChoosingType}
}

// ChooseType records the activity type and moves on to the name prompt.
func (s *State) ChooseType(raw string) error {
	if !s.In(FlowAddActivity, StepChoosingType) {
		return ErrUnexpectedStep
	}
	activityType, err := domain.ParseActivityType(raw)
	if err != nil {
		return err
	}
	s.ActivityType = string(activityType)
	s.Step = StepAwaitingName
	return nil
}

// SubmitName hands the name to create. A duplicate or invalid name keeps the
// flow at the name prompt; any other failure clears it.
func (s *State) SubmitName(name string, create CreateActivityFunc) (Outcome, error) {
	if !s.In(FlowAddActivity, StepAwaitingName) {
		return OutcomeRetry, ErrUnexpectedStep
	}
	activityType := domain.ActivityType(s.ActivityType)
	if !activityType.Valid() {
		s.Clear()
		return OutcomeAborted, domain.ErrInvalidInput
	}

	err := create(activityType, name)
	switch {
	case err == nil:
		s.Clear()
		return OutcomeCompleted, nil
	case errors.Is(err, domain.ErrDuplicateName), errors.Is(err, domain.ErrInvalidInput):
		return OutcomeRetry, err
	default:
		s.Clear()
		return OutcomeAborted, err
	}
}
