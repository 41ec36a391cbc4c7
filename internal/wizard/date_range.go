package wizard

import (
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// Range is an inclusive pair of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered by the range.
func (r Range) Days() int {
	return int(domain.Day(r.End).Sub(domain.Day(r.Start)).Hours()/24) + 1
}

// StartDateRange begins the calendar picker for the given purpose.
func (s *State) StartDateRange(purpose Purpose) {
	*s = State{Flow: FlowDateRange, Step: StepPickingStart, Purpose: purpose}
}

// PickDay consumes a day selection. The first pick stores the start date; the
// second validates and returns the range. An end before the start is
// rejected with domain.ErrInvalidRange and the start date is kept.
func (s *State) PickDay(day time.Time) (Outcome, Range, error) {
	if s.Flow != FlowDateRange {
		return OutcomeRetry, Range{}, ErrUnexpectedStep
	}
	day = domain.Day(day)

	switch s.Step {
	case StepPickingStart:
		s.StartDate = &day
		s.Step = StepPickingEnd
		return OutcomeAdvanced, Range{}, nil
	case StepPickingEnd:
		if s.StartDate == nil {
			s.Clear()
			return OutcomeAborted, Range{}, ErrUnexpectedStep
		}
		start := *s.StartDate
		if err := domain.ValidateRange(start, day); err != nil {
			return OutcomeRetry, Range{}, err
		}
		s.Clear()
		return OutcomeCompleted, Range{Start: start, End: day}, nil
	}
	return OutcomeRetry, Range{}, ErrUnexpectedStep
}

// CalendarPrompt is the text shown above the month grid for the current step.
func (s State) CalendarPrompt() string {
	if s.In(FlowDateRange, StepPickingEnd) && s.StartDate != nil {
		return "Start date: " + s.StartDate.Format(domain.DayLayout) + "\nSelect the end date:"
	}
	return "Select the start date:"
}
