package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// ManualEntry is what a successful minutes submission hands back to the caller.
type ManualEntry struct {
	ActivityID      int64
	Minutes         int
	ViewMessageID   int64
	PromptMessageID int64
}

// ApplyMinutesFunc adds minutes to the activity's log for today.
type ApplyMinutesFunc func(activityID int64, minutes int) error

// StartManualTime begins manual entry for an activity, remembering the list
// message to refresh and the prompt to remove afterwards.
func (s *State) StartManualTime(activityID, viewMessageID, promptMessageID int64) {
	*s = State{
		Flow:             FlowManualTime,
		Step:             StepAwaitingMinutes,
		TargetActivityID: activityID,
		ViewMessageID:    viewMessageID,
		PromptMessageID:  promptMessageID,
	}
}

// ParseMinutes accepts a run of ASCII digits, ignoring surrounding spaces.
func ParseMinutes(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: minutes are required", domain.ErrInvalidInput)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q is not a whole number", domain.ErrInvalidInput, raw)
		}
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes > domain.MaxMinutes {
		return 0, fmt.Errorf("%w: %q", domain.ErrMinutesLimit, raw)
	}
	return minutes, nil
}

// SubmitMinutes parses raw and applies it. Bad input, including a total the
// log rejects as invalid, keeps the prompt open. Any other failed apply clears
// the flow so the session cannot get stuck.
func (s *State) SubmitMinutes(raw string, apply ApplyMinutesFunc) (Outcome, ManualEntry, error) {
	if !s.In(FlowManualTime, StepAwaitingMinutes) {
		return OutcomeRetry, ManualEntry{}, ErrUnexpectedStep
	}
	minutes, err := ParseMinutes(raw)
	if err != nil {
		return OutcomeRetry, ManualEntry{}, err
	}

	entry := ManualEntry{
		ActivityID:      s.TargetActivityID,
		Minutes:         minutes,
		ViewMessageID:   s.ViewMessageID,
		PromptMessageID: s.PromptMessageID,
	}
	prompt := *s
	s.Clear()
	if err := apply(entry.ActivityID, minutes); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			*s = prompt
			return OutcomeRetry, ManualEntry{}, err
		}
		return OutcomeAborted, entry, err
	}
	return OutcomeCompleted, entry, nil
}
