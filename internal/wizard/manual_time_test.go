package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

func TestParseMinutes(t *testing.T) {
	valid := map[string]int{"0": 0, "15": 15, " 90 ": 90, "007": 7}
	for raw, want := range valid {
		got, err := ParseMinutes(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "  ", "-5", "+5", "1.5", "ten", "٣", "99999999999999999999"} {
		_, err := ParseMinutes(raw)
		require.ErrorIs(t, err, domain.ErrInvalidInput, raw)
	}

	got, err := ParseMinutes("2147483647")
	require.NoError(t, err)
	require.Equal(t, domain.MaxMinutes, got)
	for _, raw := range []string{"2147483648", "9223372036854775807", "99999999999999999999"} {
		_, err := ParseMinutes(raw)
		require.ErrorIs(t, err, domain.ErrMinutesLimit, raw)
	}
}

func TestSubmitMinutesRetriesOnBadInput(t *testing.T) {
	var s State
	s.StartManualTime(3, 100, 101)

	called := false
	outcome, _, err := s.SubmitMinutes("abc", func(int64, int) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Equal(t, OutcomeRetry, outcome)
	require.False(t, called)
	require.True(t, s.In(FlowManualTime, StepAwaitingMinutes))
	require.Equal(t, int64(3), s.TargetActivityID)
}

func TestSubmitMinutesCompletes(t *testing.T) {
	var s State
	s.StartManualTime(3, 100, 101)

	var gotID int64
	var gotMinutes int
	outcome, entry, err := s.SubmitMinutes("25", func(id int64, minutes int) error {
		gotID, gotMinutes = id, minutes
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, outcome)
	require.Equal(t, int64(3), gotID)
	require.Equal(t, 25, gotMinutes)
	require.Equal(t, ManualEntry{ActivityID: 3, Minutes: 25, ViewMessageID: 100, PromptMessageID: 101}, entry)
	require.False(t, s.Active())
}

func TestSubmitMinutesKeepsPromptWhenTotalRejected(t *testing.T) {
	var s State
	s.StartManualTime(3, 100, 101)

	outcome, _, err := s.SubmitMinutes("500", func(int64, int) error {
		return domain.ErrMinutesLimit
	})
	require.ErrorIs(t, err, domain.ErrMinutesLimit)
	require.Equal(t, OutcomeRetry, outcome)
	require.True(t, s.In(FlowManualTime, StepAwaitingMinutes))
	require.Equal(t, int64(100), s.ViewMessageID)
	require.Equal(t, int64(101), s.PromptMessageID)
}

func TestSubmitMinutesTypeMismatchClears(t *testing.T) {
	var s State
	s.StartManualTime(3, 100, 101)

	outcome, _, err := s.SubmitMinutes("5", func(int64, int) error {
		return domain.ErrTypeMismatch
	})
	require.ErrorIs(t, err, domain.ErrTypeMismatch)
	require.Equal(t, OutcomeAborted, outcome)
	require.False(t, s.Active())
}

func TestSubmitMinutesFailureClears(t *testing.T) {
	var s State
	s.StartManualTime(3, 100, 101)

	outcome, _, err := s.SubmitMinutes("25", func(int64, int) error {
		return errors.New("timeout")
	})
	require.Error(t, err)
	require.Equal(t, OutcomeAborted, outcome)
	require.False(t, s.Active())
}
