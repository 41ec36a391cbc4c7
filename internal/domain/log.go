package domain

import (
	"fmt"
	"math"
	"time"
)

// DayLayout is the canonical textual form of a calendar day.
const DayLayout = "2006-01-02"

// MaxMinutes bounds a day's minute total to what the INTEGER column holds.
const MaxMinutes = math.MaxInt32

// Day truncates t to its calendar day in t's own location and returns it
// as midnight UTC, the form every store keys logs by.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(raw string) (time.Time, error) {
	parsed, err := time.Parse(DayLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, raw)
	}
	return parsed, nil
}

// ValidateRange rejects ranges whose end precedes their start.
func ValidateRange(start, end time.Time) error {
	if Day(end).Before(Day(start)) {
		return ErrInvalidRange
	}
	return nil
}

// ActivityLog is one activity's value on one calendar day. Exactly one of
// the value slots is populated, according to the parent activity's type.
type ActivityLog struct {
	ID           int64
	ActivityID   int64
	Date         time.Time
	ValueBool    *bool
	ValueMinutes *int
	UpdatedAt    time.Time
}

// NewLog builds the type-correct default row for an activity and day.
func NewLog(activity Activity, date time.Time) ActivityLog {
	log := ActivityLog{ActivityID: activity.ID, Date: Day(date)}
	MatchType(activity.Type,
		func() struct{} {
			unchecked := false
			log.ValueBool = &unchecked
			return struct{}{}
		},
		func() struct{} {
			zero := 0
			log.ValueMinutes = &zero
			return struct{}{}
		},
	)
	return log
}

// Checked reports the checkbox value, treating unset as false.
func (l ActivityLog) Checked() bool {
	return l.ValueBool != nil && *l.ValueBool
}

// Minutes reports the accumulated minutes, treating unset as zero.
func (l ActivityLog) Minutes() int {
	if l.ValueMinutes == nil {
		return 0
	}
	return *l.ValueMinutes
}

// Toggle flips the checkbox value.
func (l *ActivityLog) Toggle() {
	next := !l.Checked()
	l.ValueBool = &next
}

// AddMinutes adds a non-negative minute count to the running total. The
// total never passes MaxMinutes.
func (l *ActivityLog) AddMinutes(minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("%w: minutes must be non-negative", ErrInvalidInput)
	}
	if minutes > MaxMinutes-l.Minutes() {
		return ErrMinutesLimit
	}
	total := l.Minutes() + minutes
	l.ValueMinutes = &total
	return nil
}

// PeriodTotal is one aggregated row for an activity that has logs in a period.
type PeriodTotal struct {
	ActivityID    int64
	ActivityName  string
	ActivityType  ActivityType
	TotalMinutes  int
	TotalTrueDays int
}
