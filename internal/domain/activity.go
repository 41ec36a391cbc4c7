package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxActivityNameLength bounds activity names, counted in runes.
const MaxActivityNameLength = 100

// ActivityType is the closed set of trackable activity shapes.
type ActivityType string

const (
	ActivityTypeCheckbox ActivityType = "checkbox"
	ActivityTypeTime     ActivityType = "time"
)

// ParseActivityType maps a lower- or upper-case label onto an ActivityType.
func ParseActivityType(raw string) (ActivityType, error) {
	switch ActivityType(strings.ToLower(strings.TrimSpace(raw))) {
	case ActivityTypeCheckbox:
		return ActivityTypeCheckbox, nil
	case ActivityTypeTime:
		return ActivityTypeTime, nil
	}
	return "", fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, raw)
}

// Valid reports whether t is one of the declared types.
func (t ActivityType) Valid() bool {
	return t == ActivityTypeCheckbox || t == ActivityTypeTime
}

// MatchType dispatches on the activity type. Every dispatch site names a
// branch per type, so adding a type breaks each caller at compile time.
func MatchType[T any](t ActivityType, checkbox func() T, timed func() T) T {
	switch t {
	case ActivityTypeCheckbox:
		return checkbox()
	case ActivityTypeTime:
		return timed()
	}
	panic(fmt.Sprintf("domain: unhandled activity type %q", string(t)))
}

// Activity is a named, typed item owned by a single user.
type Activity struct {
	ID        int64
	OwnerID   int64
	Name      string
	Type      ActivityType
	CreatedAt time.Time
}

// NewActivity validates the name and type of a not-yet-persisted activity.
func NewActivity(ownerID int64, name string, activityType ActivityType) (Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Activity{}, fmt.Errorf("%w: activity name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxActivityNameLength {
		return Activity{}, fmt.Errorf("%w: activity name exceeds %d characters", ErrInvalidInput, MaxActivityNameLength)
	}
	if !activityType.Valid() {
		return Activity{}, fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, string(activityType))
	}
	return Activity{
		OwnerID: ownerID,
		Name:    name,
		Type:    activityType,
	}, nil
}
