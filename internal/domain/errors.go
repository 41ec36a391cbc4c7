package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrActivityNotFound is returned when an activity id does not resolve within the owner scope.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrDuplicateName is returned when an owner already has an activity with the same name.
	ErrDuplicateName = errors.New("activity name already exists")
	// ErrInvalidInput covers malformed user input such as negative minutes or bad dates.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidRange is returned when an end date precedes the start date.
	ErrInvalidRange = errors.New("end date is before start date")
	// ErrTypeMismatch is returned when an action does not apply to the activity's type.
	ErrTypeMismatch = errors.New("action does not apply to this activity type")
	// ErrStorageIntegrity marks an unexpected uniqueness or foreign-key violation.
	ErrStorageIntegrity = errors.New("storage integrity violation")
)

// ErrMinutesLimit is the InvalidInput raised when a day's minutes would pass MaxMinutes.
var ErrMinutesLimit = fmt.Errorf("%w: minutes exceed the daily limit", ErrInvalidInput)
