// Package domain defines the activity and log model and the access layer
// every other component reads and writes through.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ActivityRepository captures activity persistence. Lookups return a nil
// activity and nil error when nothing matches the owner scope.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	GetActivity(ctx context.Context, ownerID, activityID int64) (*Activity, error)
	FindActivityByName(ctx context.Context, ownerID int64, name string) (*Activity, error)
	ListActivities(ctx context.Context, ownerID int64) ([]Activity, error)
	DeleteActivity(ctx context.Context, ownerID, activityID int64) error
}

// LogMutation edits a materialized log in place before it is committed.
type LogMutation func(activity Activity, log *ActivityLog) error

// LogRepository captures per-day log persistence. Implementations resolve
// the activity within the owner scope and materialize the (activity, day)
// row inside the same transaction as the write.
type LogRepository interface {
	GetOrCreateLog(ctx context.Context, ownerID, activityID int64, date time.Time) (Activity, ActivityLog, error)
	MutateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate LogMutation) (Activity, ActivityLog, error)
	LogsForDay(ctx context.Context, ownerID int64, date time.Time) (map[int64]ActivityLog, error)
	LogsForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]ActivityLog, error)
	AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]PeriodTotal, error)
}

// Repository is the full durable store.
type Repository interface {
	ActivityRepository
	LogRepository
}

// Service orchestrates activity and log workflows.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateActivity validates and stores a new activity, rejecting names the owner already uses.
func (s *Service) CreateActivity(ctx context.Context, ownerID int64, name string, activityType ActivityType) (*Activity, error) {
	candidate, err := NewActivity(ownerID, name, activityType)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActivityByName(ctx, ownerID, candidate.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, candidate.Name)
	}

	created, err := s.repo.CreateActivity(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetActivity fetches by ID within the owner scope.
func (s *Service) GetActivity(ctx context.Context, ownerID, activityID int64) (*Activity, error) {
	activity, err := s.repo.GetActivity(ctx, ownerID, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// ListActivities returns the owner's activities in creation order.
func (s *Service) ListActivities(ctx context.Context, ownerID int64) ([]Activity, error) {
	return s.repo.ListActivities(ctx, ownerID)
}

// DeleteActivity removes an activity and, through the store's cascade, all its logs.
func (s *Service) DeleteActivity(ctx context.Context, ownerID, activityID int64) error {
	return s.repo.DeleteActivity(ctx, ownerID, activityID)
}

// GetOrCreateLog returns the unique log for (activity, day), materializing
// the type-correct default on first touch.
func (s *Service) GetOrCreateLog(ctx context.Context, ownerID, activityID int64, date time.Time) (ActivityLog, error) {
	_, log, err := s.repo.GetOrCreateLog(ctx, ownerID, activityID, Day(date))
	return log, err
}

// UpdateLog applies mutate to the day's log and commits exactly once.
func (s *Service) UpdateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate LogMutation) (Activity, ActivityLog, error) {
	return s.repo.MutateLog(ctx, ownerID, activityID, Day(date), mutate)
}

// LogsForDay returns the owner's logs for one day keyed by activity id.
func (s *Service) LogsForDay(ctx context.Context, ownerID int64, date time.Time) (map[int64]ActivityLog, error) {
	return s.repo.LogsForDay(ctx, ownerID, Day(date))
}

// LogsForPeriod returns the owner's logs within an inclusive day range.
func (s *Service) LogsForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]ActivityLog, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	return s.repo.LogsForPeriod(ctx, ownerID, Day(start), Day(end))
}

// AggregateForPeriod sums minutes and counts checked days per activity
// over an inclusive range. Activities without logs in range are omitted.
func (s *Service) AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]PeriodTotal, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	return s.repo.AggregateForPeriod(ctx, ownerID, Day(start), Day(end))
}

// IsUserError reports whether err is a recoverable condition the caller
// should surface to the user rather than treat as a failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrActivityNotFound) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidRange)
}
